package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.AgentConfigRepository = (*PostgresAgentConfigRepo)(nil)

type PostgresAgentConfigRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAgentConfigRepo(pool *pgxpool.Pool) *PostgresAgentConfigRepo {
	return &PostgresAgentConfigRepo{pool: pool}
}

func (r *PostgresAgentConfigRepo) Save(ctx context.Context, cfg *model.AgentConfig) error {
	const sql = `
INSERT INTO agent_configs (session_id, tenant_id, org_name, agent_name, script,
                           greeting, dialogue_intents, knowledge, voice_id,
                           voice_name, system_hints, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (session_id) DO UPDATE
  SET script           = EXCLUDED.script,
      greeting         = EXCLUDED.greeting,
      dialogue_intents = EXCLUDED.dialogue_intents,
      knowledge        = EXCLUDED.knowledge,
      voice_id         = EXCLUDED.voice_id,
      voice_name       = EXCLUDED.voice_name,
      system_hints     = EXCLUDED.system_hints;
`
	_, err := r.pool.Exec(ctx, sql,
		cfg.SessionID, cfg.TenantID, cfg.OrgName, cfg.AgentName, cfg.Script,
		cfg.Greeting, cfg.DialogueIntents, cfg.Knowledge, cfg.VoiceID,
		cfg.VoiceName, cfg.SystemHints, cfg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("Save agent config: %w", err)
	}
	return nil
}

const selectColumns = `
SELECT session_id, tenant_id, org_name, agent_name, script, greeting,
       dialogue_intents, knowledge, voice_id, voice_name, system_hints, created_at
  FROM agent_configs
`

func (r *PostgresAgentConfigRepo) Find(ctx context.Context, sessionID string) (*model.AgentConfig, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` WHERE session_id = $1;`, sessionID)
	var c model.AgentConfig
	if err := row.Scan(&c.SessionID, &c.TenantID, &c.OrgName, &c.AgentName, &c.Script,
		&c.Greeting, &c.DialogueIntents, &c.Knowledge, &c.VoiceID,
		&c.VoiceName, &c.SystemHints, &c.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("Find agent config: %w", err)
	}
	return &c, nil
}

func (r *PostgresAgentConfigRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.AgentConfig, error) {
	rows, err := r.pool.Query(ctx, selectColumns+` WHERE tenant_id = $1 ORDER BY created_at DESC;`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("ListByTenant agent configs: %w", err)
	}
	defer rows.Close()
	var out []*model.AgentConfig
	for rows.Next() {
		var c model.AgentConfig
		if err := rows.Scan(&c.SessionID, &c.TenantID, &c.OrgName, &c.AgentName, &c.Script,
			&c.Greeting, &c.DialogueIntents, &c.Knowledge, &c.VoiceID,
			&c.VoiceName, &c.SystemHints, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}
