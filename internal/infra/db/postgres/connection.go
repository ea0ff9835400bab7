package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Connect returns a live *pgxpool.Pool and ensures the schema exists.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.Connect(cctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool connect: %w", err)
	}
	if err := ensureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func ensureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS agent_configs (
    session_id       TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL,
    org_name         TEXT NOT NULL,
    agent_name       TEXT NOT NULL,
    script           TEXT NOT NULL,
    greeting         TEXT NOT NULL DEFAULT '',
    dialogue_intents TEXT NOT NULL DEFAULT '',
    knowledge        TEXT NOT NULL DEFAULT '',
    voice_id         TEXT NOT NULL,
    voice_name       TEXT NOT NULL DEFAULT '',
    system_hints     TEXT NOT NULL DEFAULT '',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_agent_configs_tenant ON agent_configs (tenant_id, created_at DESC);
`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
