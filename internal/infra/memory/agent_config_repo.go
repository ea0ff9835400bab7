package memory

import (
	"context"
	"sort"
	"sync"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/repository"
)

var _ repository.AgentConfigRepository = (*AgentConfigRepo)(nil)

// AgentConfigRepo archives built agents in memory when no database is
// configured.
type AgentConfigRepo struct {
	mu      sync.RWMutex
	configs map[string]model.AgentConfig
}

func NewAgentConfigRepo() *AgentConfigRepo {
	return &AgentConfigRepo{configs: make(map[string]model.AgentConfig)}
}

func (r *AgentConfigRepo) Save(ctx context.Context, cfg *model.AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.SessionID] = *cfg
	return nil
}

func (r *AgentConfigRepo) Find(ctx context.Context, sessionID string) (*model.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.configs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := cfg
	return &cp, nil
}

func (r *AgentConfigRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.AgentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.AgentConfig, 0)
	for _, cfg := range r.configs {
		if cfg.TenantID == tenantID {
			cp := cfg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
