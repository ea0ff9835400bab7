package repository

import (
	"context"

	"voicesmith/internal/domain/model"
)

// AgentConfigRepository archives successfully built agent configurations.
type AgentConfigRepository interface {
	Save(ctx context.Context, cfg *model.AgentConfig) error
	Find(ctx context.Context, sessionID string) (*model.AgentConfig, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*model.AgentConfig, error)
}
