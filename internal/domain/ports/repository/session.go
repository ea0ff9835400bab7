package repository

import (
	"context"

	"voicesmith/internal/domain/model"
)

// SessionRepository is the checkpoint store for pipeline sessions. The core
// contract does not require durability; implementations may be in-memory.
type SessionRepository interface {
	Save(ctx context.Context, s *model.Session) error
	// Find returns domain.ErrNotFound when the session does not exist.
	Find(ctx context.Context, id string) (*model.Session, error)
}
