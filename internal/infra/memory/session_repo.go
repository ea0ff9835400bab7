package memory

import (
	"context"
	"sync"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*SessionRepo)(nil)

// SessionRepo is the default in-process session store. Snapshots are copied
// on both writes and reads so callers never share live pointers.
type SessionRepo struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewSessionRepo() *SessionRepo {
	return &SessionRepo{sessions: make(map[string]model.Session)}
}

func (r *SessionRepo) Save(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *SessionRepo) Find(ctx context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := s
	return &cp, nil
}
