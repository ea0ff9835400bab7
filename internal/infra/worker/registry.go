package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/infra/metrics"
)

type jobKey struct {
	session string
	kind    model.JobKind
}

// job is a single-resolution promise: resolve() runs at most once, after
// which result/err are immutable and done is closed for any number of readers.
type job struct {
	done   chan struct{}
	result model.JobResult
	err    error
}

func (j *job) resolved() bool {
	select {
	case <-j.done:
		return true
	default:
		return false
	}
}

// Registry owns all in-flight and resolved background jobs, keyed by
// (session, kind). It is the single source of truth for "is a job already
// running": registration is an atomic check-and-insert, so at most one job
// per key is ever dispatched no matter how often a trigger fires.
type Registry struct {
	mu   sync.Mutex
	jobs map[jobKey]*job
	base context.Context
	log  *zerolog.Logger
}

func NewRegistry(logger *zerolog.Logger) *Registry {
	l := logger.With().Str("component", "JobRegistry").Logger()
	return &Registry{
		jobs: make(map[jobKey]*job),
		base: context.Background(),
		log:  &l,
	}
}

// Start sets the context under which spawned work runs. Jobs outlive the
// advance call that spawned them but not the process.
func (r *Registry) Start(ctx context.Context) {
	r.mu.Lock()
	r.base = ctx
	r.mu.Unlock()
}

// StartIfAbsent dispatches work for the key unless a job is already running
// or already resolved. A duplicate attempt is a silent no-op. Returns true
// when a new job was dispatched.
func (r *Registry) StartIfAbsent(sessionID string, kind model.JobKind, work func(ctx context.Context) (model.JobResult, error)) bool {
	r.mu.Lock()
	k := jobKey{session: sessionID, kind: kind}
	if _, exists := r.jobs[k]; exists {
		r.mu.Unlock()
		metrics.IncJobSuppressed(string(kind))
		return false
	}
	j := &job{done: make(chan struct{})}
	r.jobs[k] = j
	base := r.base
	r.mu.Unlock()

	metrics.IncJobStarted(string(kind))
	r.log.Debug().Str("session_id", sessionID).Str("kind", string(kind)).Msg("background job dispatched")

	go func() {
		res, err := work(base)
		j.result, j.err = res, err
		close(j.done)
		status := model.JobStatusDone
		if err != nil {
			status = model.JobStatusFailed
			r.log.Warn().Err(err).Str("session_id", sessionID).Str("kind", string(kind)).Msg("background job failed")
		} else {
			r.log.Debug().Str("session_id", sessionID).Str("kind", string(kind)).Msg("background job resolved")
		}
		metrics.IncJobResolved(string(kind), string(status))
	}()
	return true
}

// Peek is the non-blocking read. It returns (nil, nil) while the job is
// pending or was never started, the result once resolved, and the job's
// error if it failed.
func (r *Registry) Peek(sessionID string, kind model.JobKind) (*model.JobResult, error) {
	r.mu.Lock()
	j := r.jobs[jobKey{session: sessionID, kind: kind}]
	r.mu.Unlock()
	if j == nil || !j.resolved() {
		return nil, nil
	}
	if j.err != nil {
		return nil, j.err
	}
	res := j.result
	return &res, nil
}

// Await blocks until the job resolves or the timeout elapses. The caller must
// supply a fallback on domain.ErrJobTimeout. Awaiting a key that was never
// started fails immediately with domain.ErrJobNotStarted.
func (r *Registry) Await(ctx context.Context, sessionID string, kind model.JobKind, timeout time.Duration) (*model.JobResult, error) {
	r.mu.Lock()
	j := r.jobs[jobKey{session: sessionID, kind: kind}]
	r.mu.Unlock()
	if j == nil {
		return nil, domain.ErrJobNotStarted
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-j.done:
		if j.err != nil {
			return nil, j.err
		}
		res := j.result
		return &res, nil
	case <-timer.C:
		metrics.IncJobAwaitTimeout(string(kind))
		return nil, domain.ErrJobTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Started reports whether a job exists for the key, resolved or not.
func (r *Registry) Started(sessionID string, kind model.JobKind) bool {
	_, ok := r.Status(sessionID, kind)
	return ok
}

// Status reports the lifecycle of the job for this key. The second return is
// false when no job was ever started.
func (r *Registry) Status(sessionID string, kind model.JobKind) (model.JobStatus, bool) {
	r.mu.Lock()
	j := r.jobs[jobKey{session: sessionID, kind: kind}]
	r.mu.Unlock()
	if j == nil {
		return "", false
	}
	if !j.resolved() {
		return model.JobStatusPending, true
	}
	if j.err != nil {
		return model.JobStatusFailed, true
	}
	return model.JobStatusDone, true
}

// Drop forgets all jobs for a session so a rebuilt session can trigger fresh
// work. Running goroutines are not cancelled; their results simply become
// unreachable.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, kind := range []model.JobKind{model.JobKindKnowledge, model.JobKindVoice} {
		delete(r.jobs, jobKey{session: sessionID, kind: kind})
	}
}
