package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

func testLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- repositories ---

type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]*model.Session{}}
}

func (r *memSessionRepo) Save(ctx context.Context, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memSessionRepo) Find(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

type memConfigRepo struct {
	mu      sync.Mutex
	configs map[string]*model.AgentConfig
}

func newMemConfigRepo() *memConfigRepo {
	return &memConfigRepo{configs: map[string]*model.AgentConfig{}}
}

func (r *memConfigRepo) Save(ctx context.Context, cfg *model.AgentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.SessionID] = cfg
	return nil
}

func (r *memConfigRepo) Find(ctx context.Context, sessionID string) (*model.AgentConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cfg, nil
}

func (r *memConfigRepo) ListByTenant(ctx context.Context, tenantID string) ([]*model.AgentConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.AgentConfig
	for _, cfg := range r.configs {
		if cfg.TenantID == tenantID {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// --- collaborators ---

type fakeExtractor struct {
	mu    sync.Mutex
	fn    func(message string, known model.FieldSet) (adapter.ExtractionDelta, error)
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, message string, history []model.Turn, known model.FieldSet) (adapter.ExtractionDelta, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return adapter.ExtractionDelta{}, nil
	}
	return f.fn(message, known)
}

type fakeGenerator struct {
	mu    sync.Mutex
	fn    func(fields model.FieldSet) (adapter.GeneratedArtifacts, error)
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, fields model.FieldSet) (adapter.GeneratedArtifacts, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn == nil {
		return adapter.GeneratedArtifacts{
			Script:          "script for " + fields.AgentName,
			Greeting:        "hello from " + fields.AgentName,
			DialogueIntents: "{}",
		}, nil
	}
	return f.fn(fields)
}

func (f *fakeGenerator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeKnowledge struct {
	fn func(orgName, sourceURL, hints string) (string, error)
}

func (f *fakeKnowledge) Synthesize(ctx context.Context, orgName, sourceURL, hints string) (string, error) {
	if f.fn == nil {
		return "# " + orgName + " facts", nil
	}
	return f.fn(orgName, sourceURL, hints)
}

type fakeCatalog struct {
	fn func(f adapter.VoiceFilter) ([]model.VoiceCandidate, error)
}

func (c *fakeCatalog) Search(ctx context.Context, f adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
	if c.fn == nil {
		return nil, nil
	}
	return c.fn(f)
}

type fakeReranker struct {
	fn func(candidates []model.VoiceCandidate, fields model.FieldSet) ([]string, error)
}

func (r *fakeReranker) Rank(ctx context.Context, candidates []model.VoiceCandidate, fields model.FieldSet) ([]string, error) {
	if r.fn == nil {
		var ids []string
		for _, c := range candidates {
			ids = append(ids, c.VoiceID)
		}
		return ids, nil
	}
	return r.fn(candidates, fields)
}

type fakeDeployer struct {
	fn func(cfg *model.AgentConfig, progress func(string)) (string, error)
}

func (d *fakeDeployer) Deploy(ctx context.Context, cfg *model.AgentConfig, progress func(message string)) (string, error) {
	if d.fn == nil {
		progress("deploying " + cfg.AgentName)
		return "https://agents.example.com/" + cfg.SessionID, nil
	}
	return d.fn(cfg, progress)
}

// --- event sink ---

type recordedEvent struct {
	SessionID string
	Type      string
	Payload   any
}

type recordSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *recordSink) Log(sessionID, phase, message string) {
	s.Event(sessionID, adapter.EventLog, map[string]any{"phase": phase, "message": message})
}

func (s *recordSink) Event(sessionID, eventType string, payload any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{SessionID: sessionID, Type: eventType, Payload: payload})
}

func (s *recordSink) byType(eventType string) []recordedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []recordedEvent
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// --- job coordination ---

// syncJobs runs job work inline on StartIfAbsent so tests stay deterministic.
// Kinds listed in hold never resolve, modelling a slow collaborator.
type syncJobs struct {
	mu      sync.Mutex
	results map[string]*model.JobResult
	errs    map[string]error
	started map[string]bool
	hold    map[model.JobKind]bool
}

func newSyncJobs() *syncJobs {
	return &syncJobs{
		results: map[string]*model.JobResult{},
		errs:    map[string]error{},
		started: map[string]bool{},
		hold:    map[model.JobKind]bool{},
	}
}

func jobTestKey(sessionID string, kind model.JobKind) string {
	return sessionID + "/" + string(kind)
}

func (j *syncJobs) StartIfAbsent(sessionID string, kind model.JobKind, work func(ctx context.Context) (model.JobResult, error)) bool {
	key := jobTestKey(sessionID, kind)
	j.mu.Lock()
	if j.started[key] {
		j.mu.Unlock()
		return false
	}
	j.started[key] = true
	held := j.hold[kind]
	j.mu.Unlock()

	if held {
		return true
	}
	res, err := work(context.Background())
	j.mu.Lock()
	defer j.mu.Unlock()
	if err != nil {
		j.errs[key] = err
	} else {
		j.results[key] = &res
	}
	return true
}

func (j *syncJobs) Peek(sessionID string, kind model.JobKind) (*model.JobResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := jobTestKey(sessionID, kind)
	if err, ok := j.errs[key]; ok {
		return nil, err
	}
	return j.results[key], nil
}

func (j *syncJobs) Await(ctx context.Context, sessionID string, kind model.JobKind, timeout time.Duration) (*model.JobResult, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	key := jobTestKey(sessionID, kind)
	if !j.started[key] {
		return nil, domain.ErrJobNotStarted
	}
	if err, ok := j.errs[key]; ok {
		return nil, err
	}
	if res, ok := j.results[key]; ok {
		return res, nil
	}
	return nil, domain.ErrJobTimeout
}

func (j *syncJobs) Drop(sessionID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, kind := range []model.JobKind{model.JobKindKnowledge, model.JobKindVoice} {
		key := jobTestKey(sessionID, kind)
		delete(j.started, key)
		delete(j.results, key)
		delete(j.errs, key)
	}
}

// inlineRunner executes submitted tasks synchronously.
type inlineRunner struct{}

func (inlineRunner) Submit(task func(ctx context.Context) error) error {
	return task(context.Background())
}

// failingRunner rejects every handoff, as a saturated queue would.
type failingRunner struct{ err error }

func (r failingRunner) Submit(task func(ctx context.Context) error) error {
	return r.err
}
