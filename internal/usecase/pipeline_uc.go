package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
	"voicesmith/internal/domain/ports/repository"
	"voicesmith/internal/infra/metrics"
)

// Compile-time check
var _ PipelineUseCase = (*pipelineUC)(nil)

// JobCoordinator is the pipeline's view of the background job registry.
type JobCoordinator interface {
	StartIfAbsent(sessionID string, kind model.JobKind, work func(ctx context.Context) (model.JobResult, error)) bool
	Peek(sessionID string, kind model.JobKind) (*model.JobResult, error)
	Await(ctx context.Context, sessionID string, kind model.JobKind, timeout time.Duration) (*model.JobResult, error)
	Drop(sessionID string)
}

// BuildRunner executes supervised build tasks off the request path.
type BuildRunner interface {
	Submit(task func(ctx context.Context) error) error
}

// BuildLocker guards against duplicate builds for the same session across
// replicas. The in-process mutex already serializes a single instance.
type BuildLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// SessionView is the caller-facing checkpoint of a session after one
// pipeline operation.
type SessionView struct {
	SessionID          string                 `json:"session_id"`
	Phase              model.Phase            `json:"phase"`
	IsComplete         bool                   `json:"is_complete"`
	ClarifyingQuestion string                 `json:"clarifying_question,omitempty"`
	Suggestions        []string               `json:"suggestions,omitempty"`
	RecentLogs         []string               `json:"recent_logs"`
	Fields             model.FieldSet         `json:"fields"`
	VoiceCandidates    []model.VoiceCandidate `json:"voice_candidates,omitempty"`
	SelectedVoiceID    string                 `json:"selected_voice_id,omitempty"`
	UpdatedFields      []string               `json:"updated_fields,omitempty"`
}

type PipelineUseCase interface {
	// Advance runs the stage pipeline for one inbound message (or resumes
	// with no message) and stops at the first pause point. A missing
	// sessionID creates a new session.
	Advance(ctx context.Context, sessionID, tenantID, message string) (*SessionView, error)
	// SelectVoice locks the voice choice and resumes toward finalization.
	SelectVoice(ctx context.Context, sessionID, voiceID string) (*SessionView, error)
	// StartBuild is the only way into the BUILDING phase.
	StartBuild(ctx context.Context, sessionID string) error
	Get(ctx context.Context, sessionID string) (*SessionView, error)
}

type pipelineUC struct {
	sessions  repository.SessionRepository
	configs   repository.AgentConfigRepository
	extractor adapter.Extractor
	generator adapter.Generator
	knowledge adapter.KnowledgeSynthesizer
	voices    *VoiceMatcher
	jobs      JobCoordinator
	deployer  adapter.Deployer
	events    adapter.EventSink
	runner    BuildRunner
	buildLock BuildLocker

	knowledgeTimeout time.Duration
	recentLogs       int

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	log *zerolog.Logger
}

type PipelineDeps struct {
	Sessions  repository.SessionRepository
	Configs   repository.AgentConfigRepository
	Extractor adapter.Extractor
	Generator adapter.Generator
	Knowledge adapter.KnowledgeSynthesizer
	Voices    *VoiceMatcher
	Jobs      JobCoordinator
	Deployer  adapter.Deployer
	Events    adapter.EventSink
	Runner    BuildRunner
	BuildLock BuildLocker

	KnowledgeTimeout time.Duration
	RecentLogs       int
}

func NewPipelineUseCase(deps PipelineDeps, logger *zerolog.Logger) *pipelineUC {
	if deps.KnowledgeTimeout <= 0 {
		deps.KnowledgeTimeout = 30 * time.Second
	}
	if deps.RecentLogs <= 0 {
		deps.RecentLogs = 10
	}
	if deps.BuildLock == nil {
		deps.BuildLock = NoopLocker{}
	}
	l := logger.With().Str("component", "Pipeline").Logger()
	return &pipelineUC{
		sessions:         deps.Sessions,
		configs:          deps.Configs,
		extractor:        deps.Extractor,
		generator:        deps.Generator,
		knowledge:        deps.Knowledge,
		voices:           deps.Voices,
		jobs:             deps.Jobs,
		deployer:         deps.Deployer,
		events:           deps.Events,
		runner:           deps.Runner,
		buildLock:        deps.BuildLock,
		knowledgeTimeout: deps.KnowledgeTimeout,
		recentLogs:       deps.RecentLogs,
		locks:            map[string]*sync.Mutex{},
		log:              &l,
	}
}

// sessionLock serializes pipeline operations per session; advance calls for
// different sessions proceed independently.
func (p *pipelineUC) sessionLock(sessionID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	mu, ok := p.locks[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		p.locks[sessionID] = mu
	}
	return mu
}

func (p *pipelineUC) Advance(ctx context.Context, sessionID, tenantID, message string) (*SessionView, error) {
	start := time.Now()
	if sessionID == "" {
		sessionID = ulid.Make().String()
	}
	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := p.sessions.Find(ctx, sessionID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s = model.NewSession(sessionID, tenantID)
		p.log.Info().Str("session_id", sessionID).Str("tenant_id", tenantID).Msg("new session")
	case err != nil:
		metrics.IncAdvance("error")
		return nil, fmt.Errorf("load session: %w", err)
	}

	view, err := p.advanceLocked(ctx, s, message)
	metrics.ObserveAdvanceMs(float64(time.Since(start).Milliseconds()))
	return view, err
}

func (p *pipelineUC) advanceLocked(ctx context.Context, s *model.Session, message string) (*SessionView, error) {
	if s.Phase == model.PhaseBuilding || s.Phase.Terminal() {
		metrics.IncAdvance("noop")
		return p.view(s), nil
	}

	if message != "" {
		s.AppendTurn("user", message)
		p.runExtraction(ctx, s, message)
	}

	// Voice search starts the moment its preconditions hold, regardless of
	// pipeline stage, so its latency hides behind user think-time.
	p.maybeStartVoiceSearch(s)

	if v := Validate(s.Fields); !v.Complete {
		s.Complete = false
		s.Question = v.Question
		s.Suggestions = v.Suggestions
		s.Log("[VALIDATE] missing: " + v.Missing)
		p.transition(s, model.PhaseIntake)
		metrics.IncPausePoint("fields_incomplete")
		metrics.IncAdvance("paused")
		return p.saveView(ctx, s)
	}

	p.runGeneration(ctx, s)

	if s.SelectedVoiceID == "" {
		s.Complete = false
		s.Question = fmt.Sprintf("Everything is prepared for **%s**. Please select the final voice profile to enable the build button.", s.Fields.AgentName)
		s.Suggestions = nil
		metrics.IncPausePoint("voice_unselected")
		metrics.IncAdvance("paused")
		return p.saveView(ctx, s)
	}

	p.runFinalize(ctx, s)
	metrics.IncPausePoint("await_build")
	metrics.IncAdvance("ready")
	return p.saveView(ctx, s)
}

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

func isSkipWord(message string) bool {
	switch strings.ToLower(strings.TrimSpace(message)) {
	case "continue", "skip", "no", "none", "proceed", "skip for now":
		return true
	}
	return false
}

// runExtraction merges collaborator-extracted fields into the session. URL
// capture and the knowledge opt-out are detected deterministically so they
// survive an extraction-service outage.
func (p *pipelineUC) runExtraction(ctx context.Context, s *model.Session, message string) {
	s.Log("[EXTRACT] analyzing user message")

	delta := model.FieldSet{}
	if m := urlPattern.FindString(message); m != "" {
		delta.KnowledgeURL = m
		s.Log("[EXTRACT] knowledge source captured: " + m)
	}
	if isSkipWord(message) {
		delta.KnowledgeOptOut = true
		s.Log("[EXTRACT] proceeding without a knowledge source")
	}

	s.LatestUpdates = nil
	res, err := p.extractor.Extract(ctx, message, s.Conversation, s.Fields)
	if err != nil {
		// Recovered locally: the previous field set stands, logged only.
		metrics.IncFallback("extraction")
		p.log.Warn().Err(err).Str("session_id", s.ID).Msg("extraction degraded")
		s.Log("[EXTRACT] extraction unavailable, keeping previous fields")
	} else {
		s.Fields = s.Fields.Merge(res.Fields)
		s.LatestUpdates = res.Updated
		if len(res.Updated) > 0 {
			s.Log("[EXTRACT] updated fields: " + strings.Join(res.Updated, ", "))
		}
	}
	// Explicit URL capture overrides whatever the collaborator inferred.
	s.Fields = s.Fields.Merge(delta)
	// Raw input goes into the hint trail so generation sees every constraint.
	s.Fields = s.Fields.AppendHint("User input: " + message)
}

func (p *pipelineUC) maybeStartVoiceSearch(s *model.Session) {
	f := s.Fields
	if !f.VoiceReady() || strings.TrimSpace(f.PersonaDescription) == "" {
		return
	}
	if s.SelectedVoiceID != "" || len(s.VoiceCandidates) > 0 {
		return
	}
	sid := s.ID
	p.jobs.StartIfAbsent(sid, model.JobKindVoice, func(ctx context.Context) (model.JobResult, error) {
		cands, err := p.voices.Match(ctx, f)
		if err != nil {
			return model.JobResult{}, err
		}
		p.events.Event(sid, adapter.EventLog, map[string]any{
			"phase":            model.PhaseGenerating,
			"message":          fmt.Sprintf("Found %d matching voices", len(cands)),
			"voice_candidates": cands,
		})
		return model.JobResult{Voices: cands}, nil
	})
}

func (p *pipelineUC) startKnowledgeJob(s *model.Session) {
	if s.Artifact(model.ArtifactKnowledge) != "" {
		return
	}
	f := s.Fields
	sid := s.ID
	p.jobs.StartIfAbsent(sid, model.JobKindKnowledge, func(ctx context.Context) (model.JobResult, error) {
		p.events.Log(sid, string(model.PhaseGenerating), "Synthesizing knowledge base in background...")
		doc, err := p.knowledge.Synthesize(ctx, f.OrgLabel(), f.KnowledgeURL, f.SystemHints)
		if err != nil {
			return model.JobResult{}, err
		}
		p.events.Log(sid, string(model.PhaseGenerating), "Knowledge base ready")
		return model.JobResult{Knowledge: doc}, nil
	})
}

// runGeneration produces the heavyweight artifacts exactly once per session
// and harvests background-job results without ever blocking.
func (p *pipelineUC) runGeneration(ctx context.Context, s *model.Session) {
	p.transition(s, model.PhaseGenerating)

	if !s.HasGenerated() {
		s.Log("[GENERATE] producing agent artifacts")
		p.events.Log(s.ID, string(model.PhaseGenerating), "Generating agent artifacts...")
		arts, err := p.generator.Generate(ctx, s.Fields)
		if err != nil {
			metrics.IncFallback("generation")
			p.log.Warn().Err(err).Str("session_id", s.ID).Msg("generation degraded")
			arts = fallbackArtifacts(s.Fields)
			s.Log("[GENERATE] generator unavailable, using minimal template")
		}
		s.SetArtifact(model.ArtifactScript, arts.Script)
		s.SetArtifact(model.ArtifactGreeting, arts.Greeting)
		s.SetArtifact(model.ArtifactDialogueIntents, arts.DialogueIntents)
		if arts.KnowledgeSeed != "" {
			s.SetArtifact(model.ArtifactKnowledgeSeed, arts.KnowledgeSeed)
		}
		s.Log(fmt.Sprintf("[GENERATE] script ready (%d chars)", len(arts.Script)))
	}

	p.startKnowledgeJob(s)

	if s.Artifact(model.ArtifactKnowledge) == "" {
		if res, err := p.jobs.Peek(s.ID, model.JobKindKnowledge); err == nil && res != nil {
			s.SetArtifact(model.ArtifactKnowledge, res.Knowledge)
			s.Log("[GENERATE] knowledge base ready")
		}
	}

	if s.SelectedVoiceID == "" && len(s.VoiceCandidates) == 0 {
		if res, err := p.jobs.Peek(s.ID, model.JobKindVoice); err == nil && res != nil {
			s.VoiceCandidates = res.Voices
			s.Log(fmt.Sprintf("[GENERATE] %d voice candidates ready", len(res.Voices)))
		}
	}
}

// runFinalize is the one stage permitted to block the caller: by now the
// user has committed, so a bounded wait beats another round-trip.
func (p *pipelineUC) runFinalize(ctx context.Context, s *model.Session) {
	if s.Artifact(model.ArtifactKnowledge) == "" {
		res, err := p.jobs.Await(ctx, s.ID, model.JobKindKnowledge, p.knowledgeTimeout)
		if err == nil {
			s.SetArtifact(model.ArtifactKnowledge, res.Knowledge)
			s.Log("[FINALIZE] knowledge base ready")
		} else {
			metrics.IncFallback("knowledge")
			p.log.Warn().Err(err).Str("session_id", s.ID).Msg("knowledge unavailable, substituting placeholder")
			s.SetArtifact(model.ArtifactKnowledge, placeholderKnowledge(s.Fields))
			s.Log("[FINALIZE] knowledge unavailable, using placeholder")
		}
	}

	if c, ok := s.CandidateByID(s.SelectedVoiceID); ok {
		s.SelectedVoiceName = c.Name
	}
	// Selection locks the choice; candidates are no longer relevant.
	s.VoiceCandidates = nil
	s.Complete = true
	s.Question = ""
	s.Suggestions = nil
	p.transition(s, model.PhaseReady)
	s.Log("[FINALIZE] voice locked: " + s.SelectedVoiceName)
	s.Log("[FINALIZE] all artifacts ready; build enabled")
	p.events.Event(s.ID, adapter.EventStatusUpdate, map[string]any{
		"phase":          model.PhaseReady,
		"ready_to_build": true,
		"message":        "All artifacts ready for deployment.",
	})
}

func (p *pipelineUC) SelectVoice(ctx context.Context, sessionID, voiceID string) (*SessionView, error) {
	if voiceID == "" {
		return nil, domain.ErrInvalidArgument
	}
	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := p.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Phase == model.PhaseBuilding || s.Phase.Terminal() {
		return nil, domain.ErrSessionNotResumable
	}
	if s.SelectedVoiceID == voiceID {
		return p.view(s), nil
	}
	if s.SelectedVoiceID != "" {
		// The earlier selection already locked in and cleared the candidates.
		return nil, domain.ErrStaleVoiceSelection
	}

	// Candidates may have resolved since the last advance call.
	if len(s.VoiceCandidates) == 0 {
		if res, perr := p.jobs.Peek(s.ID, model.JobKindVoice); perr == nil && res != nil {
			s.VoiceCandidates = res.Voices
		}
	}

	c, ok := s.CandidateByID(voiceID)
	if !ok {
		return nil, domain.ErrStaleVoiceSelection
	}

	s.SelectedVoiceID = voiceID
	s.SelectedVoiceName = c.Name
	s.Log("[VOICE] selected: " + c.Name)
	p.events.Log(s.ID, string(s.Phase), "Voice selected: "+c.Name)

	return p.advanceLocked(ctx, s, "")
}

func (p *pipelineUC) StartBuild(ctx context.Context, sessionID string) error {
	cfg, lockKey, token, err := p.prepareBuild(ctx, sessionID)
	if err != nil {
		return err
	}

	// The session lock is released at this point: executeBuild re-acquires
	// it, and the runner is allowed to run the task on this goroutine.
	sid := cfg.SessionID
	if err := p.runner.Submit(func(taskCtx context.Context) error {
		defer func() { _ = p.buildLock.Unlock(taskCtx, lockKey, token) }()
		p.executeBuild(taskCtx, sid, cfg)
		return nil
	}); err != nil {
		_ = p.buildLock.Unlock(ctx, lockKey, token)
		p.revertBuildStart(ctx, sid)
		return fmt.Errorf("queue build: %w", err)
	}
	return nil
}

// prepareBuild checks the build preconditions, takes the distributed build
// lock and moves the session to BUILDING, all under the session lock.
func (p *pipelineUC) prepareBuild(ctx context.Context, sessionID string) (*model.AgentConfig, string, string, error) {
	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := p.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, "", "", err
	}
	// A failed attempt stays resumable: the user may retry without losing
	// gathered fields.
	if !s.Complete || (s.Phase != model.PhaseReady && s.Phase != model.PhaseFailed) {
		return nil, "", "", domain.ErrPreconditionFailed
	}
	if s.SelectedVoiceID == "" {
		return nil, "", "", domain.ErrNoVoiceSelected
	}

	lockKey := "build:" + s.ID
	token, err := p.buildLock.TryLock(ctx, lockKey, 10*time.Minute)
	if err != nil {
		return nil, "", "", domain.ErrBuildInProgress
	}

	cfg := assembleConfig(s)
	p.transition(s, model.PhaseBuilding)
	s.Log("[BUILD] starting deployment for " + cfg.AgentName)
	if err := p.sessions.Save(ctx, s); err != nil {
		_ = p.buildLock.Unlock(ctx, lockKey, token)
		return nil, "", "", fmt.Errorf("save session: %w", err)
	}
	metrics.IncBuild("started")
	return cfg, lockKey, token, nil
}

// revertBuildStart undoes the BUILDING transition when the build could not
// be handed off to the runner.
func (p *pipelineUC) revertBuildStart(ctx context.Context, sessionID string) {
	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	s, err := p.sessions.Find(ctx, sessionID)
	if err != nil {
		return
	}
	p.transition(s, model.PhaseReady)
	s.Log("[BUILD] handoff failed, build not started")
	_ = p.sessions.Save(ctx, s)
}

// executeBuild supervises the deploy collaborator for logging only; any
// failure is fatal for this attempt and moves the session to FAILED.
func (p *pipelineUC) executeBuild(ctx context.Context, sessionID string, cfg *model.AgentConfig) {
	progress := func(msg string) { p.events.Log(sessionID, string(model.PhaseBuilding), msg) }
	url, err := p.deployer.Deploy(ctx, cfg, progress)

	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	s, ferr := p.sessions.Find(ctx, sessionID)
	if ferr != nil {
		p.log.Error().Err(ferr).Str("session_id", sessionID).Msg("session lost during build")
		return
	}

	if err != nil {
		p.transition(s, model.PhaseFailed)
		s.Log("[BUILD] failed: " + err.Error())
		_ = p.sessions.Save(ctx, s)
		metrics.IncBuild("failed")
		p.events.Event(sessionID, adapter.EventDeploymentFailed, map[string]any{
			"agent_id": sessionID,
			"status":   "failed",
			"error":    err.Error(),
		})
		return
	}

	p.transition(s, model.PhaseDeployed)
	s.Log("[BUILD] deployed: " + url)
	_ = p.sessions.Save(ctx, s)
	if serr := p.configs.Save(ctx, cfg); serr != nil {
		p.log.Warn().Err(serr).Str("session_id", sessionID).Msg("agent config archive failed")
	}
	metrics.IncBuild("deployed")
	p.events.Event(sessionID, adapter.EventDeploymentComplete, map[string]any{
		"agent_id":       sessionID,
		"status":         "success",
		"deployment_url": url,
	})
}

func (p *pipelineUC) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	mu := p.sessionLock(sessionID)
	mu.Lock()
	defer mu.Unlock()
	s, err := p.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return p.view(s), nil
}

func (p *pipelineUC) transition(s *model.Session, phase model.Phase) {
	if s.Phase == phase {
		return
	}
	s.Phase = phase
	metrics.IncPhaseTransition(string(phase))
}

func (p *pipelineUC) saveView(ctx context.Context, s *model.Session) (*SessionView, error) {
	s.UpdatedAt = time.Now()
	if err := p.sessions.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return p.view(s), nil
}

func (p *pipelineUC) view(s *model.Session) *SessionView {
	return &SessionView{
		SessionID:          s.ID,
		Phase:              s.Phase,
		IsComplete:         s.Complete,
		ClarifyingQuestion: s.Question,
		Suggestions:        s.Suggestions,
		RecentLogs:         s.RecentLogs(p.recentLogs),
		Fields:             s.Fields,
		VoiceCandidates:    s.VoiceCandidates,
		SelectedVoiceID:    s.SelectedVoiceID,
		UpdatedFields:      s.LatestUpdates,
	}
}

func assembleConfig(s *model.Session) *model.AgentConfig {
	return &model.AgentConfig{
		SessionID:       s.ID,
		TenantID:        s.TenantID,
		OrgName:         s.Fields.OrgLabel(),
		AgentName:       s.Fields.AgentName,
		Script:          s.Artifact(model.ArtifactScript),
		Greeting:        s.Artifact(model.ArtifactGreeting),
		DialogueIntents: s.Artifact(model.ArtifactDialogueIntents),
		Knowledge:       s.Artifact(model.ArtifactKnowledge),
		VoiceID:         s.SelectedVoiceID,
		VoiceName:       s.SelectedVoiceName,
		SystemHints:     s.Fields.SystemHints,
		CreatedAt:       time.Now(),
	}
}

func fallbackArtifacts(f model.FieldSet) adapter.GeneratedArtifacts {
	name := f.AgentName
	if name == "" {
		name = "Assistant"
	}
	return adapter.GeneratedArtifacts{
		Script: fmt.Sprintf("You are %s, a voice assistant for %s. Personality: %s. Stay helpful, accurate and concise.",
			name, f.OrgLabel(), f.PersonaDescription),
		Greeting:        fmt.Sprintf("Hello! I'm %s. How can I help you today?", name),
		DialogueIntents: "{}",
	}
}

func placeholderKnowledge(f model.FieldSet) string {
	name := f.AgentName
	if name == "" {
		name = "Agent"
	}
	return fmt.Sprintf("# %s Knowledge Base\n\nOrganization: %s\n", name, f.OrgLabel())
}

// NoopLocker satisfies BuildLocker for single-instance deployments.
type NoopLocker struct{}

func (NoopLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return uuid.NewString(), nil
}

func (NoopLocker) Unlock(ctx context.Context, key, token string) error { return nil }
