package model

import "time"

type Phase string

const (
	PhaseIntake     Phase = "INTAKE"
	PhaseGenerating Phase = "GENERATING"
	PhaseReady      Phase = "READY"
	PhaseBuilding   Phase = "BUILDING"
	PhaseDeployed   Phase = "DEPLOYED"
	PhaseFailed     Phase = "FAILED"
)

// Terminal reports whether no further pipeline work can change the phase.
func (p Phase) Terminal() bool { return p == PhaseDeployed }

// Artifact names produced by the generation and finalization stages.
const (
	ArtifactScript          = "script"
	ArtifactGreeting        = "greeting"
	ArtifactDialogueIntents = "dialogue_intents"
	ArtifactKnowledgeSeed   = "knowledge_seed"
	ArtifactKnowledge       = "knowledge"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Session is one end-to-end conversation plus build attempt. It is owned
// exclusively by the pipeline engine; one advance call mutates it at a time.
type Session struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Phase    Phase  `json:"phase"`

	Fields    FieldSet          `json:"fields"`
	Artifacts map[string]string `json:"artifacts"`

	Conversation []Turn   `json:"conversation"`
	BuildLog     []string `json:"build_log"`

	Complete    bool     `json:"complete"`
	Question    string   `json:"question,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`

	VoiceCandidates   []VoiceCandidate `json:"voice_candidates,omitempty"`
	SelectedVoiceID   string           `json:"selected_voice_id,omitempty"`
	SelectedVoiceName string           `json:"selected_voice_name,omitempty"`

	LatestUpdates []string `json:"latest_updates,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id, tenantID string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		TenantID:  tenantID,
		Phase:     PhaseIntake,
		Artifacts: map[string]string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) AppendTurn(role, text string) {
	s.Conversation = append(s.Conversation, Turn{Role: role, Text: text})
}

// Log appends one human-readable trace line to the build log.
func (s *Session) Log(line string) {
	s.BuildLog = append(s.BuildLog, line)
}

// RecentLogs returns the most recent n build log lines.
func (s *Session) RecentLogs(n int) []string {
	if n <= 0 || len(s.BuildLog) <= n {
		return s.BuildLog
	}
	return s.BuildLog[len(s.BuildLog)-n:]
}

func (s *Session) Artifact(name string) string {
	return s.Artifacts[name]
}

func (s *Session) SetArtifact(name, content string) {
	if s.Artifacts == nil {
		s.Artifacts = map[string]string{}
	}
	s.Artifacts[name] = content
}

// HasGenerated reports whether the heavyweight generation output exists, the
// idempotency key for the generation stage.
func (s *Session) HasGenerated() bool {
	return s.Artifact(ArtifactScript) != ""
}

// CandidateByID looks a voice up in the current candidate snapshot.
func (s *Session) CandidateByID(voiceID string) (VoiceCandidate, bool) {
	for _, c := range s.VoiceCandidates {
		if c.VoiceID == voiceID {
			return c, true
		}
	}
	return VoiceCandidate{}, false
}
