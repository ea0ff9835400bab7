package adapter

import (
	"context"

	"voicesmith/internal/domain/model"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// AIServiceAdapter is the low-level port for LLM chat completion.
type AIServiceAdapter interface {
	// Chat returns only the assistant text.
	Chat(ctx context.Context, model string, messages []Message) (string, error)

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact isn't available).
	CountTokens(ctx context.Context, model string, messages []Message) (int, error)
}

// ExtractionDelta is the outcome of one text-extraction call: the sparse
// field set found in the utterance plus the names of fields the user
// explicitly changed.
type ExtractionDelta struct {
	Fields  model.FieldSet
	Updated []string
}

// Extractor turns one user utterance plus prior context into field updates.
type Extractor interface {
	Extract(ctx context.Context, message string, history []model.Turn, known model.FieldSet) (ExtractionDelta, error)
}

// GeneratedArtifacts is the text-generation collaborator's output.
type GeneratedArtifacts struct {
	Script          string `json:"script"`
	Greeting        string `json:"greeting"`
	DialogueIntents string `json:"dialogue_intents"`
	KnowledgeSeed   string `json:"knowledge_seed"`
}

// Generator produces the heavyweight behavioral artifacts from the field set.
type Generator interface {
	Generate(ctx context.Context, fields model.FieldSet) (GeneratedArtifacts, error)
}

// KnowledgeSynthesizer produces a markdown knowledge document from a source
// URL or freeform hints.
type KnowledgeSynthesizer interface {
	Synthesize(ctx context.Context, orgName, sourceURL, hints string) (string, error)
}

// VoiceReranker orders candidate voices against the agent's persona and
// returns voice ids, best first.
type VoiceReranker interface {
	Rank(ctx context.Context, candidates []model.VoiceCandidate, fields model.FieldSet) ([]string, error)
}
