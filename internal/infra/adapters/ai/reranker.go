package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.VoiceReranker = (*RerankerService)(nil)

// RerankerService orders catalog candidates against the agent's persona.
type RerankerService struct {
	ai    adapter.AIServiceAdapter
	model string
	log   *zerolog.Logger
}

func NewRerankerService(ai adapter.AIServiceAdapter, model string, logger *zerolog.Logger) *RerankerService {
	l := logger.With().Str("component", "VoiceReranker").Logger()
	return &RerankerService{ai: ai, model: model, log: &l}
}

type rerankReply struct {
	RankedIDs []string `json:"ranked_ids"`
}

func (r *RerankerService) Rank(ctx context.Context, candidates []model.VoiceCandidate, fields model.FieldSet) ([]string, error) {
	payload := struct {
		Persona    string                 `json:"persona"`
		Gender     string                 `json:"gender"`
		Accent     string                 `json:"accent"`
		Tone       []string               `json:"tone"`
		Candidates []model.VoiceCandidate `json:"candidates"`
	}{
		Persona:    fields.PersonaDescription,
		Gender:     fields.VoiceGender,
		Accent:     fields.VoiceAccent,
		Tone:       fields.VoiceTone,
		Candidates: candidates,
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	msgs := []adapter.Message{
		{Role: "system", Content: rerankSystemPrompt},
		{Role: "user", Content: string(b)},
	}
	reply, err := r.ai.Chat(ctx, r.model, msgs)
	if err != nil {
		return nil, fmt.Errorf("rerank chat: %w", err)
	}

	var parsed rerankReply
	if err := decodeModelJSON(reply, &parsed); err != nil {
		return nil, fmt.Errorf("rerank: %w", err)
	}
	if len(parsed.RankedIDs) == 0 {
		return nil, fmt.Errorf("rerank: empty ranking")
	}
	return parsed.RankedIDs, nil
}
