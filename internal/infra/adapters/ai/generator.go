package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.Generator = (*GeneratorService)(nil)

// GeneratorService produces the heavyweight behavioral artifacts in a single
// structured chat call.
type GeneratorService struct {
	ai    adapter.AIServiceAdapter
	model string
	log   *zerolog.Logger
}

func NewGeneratorService(ai adapter.AIServiceAdapter, model string, logger *zerolog.Logger) *GeneratorService {
	l := logger.With().Str("component", "Generator").Logger()
	return &GeneratorService{ai: ai, model: model, log: &l}
}

func (g *GeneratorService) Generate(ctx context.Context, fields model.FieldSet) (adapter.GeneratedArtifacts, error) {
	spec, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return adapter.GeneratedArtifacts{}, err
	}

	msgs := []adapter.Message{
		{Role: "system", Content: generationSystemPrompt},
		{Role: "user", Content: "## SPECIFICATION:\n" + string(spec)},
	}
	reply, err := g.ai.Chat(ctx, g.model, msgs)
	if err != nil {
		return adapter.GeneratedArtifacts{}, fmt.Errorf("generation chat: %w", err)
	}

	var arts adapter.GeneratedArtifacts
	if err := decodeModelJSON(reply, &arts); err != nil {
		return adapter.GeneratedArtifacts{}, fmt.Errorf("generation: %w", err)
	}
	if arts.Script == "" {
		return adapter.GeneratedArtifacts{}, fmt.Errorf("generation: reply carries no script")
	}
	g.log.Debug().Int("script_len", len(arts.Script)).Msg("artifacts generated")
	return arts, nil
}
