package adapter

import (
	"context"

	"voicesmith/internal/domain/model"
)

// VoiceFilter is the categorical filter applied by the catalog before any
// semantic re-ranking.
type VoiceFilter struct {
	Gender   string
	Accent   string
	Language string
	Query    string // freeform descriptive query for keyword catalogs
}

// VoiceCatalog is the port for the external voice-search collaborator.
// Search returns at most 15 candidates for re-ranking.
type VoiceCatalog interface {
	Search(ctx context.Context, f VoiceFilter) ([]model.VoiceCandidate, error)
}
