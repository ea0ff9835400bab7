package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
	"voicesmith/internal/infra/metrics"
)

const maxRankedVoices = 3

// VoiceMatcher runs the two-phase voice search: a categorical catalog filter
// producing at most 15 candidates, then a semantic re-rank down to the top 3
// when more than 3 exist. It never returns an empty list: on catalog failure
// it degrades to the built-in fallback catalog.
type VoiceMatcher struct {
	catalog  adapter.VoiceCatalog
	fallback adapter.VoiceCatalog
	reranker adapter.VoiceReranker
	log      *zerolog.Logger
}

func NewVoiceMatcher(catalog, fallback adapter.VoiceCatalog, reranker adapter.VoiceReranker, logger *zerolog.Logger) *VoiceMatcher {
	l := logger.With().Str("component", "VoiceMatcher").Logger()
	return &VoiceMatcher{catalog: catalog, fallback: fallback, reranker: reranker, log: &l}
}

func filterFromFields(f model.FieldSet) adapter.VoiceFilter {
	query := strings.TrimSpace(strings.Join(append([]string{f.VoiceGender, f.VoiceAccent, f.PersonaDescription}, f.VoiceTone...), " "))
	return adapter.VoiceFilter{
		Gender:   f.VoiceGender,
		Accent:   f.VoiceAccent,
		Language: f.PrimaryLanguage(),
		Query:    query,
	}
}

// Match resolves candidates for the session's voice parameters.
func (m *VoiceMatcher) Match(ctx context.Context, f model.FieldSet) ([]model.VoiceCandidate, error) {
	filter := filterFromFields(f)

	candidates, err := m.catalog.Search(ctx, filter)
	if err != nil || len(candidates) == 0 {
		if err != nil {
			m.log.Warn().Err(err).Msg("voice catalog search failed, using fallback")
		}
		metrics.IncFallback("voice")
		candidates, err = m.fallback.Search(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("%w: fallback voice catalog: %v", domain.ErrCollaboratorFailed, err)
		}
		if len(candidates) == 0 {
			// The built-in fallback cannot be empty unless misconfigured.
			return nil, domain.ErrCollaboratorFailed
		}
	}

	if len(candidates) <= maxRankedVoices {
		return candidates, nil
	}

	ranked, err := m.reranker.Rank(ctx, candidates, f)
	if err != nil {
		m.log.Warn().Err(err).Msg("re-rank failed, keeping catalog order")
		return candidates[:maxRankedVoices], nil
	}

	byID := make(map[string]model.VoiceCandidate, len(candidates))
	for _, c := range candidates {
		byID[c.VoiceID] = c
	}
	top := make([]model.VoiceCandidate, 0, maxRankedVoices)
	for _, id := range ranked {
		if c, ok := byID[id]; ok {
			top = append(top, c)
			if len(top) == maxRankedVoices {
				break
			}
		}
	}
	if len(top) == 0 {
		// Reranker returned ids we never offered; fall back to catalog order.
		return candidates[:maxRankedVoices], nil
	}
	return top, nil
}
