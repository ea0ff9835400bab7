package voice

import (
	"context"
	"sort"
	"strings"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.VoiceCatalog = (*BuiltinCatalog)(nil)

type builtinVoice struct {
	candidate model.VoiceCandidate
	keywords  []string
	gender    string
	accent    string
}

// builtinVoices is the offline keyword table. It is the last line of the
// voice search and must never be empty.
var builtinVoices = []builtinVoice{
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-rachel", Name: "Rachel", Category: "conversational", Description: "warm, friendly American female"},
		keywords:  []string{"female", "warm", "friendly", "american", "conversational"},
		gender:    "female", accent: "american",
	},
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-adam", Name: "Adam", Category: "narration", Description: "deep, authoritative British male"},
		keywords:  []string{"male", "deep", "authoritative", "british"},
		gender:    "male", accent: "british",
	},
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-bella", Name: "Bella", Category: "conversational", Description: "soft, young American female"},
		keywords:  []string{"female", "soft", "young", "american"},
		gender:    "female", accent: "american",
	},
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-josh", Name: "Josh", Category: "conversational", Description: "young, energetic American male"},
		keywords:  []string{"male", "young", "energetic", "american"},
		gender:    "male", accent: "american",
	},
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-arnold", Name: "Arnold", Category: "narration", Description: "deep, mature narrative male"},
		keywords:  []string{"male", "deep", "mature", "narrative"},
		gender:    "male", accent: "american",
	},
	{
		candidate: model.VoiceCandidate{VoiceID: "bv-charlotte", Name: "Charlotte", Category: "professional", Description: "clear, professional British female"},
		keywords:  []string{"female", "british", "professional", "clear"},
		gender:    "female", accent: "british",
	},
}

// BuiltinCatalog scores the keyword table against the freeform query. It
// always returns at least one voice.
type BuiltinCatalog struct{}

func NewBuiltinCatalog() *BuiltinCatalog { return &BuiltinCatalog{} }

func (c *BuiltinCatalog) Search(ctx context.Context, f adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
	query := strings.ToLower(f.Query)
	if query == "" {
		query = strings.ToLower(strings.Join([]string{f.Gender, f.Accent}, " "))
	}

	type scored struct {
		candidate model.VoiceCandidate
		score     int
	}
	ranked := make([]scored, 0, len(builtinVoices))
	for _, v := range builtinVoices {
		score := 0
		for _, kw := range v.keywords {
			if strings.Contains(query, kw) {
				score++
			}
		}
		if v.gender != "" && strings.Contains(query, v.gender) {
			score += 2
		}
		if v.accent != "" && strings.Contains(query, v.accent) {
			score++
		}
		// A stated gender is a hard filter, not a preference.
		if f.Gender != "" && !strings.EqualFold(f.Gender, "neutral") && !strings.EqualFold(v.gender, f.Gender) {
			continue
		}
		ranked = append(ranked, scored{candidate: v.candidate, score: score})
	}

	if len(ranked) == 0 {
		// Gender filter excluded everything; default to the full table head.
		return []model.VoiceCandidate{builtinVoices[0].candidate}, nil
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	out := make([]model.VoiceCandidate, 0, len(ranked))
	for _, s := range ranked {
		out = append(out, s.candidate)
	}
	return out, nil
}
