package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.Extractor = (*ExtractorService)(nil)

// historyTokenBudget caps how much conversation context rides along with an
// extraction call.
const historyTokenBudget = 2000

// ExtractorService implements adapter.Extractor on top of a chat model.
type ExtractorService struct {
	ai    adapter.AIServiceAdapter
	model string
	log   *zerolog.Logger
}

func NewExtractorService(ai adapter.AIServiceAdapter, model string, logger *zerolog.Logger) *ExtractorService {
	l := logger.With().Str("component", "Extractor").Logger()
	return &ExtractorService{ai: ai, model: model, log: &l}
}

type extractionReply struct {
	Fields  model.FieldSet `json:"fields"`
	Updated []string       `json:"updated"`
}

func (e *ExtractorService) Extract(ctx context.Context, message string, history []model.Turn, known model.FieldSet) (adapter.ExtractionDelta, error) {
	msgs := []adapter.Message{{Role: "system", Content: extractionSystemPrompt}}

	if confirmed := confirmedFields(known); confirmed != "" {
		msgs = append(msgs, adapter.Message{
			Role:    "system",
			Content: "### ALREADY CONFIRMED:\n" + confirmed,
		})
	}
	for _, t := range trimHistory(ctx, e.ai, e.model, history) {
		msgs = append(msgs, adapter.Message{Role: t.Role, Content: t.Text})
	}
	msgs = append(msgs, adapter.Message{Role: "user", Content: message})

	reply, err := e.ai.Chat(ctx, e.model, msgs)
	if err != nil {
		return adapter.ExtractionDelta{}, fmt.Errorf("extraction chat: %w", err)
	}

	var parsed extractionReply
	if err := decodeModelJSON(reply, &parsed); err != nil {
		return adapter.ExtractionDelta{}, fmt.Errorf("extraction: %w", err)
	}
	return adapter.ExtractionDelta{Fields: parsed.Fields, Updated: parsed.Updated}, nil
}

// confirmedFields renders the non-empty known fields as compact JSON so the
// model will not null them out.
func confirmedFields(known model.FieldSet) string {
	known.SystemHints = "" // the raw hint trail is noise for extraction
	b, err := json.Marshal(known)
	if err != nil || string(b) == "{}" {
		return ""
	}
	return string(b)
}

// trimHistory keeps the most recent turns that fit the token budget. Token
// counting is best-effort; on a counting error the last five turns ride along.
func trimHistory(ctx context.Context, ai adapter.AIServiceAdapter, model string, history []model.Turn) []model.Turn {
	if len(history) == 0 {
		return nil
	}
	total := 0
	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		n, err := ai.CountTokens(ctx, model, []adapter.Message{{Role: history[i].Role, Content: history[i].Text}})
		if err != nil {
			if len(history) > 5 {
				return history[len(history)-5:]
			}
			return history
		}
		if total+n > historyTokenBudget {
			break
		}
		total += n
		cut = i
	}
	return history[cut:]
}
