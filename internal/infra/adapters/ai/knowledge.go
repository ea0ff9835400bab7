package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.KnowledgeSynthesizer = (*KnowledgeService)(nil)

// maxSourceBytes bounds how much of the source page rides into the prompt.
const maxSourceBytes = 96 * 1024

// KnowledgeService fetches the organization's website (when given) and
// synthesizes a markdown knowledge base from it.
type KnowledgeService struct {
	ai     adapter.AIServiceAdapter
	model  string
	client *http.Client
	log    *zerolog.Logger
}

func NewKnowledgeService(ai adapter.AIServiceAdapter, model string, logger *zerolog.Logger) *KnowledgeService {
	l := logger.With().Str("component", "Knowledge").Logger()
	return &KnowledgeService{
		ai:     ai,
		model:  model,
		client: &http.Client{Timeout: 15 * time.Second},
		log:    &l,
	}
}

func (k *KnowledgeService) Synthesize(ctx context.Context, orgName, sourceURL, hints string) (string, error) {
	var material strings.Builder
	fmt.Fprintf(&material, "Organization: %s\n", orgName)
	if hints != "" {
		fmt.Fprintf(&material, "\n## User-provided context:\n%s\n", hints)
	}
	if sourceURL != "" {
		text, err := k.fetchText(ctx, sourceURL)
		if err != nil {
			// Hints alone still make a usable document.
			k.log.Warn().Err(err).Str("url", sourceURL).Msg("source fetch failed, synthesizing from hints")
		} else {
			fmt.Fprintf(&material, "\n## Website content (%s):\n%s\n", sourceURL, text)
		}
	}

	msgs := []adapter.Message{
		{Role: "system", Content: knowledgeSystemPrompt},
		{Role: "user", Content: material.String()},
	}
	reply, err := k.ai.Chat(ctx, k.model, msgs)
	if err != nil {
		return "", fmt.Errorf("knowledge chat: %w", err)
	}
	doc := stripCodeFence(reply)
	if strings.TrimSpace(doc) == "" || doc == "{}" {
		return "", fmt.Errorf("knowledge: empty document")
	}
	return doc, nil
}

var (
	scriptBlocks = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	htmlTags     = regexp.MustCompile(`(?s)<[^>]+>`)
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// fetchText pulls the page and reduces it to plain text.
func (k *KnowledgeService) fetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "voicesmith-knowledge/1.0")
	resp, err := k.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: http %d", url, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return "", err
	}
	text := scriptBlocks.ReplaceAllString(string(b), " ")
	text = htmlTags.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text), nil
}
