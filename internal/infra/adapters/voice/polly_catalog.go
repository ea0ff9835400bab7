package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	pollytypes "github.com/aws/aws-sdk-go-v2/service/polly/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.VoiceCatalog = (*PollyCatalog)(nil)

// maxCatalogResults caps the candidate set handed to re-ranking.
const maxCatalogResults = 15

type describeClient interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
}

type PollyConfig struct {
	Region string
	Engine string // standard | neural
}

// PollyCatalog backs the voice search with the Amazon Polly voice inventory.
// Polly filters by language code server-side; gender filtering happens here.
type PollyCatalog struct {
	mu     sync.Mutex
	client describeClient
	cfg    PollyConfig
	log    *zerolog.Logger
}

func NewPollyCatalog(cfg PollyConfig, logger *zerolog.Logger) *PollyCatalog {
	if strings.TrimSpace(cfg.Region) == "" {
		cfg.Region = "us-east-1"
	}
	if strings.TrimSpace(cfg.Engine) == "" {
		cfg.Engine = "neural"
	}
	l := logger.With().Str("component", "PollyCatalog").Logger()
	return &PollyCatalog{cfg: cfg, log: &l}
}

// NewPollyCatalogWithClient injects a client, for tests.
func NewPollyCatalogWithClient(cfg PollyConfig, client describeClient, logger *zerolog.Logger) *PollyCatalog {
	c := NewPollyCatalog(cfg, logger)
	c.client = client
	return c
}

func (c *PollyCatalog) Search(ctx context.Context, f adapter.VoiceFilter) ([]model.VoiceCandidate, error) {
	client, err := c.resolveClient(ctx)
	if err != nil {
		return nil, err
	}

	engine := pollytypes.EngineStandard
	if strings.EqualFold(c.cfg.Engine, "neural") {
		engine = pollytypes.EngineNeural
	}
	input := &polly.DescribeVoicesInput{Engine: engine}
	if code := languageCodeFor(f); code != "" {
		input.LanguageCode = pollytypes.LanguageCode(code)
	}

	out, err := client.DescribeVoices(ctx, input)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("polly describe voices: %s: %w", apiErr.ErrorCode(), err)
		}
		return nil, fmt.Errorf("polly describe voices: %w", err)
	}

	candidates := make([]model.VoiceCandidate, 0, maxCatalogResults)
	for _, v := range out.Voices {
		if !genderMatches(f.Gender, v.Gender) {
			continue
		}
		candidates = append(candidates, toCandidate(v))
		if len(candidates) == maxCatalogResults {
			break
		}
	}
	c.log.Debug().Int("candidates", len(candidates)).Str("language", string(input.LanguageCode)).Msg("catalog searched")
	return candidates, nil
}

func (c *PollyCatalog) resolveClient(ctx context.Context) (describeClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	c.client = polly.NewFromConfig(awsCfg)
	return c.client, nil
}

func genderMatches(want string, got pollytypes.Gender) bool {
	switch strings.ToLower(want) {
	case "", "neutral":
		return true
	case "female":
		return got == pollytypes.GenderFemale
	case "male":
		return got == pollytypes.GenderMale
	}
	return true
}

func toCandidate(v pollytypes.Voice) model.VoiceCandidate {
	name := string(v.Id)
	if v.Name != nil {
		name = *v.Name
	}
	language := ""
	if v.LanguageName != nil {
		language = *v.LanguageName
	}
	return model.VoiceCandidate{
		VoiceID:     string(v.Id),
		Name:        name,
		Category:    "polly-" + strings.ToLower(string(v.Gender)),
		Description: fmt.Sprintf("%s voice, %s", strings.ToLower(string(v.Gender)), language),
		Labels: map[string]string{
			"gender":   strings.ToLower(string(v.Gender)),
			"language": language,
		},
	}
}

// accentLanguages maps the accents users actually say to Polly language codes.
var accentLanguages = map[string]string{
	"american":   "en-US",
	"british":    "en-GB",
	"english":    "en-US",
	"australian": "en-AU",
	"indian":     "en-IN",
	"german":     "de-DE",
	"french":     "fr-FR",
	"spanish":    "es-ES",
	"italian":    "it-IT",
	"japanese":   "ja-JP",
	"korean":     "ko-KR",
	"portuguese": "pt-BR",
	"dutch":      "nl-NL",
	"polish":     "pl-PL",
	"swedish":    "sv-SE",
	"arabic":     "arb",
}

var languageNames = map[string]string{
	"english":    "en-US",
	"german":     "de-DE",
	"french":     "fr-FR",
	"spanish":    "es-ES",
	"italian":    "it-IT",
	"japanese":   "ja-JP",
	"korean":     "ko-KR",
	"portuguese": "pt-BR",
	"dutch":      "nl-NL",
	"polish":     "pl-PL",
	"swedish":    "sv-SE",
	"arabic":     "arb",
}

// languageCodeFor prefers the agent's primary language over the accent.
func languageCodeFor(f adapter.VoiceFilter) string {
	if code, ok := languageNames[strings.ToLower(strings.TrimSpace(f.Language))]; ok {
		return code
	}
	if code, ok := accentLanguages[strings.ToLower(strings.TrimSpace(f.Accent))]; ok {
		return code
	}
	return ""
}
