package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.Deployer = (*ScriptedDeployer)(nil)

type Config struct {
	// WorkDir is where per-agent deployment bundles are staged.
	WorkDir string
	// BaseURL forms the returned deployment URL.
	BaseURL string
	// StageDelay paces progress lines so the stream reads naturally. Zero in
	// tests.
	StageDelay time.Duration
}

// ScriptedDeployer stages the agent bundle on disk and walks a fixed
// provisioning script, reporting each stage through the progress callback.
// It stands in for a real cluster handoff behind the same port.
type ScriptedDeployer struct {
	cfg Config
	log *zerolog.Logger
}

func NewScriptedDeployer(cfg Config, logger *zerolog.Logger) *ScriptedDeployer {
	if cfg.WorkDir == "" {
		cfg.WorkDir = filepath.Join(os.TempDir(), "voicesmith-deploys")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://agents.voicesmith.local"
	}
	l := logger.With().Str("component", "Deployer").Logger()
	return &ScriptedDeployer{cfg: cfg, log: &l}
}

func (d *ScriptedDeployer) Deploy(ctx context.Context, cfg *model.AgentConfig, progress func(message string)) (string, error) {
	progress("Finalizing deployment assets for: " + cfg.AgentName)

	dir := filepath.Join(d.cfg.WorkDir, cfg.TenantID, cfg.SessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("stage workspace: %w", err)
	}

	stages := []struct {
		message string
		run     func() error
	}{
		{"Generating configuration templates...", func() error {
			b, err := json.MarshalIndent(cfg, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Join(dir, "agent.json"), b, 0o644)
		}},
		{"Writing knowledge base...", func() error {
			if cfg.Knowledge == "" {
				return nil
			}
			return os.WriteFile(filepath.Join(dir, "knowledge.md"), []byte(cfg.Knowledge), 0o644)
		}},
		{"Writing conversation script...", func() error {
			return os.WriteFile(filepath.Join(dir, "script.md"), []byte(cfg.Script), 0o644)
		}},
		{"Binding voice profile " + cfg.VoiceName + "...", func() error {
			if cfg.VoiceID == "" {
				return fmt.Errorf("no voice bound")
			}
			return nil
		}},
		{"Provisioning runtime...", func() error { return nil }},
		{"Verifying deployment health...", func() error { return nil }},
	}

	for _, stage := range stages {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		progress(stage.message)
		if err := stage.run(); err != nil {
			return "", fmt.Errorf("deploy %s: %w", cfg.SessionID, err)
		}
		if d.cfg.StageDelay > 0 {
			select {
			case <-time.After(d.cfg.StageDelay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
	}

	url := fmt.Sprintf("%s/%s", d.cfg.BaseURL, cfg.SessionID)
	d.log.Info().Str("session_id", cfg.SessionID).Str("url", url).Msg("agent deployed")
	progress("Agent live at " + url)
	return url, nil
}
