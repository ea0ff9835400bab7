package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/model"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestScriptedDeployer_StagesBundleAndReportsProgress(t *testing.T) {
	dir := t.TempDir()
	d := NewScriptedDeployer(Config{WorkDir: dir, BaseURL: "https://agents.test"}, nopLogger())

	cfg := &model.AgentConfig{
		SessionID: "s1",
		TenantID:  "t1",
		AgentName: "Mira",
		Script:    "You are Mira.",
		Knowledge: "# Facts",
		VoiceID:   "v1",
		VoiceName: "Vicki",
	}

	var lines []string
	url, err := d.Deploy(context.Background(), cfg, func(m string) { lines = append(lines, m) })
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if url != "https://agents.test/s1" {
		t.Fatalf("url = %q", url)
	}
	if len(lines) < 5 {
		t.Fatalf("progress lines = %d, want the full script", len(lines))
	}
	if !strings.Contains(lines[0], "Mira") {
		t.Fatalf("first line should name the agent: %q", lines[0])
	}

	for _, f := range []string{"agent.json", "knowledge.md", "script.md"} {
		if _, err := os.Stat(filepath.Join(dir, "t1", "s1", f)); err != nil {
			t.Fatalf("missing staged file %s: %v", f, err)
		}
	}
}

func TestScriptedDeployer_FailsWithoutVoice(t *testing.T) {
	d := NewScriptedDeployer(Config{WorkDir: t.TempDir()}, nopLogger())
	cfg := &model.AgentConfig{SessionID: "s1", TenantID: "t1", AgentName: "Mira", Script: "x"}

	if _, err := d.Deploy(context.Background(), cfg, func(string) {}); err == nil {
		t.Fatal("expected an error when no voice is bound")
	}
}

func TestScriptedDeployer_HonorsCancellation(t *testing.T) {
	d := NewScriptedDeployer(Config{WorkDir: t.TempDir()}, nopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &model.AgentConfig{SessionID: "s1", TenantID: "t1", AgentName: "Mira", Script: "x", VoiceID: "v1"}
	if _, err := d.Deploy(ctx, cfg, func(string) {}); err == nil {
		t.Fatal("expected context cancellation to abort the deploy")
	}
}
