package ws

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/model"
	"voicesmith/internal/usecase"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

type fakePipeline struct {
	advanced    []string
	selected    []string
	builds      int
	selectErr   error
	buildErr    error
	lastTenant  string
	lastMessage string
}

func (f *fakePipeline) Advance(ctx context.Context, sessionID, tenantID, message string) (*usecase.SessionView, error) {
	f.advanced = append(f.advanced, sessionID)
	f.lastTenant = tenantID
	f.lastMessage = message
	return &usecase.SessionView{SessionID: sessionID, Phase: model.PhaseIntake}, nil
}

func (f *fakePipeline) SelectVoice(ctx context.Context, sessionID, voiceID string) (*usecase.SessionView, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	f.selected = append(f.selected, voiceID)
	return &usecase.SessionView{SessionID: sessionID, Phase: model.PhaseReady}, nil
}

func (f *fakePipeline) StartBuild(ctx context.Context, sessionID string) error {
	f.builds++
	return f.buildErr
}

func (f *fakePipeline) Get(ctx context.Context, sessionID string) (*usecase.SessionView, error) {
	return &usecase.SessionView{SessionID: sessionID}, nil
}

func newTestServer(p usecase.PipelineUseCase) (*Server, *Hub) {
	h := NewHub(nopLogger())
	n := NewNotifier(h, nopLogger())
	return NewServer(ServerConfig{}, h, n, p, nopLogger()), h
}

// drainEvent pops one queued broadcast and decodes the envelope.
func drainEvent(t *testing.T, h *Hub) envelope {
	t.Helper()
	select {
	case msg := <-h.broadcast:
		var env envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			t.Fatalf("broadcast is not an envelope: %v", err)
		}
		return env
	default:
		t.Fatal("no event queued")
		return envelope{}
	}
}

func TestHandleMessage_UserResponseAdvancesPipeline(t *testing.T) {
	p := &fakePipeline{}
	s, h := newTestServer(p)

	s.handleMessage("s1", "t1", []byte(`{"type":"USER_RESPONSE","payload":{"text":"hello"}}`))

	if len(p.advanced) != 1 || p.advanced[0] != "s1" {
		t.Fatalf("advanced = %v", p.advanced)
	}
	if p.lastTenant != "t1" || p.lastMessage != "hello" {
		t.Fatalf("tenant/message = %q/%q", p.lastTenant, p.lastMessage)
	}
	env := drainEvent(t, h)
	if env.Type != "STATUS_UPDATE" {
		t.Fatalf("event type = %q", env.Type)
	}
}

func TestHandleMessage_VoiceSelected(t *testing.T) {
	p := &fakePipeline{}
	s, h := newTestServer(p)

	s.handleMessage("s1", "", []byte(`{"type":"VOICE_SELECTED","payload":{"voice_id":"v2"}}`))

	if len(p.selected) != 1 || p.selected[0] != "v2" {
		t.Fatalf("selected = %v", p.selected)
	}
	drainEvent(t, h)
}

func TestHandleMessage_StaleVoiceSelectionReportsCode(t *testing.T) {
	p := &fakePipeline{selectErr: domain.ErrStaleVoiceSelection}
	s, h := newTestServer(p)

	s.handleMessage("s1", "", []byte(`{"type":"VOICE_SELECTED","payload":{"voice_id":"old"}}`))

	env := drainEvent(t, h)
	payload, _ := env.Payload.(map[string]any)
	if payload["error"] != "stale_voice_selection" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestHandleMessage_StartBuild(t *testing.T) {
	p := &fakePipeline{}
	s, _ := newTestServer(p)

	s.handleMessage("s1", "", []byte(`{"type":"START_BUILD","payload":{}}`))
	if p.builds != 1 {
		t.Fatalf("builds = %d", p.builds)
	}
}

func TestHandleMessage_BuildPreconditionReportsNotReady(t *testing.T) {
	p := &fakePipeline{buildErr: domain.ErrPreconditionFailed}
	s, h := newTestServer(p)

	s.handleMessage("s1", "", []byte(`{"type":"START_BUILD","payload":{}}`))

	env := drainEvent(t, h)
	payload, _ := env.Payload.(map[string]any)
	if payload["error"] != "not_ready" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestHandleMessage_GarbageIsRejected(t *testing.T) {
	p := &fakePipeline{}
	s, h := newTestServer(p)

	s.handleMessage("s1", "", []byte(`not json`))

	env := drainEvent(t, h)
	payload, _ := env.Payload.(map[string]any)
	if payload["error"] != "invalid_message" {
		t.Fatalf("payload = %v", payload)
	}
	if len(p.advanced) != 0 {
		t.Fatal("garbage must not reach the pipeline")
	}
}
