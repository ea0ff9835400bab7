package ws

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"voicesmith/internal/domain/ports/adapter"
)

var _ adapter.EventSink = (*Notifier)(nil)

// envelope is the wire format of every outbound event.
type envelope struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Notifier implements the pipeline's event sink on top of the hub.
type Notifier struct {
	hub *Hub
	log *zerolog.Logger
}

func NewNotifier(hub *Hub, logger *zerolog.Logger) *Notifier {
	l := logger.With().Str("component", "WSNotifier").Logger()
	return &Notifier{hub: hub, log: &l}
}

func (n *Notifier) Log(sessionID, phase, message string) {
	n.Event(sessionID, adapter.EventLog, map[string]any{
		"phase":   phase,
		"message": message,
	})
}

func (n *Notifier) Event(sessionID, eventType string, payload any) {
	b, err := json.Marshal(envelope{Type: eventType, Timestamp: time.Now().UTC(), Payload: payload})
	if err != nil {
		n.log.Error().Err(err).Str("type", eventType).Msg("event marshal failed")
		return
	}
	n.hub.Broadcast(sessionID, b)
}
