package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/ports/adapter"
	"voicesmith/internal/usecase"
)

// Inbound message types.
const (
	msgUserResponse  = "USER_RESPONSE"
	msgVoiceSelected = "VOICE_SELECTED"
	msgStartBuild    = "START_BUILD"
)

const maxMessageSize = 8 * 1024

type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Server owns the session progress socket: it streams pipeline events out
// and accepts the three conversational commands in.
type Server struct {
	cfg      ServerConfig
	hub      *Hub
	notifier *Notifier
	pipeline usecase.PipelineUseCase
	upgrader websocket.Upgrader
	log      *zerolog.Logger
}

func NewServer(cfg ServerConfig, hub *Hub, notifier *Notifier, pipeline usecase.PipelineUseCase, logger *zerolog.Logger) *Server {
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 60 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	l := logger.With().Str("component", "WSServer").Logger()
	return &Server{
		cfg:      cfg,
		hub:      hub,
		notifier: notifier,
		pipeline: pipeline,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: &l,
	}
}

// HandleWebSocket upgrades GET /ws/{sessionID} and pumps until either side
// closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}
	tenantID := r.URL.Query().Get("tenant")

	sock, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("upgrade failed")
		return
	}

	conn := s.hub.NewConnection(sock, sessionID)
	s.hub.Register(conn)

	go s.writePump(conn)
	go s.readPump(conn, tenantID)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) readPump(conn *Connection, tenantID string) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(maxMessageSize)
	_ = conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		return conn.Conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	for {
		_, data, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn().Err(err).Str("session_id", conn.SessionID).Msg("socket read error")
			}
			return
		}
		s.handleMessage(conn.SessionID, tenantID, data)
	}
}

func (s *Server) writePump(conn *Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				_ = conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.Conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleMessage(sessionID, tenantID string, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(sessionID, "invalid_message", "message is not valid JSON")
		return
	}
	ctx := context.Background()

	switch msg.Type {
	case msgUserResponse:
		var p struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.Text == "" {
			s.sendError(sessionID, "invalid_message", "USER_RESPONSE needs a text field")
			return
		}
		view, err := s.pipeline.Advance(ctx, sessionID, tenantID, p.Text)
		if err != nil {
			s.sendError(sessionID, "advance_failed", err.Error())
			return
		}
		s.sendView(sessionID, view)

	case msgVoiceSelected:
		var p struct {
			VoiceID string `json:"voice_id"`
		}
		if err := json.Unmarshal(msg.Payload, &p); err != nil || p.VoiceID == "" {
			s.sendError(sessionID, "invalid_message", "VOICE_SELECTED needs a voice_id field")
			return
		}
		view, err := s.pipeline.SelectVoice(ctx, sessionID, p.VoiceID)
		if err != nil {
			if errors.Is(err, domain.ErrStaleVoiceSelection) {
				s.sendError(sessionID, "stale_voice_selection", "that voice is no longer on offer, pick from the current candidates")
				return
			}
			s.sendError(sessionID, "voice_selection_failed", err.Error())
			return
		}
		s.sendView(sessionID, view)

	case msgStartBuild:
		if err := s.pipeline.StartBuild(ctx, sessionID); err != nil {
			switch {
			case errors.Is(err, domain.ErrPreconditionFailed):
				s.sendError(sessionID, "not_ready", "the session is not ready to build yet")
			case errors.Is(err, domain.ErrBuildInProgress):
				s.sendError(sessionID, "build_in_progress", "a build is already running for this session")
			default:
				s.sendError(sessionID, "build_failed", err.Error())
			}
			return
		}

	default:
		s.sendError(sessionID, "invalid_message", "unknown message type: "+msg.Type)
	}
}

func (s *Server) sendView(sessionID string, view *usecase.SessionView) {
	s.notifier.Event(sessionID, adapter.EventStatusUpdate, view)
}

func (s *Server) sendError(sessionID, code, message string) {
	s.notifier.Event(sessionID, adapter.EventStatusUpdate, map[string]any{
		"error":   code,
		"message": message,
	})
}
