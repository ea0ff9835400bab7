package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"voicesmith/internal/domain"
	"voicesmith/internal/domain/ports/adapter"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrPreconditionFailed), errors.Is(err, domain.ErrNoVoiceSelected):
		status = http.StatusPreconditionFailed
	case errors.Is(err, domain.ErrBuildInProgress),
		errors.Is(err, domain.ErrStaleVoiceSelection),
		errors.Is(err, domain.ErrSessionNotResumable):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func tenantFrom(r *http.Request) string {
	if t := r.Header.Get("X-Tenant-ID"); t != "" {
		return t
	}
	return "default"
}

// handleChat advances the interview by one user message. An empty session_id
// opens a new session; the response carries the id to continue with.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	view, err := s.pipeline.Advance(r.Context(), req.SessionID, tenantFrom(r), req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	view, err := s.pipeline.Get(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSelectVoice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoiceID string `json:"voice_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VoiceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "voice_id is required"})
		return
	}

	view, err := s.pipeline.SelectVoice(r.Context(), chi.URLParam(r, "sessionID"), req.VoiceID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleBuild triggers the terminal build; progress streams over the
// session's socket.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	if err := s.pipeline.StartBuild(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "building"})
}

// handleListVoices exposes the raw catalog search for preview pickers.
func (s *Server) handleListVoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := adapter.VoiceFilter{
		Gender:   q.Get("gender"),
		Accent:   q.Get("accent"),
		Language: q.Get("language"),
		Query:    q.Get("query"),
	}
	voices, err := s.catalog.Search(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
		return
	}
	if s.apiKey == "" || req.APIKey != s.apiKey {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	tenant := r.URL.Query().Get("tenant")
	if tenant == "" {
		tenant = tenantFrom(r)
	}
	agents, err := s.configs.ListByTenant(r.Context(), tenant)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}
