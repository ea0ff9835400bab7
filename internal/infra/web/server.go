package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"voicesmith/internal/domain/ports/adapter"
	"voicesmith/internal/domain/ports/repository"
	"voicesmith/internal/infra/logging"
	"voicesmith/internal/usecase"
)

type Server struct {
	pipeline usecase.PipelineUseCase
	configs  repository.AgentConfigRepository
	catalog  adapter.VoiceCatalog
	auth     *AuthManager
	apiKey   string
	wsHandle http.HandlerFunc
	log      *zerolog.Logger
}

func NewServer(
	pipeline usecase.PipelineUseCase,
	configs repository.AgentConfigRepository,
	catalog adapter.VoiceCatalog,
	auth *AuthManager,
	apiKey string,
	wsHandle http.HandlerFunc,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		pipeline: pipeline,
		configs:  configs,
		catalog:  catalog,
		auth:     auth,
		apiKey:   apiKey,
		wsHandle: wsHandle,
		log:      &l,
	}
}

// Router builds the HTTP surface.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)
		r.Post("/build/{sessionID}", s.handleBuild)
		r.Get("/sessions/{sessionID}", s.handleGetSession)
		r.Post("/sessions/{sessionID}/voice", s.handleSelectVoice)
		r.Get("/voices", s.handleListVoices)

		r.Post("/admin/login", s.handleAdminLogin)
		r.Group(func(r chi.Router) {
			r.Use(s.adminMiddleware)
			r.Get("/agents", s.handleListAgents)
		})
	})

	if s.wsHandle != nil {
		r.Get("/ws/{sessionID}", s.wsHandle)
	}
	return r
}

// traceMiddleware tags every request with a trace id and logs its outcome.
func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

// adminMiddleware guards the archive endpoints with the minted JWT.
func (s *Server) adminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
