package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voicesmith/internal/config"
	"voicesmith/internal/domain/ports/adapter"
	"voicesmith/internal/domain/ports/repository"
	aiAdapters "voicesmith/internal/infra/adapters/ai"
	"voicesmith/internal/infra/adapters/deploy"
	voiceAdapters "voicesmith/internal/infra/adapters/voice"
	pg "voicesmith/internal/infra/db/postgres"
	"voicesmith/internal/infra/logging"
	"voicesmith/internal/infra/memory"
	"voicesmith/internal/infra/metrics"
	red "voicesmith/internal/infra/redis"
	"voicesmith/internal/infra/web"
	"voicesmith/internal/infra/worker"
	"voicesmith/internal/infra/ws"
	"voicesmith/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI fallback, insecure cookies)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Session store (redis snapshot or in-process) ----
	var sessions repository.SessionRepository
	var buildLock usecase.BuildLocker = usecase.NoopLocker{}
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		sessions = red.NewSessionRepo(redisClient, cfg.Redis.TTL)
		buildLock = red.NewLocker(redisClient)
		logger.Info().Msg("session store: redis")
	} else {
		sessions = memory.NewSessionRepo()
		logger.Info().Msg("session store: in-memory")
	}

	// ---- Agent config archive (postgres or in-process) ----
	var configs repository.AgentConfigRepository
	if cfg.Database.URL != "" {
		pool, err := pg.Connect(ctx, cfg.Database.URL)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		configs = pg.NewPostgresAgentConfigRepo(pool)
		logger.Info().Msg("agent archive: postgres")
	} else {
		configs = memory.NewAgentConfigRepo()
		logger.Info().Msg("agent archive: in-memory")
	}

	// ---- AI adapter (OpenAI -> Gemini -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("openai adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			log.Fatalf("gemini adapter: %v", err)
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAIAdapter()
		logger.Warn().Msg("AI adapter: noop (dev mode, deterministic fallbacks only)")
	default:
		log.Fatalf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}
	ai = aiAdapters.NewLimitedAI(ai, cfg.AI.ConcurrentLimit)

	extractor := aiAdapters.NewExtractorService(ai, cfg.AI.DefaultModel, logger)
	generator := aiAdapters.NewGeneratorService(ai, cfg.AI.DefaultModel, logger)
	knowledge := aiAdapters.NewKnowledgeService(ai, cfg.AI.DefaultModel, logger)
	reranker := aiAdapters.NewRerankerService(ai, cfg.AI.DefaultModel, logger)

	// ---- Voice catalog ----
	builtin := voiceAdapters.NewBuiltinCatalog()
	var catalog adapter.VoiceCatalog = builtin
	if cfg.Voice.Provider == "polly" {
		catalog = voiceAdapters.NewPollyCatalog(voiceAdapters.PollyConfig{
			Region: cfg.Voice.Region,
			Engine: cfg.Voice.Engine,
		}, logger)
		logger.Info().Str("region", cfg.Voice.Region).Msg("voice catalog: polly")
	} else {
		logger.Info().Msg("voice catalog: builtin")
	}
	voices := usecase.NewVoiceMatcher(catalog, builtin, reranker, logger)

	// ---- Background workers ----
	registry := worker.NewRegistry(logger)
	registry.Start(ctx)
	pool := worker.NewPool(cfg.Pipeline.BuildWorkers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	// ---- Event stream ----
	hub := ws.NewHub(logger)
	go hub.Run(ctx)
	notifier := ws.NewNotifier(hub, logger)

	// ---- Deployer ----
	deployer := deploy.NewScriptedDeployer(deploy.Config{
		StageDelay: 300 * time.Millisecond,
	}, logger)

	// ---- Pipeline ----
	pipeline := usecase.NewPipelineUseCase(usecase.PipelineDeps{
		Sessions:  sessions,
		Configs:   configs,
		Extractor: extractor,
		Generator: generator,
		Knowledge: knowledge,
		Voices:    voices,
		Jobs:      registry,
		Deployer:  deployer,
		Events:    notifier,
		Runner:    pool,
		BuildLock: buildLock,

		KnowledgeTimeout: cfg.Pipeline.KnowledgeTimeout,
		RecentLogs:       cfg.Pipeline.RecentLogs,
	}, logger)

	// ---- HTTP + WebSocket surface ----
	wsServer := ws.NewServer(ws.ServerConfig{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		PingInterval: cfg.Server.PingInterval,
	}, hub, notifier, pipeline, logger)

	authMgr := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, 0)
	webServer := web.NewServer(pipeline, configs, catalog, authMgr, cfg.Admin.APIKey, wsServer.HandleWebSocket, logger)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:     webServer.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	cancel()
}
