// File: cmd/app/main.go
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

	"barista-ai-ordering/internal/agent"
	"barista-ai-ordering/internal/config"
	"barista-ai-ordering/internal/domain/ports/adapter"
	aiAdapters "barista-ai-ordering/internal/infra/adapters/ai"
	pg "barista-ai-ordering/internal/infra/db/postgres"
	"barista-ai-ordering/internal/infra/logging"
	"barista-ai-ordering/internal/infra/metrics"
	red "barista-ai-ordering/internal/infra/redis"
	"barista-ai-ordering/internal/infra/web"
	"barista-ai-ordering/internal/infra/worker"
	"barista-ai-ordering/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (scripted model, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	sessionCache := red.NewSessionCache(redisClient, cfg.Redis.TTL)

	// ---- Repositories ----
	catalogRepo := pg.NewCatalogRepo(pool)
	sessionRepo := pg.NewSessionRepo(pool, sessionCache)
	orderRepo := pg.NewSubmittedOrderRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Language model adapter (OpenAI -> Gemini -> scripted in dev) ----
	var llm adapter.LanguageModelAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		llm, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("LLM adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		llm, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("LLM adapter: Gemini")
	case cfg.Runtime.Dev:
		llm = aiAdapters.NewScriptedAdapter()
		logger.Warn().Msg("LLM adapter: scripted (dev)")
	default:
		logger.Fatal().Msgf("no model provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}
	llm = aiAdapters.NewLimitedLLM(llm, cfg.AI.ConcurrentLimit)

	// ---- Worker pool for post-commit work ----
	pool2 := worker.NewPool(4, logger)
	pool2.Start(ctx)
	defer pool2.Stop()

	// ---- Use cases ----
	toolkit := agent.NewToolkit(catalogRepo, orderRepo)
	chatUC := usecase.NewChatUseCase(sessionRepo, toolkit, llm, locker, logger,
		cfg.AI.DefaultModel, cfg.AI.MaxToolLoops, cfg.AI.HistoryTokenBudget)
	approvalUC := usecase.NewApprovalUseCase(sessionRepo, orderRepo, catalogRepo, txManager, locker, pool2, logger)
	catalogUC := usecase.NewCatalogUseCase(catalogRepo)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.HMACSecret)
	srv := web.NewServer(chatUC, approvalUC, catalogUC, auth, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Shutdown ----
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info().Str("signal", s.String()).Msg("shutting down")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
