package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/studyhall-ai/orchestrator/internal/auth"
	"github.com/studyhall-ai/orchestrator/internal/background"
	"github.com/studyhall-ai/orchestrator/internal/config"
	"github.com/studyhall-ai/orchestrator/internal/executor"
	"github.com/studyhall-ai/orchestrator/internal/flows/student"
	"github.com/studyhall-ai/orchestrator/internal/flows/teacher"
	"github.com/studyhall-ai/orchestrator/internal/httpapi"
	"github.com/studyhall-ai/orchestrator/internal/memory"
	"github.com/studyhall-ai/orchestrator/internal/orchestrator"
	"github.com/studyhall-ai/orchestrator/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions, err := memory.NewStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Session.TTL(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer sessions.Close()

	records, err := store.New(cfg.Postgres.DSN(), logger)
	if err != nil {
		logger.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer records.Close()

	crewClient := executor.NewClient(cfg.CrewSvc.BaseURL, cfg.CrewSvc.Timeout(), logger)
	invoker := executor.NewInvoker(crewClient, logger)

	spawner := background.NewSpawner(cfg.Background.Workers, cfg.Background.QueueDepth, 2*time.Minute, logger)

	engine := orchestrator.New(
		sessions,
		student.New(invoker, spawner, records, logger),
		teacher.New(invoker, records, logger),
		logger,
	)

	authSvc := auth.NewService(records, sessions, cfg.Auth.SigningKey, cfg.Auth.TokenTTL(), logger)

	tunablesPath := os.Getenv("TUNABLES_PATH")
	if tunablesPath == "" {
		tunablesPath = "config/tunables.yaml"
	}
	tunables, err := config.NewManager(tunablesPath, logger)
	if err != nil {
		logger.Fatal("Failed to create config manager", zap.Error(err))
	}
	if err := tunables.Start(ctx); err != nil {
		logger.Warn("Dynamic tunables unavailable", zap.Error(err))
	}
	defer tunables.Stop()

	server := httpapi.NewServer(authSvc, engine, cfg.HTTP, tunables, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("Shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	logger.Info("Routing engine listening", zap.Int("port", cfg.HTTP.Port))
	if err := server.ListenAndServe(ctx, cfg.HTTP); err != nil {
		logger.Error("HTTP server stopped", zap.Error(err))
	}

	// Drain deferred work before the stores close.
	spawner.Close()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
