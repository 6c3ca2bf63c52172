package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/api"
	"github.com/ouf-ai/ouf-gateway/internal/auth"
	"github.com/ouf-ai/ouf-gateway/internal/config"
	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/llm"
	"github.com/ouf-ai/ouf-gateway/internal/service"
	"github.com/ouf-ai/ouf-gateway/internal/storage/sql"
	"github.com/ouf-ai/ouf-gateway/internal/web3"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Create data directory if needed (for SQLite and context namespaces)
	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		logger.Fatal("creating data directory", zap.Error(err))
	}

	// Initialize storage
	store, err := sql.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("initializing storage", zap.Error(err))
	}
	defer store.Close()

	contexts := contextstore.New(filepath.Join(cfg.Data.Dir, "contexts"))

	// Initialize collaborators
	completer := llm.NewOpenAIClient(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.MaxTokens,
		cfg.OpenAI.Timeout,
		logger,
	)

	var balance web3.BalanceReader
	if cfg.UseChainGate() {
		minBalance, err := cfg.Chain.MinBalanceInt()
		if err != nil {
			logger.Fatal("parsing minimum balance", zap.Error(err))
		}
		reader, err := web3.NewChainReader(cfg.Chain.RPCURL, cfg.Chain.TokenAddress, minBalance, cfg.Chain.Timeout, logger)
		if err != nil {
			logger.Fatal("initializing chain reader", zap.Error(err))
		}
		defer reader.Close()
		balance = reader
	}

	svc := service.New(store, contexts, completer, logger)
	engine := auth.NewEngine(store, cfg.Auth.MasterKey, logger)

	router := api.NewRouter(store, contexts, svc, engine, balance, cfg.Auth.MasterKey, logger)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	logger.Info("starting gateway", zap.String("addr", cfg.Server.Addr()))

	// Start server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
