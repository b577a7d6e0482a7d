// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/a2ui-playground/internal/config"
	"github.com/capitalize-ai/a2ui-playground/internal/debugbus"
	"github.com/capitalize-ai/a2ui-playground/internal/handler"
	"github.com/capitalize-ai/a2ui-playground/internal/llm"
	"github.com/capitalize-ai/a2ui-playground/internal/probe"
	"github.com/capitalize-ai/a2ui-playground/internal/service"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
	"github.com/capitalize-ai/a2ui-playground/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Development: cfg.Environment == "development",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server", zap.String("store", cfg.StoreBackend))

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "a2ui-playground", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Open the event store
	st, err := store.Open(ctx, cfg.StoreOptions(), log)
	if err != nil {
		log.Error("failed to open event store", zap.Error(err))
		os.Exit(1)
	}
	defer st.Close()

	seeded, err := store.SeedSettings(ctx, st, cfg.DefaultSettings())
	if err != nil {
		log.Error("failed to seed settings", zap.Error(err))
		os.Exit(1)
	}
	if seeded {
		log.Info("stored default completion settings from environment")
	}

	hub := debugbus.NewHub(0)
	defer hub.Close()

	// Initialize services
	httpClient := &http.Client{Timeout: cfg.LLMTimeout}
	conversationSvc := service.NewConversationService(st, log)
	settingsSvc := service.NewSettingsService(st, cfg.DefaultSettings(), log)
	chatSvc := service.NewChatService(st, st, llm.NewFactory(httpClient), hub, log)

	probeCmd, probeArgs := cfg.ProbeArgv()

	router := handler.NewRouter(handler.RouterConfig{
		Store:             st,
		Conversations:     conversationSvc,
		Chat:              chatSvc,
		Settings:          settingsSvc,
		Probe:             &probe.Runner{Command: probeCmd, Args: probeArgs, Timeout: cfg.ProbeTimeout},
		Hub:               hub,
		Logger:            log,
		AllowedOrigins:    cfg.AllowedOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Observers hold streams open; closing the hub ends them.
	hub.Close()

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
