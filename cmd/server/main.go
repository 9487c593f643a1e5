package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chat-relay/internal/config"
	"chat-relay/internal/handlers"
	"chat-relay/internal/logging"
	"chat-relay/internal/router"
	"chat-relay/internal/services"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logger := logging.New("chat-relay", cfg.LogLevel, cfg.LogFormat)
	logger.WithField("env", cfg.Env).Info("✓ Environment variables loaded")

	if !cfg.HasAPIKey() {
		// Not fatal: /api/chat answers with a configuration error instead.
		logger.Warn("OPENAI_API_KEY is not set; chat requests will fail until it is configured")
	}

	// ──── Step 2: Initialize Upstream Client ────
	openaiService := services.NewOpenAIService(
		cfg.OpenAIAPIKey,
		cfg.OpenAIBaseURL,
		cfg.OpenAIModel,
		cfg.UpstreamTimeout,
		logger.WithField("component", "openai"),
	)
	if len(cfg.KnownModels) > 0 {
		openaiService.WithKnownModels(cfg.KnownModels)
	}
	logger.WithFields(map[string]interface{}{
		"base_url": cfg.OpenAIBaseURL,
		"model":    cfg.OpenAIModel,
		"timeout":  cfg.UpstreamTimeout.String(),
	}).Info("✓ OpenAI client initialized")

	// ──── Step 3: Initialize Handlers ────
	healthHandler := handlers.NewHealthHandler()
	chatHandler := handlers.NewChatHandler(openaiService, logger.WithField("component", "chat"))

	// ──── Step 4: Start HTTP Server ────
	r := router.New(logger.WithField("component", "http"), healthHandler, chatHandler, cfg.CORSOrigins)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	done := shutdownOnSignal(server, sigChan, cfg.UpstreamTimeout+5*time.Second, logger)

	printBanner(cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatalf("Server error: %v", err)
	}
	<-done
	logger.Info("Server stopped")
}

// shutdownOnSignal drains server once sig fires. The returned channel closes
// after Shutdown has returned, so in-flight relays get up to timeout to finish.
func shutdownOnSignal(server *http.Server, sig <-chan os.Signal, timeout time.Duration, logger *logrus.Entry) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-sig

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}()
	return done
}

func printBanner(port string) {
	fmt.Printf(`
╔══════════════════════════════════════════════════╗
║  Chat relay running on port %s
║
║  Health check: http://localhost:%s/api/health
║  Chat API:     http://localhost:%s/api/chat
║  Metrics:      http://localhost:%s/metrics
╚══════════════════════════════════════════════════╝
`, port, port, port, port)
}
