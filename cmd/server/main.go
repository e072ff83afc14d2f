package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/unbindai/unbind/internal/analysis"
	"github.com/unbindai/unbind/internal/api"
	"github.com/unbindai/unbind/internal/config"
	"github.com/unbindai/unbind/internal/llm"
	"github.com/unbindai/unbind/internal/pipeline"
	"github.com/unbindai/unbind/internal/store"
)

func main() {
	// Local development reads env from .env; absence is fine in production.
	_ = godotenv.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}

	// Initialize clients.
	groq := llm.NewClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqEmbedModel)
	analyzer := analysis.NewAnalyzer(groq, log, analysis.Config{
		ChunkSize:     cfg.DefaultChunkSize,
		Overlap:       cfg.DefaultChunkOverlap,
		MaxConcurrent: cfg.MaxConcurrentExtract,
	})

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, analyzer, st, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, analyzer, groq, st, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		// Stop accepting requests before draining the workers, so no
		// handler submits into a stopped pipeline.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()

		groq.Close()
		st.Close()
	}()

	log.Info("starting unbind", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
