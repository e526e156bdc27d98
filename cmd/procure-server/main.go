package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"procure/internal/catalog"
	"procure/internal/config"
	"procure/internal/llm"
	"procure/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	store := catalog.NewSeededStore()
	feed := catalog.NewFeedClient(cfg)

	var completer llm.Completer
	if cfg.OpenAIAPIKey != "" {
		client, err := llm.NewOpenAIClient(cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai client")
		}
		completer = client
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, extraction runs on the fallback path")
	}

	srv := server.New(cfg, logger, store, feed, completer)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr(), Handler: srv.Router()}
	logger.Info().Str("addr", cfg.HTTPAddr()).Int("catalog", store.Len()).Msg("server starting")

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	logger.Info().Msg("bye")
}
