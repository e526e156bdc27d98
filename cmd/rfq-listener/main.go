package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"procure/internal/catalog"
	"procure/internal/config"
	"procure/internal/inbox"
	"procure/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)
	logger := config.SetupLogger(cfg)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	listener := inbox.NewListener(db, catalog.NewSeededStore(), cfg, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(listener.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
