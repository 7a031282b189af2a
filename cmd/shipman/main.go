package main

import (
	"context"
	"log"

	"github.com/vpopov/shipman/internal/config"
	"github.com/vpopov/shipman/internal/handler"
	"github.com/vpopov/shipman/internal/logger"
	"github.com/vpopov/shipman/internal/notify"
	"github.com/vpopov/shipman/internal/repository"
	"github.com/vpopov/shipman/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.GetConfig()

	zaplog, err := logger.NewZapLog(cfg.Logger)
	if err != nil {
		return err
	}

	store, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	repo, err := repository.NewRepository(context.Background(), store)
	if err != nil {
		return err
	}

	notifier := notify.NewNotifier(cfg.Notify)

	return handler.Serve(cfg.Handler, repo, notifier, zaplog)
}
