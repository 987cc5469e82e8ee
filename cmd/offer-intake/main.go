package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"studentoffer/internal/config"
	"studentoffer/internal/listener"
	"studentoffer/internal/logger"
	"studentoffer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	log, closeLog, err := logger.New(cfg, os.Stderr)
	must(err)
	defer closeLog()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	svc := listener.NewService(db, cfg, log)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("offer intake started", "provider", cfg.IntakeProvider, "interval_sec", cfg.IntakeIntervalSec)
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
