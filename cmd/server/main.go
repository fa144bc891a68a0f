package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"online-classes-storefront/internal/config"
	"online-classes-storefront/internal/server"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.ConfigureLogging(); err != nil {
		log.WithError(err).Fatal("Failed to configure logging")
	}

	api, err := server.NewClassesAPI(cfg.Classes)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize classes service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg, api).Run(ctx); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
	log.Info("Server stopped")
}
