package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vjranagit/trendline/internal/config"
	"github.com/vjranagit/trendline/pkg/api"
	"github.com/vjranagit/trendline/pkg/storage"
	"github.com/vjranagit/trendline/pkg/trend"
)

const version = "0.1.0"

func main() {
	log.Infof("trendline v%s", version)

	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	loc, err := cfg.Location()
	if err != nil {
		log.WithError(err).Fatal("resolve timezone")
	}
	weekStart, err := cfg.WeekStart()
	if err != nil {
		log.WithError(err).Fatal("resolve week start")
	}

	log.WithFields(log.Fields{
		"listen":     cfg.Server.ListenAddr,
		"storage":    cfg.Storage.Path,
		"timezone":   loc.String(),
		"week_start": weekStart.String(),
	}).Info("configuration loaded")

	store, err := storage.Open(cfg.ToStorageConfig())
	if err != nil {
		log.WithError(err).Fatal("open storage")
	}
	defer store.Close()

	provider := storage.NewCachedProvider(store, cfg.Storage.CacheSize, cfg.Storage.CacheTTL)
	engine := trend.NewEngine(provider, loc, weekStart)
	server := api.NewServer(cfg.Server.ListenAddr, provider, engine)

	go func() {
		log.Infof("API server listening on %s", cfg.Server.ListenAddr)
		if err := server.Start(); err != nil {
			log.WithError(err).Error("server stopped")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	log.Info("server stopped")
}
