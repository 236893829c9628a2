// Command server runs the demo host for the Supabase auth plugin: it loads
// the configuration, builds the client registry, and serves the pipeline
// steps, callback routes, and management API over HTTP.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ecoflow-hq/supabase-auth/internal/api"
	"github.com/ecoflow-hq/supabase-auth/internal/callback"
	"github.com/ecoflow-hq/supabase-auth/internal/config"
	"github.com/ecoflow-hq/supabase-auth/internal/logging"
	"github.com/ecoflow-hq/supabase-auth/internal/registry"
	"github.com/ecoflow-hq/supabase-auth/internal/watcher"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	logging.Setup()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.SetLevel(cfg.Debug)
	if errLog := logging.ConfigureOutput(cfg.LoggingToFile); errLog != nil {
		log.Fatalf("failed to configure logging: %v", errLog)
	}

	reg := registry.Build(cfg)
	log.Infof("registered Supabase clients: %v", reg.Names())

	flows, err := callback.OpenStore(cfg.FlowStatePath)
	if err != nil {
		log.Fatalf("failed to open flow state store: %v", err)
	}
	defer func() { _ = flows.Close() }()

	server := api.NewServer(cfg, reg, flows, configPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configWatcher, err := watcher.New(configPath, server.ApplyConfig)
	if err != nil {
		log.Errorf("config hot-reload unavailable: %v", err)
	} else if errWatch := configWatcher.Start(ctx); errWatch != nil {
		log.Errorf("config hot-reload unavailable: %v", errWatch)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errCh:
		if err != nil {
			log.Fatalf("server error: %v", err)
		}
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = server.Stop(shutdownCtx); err != nil {
		log.Errorf("shutdown error: %v", err)
	}
}
