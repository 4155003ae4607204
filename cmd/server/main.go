package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"

	"laptopprice/pkg/api"
	"laptopprice/pkg/config"
	"laptopprice/pkg/core"
	"laptopprice/pkg/monitor"
	"laptopprice/pkg/storage"
)

type args struct {
	Config string `help:"path to the YAML config (default: configs/laptop.yaml, laptop.yaml)" arg:"-c"`
	Addr   string `help:"listen address, overrides the config" arg:"-a"`
}

func (args) Description() string {
	return "laptop price prediction server"
}

func main() {
	var a args
	arg.MustParse(&a)

	cfg, err := config.Load(a.Config)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if a.Addr != "" {
		cfg.Server.Addr = a.Addr
	}

	art, err := core.LoadArtifacts(cfg)
	if err != nil {
		log.Fatalf("Failed to load artifacts: %v", err)
	}

	opts := core.Options{
		CacheSize: cfg.Cache.Size,
		Stats:     monitor.NewPredictionStats(),
	}
	var history api.History
	if cfg.History.Enabled {
		store, err := storage.Open(cfg.History.Driver, cfg.History.DSN)
		if err != nil {
			log.Fatalf("Failed to open history store: %v", err)
		}
		defer store.Close()
		opts.Recorder = store
		history = store
		log.Printf("[Storage] Recording predictions to %s", cfg.History.Driver)
	}

	engine, err := core.NewEngine(art, opts)
	if err != nil {
		log.Fatalf("Failed to start engine: %v", err)
	}
	defer engine.Close()

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: api.NewServer(engine, history, cfg.Server.CORSOrigins).Router(),
	}
	go func() {
		log.Printf("[API] Server listening on %s...", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[API] Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}
}
