package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"eligibility-signposting/internal/api"
	"eligibility-signposting/internal/config"
	"eligibility-signposting/internal/derived"
	"eligibility-signposting/internal/engine"
	"eligibility-signposting/internal/hashing"
	"eligibility-signposting/internal/listener"
	"eligibility-signposting/internal/service"
	"eligibility-signposting/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	secrets := hashing.Static{CurrentSecret: cfg.Hashing.CurrentSecret, PreviousSecret: cfg.Hashing.PreviousSecret}
	store, err := storage.New(rootCtx, cfg, secrets)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	// Campaign snapshot
	var src engine.CampaignSource = store
	if cfg.Campaigns.Source == config.CampaignSourceDir {
		src = storage.DirSource{Dir: cfg.Campaigns.Dir}
	}
	eng := engine.NewEngine()
	if err := eng.BuildSnapshot(rootCtx, src); err != nil {
		log.Fatal().Err(err).Str("source", cfg.Campaigns.Source).Msg("initial snapshot build")
	}

	// Service + HTTP
	calc := engine.NewCalculator(derived.Default(), log.Logger)
	svc := service.New(store, eng, calc)
	h := api.NewEligibilityHandler(svc)
	r := api.Router(h, cfg.RequestTimeout())

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Listener (LISTEN/NOTIFY); file-backed campaigns are loaded once.
	if cfg.Campaigns.Source == config.CampaignSourcePostgres {
		go listener.ListenAndRefresh(rootCtx, store, eng, cfg.Listener.Channel, cfg.Backoff())
	}

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
