package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shadow-goose/grants-api/auth"
	"github.com/shadow-goose/grants-api/config"
	"github.com/shadow-goose/grants-api/grants"
	"github.com/shadow-goose/grants-api/rules"
	"github.com/shadow-goose/grants-api/server"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg := config.Load()
	if !cfg.IsProduction() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var db *sql.DB
	var ruleStore rules.RuleStore
	var grantStore grants.Store

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open database")
		}
		if err := db.Ping(); err != nil {
			log.Fatal().Err(err).Msg("failed to ping database")
		}
		defer db.Close()

		ruleStore = rules.NewPostgresStore(db)
		grantStore = grants.NewPostgresStore(db)
		log.Info().Msg("using postgres-backed stores")
	} else {
		ruleStore = rules.NewMemoryStore()
		grantStore = grants.NewMemoryStore()
		log.Info().Msg("using in-memory stores")
	}

	engine, err := rules.NewEngine(ruleStore)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build rules engine")
	}

	// Seed the catalogue and rule set when starting empty.
	if stored, err := engine.Rules(); err == nil && len(stored) == 0 {
		rules.SeedDefaults(engine)
	}
	if existing, err := grantStore.Grants(); err == nil && len(existing) == 0 {
		if err := grants.SeedSamples(grantStore); err != nil {
			log.Warn().Err(err).Msg("failed to seed sample grants")
		}
	}

	srv := server.NewServer(cfg, db, engine, grants.NewService(grantStore), auth.NewService(cfg.SecretKey, auth.DefaultUsers()))

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("environment", string(cfg.Environment)).Msg("server starting")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	log.Info().Msg("server stopped")
}
