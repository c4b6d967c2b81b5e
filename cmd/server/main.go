package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/vytor/studydeck/internal/api"
	"github.com/vytor/studydeck/internal/clock"
	"github.com/vytor/studydeck/internal/config"
	"github.com/vytor/studydeck/internal/db"
	"github.com/vytor/studydeck/internal/flashcard"
	"github.com/vytor/studydeck/internal/logger"
	"github.com/vytor/studydeck/internal/repository/sqlite"
	"github.com/vytor/studydeck/internal/services"
	"github.com/vytor/studydeck/internal/study"
)

func main() {
	envFile := pflag.String("env-file", "", "path to a .env file (default ./.env)")
	policyFile := pflag.String("policy", "", "path to a TOML scheduling policy (overrides POLICY_FILE)")
	addr := pflag.String("addr", "", "listen address (overrides ADDR)")
	pflag.Parse()

	var cfg config.Config
	if *envFile != "" {
		cfg = config.Load(*envFile)
	} else {
		cfg = config.Load()
	}
	if *policyFile != "" {
		cfg.PolicyFile = *policyFile
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	log := logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithJSON(cfg.LogJSON),
	)
	logger.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}

	log.Info("===========================================")
	log.Info("StudyDeck Server Starting")
	log.Info("===========================================")
	log.Info("configuration loaded")
	log.Debug("addr=%s", cfg.Addr)
	log.Debug("db_path=%s", cfg.DBPath)
	log.Debug("log_level=%s", cfg.LogLevel)
	log.Debug("policy_file=%s", cfg.PolicyFile)
	log.Debug("default_review_limit=%d", cfg.DefaultReviewLimit)
	log.Debug("new_card_limit=%d", cfg.NewCardLimit)
	log.Debug("new_card_spacing=%d", cfg.NewCardSpacing)
	log.Debug("cors_origins=%v", cfg.CORSOrigins)

	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		log.Error("failed to load scheduling policy: %v", err)
		os.Exit(1)
	}
	scheduler, err := flashcard.NewScheduler(policy)
	if err != nil {
		log.Error("invalid scheduling policy: %v", err)
		os.Exit(1)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open database: %v", err)
		os.Exit(1)
	}
	defer func() {
		log.Debug("closing database connection")
		database.Close()
	}()

	clk := clock.Real{}
	deckRepo := sqlite.NewDeckRepository(database.DB)
	cardRepo := sqlite.NewCardRepository(database.DB)
	reviewRepo := sqlite.NewReviewRepository(database.DB)
	sessionRepo := sqlite.NewSessionRepository(database.DB)
	studyStore := sqlite.NewStudyStore(database.DB)

	deckService := services.NewDeckService(deckRepo, cardRepo, reviewRepo, sessionRepo, clk)
	studyService := services.NewStudyService(
		study.NewManager(scheduler),
		deckRepo, cardRepo, reviewRepo, sessionRepo, studyStore,
		clk,
		services.StudyDefaults{
			ReviewLimit:    cfg.DefaultReviewLimit,
			NewCardLimit:   cfg.NewCardLimit,
			NewCardSpacing: cfg.NewCardSpacing,
		},
	)

	srv := api.NewServer(deckService, studyService, database, clk, cfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop

	log.Info("received signal %v, initiating graceful shutdown", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Debug("shutting down HTTP server")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error: %v", err)
	}

	log.Info("===========================================")
	log.Info("StudyDeck Server Stopped")
	log.Info("===========================================")
}
