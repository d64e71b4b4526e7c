package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"umn-housing-scraper/config"
	"umn-housing-scraper/geo"
	"umn-housing-scraper/scraper/apartments"
	"umn-housing-scraper/services"
	"umn-housing-scraper/session"
	"umn-housing-scraper/storage"
	"umn-housing-scraper/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== UMN Housing Scraping System starting ===")
	logger.Info("Config — pages: %d | buildings: %d | auto-restart: %v | target: %d | dedupe: %s",
		cfg.MaxSearchPages, cfg.MaxBuildings, cfg.AutoRestart, cfg.TargetListings, cfg.DedupePolicy)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	combinedStore, err := storage.NewCSVStore(cfg.CombinedCSVPath)
	if err != nil {
		logger.Error("Failed to create combined CSV store: %v", err)
		os.Exit(1)
	}
	registry, err := storage.NewFileRegistry(cfg.RegistryPath)
	if err != nil {
		logger.Error("Failed to create visited registry: %v", err)
		os.Exit(1)
	}

	acc, err := session.NewAccumulator(combinedStore, registry, cfg.DedupePolicy, logger)
	if err != nil {
		logger.Error("Failed to load accumulated state: %v", err)
		os.Exit(1)
	}

	// Optional Postgres mirror of the combined set.
	if cfg.PostgresHost != "" {
		pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Error("Make sure Docker is running: docker compose up -d")
			os.Exit(1)
		}
		defer pgWriter.Close()
		acc.AddSink(pgWriter)
	}

	geocoder := geo.NewNominatim(cfg.GeocodeBaseURL, cfg.GeocodeUserAgent,
		cfg.GeocodeEmail, cfg.GeocodeDelay, logger)
	builder := services.NewBuilder(geocoder, logger)

	source := apartments.New(cfg, logger)
	defer source.Close()

	ctrl := session.NewController(session.Options{
		MaxSearchPages: cfg.MaxSearchPages,
		MaxBuildings:   cfg.MaxBuildings,
		AutoRestart:    cfg.AutoRestart,
		MaxSessions:    cfg.MaxSessions,
		Cooldown:       cfg.SessionCooldown,
		TargetListings: cfg.TargetListings,
		Locations:      apartments.Catalog(),
	}, source, builder, acc, logger)

	if err := attachSessionStores(ctrl, cfg); err != nil {
		logger.Error("Failed to create session stores: %v", err)
		os.Exit(1)
	}

	counter, err := storage.NewLocationCounter(cfg.LocationCountsPath)
	if err != nil {
		logger.Error("Failed to create location counter: %v", err)
		os.Exit(1)
	}
	if err := ctrl.SetLocationCounter(counter); err != nil {
		logger.Error("Failed to load location counts: %v", err)
		os.Exit(1)
	}

	state := ctrl.Run(ctx)

	logger.Info("Controller stopped: %s — %d sessions, %d accumulated listings",
		state.Reason, state.SessionsRun, state.TotalListings)

	reportSvc := services.NewReportService(logger)
	report := reportSvc.Generate(acc.Listings())
	reportSvc.Print(report)

	fmt.Printf("  Done. Combined CSV → %s | Registry → %s\n\n",
		cfg.CombinedCSVPath, cfg.RegistryPath)
}

func attachSessionStores(ctrl *session.Controller, cfg *config.Config) error {
	unfiltered, err := storage.NewCSVStore(cfg.UnfilteredCSVPath)
	if err != nil {
		return err
	}
	filtered, err := storage.NewCSVStore(cfg.SessionCSVPath)
	if err != nil {
		return err
	}
	ctrl.SetSessionStores(unfiltered, filtered)
	return nil
}
