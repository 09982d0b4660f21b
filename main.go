package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"traktshelf/api"
	"traktshelf/config"
	"traktshelf/handlers"
	"traktshelf/internal/cache"
	"traktshelf/internal/database"
	"traktshelf/services/catalog"
	"traktshelf/services/provider"
	"traktshelf/services/rpdb"
	"traktshelf/services/tmdb"
	"traktshelf/services/trakt"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"
)

const version = "1.0.0"

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 Trakt Shelf Backend Starting...")

	// Determine config path (env or default)
	configPath := os.Getenv("TRAKTSHELF_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	// Init config manager and load settings (creates defaults if missing)
	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			multiWriter := io.MultiWriter(os.Stdout, fileWriter)
			log.SetOutput(multiWriter)
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	// Cache backend: Redis when configured, local files otherwise.
	var store cache.Store
	if settings.Cache.RedisURL != "" {
		store, err = cache.NewRedisStore(settings.Cache.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		fmt.Println("📦 Cache backend: redis")
	} else {
		store, err = cache.NewFileStore(filepath.Join(settings.Cache.Directory, "data"))
		if err != nil {
			log.Fatalf("failed to initialise file cache: %v", err)
		}
		fmt.Println("📦 Cache backend: file")
	}
	defer store.Close()

	historyTTL := time.Duration(settings.Cache.HistoryTTLSeconds) * time.Second
	metadataTTL := time.Duration(settings.Cache.MetadataTTLSeconds) * time.Second
	posterTTL := time.Duration(settings.Cache.PosterTTLSeconds) * time.Second

	traktClient, err := trakt.NewClient(settings.Trakt.ClientID, settings.Trakt.ClientSecret, store, historyTTL, nil)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			log.Fatalf("trakt credentials missing: set trakt.clientId and trakt.clientSecret in %s", configPath)
		}
		log.Fatalf("failed to initialise trakt client: %v", err)
	}
	tmdbClient, err := tmdb.NewClient(settings.TMDB.APIKey, settings.TMDB.Language, store, metadataTTL, nil)
	if err != nil {
		if errors.Is(err, provider.ErrNotConfigured) {
			log.Fatalf("tmdb api key missing: set tmdb.apiKey in %s", configPath)
		}
		log.Fatalf("failed to initialise tmdb client: %v", err)
	}
	rpdbClient := rpdb.NewClient(settings.RPDB.APIKey, settings.RPDB.PosterWidth, store, posterTTL, nil)

	catalogService := catalog.NewService(traktClient, tmdbClient, rpdbClient,
		settings.Catalog.PageSize, settings.Catalog.UpcomingWindowDays, settings.Catalog.EnrichWorkers)

	// Token store is optional; catalog URLs can carry the token directly.
	var tokensHandler *handlers.TokensHandler
	var tokenRepo *database.TokenRepository
	db, err := database.Open(context.Background(), settings.Database.Path)
	if err != nil {
		log.Printf("warning: token store unavailable: %v", err)
	} else {
		defer db.Close()
		tokenRepo = database.NewTokenRepository(db)
		tokensHandler = handlers.NewTokensHandler(tokenRepo)
	}

	maintenance := cache.NewMaintenance(store, nil, metadataTTL)

	catalogHandler := handlers.NewCatalogHandler(catalogService, traktClient, tokenRepo, version)
	maintenanceHandler := handlers.NewMaintenanceHandler(maintenance)

	r := mux.NewRouter()
	api.Register(r, catalogHandler, tokensHandler, maintenanceHandler)

	// Nightly cache sweep.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(settings.Maintenance.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := maintenance.RunSweep(ctx); err != nil {
			log.Printf("[main] scheduled sweep failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("invalid maintenance schedule %q: %v", settings.Maintenance.Schedule, err)
	}
	scheduler.Start()

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("🛑 Shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Let an in-flight sweep finish before closing the store.
	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		log.Println("gave up waiting for running sweep")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
