package main

import (
	"context"
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

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Om-Prakash-Verma/new-flix/api"
	"github.com/Om-Prakash-Verma/new-flix/config"
	"github.com/Om-Prakash-Verma/new-flix/handlers"
	"github.com/Om-Prakash-Verma/new-flix/services/discover"
	"github.com/Om-Prakash-Verma/new-flix/services/embed"
	"github.com/Om-Prakash-Verma/new-flix/services/tmdb"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("🚀 new-flix backend starting...")

	configPath := os.Getenv("NEWFLIX_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

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
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	if key := os.Getenv("TMDB_API_KEY"); key != "" {
		settings.TMDB.APIKey = key
	}
	if settings.TMDB.APIKey == "" {
		log.Println("⚠️  No TMDB API key configured; metadata endpoints will return 503 until one is set")
	}

	// Wire services
	tmdbClient := tmdb.NewClient(
		settings.TMDB.APIKey,
		settings.TMDB.Language,
		settings.Cache.Directory,
		settings.Cache.MetadataTTLHours,
		nil,
	)
	discoverSvc := discover.NewService(tmdbClient)
	embedSvc := embed.NewService(
		embed.Catalog(),
		tmdbClient,
		time.Duration(settings.Playback.SessionTTLMinutes)*time.Minute,
	)

	// Wire handlers and routes
	r := mux.NewRouter()
	sessionLimiter := api.NewIPRateLimiter(rate.Limit(2), 10)
	api.Register(
		r,
		handlers.NewDiscoverHandler(discoverSvc, tmdbClient),
		handlers.NewPlaybackHandler(embedSvc),
		handlers.NewTMDBProxyHandler(tmdbClient),
		handlers.NewSettingsHandler(cfgManager, tmdbClient),
		sessionLimiter,
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
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

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
