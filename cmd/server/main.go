package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yourusername/ha-backupper/internal/api"
	"github.com/yourusername/ha-backupper/internal/backup"
	"github.com/yourusername/ha-backupper/internal/config"
	"github.com/yourusername/ha-backupper/internal/database"
	"github.com/yourusername/ha-backupper/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set up logging
	if _, err := logging.Init(cfg.Logging); err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logging.Close()

	// Initialize database
	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Running database migrations...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize activity logger
	logDir := filepath.Join(cfg.Storage.DataDir, "logs", "activity")
	activityLogger, err := logging.NewActivityLogger(db.DB, logDir)
	if err != nil {
		log.Fatalf("Failed to initialize activity logger: %v", err)
	}
	defer activityLogger.Close()

	// Initialize backup engine
	engine := backup.NewEngine(
		cfg.Storage.BackupDir,
		cfg.Storage.ConfigDir,
		cfg.Backup.Sources,
		int(cfg.Backup.MaxBackups),
	)

	// Start scheduled backups when configured
	if cfg.Backup.Schedule != "" {
		scheduler, err := backup.NewScheduler(engine, cfg.Backup.Schedule, activityLogger)
		if err != nil {
			log.Fatalf("Failed to initialize backup scheduler: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Set up HTTP server
	router := api.SetupRouter(cfg, engine, activityLogger)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
