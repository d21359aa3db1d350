/*
Package main is the entry point for the popx account server.

It is responsible for loading configuration, initializing the global logging system,
opening the credential store and avatar storage, setting up the HTTP server,
and gracefully handling operating system interrupt signals (SIGINT, SIGTERM)
to ensure a smooth server shutdown.
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"popx/internal/app/db"
	"popx/internal/app/storage"
	"popx/internal/app/user"
	"popx/internal/configs"
	"popx/internal/handler"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/logx"
)

func main() {
	// Load configuration from environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	logx.InitGlobalLogger(cfg.IsDevelopment())
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Str("storage_driver", cfg.StorageDriver).
		Dur("token_ttl", cfg.TokenTTL).
		Bool("memory_store", cfg.UsesMemoryStore()).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store user.Store
	if cfg.UsesMemoryStore() {
		logx.Warn("Using in-memory credential store. Accounts are lost on restart.")
		store = user.NewMemoryStore()
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			logx.Fatal(err, "Failed to connect to database")
		}
		defer pool.Close()
		store = db.NewUserStore(db.OpenDB(pool))
	}

	storageService, err := storage.NewStorageService(ctx, storage.ServiceConfig{
		Driver:            cfg.StorageDriver,
		UploadsDir:        cfg.UploadsDir,
		PublicBaseURL:     cfg.PublicBaseURL,
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
		S3PublicURL:       cfg.S3PublicURL,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize storage service")
	}

	deps := &handler.AppDeps{
		Config:         cfg,
		Users:          user.NewService(store, 0),
		Tokens:         jwt.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		StorageService: storageService,
	}

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              serverAddr,
		Handler:           handler.Router(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("popx API starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
		return
	}

	logx.Info("Server gracefully stopped.")
}
