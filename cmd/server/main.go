package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/fieldsync/internal/clock"
	"github.com/iudanet/fieldsync/internal/models"
	"github.com/iudanet/fieldsync/internal/server/config"
	"github.com/iudanet/fieldsync/internal/server/handlers"
	"github.com/iudanet/fieldsync/internal/server/jwt"
	"github.com/iudanet/fieldsync/internal/server/middleware"
	"github.com/iudanet/fieldsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	mintSite := flag.String("mint-token", "", "Mint an access token for the given site ID and exit")
	mintDevice := flag.String("device", "", "Optional device ID to embed in the minted token")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*mintSite, *mintDevice); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(mintSite, mintDevice string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	tokens := jwt.NewService(cfg.JWTSecret, cfg.TokenTTL)

	// Режим выпуска токена: печатаем токен площадки и выходим,
	// сервер не стартует
	if mintSite != "" {
		token, expiresAt, err := tokens.Generate(mintSite, mintDevice)
		if err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}
		fmt.Println(token)
		fmt.Fprintf(os.Stderr, "expires: %s\n", expiresAt.Format(time.RFC3339))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := models.NewRegistry()
	clk := clock.New()

	store, err := sqlite.New(ctx, cfg.DatabasePath, registry, clk)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	syncHandler := handlers.NewSyncHandler(logger, store, registry)
	healthHandler := handlers.NewHealthHandler(logger, store, Version)

	authMiddleware := middleware.AuthMiddleware(logger, tokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)
	mux.Handle("POST /api/v1/changes:push", authMiddleware(http.HandlerFunc(syncHandler.HandlePush)))
	mux.Handle("GET /api/v1/changes:pull", authMiddleware(http.HandlerFunc(syncHandler.HandlePull)))

	// Цепочка: logging -> recovery -> rate limit -> mux
	// Health check не логируем, его дергают часто
	handler := middleware.LoggingWithSkip(logger, "/api/v1/health")(
		middleware.RecoveryMiddleware(logger)(
			middleware.RateLimitMiddleware(cfg.RateLimit, cfg.RateWindow, logger)(mux),
		),
	)

	server := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Завершаем сервер при отмене контекста
	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.Info("Starting server", "address", cfg.Address, "version", Version)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func printVersion() {
	fmt.Printf("FieldSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
