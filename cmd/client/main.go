package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iudanet/fieldsync/internal/client/api"
	"github.com/iudanet/fieldsync/internal/client/auth"
	"github.com/iudanet/fieldsync/internal/client/cli"
	"github.com/iudanet/fieldsync/internal/client/connectivity"
	"github.com/iudanet/fieldsync/internal/client/data"
	"github.com/iudanet/fieldsync/internal/client/iocli"
	"github.com/iudanet/fieldsync/internal/client/orchestrator"
	"github.com/iudanet/fieldsync/internal/client/storage/boltdb"
	"github.com/iudanet/fieldsync/internal/client/storage/sqlite"
	"github.com/iudanet/fieldsync/internal/client/sync"
	"github.com/iudanet/fieldsync/internal/clock"
	"github.com/iudanet/fieldsync/internal/models"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// defaultServerURL используется до первого configure. Запросов к нему
// не будет: без сессии Token() откажет раньше любого обращения к сети.
const defaultServerURL = "http://localhost:8080"

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	dbPath := flag.String("db", "fieldsync.db", "Path to the local entity database")
	sessionPath := flag.String("session", "fieldsync-session.db", "Path to the device session database")
	logFile := flag.String("log-file", "", "Write diagnostics to a rotating log file instead of stderr")

	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	// Получаем команду
	args := flag.Args()
	if len(args) == 0 {
		cli.New(cli.Deps{IO: iocli.NewStdio()}).PrintUsage()
		os.Exit(1)
	}

	if err := run(args[0], args[1:], *dbPath, *sessionPath, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, dbPath, sessionPath, logFile string) error {
	logger := newLogger(logFile)

	// Ctrl+C и SIGTERM снимают контекст, демон завершается штатно
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	boltStorage, err := boltdb.New(ctx, sessionPath)
	if err != nil {
		return fmt.Errorf("failed to open session database: %w", err)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close session database", "error", err)
		}
	}()

	registry := models.NewRegistry()

	store, err := sqlite.New(ctx, dbPath, registry)
	if err != nil {
		return fmt.Errorf("failed to open local database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close local database", "error", err)
		}
	}()

	// Адрес сервера живёт в сессии устройства и задаётся командой configure
	serverURL := defaultServerURL
	if session, err := boltStorage.GetSession(ctx); err == nil {
		serverURL = session.ServerURL
	}

	apiClient := api.NewClient(serverURL)
	clk := clock.New()

	authService := auth.NewService(boltStorage)
	dataService := data.NewService(store, store, registry, clk)
	syncService := sync.NewService(apiClient, store, store, store, registry, clk, logger)
	probe := connectivity.NewHealthProbe(apiClient, logger)
	orch := orchestrator.New(syncService, probe, authService, orchestrator.Config{}, logger)

	c := cli.New(cli.Deps{
		IO:           iocli.NewStdio(),
		Auth:         authService,
		Data:         dataService,
		Sync:         syncService,
		Orchestrator: orch,
		Metadata:     store,
		Registry:     registry,
	})

	return c.Run(ctx, command, args)
}

// newLogger пишет диагностику в stderr, а с флагом -log-file
// в файл с ротацией, чтобы демон не разрастался на диске
func newLogger(logFile string) *slog.Logger {
	var w io.Writer = os.Stderr
	if logFile != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // мегабайты
			MaxBackups: 3,
			MaxAge:     28, // дни
		}
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func printVersion() {
	fmt.Printf("FieldSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
