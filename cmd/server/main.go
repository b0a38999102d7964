package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/robfig/cron/v3"

	"networth/internal/api"
	"networth/internal/config"
	"networth/internal/logging"
	"networth/pkg/networth"
)

var getppid = os.Getppid
var sleep = time.Sleep
var exit = os.Exit

// refreshRates is the scheduled job body.
var refreshRates = func(ctx context.Context, core *networth.Core) (*networth.ValetImportResult, error) {
	return core.RefreshExchangeRates(ctx, time.Time{})
}

func main() {
	var dataDir string
	var port int
	var host string
	var logLevel string
	var refreshSchedule string

	flag.StringVar(&dataDir, "data-dir", "", "Directory for storing database and application data")
	flag.IntVar(&port, "port", 8000, "Port to run the server on")
	flag.StringVar(&host, "host", "127.0.0.1", "Host to bind the server to")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&refreshSchedule, "refresh-schedule", "", "Cron schedule for Bank of Canada rate refresh, e.g. \"0 18 * * 1-5\" (optional)")
	flag.Parse()

	if dataDir != "" {
		config.SetRuntimeDataDir(dataDir)
	}

	settings, err := config.Load()
	if err != nil {
		slog.Error("failed to resolve configuration", "err", err)
		os.Exit(1)
	}
	level, ok := logging.ParseLevel(logLevel)
	if !ok {
		slog.Warn("unknown log level, using info", "log_level", logLevel)
	}
	logger, writer, err := logging.NewLogger(filepath.Join(settings.DataDir, "logs"), level)
	if err != nil {
		slog.Error("failed to initialize logger", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := writer.Close(); err != nil {
			logger.Error("failed to close log writer", "err", err)
		}
	}()

	core, err := networth.OpenWithOptions(settings.CoreOptions(logger))
	if err != nil {
		logger.Error("failed to initialize core", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error("failed to close core", "err", err)
		}
	}()

	if refreshSchedule != "" {
		scheduler, err := startScheduler(refreshSchedule, core, logger)
		if err != nil {
			logger.Error("invalid refresh schedule", "schedule", refreshSchedule, "err", err)
			os.Exit(1)
		}
		defer func() {
			<-scheduler.Stop().Done()
		}()
	}

	if os.Getenv("NETWORTH_PARENT_WATCH") == "1" {
		go watchParent(logger)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	handler := middleware.Compress(5)(api.NewRouter(core))

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	if config.IsFirstRun() {
		logger.Info("no saved configuration, using defaults", "data_dir", settings.DataDir)
	}
	logger.Info("server starting", "addr", addr, "db_path", settings.DBPath, "display_currency", settings.DisplayCurrency)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop

	logger.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
}

// startScheduler runs the rate refresh on schedule until the returned cron is
// stopped. Overlapping runs are skipped.
func startScheduler(schedule string, core *networth.Core, logger *slog.Logger) (*cron.Cron, error) {
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := scheduler.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		result, err := refreshRates(ctx, core)
		if err != nil {
			logger.Error("scheduled rate refresh failed", "err", err)
			return
		}
		logger.Info("scheduled rate refresh", "imported", result.Imported, "from", result.From, "to", result.To)
	})
	if err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}

func watchParent(logger *slog.Logger) {
	for {
		sleep(1 * time.Second)
		if getppid() == 1 {
			logger.Info("parent process exited; shutting down")
			exit(0)
		}
	}
}
