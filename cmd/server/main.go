package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/tubegrab/internal/api"
	"github.com/iconidentify/tubegrab/internal/api/handler"
	"github.com/iconidentify/tubegrab/internal/config"
	"github.com/iconidentify/tubegrab/internal/extractor"
	"github.com/iconidentify/tubegrab/internal/repository"
	"github.com/iconidentify/tubegrab/internal/scratch"
	"github.com/iconidentify/tubegrab/internal/service"
	"github.com/iconidentify/tubegrab/internal/transcoder"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("tubegrab %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting tubegrab",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Scratch space for the fallback download pipeline
	scratchDir, err := scratch.NewDir(cfg.Scratch.Dir, logger)
	if err != nil {
		logger.Error("failed to create scratch directory", "error", err)
		os.Exit(1)
	}

	// External tools must be present at startup
	ex, err := extractor.New(cfg.Extractor, logger)
	if err != nil {
		logger.Error("extractor unavailable", "error", err)
		os.Exit(1)
	}
	tc, err := transcoder.New(cfg.Transcoder, logger)
	if err != nil {
		logger.Error("transcoder unavailable", "error", err)
		os.Exit(1)
	}

	// Download history is optional
	var history repository.HistoryRepository
	if cfg.History.DBPath != "" {
		repo, err := repository.NewSQLiteHistoryRepository(cfg.History.DBPath, logger)
		if err != nil {
			logger.Error("failed to open history database", "error", err)
			os.Exit(1)
		}
		history = repo
		logger.Info("download history enabled", "path", cfg.History.DBPath)

		if _, err := repo.Prune(context.Background(), cfg.History.RetentionDays); err != nil {
			logger.Warn("history prune failed", "error", err)
		}
	}

	mediaSvc := service.NewMediaService(ex, tc, scratchDir, history, cfg.Scratch, logger)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaSvc, cfg.Server.DevMode, logger)
	historyHandler := handler.NewHistoryHandler(mediaSvc, logger)
	healthHandler := handler.NewHealthHandler(readyCheck(cfg, scratchDir))

	router := api.NewRouter(mediaHandler, historyHandler, healthHandler)

	// Periodic cleanup of abandoned scratch files
	janitor := scratch.NewJanitor(scratchDir, cfg.Scratch.SweepInterval, cfg.Scratch.MaxAge, logger)
	janitor.Start()

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := janitor.Stop(5 * time.Second); err != nil {
		logger.Error("janitor shutdown error", "error", err)
	}

	if history != nil {
		if err := history.Close(); err != nil {
			logger.Error("history close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// readyCheck verifies the external tools and scratch space the service
// depends on. Tools can disappear after startup (container rebuilds,
// PATH changes), so the probe re-checks every time.
func readyCheck(cfg *config.Config, dir *scratch.Dir) func() error {
	return func() error {
		if _, err := exec.LookPath(cfg.Extractor.Binary); err != nil {
			return fmt.Errorf("extractor binary %q not found", cfg.Extractor.Binary)
		}
		if _, err := exec.LookPath(cfg.Transcoder.Binary); err != nil {
			return fmt.Errorf("transcoder binary %q not found", cfg.Transcoder.Binary)
		}
		if info, err := os.Stat(dir.Path()); err != nil || !info.IsDir() {
			return fmt.Errorf("scratch directory %q unavailable", dir.Path())
		}
		return nil
	}
}
