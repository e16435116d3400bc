// Affectd is the affect analytics daemon.
//
// It ingests per-modality emotion readings, fuses them into multimodal
// judgments, analyzes per-subject temporal patterns, screens messages
// for crisis indicators, and computes composite wellness scores, all
// over an HTTP API.
//
// Configuration is loaded from a YAML file and AFFECTD_* environment
// variables; the file is watched and hot-reloaded while running.
//
// Usage:
//
//	# Start with defaults
//	affectd
//
//	# Start with a config file
//	affectd --config /etc/affectd/config.yaml
//
//	# Configure via environment
//	AFFECTD_SERVER_PORT=9005 affectd
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/affectlab/affectd/internal/config"
	"github.com/affectlab/affectd/internal/httpapi"
	"github.com/affectlab/affectd/internal/logging"
	"github.com/affectlab/affectd/internal/schedule"
	"github.com/affectlab/affectd/internal/service"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "affectd",
	Short: "Affect analytics daemon",
	Long: `affectd serves multimodal emotion fusion, temporal pattern analysis,
crisis screening, and wellness scoring over HTTP.`,
	Version:      version,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return run(ctx)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("affectd\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run starts the daemon and blocks until the context is cancelled:
// config, logger, service core, HTTP server, wellness sweep scheduler,
// and the config file watcher, then a graceful shutdown in reverse
// order.
func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting affectd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	svc, err := service.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	server, err := httpapi.NewServer(svc, logger, httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	sched, err := schedule.NewScheduler(cfg.Schedule.WellnessSpec, svc, schedule.NewMoodSource(svc), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Hot reload swaps the engine tables; server address changes need a
	// restart.
	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, logger, func(next *config.Config) {
			if err := svc.Reload(next); err != nil {
				logger.Error("failed to apply reloaded config", zap.Error(err))
			}
		})
		if err != nil {
			return fmt.Errorf("failed to initialize config watcher: %w", err)
		}
		watcher.Start(ctx)
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
