package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/raainshe/animedash/cmd"
	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/cache"
	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/telemetry"
)

var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

const serviceName = "animedash"

// app tracks what initializeServices started so cleanup can undo it
type app struct {
	services          *cmd.Services
	shutdownTelemetry func(context.Context) error
}

func main() {
	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n🛑 Shutting down gracefully...")
		cancel()
	}()

	application := &app{services: &cmd.Services{}}
	rootCmd := createRootCommand(ctx, application)

	err := rootCmd.Execute()
	cleanup(application)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Command failed: %v\n", err)
		os.Exit(1)
	}
}

// createRootCommand creates the main Cobra root command
func createRootCommand(ctx context.Context, application *app) *cobra.Command {
	var configFile string
	var logLevel string
	var verbose bool

	services := application.services

	rootCmd := &cobra.Command{
		Use:   "animedash",
		Short: "🎌 Animedash - live dashboard for the anime downloader",
		Long: `🎌 Animedash - live dashboard for the anime downloader

Animedash polls the anime downloader API and shows a dashboard of the library
and active downloads plus a browsable library, as web pages, a terminal UI or
one-shot reports.

Examples:
  animedash                  # Serve the web pages (default)
  animedash serve --addr :9000
  animedash tui              # Interactive terminal UI
  animedash status --watch   # Print the dashboard on every refresh
  animedash library --json   # Dump the library as JSON`,
		Version:       fmt.Sprintf("%s (built: %s, commit: %s)", version, buildTime, gitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.RunServer(ctx, services, "")
		},
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			switch c.Name() {
			case "version", "stop":
				return nil
			}
			if err := initializeServices(ctx, application, configFile); err != nil {
				return err
			}

			// Flags override the configured level
			if verbose {
				services.Logger.Logger.SetLevel(logrus.DebugLevel)
			} else if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return err
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logs)")

	rootCmd.AddCommand(
		cmd.NewServeCommand(ctx, services),
		cmd.NewStopCommand(),
		cmd.NewTUICommand(ctx, services),
		cmd.NewStatusCommand(ctx, services),
		cmd.NewLibraryCommand(ctx, services),
		cmd.NewVersionCommand(version, buildTime, gitCommit),
	)

	return rootCmd
}

// initializeServices loads configuration and connects to the backend
func initializeServices(ctx context.Context, application *app, configFile string) error {
	services := application.services

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	services.Config = cfg

	logger, err := logging.Initialize(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	services.Logger = logger
	mainLogger := logger.WithComponent(logging.ComponentMain)

	logger.WithComponent(logging.ComponentConfig).WithFields(map[string]interface{}{
		"api":                cfg.API.URL,
		"dashboard_interval": cfg.Dashboard.Interval.String(),
		"library_interval":   cfg.Library.Interval.String(),
		"credentials":        cfg.HasCredentials(),
	}).Debug("Configuration loaded")

	shutdown, err := telemetry.Init(ctx, serviceName)
	if err != nil {
		// Tracing is optional, the dashboard works without it
		mainLogger.WithError(err).Warn("Failed to initialize tracing")
	} else {
		application.shutdownTelemetry = shutdown
	}

	cacheManager, err := cache.Initialize(&cfg.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	services.Cache = cacheManager

	client, err := animeapi.NewClient(cfg.API.URL, cfg.API.Username, cfg.API.Password,
		animeapi.WithTimeout(cfg.API.RequestTimeout))
	if err != nil {
		return fmt.Errorf("failed to create anime API client: %w", err)
	}
	services.Client = client

	services.Connect(ctx)

	mainLogger.WithField("api", cfg.API.URL).Info("✅ All services initialized successfully")
	return nil
}

// cleanup gracefully shuts down all services
func cleanup(application *app) {
	services := application.services
	if services.Config == nil {
		return
	}

	mainLogger := logging.GetLogger()
	mainLogger.Debug("🧹 Cleaning up services...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if services.Client != nil && services.Client.IsAuthenticated() {
		if err := services.Client.Logout(ctx); err != nil {
			mainLogger.WithError(err).Warn("Failed to log out from anime API")
		}
	}

	if services.Cache != nil {
		services.Cache.LogStats()
		services.Cache.Shutdown()
	}

	if application.shutdownTelemetry != nil {
		if err := application.shutdownTelemetry(ctx); err != nil {
			mainLogger.WithError(err).Warn("Failed to flush traces")
		}
	}

	mainLogger.Debug("✅ Cleanup completed")
	logging.Shutdown()
}
