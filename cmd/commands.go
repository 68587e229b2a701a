package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/raainshe/animedash/internal/animeapi"
	"github.com/raainshe/animedash/internal/cache"
	"github.com/raainshe/animedash/internal/cli"
	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/logging"
	"github.com/raainshe/animedash/internal/tui"
)

// Services holds everything the commands need. It is filled in once flags
// are parsed, before any command runs.
type Services struct {
	Config *config.Config
	Logger *logging.Logger
	Cache  *cache.CacheManager
	Client *animeapi.Client
	Out    io.Writer
}

func (s *Services) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

// Connect logs in to the backend when credentials are configured. A failure
// is only logged: every polling cycle logs in again when the session is
// missing, so an unreachable backend at startup is retried on the next tick.
func (s *Services) Connect(ctx context.Context) {
	if s.Config == nil || !s.Config.HasCredentials() {
		return
	}
	if err := s.Client.Login(ctx); err != nil {
		s.Logger.WithError(err).Warn("Initial login to anime API failed, retrying on the next refresh")
	}
}

// NewTUICommand creates the TUI command
func NewTUICommand(ctx context.Context, services *Services) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "🖥️  Launch interactive TUI",
		Long:  "Launch the interactive terminal dashboard and library browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Log lines would tear the full-screen view
			logging.DisableStdout()
			return tui.Run(ctx, services.Config, services.Client)
		},
	}
}

// NewStatusCommand creates the dashboard status command
func NewStatusCommand(ctx context.Context, services *Services) *cobra.Command {
	var jsonOutput bool
	var watch bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "📊 Show library overview and active downloads",
		Long:  "Fetch the library and download list once and print the dashboard. With --watch it keeps printing on every refresh.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.LogCommand("status", args)

			printer := &dashboardPrinter{out: services.out(), jsonOutput: jsonOutput, logger: services.Logger}

			vm := core.NewDashboardViewModel(services.Client, services.Config.Dashboard.Interval,
				printer, services.Cache)

			if !watch {
				if err := vm.Refresh(ctx); err != nil {
					return fmt.Errorf("failed to load dashboard: %w", err)
				}
				return nil
			}

			if err := vm.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			vm.Stop()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep refreshing until interrupted")

	return cmd
}

// dashboardPrinter prints every published dashboard. Refresh cycles may
// overlap, so one print finishes before the next starts.
type dashboardPrinter struct {
	mu         sync.Mutex
	out        io.Writer
	jsonOutput bool
	logger     *logging.Logger
}

// RenderDashboard implements core.DashboardSink
func (p *dashboardPrinter) RenderDashboard(view *core.DashboardView) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := cli.PrintDashboard(p.out, view, p.jsonOutput); err != nil {
		p.logger.WithError(err).Error("Failed to print dashboard")
	}
}

// NewLibraryCommand creates the library listing command
func NewLibraryCommand(ctx context.Context, services *Services) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "library",
		Short: "📚 List the anime library",
		Long:  "Fetch the library once and print every anime with its downloadable files",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.LogCommand("library", args)

			printer := core.LibrarySinkFunc(func(view *core.LibraryView, err error) {
				if printErr := cli.PrintLibrary(services.out(), view, err, jsonOutput); printErr != nil {
					services.Logger.WithError(printErr).Error("Failed to print library")
				}
			})

			vm := core.NewLibraryViewModel(services.Client, services.Config.Library.Interval,
				printer, services.Cache)

			if _, err := vm.Refresh(ctx); err != nil {
				return fmt.Errorf("failed to load library: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "output in JSON format")

	return cmd
}

// NewVersionCommand creates the version command
func NewVersionCommand(version, buildTime, gitCommit string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "📋 Show version information",
		Long:  "Display version, build time, and git commit information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "🎌 Animedash\n")
			fmt.Fprintf(out, "Version: %s\n", version)
			fmt.Fprintf(out, "Built: %s\n", buildTime)
			fmt.Fprintf(out, "Commit: %s\n", gitCommit)
		},
	}
}
