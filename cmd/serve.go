package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/page"
	"github.com/raainshe/animedash/internal/render"
	"github.com/raainshe/animedash/internal/server"
)

const (
	defaultPIDFile = "animedash.pid"
)

// NewServeCommand creates the command hosting the dashboard and library pages
func NewServeCommand(ctx context.Context, services *Services) *cobra.Command {
	var pidFile string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "🌐 Serve the dashboard and library pages",
		Long:  "Poll the backend and serve live dashboard and library pages until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				services.Config.Server.Addr = addr
			}
			return RunServer(ctx, services, pidFile)
		},
	}

	cmd.Flags().StringVarP(&pidFile, "pid-file", "p", defaultPIDFile, "PID file location, empty to skip")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "listen address, overrides SERVER_ADDR")

	return cmd
}

// NewStopCommand creates the command stopping a running server
func NewStopCommand() *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "⏹️  Stop a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stopServer(cmd, pidFile)
		},
	}

	cmd.Flags().StringVarP(&pidFile, "pid-file", "p", defaultPIDFile, "PID file location")

	return cmd
}

// RunServer wires the view models to the page store and serves until ctx is cancelled
func RunServer(ctx context.Context, services *Services, pidFile string) error {
	logger := services.Logger

	if pidFile != "" {
		if isServerRunning(pidFile) {
			return fmt.Errorf("server is already running (PID file exists: %s)", pidFile)
		}
		if err := createPIDFile(pidFile); err != nil {
			return fmt.Errorf("failed to create PID file: %w", err)
		}
		defer removePIDFile(pidFile)
	}

	store := page.New(render.InitialElements())
	renderer := render.NewHTMLRenderer(store)

	dashboard := core.NewDashboardViewModel(services.Client, services.Config.Dashboard.Interval,
		renderer, services.Cache)
	library := core.NewLibraryViewModel(services.Client, services.Config.Library.Interval,
		renderer, services.Cache)

	srv := server.New(&services.Config.Server, store, services.Cache, services.Client)

	if err := dashboard.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dashboard updates: %w", err)
	}
	defer dashboard.Stop()

	if err := library.Start(ctx); err != nil {
		return fmt.Errorf("failed to start library updates: %w", err)
	}
	defer library.Stop()

	logger.WithField("pid", os.Getpid()).
		WithField("dashboard_interval", services.Config.Dashboard.Interval.String()).
		WithField("library_interval", services.Config.Library.Interval.String()).
		Info("Animedash server starting")

	if err := srv.Run(ctx); err != nil {
		return err
	}

	logger.Info("Animedash server stopped")
	return nil
}

// isServerRunning checks if another server owns the PID file
func isServerRunning(pidFile string) bool {
	pid, err := readPIDFile(pidFile)
	if err != nil {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Signal 0 only checks that the process exists
	return process.Signal(syscall.Signal(0)) == nil
}

func readPIDFile(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file: %w", err)
	}
	return pid, nil
}

// createPIDFile creates a PID file with the current process ID
func createPIDFile(pidFile string) error {
	return os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644)
}

func removePIDFile(pidFile string) {
	_ = os.Remove(pidFile)
}

func stopServer(cmd *cobra.Command, pidFile string) error {
	out := cmd.OutOrStdout()

	if !isServerRunning(pidFile) {
		return fmt.Errorf("server is not running")
	}

	pid, err := readPIDFile(pidFile)
	if err != nil {
		return fmt.Errorf("failed to read PID file: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("failed to find process: %w", err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	fmt.Fprintf(out, "🔄 Sent SIGTERM to server (PID: %d)\n", pid)

	for i := 0; i < 10; i++ {
		time.Sleep(time.Second)
		if process.Signal(syscall.Signal(0)) != nil {
			removePIDFile(pidFile)
			fmt.Fprintln(out, "✅ Server stopped")
			return nil
		}
	}

	fmt.Fprintln(out, "⚠️  Server not responding, sending SIGKILL...")
	if err := process.Signal(syscall.SIGKILL); err != nil {
		return fmt.Errorf("failed to send SIGKILL: %w", err)
	}

	removePIDFile(pidFile)
	fmt.Fprintln(out, "✅ Server force stopped")
	return nil
}
