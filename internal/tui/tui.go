package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/raainshe/animedash/internal/config"
	"github.com/raainshe/animedash/internal/core"
	"github.com/raainshe/animedash/internal/logging"
)

// Run starts the Bubbletea TUI application backed by its own view models
func Run(ctx context.Context, cfg *config.Config, source core.DashboardSource) error {
	logger := logging.GetTUILogger()

	var program *tea.Program

	dashboard := core.NewDashboardViewModel(source, cfg.Dashboard.Interval,
		core.DashboardSinkFunc(func(view *core.DashboardView) {
			program.Send(dashboardUpdatedMsg{view: view})
		}))
	library := core.NewLibraryViewModel(source, cfg.Library.Interval,
		core.LibrarySinkFunc(func(view *core.LibraryView, err error) {
			program.Send(libraryUpdatedMsg{view: view, err: err})
		}))

	program = tea.NewProgram(
		NewAppModel(ctx, dashboard, library),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	if err := dashboard.Start(ctx); err != nil {
		return fmt.Errorf("failed to start dashboard updates: %w", err)
	}
	defer dashboard.Stop()

	if err := library.Start(ctx); err != nil {
		return fmt.Errorf("failed to start library updates: %w", err)
	}
	defer library.Stop()

	logger.Info("Terminal UI started")
	_, err := program.Run()
	logger.Info("Terminal UI stopped")

	// Cancelling ctx is a normal way out
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
