package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-dispatch-tui/internal/app"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/tabs/dashboard"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/tabs/history"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/tabs/info"
)

func runDashboard(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The alt screen owns the terminal, so logs go to a file
	if cfg.LogPath != "" {
		f, err := logger.OpenFile(cfg.LogPath)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
	}

	mgr, err := services.NewManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeManager(mgr)

	model := app.NewModel(mgr)
	state := model.GetState()
	model.SetTabs([]app.Tab{
		dashboard.New(state),
		history.New(state, mgr),
		info.New(state, cfg),
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
