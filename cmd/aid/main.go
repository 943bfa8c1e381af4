// Package main is the entry point of aid, the AI dispatch dashboard and CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

var rootCmd = &cobra.Command{
	Use:   "aid",
	Short: "Dispatch prompts across local and cloud LLM backends",
	Long: `aid routes each prompt to a local Ollama server or a cloud backend
(Qwen, ERNIE, Gemini) by complexity, retrying and falling back until one
succeeds. Without a subcommand it opens the dashboard.

Configuration is read from .env files (current directory, ~/.config/aid/.env,
~/.aid/.env) and environment variables.`,
	SilenceUsage: true,
	RunE:         runDashboard,
}

// loadConfig reads the configuration and applies the log level. Tests replace it.
var loadConfig = func() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newManager builds the manager for one-shot commands, without the job queue.
var newManager = func(cfg *config.Config) (*services.Manager, error) {
	return services.NewManagerWithOptions(cfg, services.Options{NoJobs: true})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func closeManager(mgr *services.Manager) {
	if err := mgr.Close(); err != nil {
		logger.Warn("error closing services", "error", err)
	}
}
