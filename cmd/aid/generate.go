package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Dispatch one prompt and print the output",
	Long: `Dispatch one prompt through the backend chain chosen for its complexity
and print the generated text. The prompt is read from stdin when it is
omitted or given as "-". Exits with status 1 when every backend failed.`,
	RunE: runGenerate,
}

var (
	generateComplexity  string
	generateSystem      string
	generateTemperature float64
	generateJSON        bool
)

func init() {
	generateCmd.Flags().StringVarP(&generateComplexity, "complexity", "c", "medium", "simple|medium|complex|advanced or 1-4")
	generateCmd.Flags().StringVarP(&generateSystem, "system", "s", "", "System prompt")
	generateCmd.Flags().Float64VarP(&generateTemperature, "temperature", "t", models.DefaultTemperature, "Sampling temperature")
	generateCmd.Flags().BoolVar(&generateJSON, "json", false, "Print the full result as JSON")

	rootCmd.AddCommand(generateCmd)
}

// generateOutput is the --json document.
type generateOutput struct {
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
	Backend   string `json:"backend"`
	Model     string `json:"model"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Tokens    int    `json:"tokens,omitempty"`
	Success   bool   `json:"success"`
	Degraded  bool   `json:"degraded,omitempty"`
}

func runGenerate(cmd *cobra.Command, args []string) error {
	complexity, err := models.ParseComplexity(generateComplexity)
	if err != nil {
		return err
	}

	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer closeManager(mgr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := mgr.Generate(ctx, models.Request{
		Prompt:       prompt,
		SystemPrompt: generateSystem,
		Temperature:  generateTemperature,
		Complexity:   complexity,
	})

	out := cmd.OutOrStdout()
	if generateJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(generateOutput{
			Output:    result.Output,
			Error:     result.Error,
			ErrorKind: string(result.Kind),
			Backend:   string(result.Backend),
			Model:     result.Model,
			ElapsedMs: result.Elapsed.Milliseconds(),
			Tokens:    result.Tokens,
			Success:   result.Success,
			Degraded:  result.Degraded,
		}); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	} else if result.Success {
		fmt.Fprintln(out, result.Output)
	}

	if result.Degraded {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: advanced request served by %s (%s)\n",
			result.Backend.DisplayName(), result.Model)
	}
	if !result.Success {
		return fmt.Errorf("generation failed (%s): %s", result.Kind, result.Error)
	}
	return nil
}

// readPrompt joins the arguments, or reads stdin when there are none or the
// only argument is "-".
func readPrompt(stdin io.Reader, args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if len(args) == 0 || (len(args) == 1 && args[0] == "-") {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt is empty")
	}
	return prompt, nil
}
