package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services/jobs"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and queue generation jobs",
	Long: `Jobs live in the jobs file (JOBS_PATH). A running dashboard watches the
file and runs pending jobs one at a time.`,
}

var jobsAddCmd = &cobra.Command{
	Use:   "add [prompt]",
	Short: "Queue a prompt as a pending job",
	RunE:  runJobsAdd,
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued and finished jobs",
	Args:  cobra.NoArgs,
	RunE:  runJobsList,
}

var (
	jobsAddComplexity  string
	jobsAddSystem      string
	jobsAddTemperature float64
)

func init() {
	jobsAddCmd.Flags().StringVarP(&jobsAddComplexity, "complexity", "c", "medium", "simple|medium|complex|advanced or 1-4")
	jobsAddCmd.Flags().StringVarP(&jobsAddSystem, "system", "s", "", "System prompt")
	jobsAddCmd.Flags().Float64VarP(&jobsAddTemperature, "temperature", "t", models.DefaultTemperature, "Sampling temperature")

	jobsCmd.AddCommand(jobsAddCmd, jobsListCmd)
	rootCmd.AddCommand(jobsCmd)
}

// openJobs opens the jobs file without a worker.
func openJobs() (*jobs.Service, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return jobs.New(cfg.JobsPath, nil)
}

func runJobsAdd(cmd *cobra.Command, args []string) error {
	complexity, err := models.ParseComplexity(jobsAddComplexity)
	if err != nil {
		return err
	}
	prompt, err := readPrompt(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	svc, err := openJobs()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	temp := jobsAddTemperature
	job, err := svc.Add(models.Job{
		Prompt:       prompt,
		SystemPrompt: jobsAddSystem,
		Temperature:  &temp,
		Complexity:   complexity,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), job.ID)
	return nil
}

func runJobsList(cmd *cobra.Command, _ []string) error {
	svc, err := openJobs()
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	list := svc.Jobs()
	out := cmd.OutOrStdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "no jobs")
		return nil
	}

	t := newTable("ID", "Status", "Complexity", "Backend", "Prompt")
	for _, j := range list {
		backend := string(j.Backend)
		if j.Degraded {
			backend += " (degraded)"
		}
		t.Row(j.ID, string(j.Status), j.Complexity.String(), backend, firstLine(j.Prompt, 40))
	}
	fmt.Fprintln(out, t.Render())

	s := svc.Summary()
	fmt.Fprintf(out, "%d pending, %d running, %d done, %d failed\n", s.Pending, s.Running, s.Done, s.Failed)
	return nil
}

func firstLine(s string, width int) string {
	s, _, _ = strings.Cut(s, "\n")
	if r := []rune(s); len(r) > width {
		return string(r[:width-1]) + "…"
	}
	return s
}
