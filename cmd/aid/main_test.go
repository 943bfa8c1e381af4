package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

type stubClient struct {
	backend models.Backend
	output  string
	prompts *[]models.Request
}

func (c stubClient) Backend() models.Backend { return c.backend }
func (c stubClient) Model() string           { return "stub-" + string(c.backend) }

func (c stubClient) Call(_ context.Context, req models.Request) models.Result {
	if c.prompts != nil {
		*c.prompts = append(*c.prompts, req)
	}
	if c.output == "" {
		return models.NewFailure(c.backend, c.Model(), models.KindTransport, "connection refused", time.Millisecond)
	}
	return models.NewSuccess(c.backend, c.Model(), c.output, 3, time.Millisecond)
}

// useStubs points the commands at a temp directory and the given clients.
func useStubs(t *testing.T, clients ...engine.BackendClient) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:    filepath.Join(dir, "calls.db"),
		JobsPath:        filepath.Join(dir, "jobs.json"),
		MaxRetries:      2,
		PreferLocal:     true,
		FallbackEnabled: true,
	}

	origLoad, origNew := loadConfig, newManager
	t.Cleanup(func() { loadConfig, newManager = origLoad, origNew })

	loadConfig = func() (*config.Config, error) { return cfg, nil }
	newManager = func(cfg *config.Config) (*services.Manager, error) {
		return services.NewManagerWithOptions(cfg, services.Options{
			Clients: append([]engine.BackendClient{}, clients...),
			Sleep:   func(context.Context, time.Duration) error { return nil },
			Notify:  func(string, string) error { return nil },
			NoJobs:  true,
		})
	}
	return cfg
}

func newTestCmd(stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func setGenerateFlags(t *testing.T, complexity string, asJSON bool) {
	t.Helper()
	orig := []any{generateComplexity, generateSystem, generateTemperature, generateJSON}
	t.Cleanup(func() {
		generateComplexity = orig[0].(string)
		generateSystem = orig[1].(string)
		generateTemperature = orig[2].(float64)
		generateJSON = orig[3].(bool)
	})
	generateComplexity, generateSystem, generateTemperature, generateJSON = complexity, "be brief", 0.2, asJSON
}

func TestGenerate_Success(t *testing.T) {
	var reqs []models.Request
	useStubs(t, stubClient{backend: models.BackendLocal, output: "hello back", prompts: &reqs})
	setGenerateFlags(t, "simple", false)

	cmd, out, _ := newTestCmd("")
	require.NoError(t, runGenerate(cmd, []string{"say", "hello"}))

	assert.Equal(t, "hello back\n", out.String())
	require.Len(t, reqs, 1)
	assert.Equal(t, "say hello", reqs[0].Prompt)
	assert.Equal(t, "be brief", reqs[0].SystemPrompt)
	assert.Equal(t, models.ComplexitySimple, reqs[0].Complexity)
}

func TestGenerate_StdinPrompt(t *testing.T) {
	var reqs []models.Request
	useStubs(t, stubClient{backend: models.BackendLocal, output: "ok", prompts: &reqs})
	setGenerateFlags(t, "1", false)

	cmd, _, _ := newTestCmd("  from stdin\n")
	require.NoError(t, runGenerate(cmd, []string{"-"}))
	require.Len(t, reqs, 1)
	assert.Equal(t, "from stdin", reqs[0].Prompt)
}

func TestGenerate_Exhausted(t *testing.T) {
	useStubs(t, stubClient{backend: models.BackendLocal})
	setGenerateFlags(t, "simple", false)

	cmd, out, _ := newTestCmd("")
	err := runGenerate(cmd, []string{"hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted")
	assert.Empty(t, out.String())
}

func TestGenerate_DegradedJSON(t *testing.T) {
	useStubs(t, stubClient{backend: models.BackendLocal, output: "local answer"})
	setGenerateFlags(t, "advanced", true)

	cmd, out, errOut := newTestCmd("")
	require.NoError(t, runGenerate(cmd, []string{"prove it"}))

	assert.Contains(t, out.String(), `"backend": "local"`)
	assert.Contains(t, out.String(), `"degraded": true`)
	assert.Contains(t, errOut.String(), "warning")
}

func TestGenerate_BadInput(t *testing.T) {
	useStubs(t)

	setGenerateFlags(t, "extreme", false)
	cmd, _, _ := newTestCmd("")
	err := runGenerate(cmd, []string{"hi"})
	assert.ErrorIs(t, err, models.ErrInvalidComplexity)

	setGenerateFlags(t, "medium", false)
	cmd, _, _ = newTestCmd("   ")
	assert.EqualError(t, runGenerate(cmd, nil), "prompt is empty")
}

func TestStats(t *testing.T) {
	useStubs(t, stubClient{backend: models.BackendLocal, output: "ok"})
	setGenerateFlags(t, "simple", false)

	cmd, _, _ := newTestCmd("")
	require.NoError(t, runGenerate(cmd, []string{"one"}))

	orig := statsRecent
	statsRecent = 5
	defer func() { statsRecent = orig }()

	cmd, out, _ := newTestCmd("")
	require.NoError(t, runStats(cmd, nil))
	assert.Contains(t, out.String(), "1 attempts for 1 requests")
	assert.Contains(t, out.String(), "Local (Ollama)")
	assert.Contains(t, out.String(), "100.0%")
	assert.Contains(t, out.String(), "simple")
}

func TestStats_Empty(t *testing.T) {
	useStubs(t)
	cmd, out, _ := newTestCmd("")
	require.NoError(t, runStats(cmd, nil))
	assert.Equal(t, "0 attempts for 0 requests, 0 errors, 0 tokens, avg 0ms\n", out.String())
}

func TestJobs_AddAndList(t *testing.T) {
	useStubs(t)

	orig := jobsAddComplexity
	jobsAddComplexity = "complex"
	defer func() { jobsAddComplexity = orig }()

	cmd, out, _ := newTestCmd("")
	require.NoError(t, runJobsAdd(cmd, []string{"write", "a", "haiku"}))
	id := strings.TrimSpace(out.String())
	require.NotEmpty(t, id)

	cmd, out, _ = newTestCmd("")
	require.NoError(t, runJobsList(cmd, nil))
	assert.Contains(t, out.String(), id)
	assert.Contains(t, out.String(), "write a haiku")
	assert.Contains(t, out.String(), "1 pending, 0 running, 0 done, 0 failed")
}

func TestJobs_ListEmpty(t *testing.T) {
	useStubs(t)
	cmd, out, _ := newTestCmd("")
	require.NoError(t, runJobsList(cmd, nil))
	assert.Equal(t, "no jobs\n", out.String())
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "abc", firstLine("abc\ndef", 10))
	assert.Equal(t, "abcd…", firstLine("abcdefgh", 5))
}

func TestCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"generate", "stats", "jobs", "version"} {
		assert.True(t, names[want], "missing %s", want)
	}
}
