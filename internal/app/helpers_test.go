package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

type stubClient struct {
	backend models.Backend
	output  string
}

func (c stubClient) Backend() models.Backend { return c.backend }
func (c stubClient) Model() string           { return "stub" }

func (c stubClient) Call(context.Context, models.Request) models.Result {
	if c.output == "" {
		return models.NewFailure(c.backend, "stub", models.KindTransport, "down", time.Millisecond)
	}
	return models.NewSuccess(c.backend, "stub", c.output, 1, time.Millisecond)
}

func newTestManager(t *testing.T, clients ...engine.BackendClient) *services.Manager {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:    filepath.Join(dir, "calls.db"),
		JobsPath:        filepath.Join(dir, "jobs.json"),
		MaxRetries:      1,
		PreferLocal:     true,
		FallbackEnabled: true,
	}
	if clients == nil {
		clients = []engine.BackendClient{}
	}
	mgr, err := services.NewManagerWithOptions(cfg, services.Options{
		Clients: clients,
		Sleep:   func(context.Context, time.Duration) error { return nil },
		Notify:  func(string, string) error { return nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}
