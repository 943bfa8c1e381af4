package services

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/backends"
	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// probeTimeout bounds the local server reachability check.
const probeTimeout = 2 * time.Second

// prober is implemented by clients that can check reachability.
type prober interface {
	Probe(ctx context.Context) error
}

// buildClients creates a client for every configured backend. Backends that
// are not configured are left out and marked unavailable.
func buildClients(ctx context.Context, cfg *config.Config) ([]engine.BackendClient, []io.Closer) {
	var clients []engine.BackendClient
	var closers []io.Closer

	for _, b := range models.AllBackends() {
		if !cfg.Configured(b) {
			logger.Debug("Backend not configured", "backend", b)
			continue
		}

		var (
			client engine.BackendClient
			err    error
		)
		switch b {
		case models.BackendLocal:
			client, err = backends.NewOllama(cfg.Local, nil)
		case models.BackendQwen:
			client, err = backends.NewQwen(cfg.Qwen, nil)
		case models.BackendErnie:
			client, err = backends.NewErnie(cfg.Ernie, nil)
		case models.BackendGemini:
			var g *backends.Gemini
			g, err = backends.NewGemini(ctx, cfg.Gemini)
			if err == nil {
				client = g
				closers = append(closers, g)
			}
		}
		if err != nil {
			if !errors.Is(err, backends.ErrNotConfigured) {
				logger.Warn("Failed to create backend client", "backend", b, "error", err)
			}
			continue
		}

		clients = append(clients, client)
	}

	return clients, closers
}

// probeAvailability builds the availability snapshot. Cloud backends are
// available when a client exists; the local server must also answer a probe
// when probing is enabled.
func probeAvailability(ctx context.Context, clients []engine.BackendClient, probeLocal bool) engine.Availability {
	avail := make(engine.Availability, len(models.AllBackends()))
	for _, b := range models.AllBackends() {
		avail[b] = false
	}

	for _, c := range clients {
		b := c.Backend()
		avail[b] = true

		p, ok := c.(prober)
		if b != models.BackendLocal || !probeLocal || !ok {
			continue
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
		if err := p.Probe(probeCtx); err != nil {
			logger.Warn("Local server unreachable", "error", err)
			avail[b] = false
		}
		cancel()
	}

	return avail
}
