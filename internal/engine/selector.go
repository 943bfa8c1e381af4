package engine

import (
	"fmt"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// ErrInvalidComplexity is returned when a complexity value is out of range.
var ErrInvalidComplexity = models.ErrInvalidComplexity

// Availability records which backends are configured and reachable.
type Availability map[models.Backend]bool

// Clone returns an independent copy of a.
func (a Availability) Clone() Availability {
	out := make(Availability, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// CloudAvailable returns the available cloud backends in priority order.
func (a Availability) CloudAvailable() []models.Backend {
	var out []models.Backend
	for _, b := range models.CloudPriority {
		if a[b] {
			out = append(out, b)
		}
	}
	return out
}

// SelectorOptions are the global routing flags.
type SelectorOptions struct {
	PreferLocal        bool
	FallbackEnabled    bool
	UseCloudForComplex bool
}

// DefaultSelectorOptions matches the configuration defaults.
func DefaultSelectorOptions() SelectorOptions {
	return SelectorOptions{
		PreferLocal:        true,
		FallbackEnabled:    true,
		UseCloudForComplex: true,
	}
}

// Selection is the ordered candidate list for one request.
type Selection struct {
	Candidates []models.Backend
	// Degraded is set when an advanced request has to run on the local server.
	Degraded bool
}

// Selector turns a complexity level into an ordered candidate list.
type Selector struct {
	opts SelectorOptions
}

// NewSelector creates a selector with the given routing flags.
func NewSelector(opts SelectorOptions) *Selector {
	return &Selector{opts: opts}
}

// Options returns the routing flags in use.
func (s *Selector) Options() SelectorOptions {
	return s.opts
}

// SelectInt coerces a raw integer before selecting.
func (s *Selector) SelectInt(raw int, avail Availability) (Selection, error) {
	c, err := models.ComplexityFromInt(raw)
	if err != nil {
		return Selection{}, err
	}
	return s.Select(c, avail)
}

// Select returns the candidates for c. The result depends only on c, the
// availability snapshot and the selector options.
func (s *Selector) Select(c models.Complexity, avail Availability) (Selection, error) {
	cloud := avail.CloudAvailable()
	localUp := avail[models.BackendLocal]

	switch c {
	case models.ComplexitySimple:
		return Selection{Candidates: []models.Backend{models.BackendLocal}}, nil

	case models.ComplexityMedium:
		return Selection{Candidates: s.mixed(localUp, cloud, s.opts.PreferLocal)}, nil

	case models.ComplexityComplex:
		if !s.opts.UseCloudForComplex {
			return Selection{Candidates: s.mixed(localUp, cloud, s.opts.PreferLocal)}, nil
		}
		return Selection{Candidates: s.mixed(localUp, cloud, false)}, nil

	case models.ComplexityAdvanced:
		if len(cloud) > 0 {
			return Selection{Candidates: []models.Backend{cloud[0]}}, nil
		}
		return Selection{Candidates: []models.Backend{models.BackendLocal}, Degraded: true}, nil
	}

	return Selection{}, fmt.Errorf("%w: %d", ErrInvalidComplexity, int(c))
}

// mixed puts the preferred side first and appends the other side only when
// fallback is enabled.
func (s *Selector) mixed(localUp bool, cloud []models.Backend, localFirst bool) []models.Backend {
	var local []models.Backend
	if localUp {
		local = []models.Backend{models.BackendLocal}
	}

	primary, secondary := cloud, local
	if localFirst {
		primary, secondary = local, cloud
	}

	out := make([]models.Backend, 0, len(local)+len(cloud))
	out = append(out, primary...)
	if s.opts.FallbackEnabled {
		out = append(out, secondary...)
	}
	return out
}
