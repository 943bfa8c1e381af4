package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

func allAvailable() Availability {
	return Availability{
		models.BackendLocal:  true,
		models.BackendQwen:   true,
		models.BackendErnie:  true,
		models.BackendGemini: true,
	}
}

func TestSelectorSelect(t *testing.T) {
	local := models.BackendLocal
	qwen := models.BackendQwen
	ernie := models.BackendErnie
	gemini := models.BackendGemini

	tests := []struct {
		name         string
		opts         SelectorOptions
		avail        Availability
		complexity   models.Complexity
		want         []models.Backend
		wantDegraded bool
	}{
		{
			name:       "simple is local only",
			opts:       DefaultSelectorOptions(),
			avail:      allAvailable(),
			complexity: models.ComplexitySimple,
			want:       []models.Backend{local},
		},
		{
			name:       "medium local then cloud",
			opts:       DefaultSelectorOptions(),
			avail:      allAvailable(),
			complexity: models.ComplexityMedium,
			want:       []models.Backend{local, qwen, ernie, gemini},
		},
		{
			name:       "medium without fallback",
			opts:       SelectorOptions{PreferLocal: true, UseCloudForComplex: true},
			avail:      allAvailable(),
			complexity: models.ComplexityMedium,
			want:       []models.Backend{local},
		},
		{
			name:       "medium preferring cloud",
			opts:       SelectorOptions{FallbackEnabled: true, UseCloudForComplex: true},
			avail:      allAvailable(),
			complexity: models.ComplexityMedium,
			want:       []models.Backend{qwen, ernie, gemini, local},
		},
		{
			name:       "medium skips unconfigured cloud",
			opts:       DefaultSelectorOptions(),
			avail:      Availability{local: true, gemini: true},
			complexity: models.ComplexityMedium,
			want:       []models.Backend{local, gemini},
		},
		{
			name:       "complex cloud first local last",
			opts:       DefaultSelectorOptions(),
			avail:      allAvailable(),
			complexity: models.ComplexityComplex,
			want:       []models.Backend{qwen, ernie, gemini, local},
		},
		{
			name:       "complex without fallback",
			opts:       SelectorOptions{PreferLocal: true, UseCloudForComplex: true},
			avail:      Availability{local: true, ernie: true},
			complexity: models.ComplexityComplex,
			want:       []models.Backend{ernie},
		},
		{
			name:       "complex routed like medium when cloud disabled",
			opts:       SelectorOptions{PreferLocal: true, FallbackEnabled: true},
			avail:      allAvailable(),
			complexity: models.ComplexityComplex,
			want:       []models.Backend{local, qwen, ernie, gemini},
		},
		{
			name:       "advanced picks best cloud",
			opts:       DefaultSelectorOptions(),
			avail:      Availability{local: true, ernie: true, gemini: true},
			complexity: models.ComplexityAdvanced,
			want:       []models.Backend{ernie},
		},
		{
			name:         "advanced degrades to local",
			opts:         DefaultSelectorOptions(),
			avail:        Availability{local: true},
			complexity:   models.ComplexityAdvanced,
			want:         []models.Backend{local},
			wantDegraded: true,
		},
		{
			name:       "medium with nothing available",
			opts:       DefaultSelectorOptions(),
			avail:      Availability{},
			complexity: models.ComplexityMedium,
			want:       []models.Backend{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := NewSelector(tt.opts).Select(tt.complexity, tt.avail)
			require.NoError(t, err)
			if len(tt.want) == 0 {
				assert.Empty(t, sel.Candidates)
			} else {
				assert.Equal(t, tt.want, sel.Candidates)
			}
			assert.Equal(t, tt.wantDegraded, sel.Degraded)
		})
	}
}

func TestSelectorDeterministic(t *testing.T) {
	s := NewSelector(DefaultSelectorOptions())
	avail := Availability{models.BackendLocal: true, models.BackendGemini: true, models.BackendQwen: true}

	for c := models.ComplexitySimple; c <= models.ComplexityAdvanced; c++ {
		first, err := s.Select(c, avail)
		require.NoError(t, err)
		for i := 0; i < 20; i++ {
			again, err := s.Select(c, avail.Clone())
			require.NoError(t, err)
			assert.Equal(t, first, again, "complexity %s", c)
		}
	}
}

func TestSelectorInvalidComplexity(t *testing.T) {
	s := NewSelector(DefaultSelectorOptions())

	_, err := s.Select(models.Complexity(0), allAvailable())
	assert.ErrorIs(t, err, ErrInvalidComplexity)

	_, err = s.SelectInt(9, allAvailable())
	assert.ErrorIs(t, err, ErrInvalidComplexity)

	sel, err := s.SelectInt(1, allAvailable())
	require.NoError(t, err)
	assert.Equal(t, []models.Backend{models.BackendLocal}, sel.Candidates)
}
