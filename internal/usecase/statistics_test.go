package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bidlens/backend/internal/domain"
)

// alignSingle builds an alignment with one row priced by the given providers.
func alignSingle(t *testing.T, sums map[string]float64, order []string) *alignment {
	t.Helper()
	items := map[string][]domain.LineItem{}
	for provider, sum := range sums {
		items[provider] = []domain.LineItem{item("01.1", sum)}
	}
	return alignBids(order, items)
}

func TestComputeRowStatistics(t *testing.T) {
	t.Run("population statistics over three providers", func(t *testing.T) {
		a := alignSingle(t, map[string]float64{
			"alpha": 100, "beta": 200, "gamma": 300,
		}, []string{"alpha", "beta", "gamma"})

		stats := computeRowStatistics(a, true)

		require.Len(t, stats, 1)
		rs := stats[0]
		assert.Equal(t, 200.0, rs.Mean)
		// Population std dev: sqrt(((100)^2 + 0 + (100)^2) / 3).
		assert.InDelta(t, 81.6497, rs.StdDev, 0.001)
		assert.InDelta(t, 40.8248, rs.SpreadPct, 0.001)
		assert.Equal(t, "alpha", rs.Winner)
		assert.Equal(t, 100.0, rs.LowestSum)

		require.Len(t, rs.ZScores, 3)
		assert.InDelta(t, -1.2247, rs.ZScores["alpha"], 0.001)
		assert.InDelta(t, 0, rs.ZScores["beta"], 0.001)
		assert.InDelta(t, 1.2247, rs.ZScores["gamma"], 0.001)
	})

	t.Run("single bidder has zero deviation", func(t *testing.T) {
		a := alignSingle(t, map[string]float64{"alpha": 500}, []string{"alpha", "beta"})

		stats := computeRowStatistics(a, false)

		require.Len(t, stats, 1)
		rs := stats[0]
		assert.Equal(t, 500.0, rs.Mean)
		assert.Equal(t, 0.0, rs.StdDev)
		assert.Equal(t, "alpha", rs.Winner)
		assert.Nil(t, rs.ZScores)
	})

	t.Run("identical values give zero z-scores, not NaN", func(t *testing.T) {
		a := alignSingle(t, map[string]float64{
			"alpha": 100, "beta": 100, "gamma": 100,
		}, []string{"alpha", "beta", "gamma"})

		stats := computeRowStatistics(a, true)

		rs := stats[0]
		assert.Equal(t, 0.0, rs.StdDev)
		for provider, z := range rs.ZScores {
			assert.Zerof(t, z, "z-score for %s", provider)
		}
	})

	t.Run("unpriced cells are excluded from the population", func(t *testing.T) {
		// beta has the item but without any amount.
		unpriced := domain.LineItem{Identifier: "01.1", Chapter: "01"}
		items := map[string][]domain.LineItem{
			"alpha": {item("01.1", 100)},
			"beta":  {unpriced},
			"gamma": {item("01.1", 300)},
		}
		a := alignBids([]string{"alpha", "beta", "gamma"}, items)

		stats := computeRowStatistics(a, true)

		rs := stats[0]
		// Mean over {100, 300}, not {100, 0, 300}.
		assert.Equal(t, 200.0, rs.Mean)
		_, hasBeta := rs.ZScores["beta"]
		assert.False(t, hasBeta, "unpriced provider must not get a z-score")
	})

	t.Run("row nobody priced stays empty", func(t *testing.T) {
		unpriced := domain.LineItem{Identifier: "01.1", Chapter: "01"}
		a := alignBids([]string{"alpha"}, map[string][]domain.LineItem{"alpha": {unpriced}})

		stats := computeRowStatistics(a, false)

		require.Len(t, stats, 1)
		assert.Equal(t, 0.0, stats[0].Mean)
		assert.Empty(t, stats[0].Winner)
	})

	t.Run("tie keeps the first provider in submission order", func(t *testing.T) {
		a := alignSingle(t, map[string]float64{"beta": 100, "alpha": 100}, []string{"beta", "alpha"})

		stats := computeRowStatistics(a, false)

		assert.Equal(t, "beta", stats[0].Winner)
	})
}

func TestProviderTotals(t *testing.T) {
	items := map[string][]domain.LineItem{
		"alpha": {item("01.1", 100), item("01.2", 200)},
		"beta":  {item("01.1", 150), {Identifier: "01.2", Chapter: "01"}},
	}

	totals := providerTotals([]string{"alpha", "beta"}, items)

	assert.Equal(t, 300.0, totals["alpha"])
	// beta's unpriced item contributes nothing, not zero-as-value.
	assert.Equal(t, 150.0, totals["beta"])
}

func TestOverallWinner(t *testing.T) {
	t.Run("lowest total wins", func(t *testing.T) {
		winner := overallWinner(map[string]float64{"alpha": 300, "beta": 150})
		assert.Equal(t, domain.Winner{Name: "beta", Total: 150}, winner)
	})

	t.Run("ties break on provider name", func(t *testing.T) {
		winner := overallWinner(map[string]float64{"delta": 100, "alpha": 100})
		assert.Equal(t, "alpha", winner.Name)
	})
}

func TestZScoreAggregates(t *testing.T) {
	stats := []domain.RowStatistics{
		{ZScores: map[string]float64{"alpha": -1, "beta": 0.5, "gamma": 0.5}},
		{ZScores: map[string]float64{"alpha": -0.5, "beta": 1, "gamma": -0.5}},
	}

	zTotals := zScoreTotals([]string{"alpha", "beta", "gamma"}, stats)

	assert.Equal(t, -1.5, zTotals["alpha"])
	assert.Equal(t, 1.5, zTotals["beta"])
	assert.Equal(t, 0.0, zTotals["gamma"])

	t.Run("best provider minimizes the aggregate", func(t *testing.T) {
		best := bestZProvider(zTotals, map[string]float64{"alpha": 100, "beta": 100, "gamma": 100})
		assert.Equal(t, "alpha", best)
	})

	t.Run("z tie breaks on lower total", func(t *testing.T) {
		best := bestZProvider(
			map[string]float64{"alpha": 1, "beta": 1},
			map[string]float64{"alpha": 200, "beta": 100},
		)
		assert.Equal(t, "beta", best)
	})

	t.Run("full tie breaks on name", func(t *testing.T) {
		best := bestZProvider(
			map[string]float64{"beta": 1, "alpha": 1},
			map[string]float64{"beta": 100, "alpha": 100},
		)
		assert.Equal(t, "alpha", best)
	})
}
