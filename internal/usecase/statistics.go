package usecase

import (
	"math"
	"sort"

	"github.com/bidlens/backend/internal/domain"
)

// computeRowStatistics computes per-item statistics over the non-nil sum
// amounts. The submitted bids are the complete population for an item, so
// the standard deviation divides by n, not n-1. Items priced by fewer than
// two providers get a standard deviation of 0, and a zero deviation yields
// z-scores of 0 rather than a division failure.
func computeRowStatistics(a *alignment, zEnabled bool) []domain.RowStatistics {
	stats := make([]domain.RowStatistics, 0, len(a.Rows))

	for _, row := range a.Rows {
		rs := domain.RowStatistics{Identifier: row.Identifier}

		var (
			values    []float64
			bidders   []string
			lowest    float64
			lowestSet bool
		)
		for _, provider := range a.Providers {
			cell := row.Cells[provider]
			if cell == nil || cell.SumAmount == nil {
				continue
			}
			value := *cell.SumAmount
			values = append(values, value)
			bidders = append(bidders, provider)
			if !lowestSet || value < lowest {
				lowest = value
				lowestSet = true
				rs.Winner = provider
			}
		}

		if len(values) == 0 {
			stats = append(stats, rs)
			continue
		}

		rs.LowestSum = lowest
		rs.Mean = mean(values)
		if len(values) >= 2 {
			rs.StdDev = populationStdDev(values, rs.Mean)
		}
		if rs.Mean != 0 {
			rs.SpreadPct = rs.StdDev / rs.Mean * 100
		}

		if zEnabled {
			rs.ZScores = map[string]float64{}
			for i, provider := range bidders {
				if rs.StdDev > 0 {
					rs.ZScores[provider] = (values[i] - rs.Mean) / rs.StdDev
				} else {
					rs.ZScores[provider] = 0
				}
			}
		}

		stats = append(stats, rs)
	}

	return stats
}

func mean(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

func populationStdDev(values []float64, mean float64) float64 {
	var sumSquares float64
	for _, v := range values {
		d := v - mean
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(values)))
}

// providerTotals sums the non-option sum amounts per provider. Items a
// provider did not price contribute nothing.
func providerTotals(providers []string, items map[string][]domain.LineItem) map[string]float64 {
	totals := make(map[string]float64, len(providers))
	for _, provider := range providers {
		var total float64
		for _, item := range items[provider] {
			if item.SumAmount != nil {
				total += *item.SumAmount
			}
		}
		totals[provider] = total
	}
	return totals
}

// zScoreTotals aggregates each provider's z-scores over every row it
// participated in.
func zScoreTotals(providers []string, stats []domain.RowStatistics) map[string]float64 {
	totals := make(map[string]float64, len(providers))
	for _, provider := range providers {
		totals[provider] = 0
	}
	for _, rs := range stats {
		for provider, z := range rs.ZScores {
			totals[provider] += z
		}
	}
	return totals
}

// bestZProvider picks the provider minimizing the aggregate z-score. Ties
// break on the lower provider total, then on provider name.
func bestZProvider(zTotals, totals map[string]float64) string {
	names := make([]string, 0, len(zTotals))
	for name := range zTotals {
		names = append(names, name)
	}
	sort.Strings(names)

	best := ""
	for _, name := range names {
		if best == "" {
			best = name
			continue
		}
		switch {
		case zTotals[name] < zTotals[best]:
			best = name
		case zTotals[name] == zTotals[best] && totals[name] < totals[best]:
			best = name
		}
	}
	return best
}

// overallWinner picks the provider with the lowest non-option total, ties
// broken by provider name ordering.
func overallWinner(totals map[string]float64) domain.Winner {
	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	var winner domain.Winner
	for _, name := range names {
		if winner.Name == "" || totals[name] < winner.Total {
			winner = domain.Winner{Name: name, Total: totals[name]}
		}
	}
	return winner
}
