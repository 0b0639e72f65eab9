package usecase

import (
	"fmt"

	"github.com/bidlens/backend/internal/domain"
)

// Shared descriptive matrix columns, in order.
var matrixBaseColumns = []string{"identifier", "code", "description", "unit", "quantity", "chapter"}

// Row-level statistics columns appended after the provider columns.
var matrixStatColumns = []string{"winner", "lowest sum", "mean", "std dev", "spread %"}

// totalsRowLabel marks the synthetic trailing totals row.
const totalsRowLabel = "SUM"

// buildMatrix assembles the wide comparison table: the shared descriptive
// columns, then per provider (in submission order) a unit-price column, a
// sum column and, when z-scores are enabled for the run, a z-score column,
// then the row statistics, then a synthetic totals row.
func buildMatrix(a *alignment, stats []domain.RowStatistics, totals, zTotals map[string]float64, zEnabled bool) domain.Table {
	columns := append([]string{}, matrixBaseColumns...)
	for _, provider := range a.Providers {
		columns = append(columns,
			fmt.Sprintf("%s (unit price)", provider),
			fmt.Sprintf("%s (sum)", provider))
		if zEnabled {
			columns = append(columns, fmt.Sprintf("%s (z-score)", provider))
		}
	}
	columns = append(columns, matrixStatColumns...)

	rows := make([][]any, 0, len(a.Rows)+1)
	var lowestTotal, stdDevTotal float64
	for i, row := range a.Rows {
		rs := stats[i]
		cells := make([]any, 0, len(columns))
		cells = append(cells,
			row.Identifier,
			row.Meta.Code,
			row.Meta.Description,
			row.Meta.Unit,
			row.Meta.Quantity,
			row.Meta.Chapter,
		)

		for _, provider := range a.Providers {
			cell := row.Cells[provider]
			cells = append(cells, optionalCell(cellUnitPrice(cell)), optionalCell(cellSum(cell)))
			if zEnabled {
				if z, ok := rs.ZScores[provider]; ok {
					cells = append(cells, z)
				} else {
					cells = append(cells, nil)
				}
			}
		}

		cells = append(cells, rs.Winner, rs.LowestSum, rs.Mean, rs.StdDev, rs.SpreadPct)
		lowestTotal += rs.LowestSum
		stdDevTotal += rs.StdDev
		rows = append(rows, cells)
	}

	rows = append(rows, matrixTotalsRow(a.Providers, totals, zTotals, zEnabled, lowestTotal, stdDevTotal))
	return domain.Table{Columns: columns, Rows: rows}
}

// matrixTotalsRow builds the trailing totals row: provider grand totals
// under their sum columns, aggregate z-scores under their z-score columns,
// the summed per-item lows under "lowest sum", the summed per-item std
// deviations under "std dev", blank elsewhere.
func matrixTotalsRow(providers []string, totals, zTotals map[string]float64, zEnabled bool, lowestTotal, stdDevTotal float64) []any {
	cells := []any{totalsRowLabel, nil, nil, nil, nil, nil}
	for _, provider := range providers {
		cells = append(cells, nil, totals[provider])
		if zEnabled {
			cells = append(cells, zTotals[provider])
		}
	}
	// stat columns: winner, lowest sum, mean, std dev, spread %
	cells = append(cells, nil, lowestTotal, nil, stdDevTotal, nil)
	return cells
}

// buildChapterTable renders the chapter rollup: chapter, title, best bidder,
// lowest subtotal and spread, then one subtotal column per provider, plus a
// totals row. A provider without items in a chapter has a nil cell.
func buildChapterTable(providers []string, chapters []domain.ChapterSummary, totals map[string]float64) domain.Table {
	columns := []string{"chapter", "chapter name", "best bidder", "lowest sum", "spread %"}
	columns = append(columns, providers...)

	rows := make([][]any, 0, len(chapters)+1)
	var lowestTotal float64
	for _, cs := range chapters {
		cells := []any{cs.Chapter, cs.Title, cs.BestBidder, cs.LowestTotal, cs.SpreadPct}
		for _, provider := range providers {
			if subtotal, ok := cs.Subtotals[provider]; ok {
				cells = append(cells, subtotal)
			} else {
				cells = append(cells, nil)
			}
		}
		lowestTotal += cs.LowestTotal
		rows = append(rows, cells)
	}

	totalsRow := []any{totalsRowLabel, nil, nil, lowestTotal, nil}
	for _, provider := range providers {
		totalsRow = append(totalsRow, totals[provider])
	}
	rows = append(rows, totalsRow)

	return domain.Table{Columns: columns, Rows: rows}
}

func cellUnitPrice(item *domain.LineItem) *float64 {
	if item == nil {
		return nil
	}
	return item.UnitPrice
}

func cellSum(item *domain.LineItem) *float64 {
	if item == nil {
		return nil
	}
	return item.SumAmount
}

// optionalCell converts a nullable amount into a table cell. Typed nil
// pointers must not leak into the any-typed cell, or "missing" would no
// longer compare equal to nil.
func optionalCell(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
