package domain

import "time"

// Table is the format-agnostic shape shared by the comparison matrix and the
// chapter rollup: an ordered column list plus ordered rows of cells. A cell
// is a string, a float64, or nil (provider did not bid the item).
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// RowStatistics holds the cross-provider statistics for one unified item,
// computed over the non-nil sum amounts only.
type RowStatistics struct {
	Identifier string             `json:"identifier"`
	Mean       float64            `json:"mean"`
	StdDev     float64            `json:"stdDev"` // population std dev (divide by n)
	SpreadPct  float64            `json:"spreadPct"`
	Winner     string             `json:"winner"`
	LowestSum  float64            `json:"lowestSum"`
	ZScores    map[string]float64 `json:"zScores,omitempty"`
}

// ChapterSummary is the rollup for one chapter: per-provider subtotals over
// the providers that have items in the chapter, the best (lowest) bidder,
// and the spread between highest and lowest subtotal.
type ChapterSummary struct {
	Chapter     string             `json:"chapter"`
	Title       string             `json:"title,omitempty"`
	BestBidder  string             `json:"bestBidder"`
	LowestTotal float64            `json:"lowestTotal"`
	SpreadPct   float64            `json:"spreadPct"`
	Subtotals   map[string]float64 `json:"subtotals"`
}

// Winner identifies the provider with the lowest non-option total.
type Winner struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
}

// Summary carries the run-level aggregates.
type Summary struct {
	Totals        map[string]float64 `json:"totals"`
	OptionTotals  map[string]float64 `json:"optionTotals"`
	Winner        Winner             `json:"winner"`
	ItemCount     int                `json:"itemCount"`
	ZScoreTotals  map[string]float64 `json:"zScoreTotals,omitempty"`
	BestZProvider string             `json:"bestZProvider,omitempty"`
	ZScoreNote    string             `json:"zScoreNote,omitempty"`
}

// RunResult is the complete output of one comparison run. All fields are
// produced once and never mutated afterwards; exports are read-only
// projections of this struct.
type RunResult struct {
	Providers  []string              `json:"providers"` // submission order
	Normalized map[string][]LineItem `json:"normalized"`
	Matrix     Table                 `json:"matrix"`
	Chapters   Table                 `json:"chapters"`
	Summary    Summary               `json:"summary"`
	Warnings   []string              `json:"warnings"`

	// ZScoresEnabled is the run-level flag: z-score columns exist in the
	// matrix if and only if the run saw at least MinProvidersForZScores
	// distinct providers. Evaluated once at run start, never per row.
	ZScoresEnabled bool      `json:"zScoresEnabled"`
	GeneratedAt    time.Time `json:"generatedAt"`
}

// MinProvidersForZScores is the minimum distinct provider count for z-score
// output to be meaningful enough to surface.
const MinProvidersForZScores = 3
