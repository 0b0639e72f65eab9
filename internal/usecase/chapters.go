package usecase

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bidlens/backend/internal/domain"
)

const maxChapterTitleLen = 120

// computeChapters rolls the unified items up by chapter, sorted by chapter
// code. Only providers that have items in a chapter take part in
// that chapter's best-bidder and spread computation; a single-provider
// chapter reports that provider with spread 0.
func computeChapters(a *alignment, titles map[string]string) []domain.ChapterSummary {
	var (
		order     []string
		subtotals = map[string]map[string]float64{}
	)

	for _, row := range a.Rows {
		chapter := row.Meta.Chapter
		if _, seen := subtotals[chapter]; !seen {
			order = append(order, chapter)
			subtotals[chapter] = map[string]float64{}
		}
		for provider, cell := range row.Cells {
			if cell == nil || cell.SumAmount == nil {
				continue
			}
			subtotals[chapter][provider] += *cell.SumAmount
		}
	}

	sort.Strings(order)

	summaries := make([]domain.ChapterSummary, 0, len(order))
	for _, chapter := range order {
		cs := domain.ChapterSummary{
			Chapter:   chapter,
			Title:     titles[chapter],
			Subtotals: subtotals[chapter],
		}

		var (
			lowest, highest float64
			count           int
		)
		for _, provider := range a.Providers {
			total, ok := cs.Subtotals[provider]
			if !ok {
				continue
			}
			count++
			if count == 1 || total < lowest {
				lowest = total
				cs.BestBidder = provider
			}
			if count == 1 || total > highest {
				highest = total
			}
		}

		cs.LowestTotal = lowest
		if count > 1 && lowest != 0 {
			cs.SpreadPct = (highest - lowest) / lowest * 100
		}
		summaries = append(summaries, cs)
	}

	return summaries
}

// collectChapterTitles gathers a display title per chapter code, preferring
// the explicit chapter names from the position-number plan and falling back
// to the first usable item description in the chapter. First provider (in
// submission order) to name a chapter wins.
func collectChapterTitles(providers []string, items map[string][]domain.LineItem) map[string]string {
	titles := map[string]string{}

	for _, provider := range providers {
		for _, item := range items[provider] {
			code := strings.TrimSpace(item.Chapter)
			if code == "" {
				continue
			}
			if _, seen := titles[code]; seen {
				continue
			}

			if name := normalizeChapterTitle(item.ChapterName); name != "" {
				titles[code] = name
				continue
			}

			for _, candidate := range []string{item.Description, firstSpecLine(item.Specification)} {
				candidate = strings.TrimSpace(candidate)
				if candidate == "" || strings.EqualFold(candidate, "sum") {
					continue
				}
				if normalized := normalizeChapterTitle(candidate); normalized != "" {
					titles[code] = normalized
					break
				}
			}
		}
	}

	return titles
}

// normalizeChapterTitle collapses whitespace, strips trailing punctuation,
// re-cases shouting source text, and truncates over-long titles.
func normalizeChapterTitle(title string) string {
	collapsed := strings.Join(strings.Fields(title), " ")
	collapsed = strings.TrimRight(collapsed, " .;-")
	if collapsed == "" {
		return ""
	}

	if upperRatio(collapsed) >= 0.6 {
		collapsed = cases.Title(language.Norwegian).String(strings.ToLower(collapsed))
	}

	// Truncate on rune boundaries; Norwegian titles carry multi-byte runes.
	if runes := []rune(collapsed); len(runes) > maxChapterTitleLen {
		collapsed = string(runes[:maxChapterTitleLen-3]) + "..."
	}
	return collapsed
}

// upperRatio is the share of letters in s that are upper case.
func upperRatio(s string) float64 {
	var letters, upper int
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if letters == 0 {
		return 0
	}
	return float64(upper) / float64(letters)
}

func firstSpecLine(spec string) string {
	if idx := strings.Index(spec, "\n"); idx >= 0 {
		return spec[:idx]
	}
	return spec
}
