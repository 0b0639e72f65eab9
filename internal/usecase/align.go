package usecase

import (
	"fmt"
	"sort"

	"github.com/bidlens/backend/internal/domain"
)

// alignedRow is one unified item: the merged descriptive fields plus a cell
// per provider. A nil cell means the provider did not bid the item; it is
// excluded from every aggregate, never substituted with zero.
type alignedRow struct {
	Identifier string
	Meta       domain.LineItem
	Cells      map[string]*domain.LineItem
}

// alignment is the unified item set across all providers, sorted by
// identifier. This ordering is the canonical row order for every downstream
// table.
type alignment struct {
	Providers []string
	Rows      []alignedRow
}

// alignBids merges the providers' normalized base items into the unified
// item set. Providers are visited in submission order so the first bid to
// mention an item supplies its descriptive fields, but the final rows are
// sorted by identifier. Resubmitting the same file set in another order
// yields the same row order.
func alignBids(providers []string, items map[string][]domain.LineItem) *alignment {
	a := &alignment{Providers: providers}
	index := map[string]int{}

	for _, provider := range providers {
		for i := range items[provider] {
			item := &items[provider][i]
			pos, seen := index[item.Identifier]
			if !seen {
				pos = len(a.Rows)
				index[item.Identifier] = pos
				a.Rows = append(a.Rows, alignedRow{
					Identifier: item.Identifier,
					Meta:       *item,
					Cells:      map[string]*domain.LineItem{},
				})
			}
			row := &a.Rows[pos]
			mergeMeta(&row.Meta, item)
			if _, dup := row.Cells[provider]; !dup {
				row.Cells[provider] = item
			}
		}
	}

	sort.Slice(a.Rows, func(i, j int) bool {
		return a.Rows[i].Identifier < a.Rows[j].Identifier
	})
	return a
}

// mergeMeta fills descriptive gaps in the row metadata from another
// provider's view of the same item. First non-empty value wins.
func mergeMeta(meta *domain.LineItem, item *domain.LineItem) {
	if meta.Code == "" {
		meta.Code = item.Code
	}
	if meta.Description == "" {
		meta.Description = item.Description
	}
	if meta.Specification == "" {
		meta.Specification = item.Specification
	}
	if meta.Unit == "" {
		meta.Unit = item.Unit
	}
	if meta.Chapter == "" {
		meta.Chapter = item.Chapter
		meta.ChapterSource = item.ChapterSource
	}
	if meta.ChapterName == "" {
		meta.ChapterName = item.ChapterName
	}
	if meta.Quantity == 0 {
		meta.Quantity = item.Quantity
	}
}

// mergeDuplicates resolves duplicate identifiers within a single provider's
// bid. Policy: quantities and sums are added, the unit price becomes the
// quantity-weighted mean (plain mean when no quantities are present), and
// descriptive fields keep the first occurrence. Each merge is reported as
// a warning; duplicates never abort the run.
func mergeDuplicates(provider string, items []domain.LineItem) ([]domain.LineItem, []string) {
	var (
		merged   []domain.LineItem
		warnings []string
		index    = map[string]int{}
	)

	for _, item := range items {
		pos, seen := index[item.Identifier]
		if !seen {
			index[item.Identifier] = len(merged)
			merged = append(merged, item)
			continue
		}

		first := &merged[pos]
		warnings = append(warnings, fmt.Sprintf(
			"%s: duplicate item %s merged (quantities and sums added)", provider, item.Identifier))

		first.UnitPrice = mergedUnitPrice(first, &item)
		first.SumAmount = addOptional(first.SumAmount, item.SumAmount)
		first.Quantity += item.Quantity
		if first.UnitPrice != nil && first.UnitPriceSource != domain.SourceComputed {
			first.UnitPriceSource = domain.SourceComputed
		}
		if first.SumAmount != nil {
			first.SumSource = domain.SourceComputed
		}
	}

	return merged, warnings
}

// mergedUnitPrice combines two duplicate entries' unit prices, weighting by
// quantity when both sides carry one.
func mergedUnitPrice(a, b *domain.LineItem) *float64 {
	switch {
	case a.UnitPrice == nil:
		return b.UnitPrice
	case b.UnitPrice == nil:
		return a.UnitPrice
	}

	totalQty := a.Quantity + b.Quantity
	var price float64
	if totalQty > 0 {
		price = (*a.UnitPrice*a.Quantity + *b.UnitPrice*b.Quantity) / totalQty
	} else {
		price = (*a.UnitPrice + *b.UnitPrice) / 2
	}
	return &price
}

// addOptional adds two nullable amounts; nil + nil stays nil.
func addOptional(a, b *float64) *float64 {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	sum := *a + *b
	return &sum
}
