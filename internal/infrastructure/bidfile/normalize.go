package bidfile

import "github.com/bidlens/backend/internal/domain"

// deriveAmounts fills in whichever of unit price / sum the document left
// out. The given value keeps SourceGiven; the derived one is marked
// SourceComputed. A zero quantity blocks the sum -> unit price direction:
// the unit price stays nil and the sum is kept as given.
func deriveAmounts(item *domain.LineItem) {
	switch {
	case item.UnitPrice != nil && item.SumAmount == nil:
		sum := item.Quantity * *item.UnitPrice
		item.SumAmount = &sum
		item.SumSource = domain.SourceComputed
	case item.UnitPrice == nil && item.SumAmount != nil:
		if item.Quantity != 0 {
			price := *item.SumAmount / item.Quantity
			item.UnitPrice = &price
			item.UnitPriceSource = domain.SourceComputed
		}
	}
}

// deriveChapter fills in the chapter from the identifier's leading dot
// segment when the document did not supply one explicitly.
func deriveChapter(item *domain.LineItem) {
	if item.Chapter != "" {
		return
	}
	item.Chapter = domain.ChapterOf(item.Identifier)
	item.ChapterSource = domain.SourceComputed
}
