package domain

import "strings"

// FieldSource records whether a field value came from the source document
// or was derived during normalization. Derived values are auditable: the
// raw input is never overwritten silently.
type FieldSource string

const (
	SourceGiven    FieldSource = "given"
	SourceComputed FieldSource = "computed"
)

// LineItem is one priced position in a bid, normalized into the canonical
// schema shared by all input formats. UnitPrice and SumAmount are pointers
// because "not priced" is distinct from zero and must stay distinct through
// alignment and statistics.
type LineItem struct {
	Identifier    string   `json:"identifier"`
	Code          string   `json:"code,omitempty"`
	Description   string   `json:"description"`
	Specification string   `json:"specification,omitempty"`
	Unit          string   `json:"unit"`
	Quantity      float64  `json:"quantity"`
	UnitPrice     *float64 `json:"unitPrice"`
	SumAmount     *float64 `json:"sumAmount"`
	Chapter       string   `json:"chapter"`
	ChapterName   string   `json:"chapterName,omitempty"`
	IsOption      bool     `json:"isOption"`

	UnitPriceSource FieldSource `json:"unitPriceSource,omitempty"`
	SumSource       FieldSource `json:"sumSource,omitempty"`
	ChapterSource   FieldSource `json:"chapterSource,omitempty"`
}

// ProviderBid is one provider's normalized bid: the provider name, the
// ordered line items as they appeared in the document, and any non-fatal
// warnings raised while reading it.
type ProviderBid struct {
	Provider string     `json:"provider"`
	Items    []LineItem `json:"items"`
	Warnings []string   `json:"warnings,omitempty"`
}

// BidFile is a named byte buffer submitted for comparison.
type BidFile struct {
	Name string
	Data []byte
}

// ChapterOf derives the chapter id from an identifier: the leading
// dot-delimited segment, or the whole identifier when there is no delimiter.
func ChapterOf(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if idx := strings.Index(identifier, "."); idx > 0 {
		return identifier[:idx]
	}
	return identifier
}

// Float64Ptr returns a pointer to v. Convenience for building literals.
func Float64Ptr(v float64) *float64 {
	return &v
}
