package bidfile

import (
	"fmt"
	"strconv"
	"strings"
)

// truthyTokens are the boolean-like values that mark a line item as an
// option. Matched case-insensitively.
var truthyTokens = map[string]bool{
	"true": true,
	"1":    true,
	"ja":   true,
	"yes":  true,
}

// isTruthy reports whether s is in the explicit truthy token set.
func isTruthy(s string) bool {
	return truthyTokens[strings.ToLower(strings.TrimSpace(s))]
}

// parseNumber parses a numeric cell tolerating both comma and dot decimal
// separators and space/NBSP thousands separators, e.g. "1 234,56",
// "1,234.56", "1234.56". Returns an error for non-numeric text.
func parseNumber(s string) (float64, error) {
	cleaned := strings.TrimSpace(s)
	if cleaned == "" {
		return 0, fmt.Errorf("empty numeric cell")
	}

	cleaned = strings.ReplaceAll(cleaned, " ", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	comma := strings.LastIndex(cleaned, ",")
	dot := strings.LastIndex(cleaned, ".")
	switch {
	case comma >= 0 && dot >= 0 && comma > dot:
		// "1.234,56" - dot is a thousands separator
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case comma >= 0 && dot >= 0:
		// "1,234.56" - comma is a thousands separator
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case comma >= 0:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return value, nil
}

// parseOptionalNumber is parseNumber for cells where blank means "not given"
// rather than an error. Returns (nil, nil) for blank cells.
func parseOptionalNumber(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	value, err := parseNumber(s)
	if err != nil {
		return nil, err
	}
	return &value, nil
}
