// Package xlsxreport renders spreadsheet artifacts from a finished
// comparison result. It consumes only already-computed rows and columns;
// the comparison core never sees spreadsheet encoding.
package xlsxreport

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bidlens/backend/internal/domain"
)

const (
	comparisonSheet = "Comparison"
	chapterSheet    = "Chapters"

	// Excel caps sheet names at 31 chars; provider names are truncated
	// below that to leave room for uniqueness suffixes.
	maxSheetNameLen = 28

	minColumnWidth = 14
)

// Builder produces xlsx workbooks from run results. It implements
// domain.ReportBuilder.
type Builder struct {
	currency string
}

// NewBuilder creates a report builder. currency is the suffix used in the
// money number format, e.g. "kr".
func NewBuilder(currency string) *Builder {
	if currency == "" {
		currency = "kr"
	}
	return &Builder{currency: currency}
}

// BuildWorkbook renders the full report: one sheet per provider with its
// normalized items, plus the comparison matrix and the chapter rollup.
func (b *Builder) BuildWorkbook(result *domain.RunResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	used := map[string]bool{}
	for i, provider := range result.Providers {
		sheet := uniqueSheetName(provider, used)
		if err := b.writeProviderSheet(f, sheet, i == 0, result.Normalized[provider]); err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", domain.ErrExport, sheet, err)
		}
	}
	if err := b.writeTable(f, comparisonSheet, false, result.Matrix); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	if err := b.writeTable(f, chapterSheet, false, result.Chapters); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}

	return save(f)
}

// BuildMatrixWorkbook renders the comparison matrix alone.
func (b *Builder) BuildMatrixWorkbook(result *domain.RunResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := b.writeTable(f, comparisonSheet, true, result.Matrix); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	return save(f)
}

// BuildChapterWorkbook renders the chapter rollup alone.
func (b *Builder) BuildChapterWorkbook(result *domain.RunResult) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := b.writeTable(f, chapterSheet, true, result.Chapters); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	return save(f)
}

// writeProviderSheet writes one provider's normalized line items. Option
// item amounts are rendered parenthesized so they visibly stand apart from
// the amounts that count towards the total.
func (b *Builder) writeProviderSheet(f *excelize.File, sheet string, first bool, items []domain.LineItem) error {
	if err := addSheet(f, sheet, first); err != nil {
		return err
	}

	headers := []string{"identifier", "code", "description", "unit", "quantity", "unit price", "sum", "chapter", "option"}
	if err := b.writeHeaderRow(f, sheet, headers); err != nil {
		return err
	}

	for i, item := range items {
		row := i + 2
		cells := []any{
			item.Identifier,
			item.Code,
			item.Description,
			item.Unit,
			item.Quantity,
			b.amountCell(item.UnitPrice, item.IsOption),
			b.amountCell(item.SumAmount, item.IsOption),
			item.Chapter,
			item.IsOption,
		}
		for col, value := range cells {
			if value == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return b.finishSheet(f, sheet, headers, len(items)+1)
}

// writeTable writes a domain.Table with header styling, freeze panes,
// autofilter, and per-column number formats inferred from the column name.
func (b *Builder) writeTable(f *excelize.File, sheet string, first bool, table domain.Table) error {
	if err := addSheet(f, sheet, first); err != nil {
		return err
	}
	if err := b.writeHeaderRow(f, sheet, table.Columns); err != nil {
		return err
	}

	percentCols := map[int]bool{}
	for i, column := range table.Columns {
		if isPercentColumn(column) {
			percentCols[i] = true
		}
	}

	for r, row := range table.Rows {
		for c, value := range row {
			if value == nil {
				continue
			}
			if percentCols[c] {
				if pct, ok := value.(float64); ok {
					value = pct / 100 // rendered by the 0.00% format
				}
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	return b.finishSheet(f, sheet, table.Columns, len(table.Rows)+1)
}

// writeHeaderRow writes a bold, centered header row.
func (b *Builder) writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	style, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E2E8F0"}},
	})
	if err != nil {
		return err
	}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return nil
}

// finishSheet applies freeze panes, the autofilter, column number formats
// and widths once all cells are in place.
func (b *Builder) finishSheet(f *excelize.File, sheet string, headers []string, lastRow int) error {
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	if err := f.AutoFilter(sheet, fmt.Sprintf("A1:%s1", lastCol), nil); err != nil {
		return err
	}

	moneyStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr(fmt.Sprintf(`#,##0.00 "%s"`, b.currency)),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return err
	}
	percentStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("0.00%"),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return err
	}
	scoreStyle, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: strPtr("0.00"),
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return err
	}

	for i, header := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}

		var style int
		switch {
		case isMoneyColumn(header):
			style = moneyStyle
		case isPercentColumn(header):
			style = percentStyle
		case isZScoreColumn(header):
			style = scoreStyle
		}
		if style != 0 && lastRow >= 2 {
			first := fmt.Sprintf("%s2", col)
			last := fmt.Sprintf("%s%d", col, lastRow)
			if err := f.SetCellStyle(sheet, first, last, style); err != nil {
				return err
			}
		}

		width := float64(minColumnWidth)
		if w := float64(len(header) + 2); w > width {
			width = w
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}

	return nil
}

// amountCell renders a nullable amount: nil stays empty, option amounts are
// parenthesized text ("(kr 1 234,56)"), everything else is numeric.
func (b *Builder) amountCell(amount *float64, option bool) any {
	if amount == nil {
		return nil
	}
	if option {
		return fmt.Sprintf("(%s %s)", b.currency, formatAmount(*amount))
	}
	return *amount
}

// formatAmount formats a number with space thousands separators and a
// decimal comma, the Norwegian convention used in the reports.
func formatAmount(v float64) string {
	text := fmt.Sprintf("%.2f", v)
	parts := strings.SplitN(text, ".", 2)
	intPart, decPart := parts[0], parts[1]

	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign = "-"
		intPart = intPart[1:]
	}

	var grouped []string
	for len(intPart) > 3 {
		grouped = append([]string{intPart[len(intPart)-3:]}, grouped...)
		intPart = intPart[:len(intPart)-3]
	}
	grouped = append([]string{intPart}, grouped...)

	return sign + strings.Join(grouped, " ") + "," + decPart
}

func isMoneyColumn(name string) bool {
	switch {
	case strings.HasSuffix(name, "(sum)"), strings.HasSuffix(name, "(unit price)"):
		return true
	case name == "lowest sum", name == "mean", name == "std dev", name == "sum", name == "unit price":
		return true
	}
	return false
}

func isPercentColumn(name string) bool {
	return strings.HasSuffix(name, "%")
}

func isZScoreColumn(name string) bool {
	return strings.HasSuffix(name, "(z-score)")
}

// addSheet creates the target sheet, reusing the default sheet for the
// first one so the workbook has no leftover empty tab.
func addSheet(f *excelize.File, sheet string, first bool) error {
	if first {
		return f.SetSheetName(f.GetSheetName(0), sheet)
	}
	_, err := f.NewSheet(sheet)
	return err
}

// uniqueSheetName sanitizes a provider name into a valid, unique sheet name.
func uniqueSheetName(provider string, used map[string]bool) string {
	name := provider
	for _, invalid := range []string{":", "\\", "/", "?", "*", "[", "]"} {
		name = strings.ReplaceAll(name, invalid, " ")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "bid"
	}
	if len(name) > maxSheetNameLen {
		name = name[:maxSheetNameLen]
	}

	unique := name
	for counter := 2; used[unique]; counter++ {
		unique = fmt.Sprintf("%s %d", name, counter)
	}
	used[unique] = true
	return unique
}

func save(f *excelize.File) ([]byte, error) {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrExport, err)
	}
	return buf.Bytes(), nil
}

func strPtr(s string) *string {
	return &s
}
