package bidfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/bidlens/backend/internal/domain"
)

// Canonical tabular field names.
const (
	fieldIdentifier  = "identifier"
	fieldDescription = "description"
	fieldUnit        = "unit"
	fieldQuantity    = "quantity"
	fieldUnitPrice   = "unit_price"
	fieldSum         = "sum"
	fieldCode        = "code"
	fieldOption      = "option"
)

// headerSynonyms maps Norwegian and English header spellings onto the
// canonical field names. Matching is case-insensitive on the trimmed header.
var headerSynonyms = map[string]string{
	"postnr":      fieldIdentifier,
	"postnummer":  fieldIdentifier,
	"post":        fieldIdentifier,
	"pos":         fieldIdentifier,
	"item":        fieldIdentifier,
	"item no":     fieldIdentifier,
	"beskrivelse": fieldDescription,
	"description": fieldDescription,
	"tekst":       fieldDescription,
	"text":        fieldDescription,
	"enhet":       fieldUnit,
	"unit":        fieldUnit,
	"mengde":      fieldQuantity,
	"antall":      fieldQuantity,
	"qty":         fieldQuantity,
	"quantity":    fieldQuantity,
	"pris":        fieldUnitPrice,
	"enhetspris":  fieldUnitPrice,
	"price":       fieldUnitPrice,
	"unit price":  fieldUnitPrice,
	"unit_price":  fieldUnitPrice,
	"sum":         fieldSum,
	"sum_amount":  fieldSum,
	"beløp":       fieldSum,
	"belop":       fieldSum,
	"amount":      fieldSum,
	"total":       fieldSum,
	"kode":        fieldCode,
	"nskode":      fieldCode,
	"ns_code":     fieldCode,
	"ns code":     fieldCode,
	"code":        fieldCode,
	"opsjon":      fieldOption,
	"option":      fieldOption,
}

// requiredFields must all be present in the header row; additionally at
// least one of unit_price / sum is required.
var requiredFields = []string{fieldIdentifier, fieldDescription, fieldUnit, fieldQuantity}

// readSpreadsheetRows extracts the first sheet of an xlsx workbook as raw
// string rows.
func readSpreadsheetRows(file domain.BidFile) ([][]string, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(file.Data))
	if err != nil {
		return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: workbook has no sheets", domain.ErrFormat))
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
	}
	return rows, nil
}

// readDelimitedRows reads a delimited text file, auto-detecting the
// delimiter between semicolon and comma and falling back to ISO-8859-1
// when the bytes are not valid UTF-8.
func readDelimitedRows(file domain.BidFile) ([][]string, error) {
	data := file.Data
	if !utf8.Valid(data) {
		decoded, err := io.ReadAll(charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(data)))
		if err != nil {
			return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
		}
		data = decoded
	}
	data = bytes.TrimPrefix(data, []byte{0xef, 0xbb, 0xbf})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, domain.NewFileError(file.Name, fmt.Errorf("%w: %v", domain.ErrFormat, err))
	}
	return rows, nil
}

// detectDelimiter picks semicolon or comma by counting occurrences in the
// header line.
func detectDelimiter(data []byte) rune {
	header := data
	if idx := bytes.IndexByte(data, '\n'); idx >= 0 {
		header = data[:idx]
	}
	if bytes.Count(header, []byte{';'}) >= bytes.Count(header, []byte{','}) &&
		bytes.ContainsRune(header, ';') {
		return ';'
	}
	return ','
}

// parseTabular normalizes header-mapped rows into line items. A required
// header that cannot be matched fails the whole file with a SchemaError;
// malformed rows are skipped with a recorded warning.
func (r *Reader) parseTabular(name string, rows [][]string) (*domain.ProviderBid, error) {
	if len(rows) == 0 {
		return nil, domain.NewFileError(name, fmt.Errorf("%w: file is empty", domain.ErrFormat))
	}

	columns, err := mapHeader(rows[0])
	if err != nil {
		return nil, domain.NewFileError(name, err)
	}

	bid := &domain.ProviderBid{Provider: filenameStem(name)}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		item, err := convertTabularRow(row, columns)
		if err != nil {
			bid.Warnings = append(bid.Warnings, fmt.Sprintf("%s: row %d skipped: %v", name, rowNum, err))
			continue
		}
		if item == nil {
			continue
		}
		bid.Items = append(bid.Items, *item)
	}

	if r.debug {
		log.Printf("[BIDFILE] %s: parsed %d rows, %d skipped", name, len(bid.Items), len(bid.Warnings))
	}

	return bid, nil
}

// mapHeader matches the header row against the synonym table and verifies
// every required field is present.
func mapHeader(header []string) (map[string]int, error) {
	columns := map[string]int{}
	for i, cell := range header {
		key := strings.ToLower(strings.TrimSpace(cell))
		field, ok := headerSynonyms[key]
		if !ok {
			continue
		}
		if _, taken := columns[field]; !taken {
			columns[field] = i
		}
	}

	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrSchema, field)
		}
	}
	_, hasPrice := columns[fieldUnitPrice]
	_, hasSum := columns[fieldSum]
	if !hasPrice && !hasSum {
		return nil, fmt.Errorf("%w: need unit price or sum", domain.ErrSchema)
	}

	return columns, nil
}

// convertTabularRow builds a line item from one data row. Returns
// (nil, nil) for blank filler rows and an ErrRow-wrapped error for rows
// that must be skipped with a warning.
func convertTabularRow(row []string, columns map[string]int) (*domain.LineItem, error) {
	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	if isBlankRow(row) {
		return nil, nil
	}

	identifier := cell(fieldIdentifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: missing identifier", domain.ErrRow)
	}

	item := domain.LineItem{
		Identifier:      identifier,
		Code:            cell(fieldCode),
		Description:     cell(fieldDescription),
		Unit:            cell(fieldUnit),
		IsOption:        isTruthy(cell(fieldOption)),
		UnitPriceSource: domain.SourceGiven,
		SumSource:       domain.SourceGiven,
	}

	if qty := cell(fieldQuantity); qty != "" {
		value, err := parseNumber(qty)
		if err == nil {
			item.Quantity = value
		}
		// An unreadable quantity degrades to 0; the price fields decide
		// whether the row is usable.
	}

	var err error
	if item.UnitPrice, err = parseOptionalNumber(cell(fieldUnitPrice)); err != nil {
		return nil, fmt.Errorf("%w: unit price %v", domain.ErrRow, err)
	}
	if item.SumAmount, err = parseOptionalNumber(cell(fieldSum)); err != nil {
		return nil, fmt.Errorf("%w: sum %v", domain.ErrRow, err)
	}

	deriveChapter(&item)
	deriveAmounts(&item)
	return &item, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
