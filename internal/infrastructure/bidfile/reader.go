package bidfile

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/bidlens/backend/internal/domain"
)

// Format identifies the wire format of a submitted bid document.
type Format string

const (
	FormatXML         Format = "ns3459-xml"
	FormatSpreadsheet Format = "spreadsheet"
	FormatDelimited   Format = "delimited"
)

// xlsxMagic is the ZIP local-file-header signature xlsx containers start with.
var xlsxMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// Reader parses bid documents of any supported format into normalized
// provider bids. It implements domain.BidParser.
type Reader struct {
	debug bool
}

// NewReader creates a bid document reader.
func NewReader() *Reader {
	return &Reader{}
}

// SetDebug enables verbose parse logging.
func (r *Reader) SetDebug(debug bool) {
	r.debug = debug
}

// Parse sniffs the document format and dispatches to the matching reader.
// Row-level problems are recorded as warnings on the returned bid; only
// document-level failures (FormatError/SchemaError) return an error.
func (r *Reader) Parse(file domain.BidFile) (*domain.ProviderBid, error) {
	if len(file.Data) == 0 {
		return nil, domain.NewFileError(file.Name, domain.ErrFormat)
	}

	switch DetectFormat(file.Name, file.Data) {
	case FormatXML:
		return r.parseNS3459(file)
	case FormatSpreadsheet:
		rows, err := readSpreadsheetRows(file)
		if err != nil {
			return nil, err
		}
		return r.parseTabular(file.Name, rows)
	default:
		rows, err := readDelimitedRows(file)
		if err != nil {
			return nil, err
		}
		return r.parseTabular(file.Name, rows)
	}
}

// DetectFormat classifies a document by extension and content sniffing.
// Content wins over extension so a mislabelled upload still parses.
func DetectFormat(name string, data []byte) Format {
	if bytes.HasPrefix(data, xlsxMagic) {
		return FormatSpreadsheet
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<")) {
		return FormatXML
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".xml":
		return FormatXML
	case ".xlsx", ".xls":
		return FormatSpreadsheet
	default:
		return FormatDelimited
	}
}

// filenameStem is the provider-name fallback: the base filename without
// its extension.
func filenameStem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
