package spreadsheet

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	ExtCSV  = "csv"
	ExtXLSX = "xlsx"
	ExtXLS  = "xls"

	DefaultMaxRows = 1000
)

type Limits struct {
	MaxFileSizeBytes  int64
	MaxRows           int
	AllowedExtensions []string
}

// Reader turns uploaded bytes into a domain.Sheet. It performs no I/O.
type Reader struct {
	limits  Limits
	allowed map[string]struct{}
}

func NewReader(limits Limits) *Reader {
	if limits.MaxRows <= 0 {
		limits.MaxRows = DefaultMaxRows
	}
	if len(limits.AllowedExtensions) == 0 {
		limits.AllowedExtensions = []string{ExtXLSX, ExtXLS, ExtCSV}
	}

	allowed := make(map[string]struct{}, len(limits.AllowedExtensions))
	for _, ext := range limits.AllowedExtensions {
		allowed[NormalizeExtension(ext)] = struct{}{}
	}
	return &Reader{limits: limits, allowed: allowed}
}

func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func (r *Reader) Read(data []byte, ext string) (domain.Sheet, error) {
	ext = NormalizeExtension(ext)
	if _, ok := r.allowed[ext]; !ok || !supported(ext) {
		return domain.Sheet{}, &domain.FormatError{Reason: fmt.Sprintf("extension %q is not accepted", ext)}
	}
	if r.limits.MaxFileSizeBytes > 0 && int64(len(data)) > r.limits.MaxFileSizeBytes {
		return domain.Sheet{}, &domain.SizeLimitError{Size: int64(len(data)), Limit: r.limits.MaxFileSizeBytes}
	}
	if len(data) == 0 {
		return domain.Sheet{}, &domain.FormatError{Reason: "file is empty"}
	}

	records, err := r.records(data, ext)
	if err != nil {
		return domain.Sheet{}, err
	}
	return buildSheet(records, r.limits.MaxRows)
}

func supported(ext string) bool {
	return ext == ExtCSV || ext == ExtXLSX || ext == ExtXLS
}

func (r *Reader) records(data []byte, ext string) ([][]string, error) {
	detected := mimetype.Detect(data)

	switch ext {
	case ExtCSV:
		if hasAncestor(detected, "application/zip") || hasAncestor(detected, "application/x-ole-storage") {
			return nil, &domain.FormatError{Reason: fmt.Sprintf("content is %s, not CSV text", detected.String())}
		}
		return readCSV(data)
	default:
		if hasAncestor(detected, "application/x-ole-storage") {
			return nil, &domain.FormatError{Reason: "legacy .xls workbooks cannot be read, save the file as .xlsx"}
		}
		if !hasAncestor(detected, "application/zip") {
			return nil, &domain.FormatError{Reason: fmt.Sprintf("content is %s, not an Excel workbook", detected.String())}
		}
		return readWorkbook(data)
	}
}

func hasAncestor(m *mimetype.MIME, expected string) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
	}
	return false
}

func buildSheet(records [][]string, maxRows int) (domain.Sheet, error) {
	for len(records) > 0 && isBlank(records[0]) {
		records = records[1:]
	}
	if len(records) == 0 {
		return domain.Sheet{}, &domain.FormatError{Reason: "missing header row"}
	}

	header, err := normalizeHeader(records[0])
	if err != nil {
		return domain.Sheet{}, err
	}

	data := records[1:]
	for len(data) > 0 && isBlank(data[len(data)-1]) {
		data = data[:len(data)-1]
	}
	if len(data) > maxRows {
		return domain.Sheet{}, &domain.RowLimitError{Rows: len(data), Limit: maxRows}
	}

	rows := make([]domain.SheetRow, 0, len(data))
	for i, record := range data {
		row := domain.SheetRow{
			Number: i + 1,
			Fields: make(map[string]string, len(header)),
			Blank:  isBlank(record),
		}
		for col, name := range header {
			if name == "" {
				continue
			}
			value := ""
			if col < len(record) {
				value = strings.TrimSpace(record[col])
			}
			row.Fields[name] = value
		}
		rows = append(rows, row)
	}

	return domain.Sheet{Header: header, Rows: rows}, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
