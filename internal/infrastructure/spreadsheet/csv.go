package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// readCSV returns one record per source line after decoding. encoding/csv
// drops empty lines, so they are put back as nil records to keep row numbers
// aligned with what the operator sees in the file.
func readCSV(data []byte) ([][]string, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, &domain.FormatError{Reason: fmt.Sprintf("cannot decode text: %v", err)}
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = detectDelimiter(text)

	var records [][]string
	nextLine := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.FormatError{Reason: fmt.Sprintf("malformed CSV: %v", err)}
		}

		line, _ := reader.FieldPos(0)
		for ; nextLine < line; nextLine++ {
			records = append(records, nil)
		}
		records = append(records, record)
		nextLine = line + 1 + embeddedNewlines(record)
	}

	return records, nil
}

func decodeText(data []byte) ([]byte, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		return decoded, err
	}
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.ISO8859_1.NewDecoder().Bytes(data)
}

// detectDelimiter picks between comma, semicolon and tab by counting them
// on the header line. Spreadsheet apps in many locales export with ';'.
func detectDelimiter(text []byte) rune {
	header := text
	if idx := bytes.IndexByte(text, '\n'); idx >= 0 {
		header = text[:idx]
	}

	best, bestCount := ',', strings.Count(string(header), ",")
	for _, candidate := range []rune{';', '\t'} {
		if n := strings.Count(string(header), string(candidate)); n > bestCount {
			best, bestCount = candidate, n
		}
	}
	return best
}

func embeddedNewlines(record []string) int {
	n := 0
	for _, field := range record {
		n += strings.Count(field, "\n")
	}
	return n
}
