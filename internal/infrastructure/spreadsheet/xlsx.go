package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

// readWorkbook reads the first sheet. Blank rows between data rows come back
// as empty records, trailing ones are dropped by excelize.
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &domain.FormatError{Reason: fmt.Sprintf("cannot open workbook: %v", err)}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &domain.FormatError{Reason: "workbook has no sheets"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &domain.FormatError{Reason: fmt.Sprintf("cannot read sheet %q: %v", sheets[0], err)}
	}
	return rows, nil
}
