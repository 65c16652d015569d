package report

import (
	"io"

	"github.com/go-faster/errors"
	"github.com/xuri/excelize/v2"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const sheetName = "Errors"

type XLSXWriter struct{}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Extension() string { return "xlsx" }

func (XLSXWriter) Write(w io.Writer, batch domain.ImportBatch) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return errors.Wrap(err, "name sheet")
	}
	stream, err := f.NewStreamWriter(sheetName)
	if err != nil {
		return errors.Wrap(err, "open stream writer")
	}

	columns := dataColumns(batch.ErrorLog)
	if err := stream.SetRow("A1", toCells(header(columns))); err != nil {
		return errors.Wrap(err, "write header")
	}

	for i, entry := range batch.ErrorLog {
		row := make([]any, 0, len(columns)+2)
		row = append(row, entry.RowNumber)
		for _, column := range columns {
			row = append(row, entry.SubmittedData[column])
		}
		row = append(row, entry.Message)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(cell, row); err != nil {
			return errors.Wrapf(err, "write row %d", entry.RowNumber)
		}
	}

	if err := stream.Flush(); err != nil {
		return errors.Wrap(err, "flush sheet")
	}
	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}

func toCells(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
