package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/go-faster/errors"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

type CSVWriter struct{}

func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVWriter) Extension() string   { return "csv" }

func (CSVWriter) Write(w io.Writer, batch domain.ImportBatch) error {
	columns := dataColumns(batch.ErrorLog)
	out := csv.NewWriter(w)

	if err := out.Write(header(columns)); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, entry := range batch.ErrorLog {
		record := make([]string, 0, len(columns)+2)
		record = append(record, strconv.Itoa(entry.RowNumber))
		for _, column := range columns {
			record = append(record, entry.SubmittedData[column])
		}
		record = append(record, entry.Message)
		if err := out.Write(record); err != nil {
			return errors.Wrapf(err, "write csv row %d", entry.RowNumber)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return errors.Wrap(err, "flush csv")
	}
	return nil
}
