// Package report renders a batch's error log as a downloadable file so
// operators can fix the rows and upload them again.
package report

import (
	"slices"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	columnRow   = "row_number"
	columnError = "error_message"
)

var knownColumns = []string{
	domain.ColumnEmail,
	domain.ColumnFullName,
	domain.ColumnPhone,
	domain.ColumnMemberNumber,
	domain.ColumnProvince,
	domain.ColumnUniversity,
	domain.ColumnEmploymentStatus,
	domain.ColumnSalaryRange,
	domain.ColumnStudyProgram,
}

// dataColumns returns the submitted-data columns used by any entry: known
// columns in sheet order first, anything else sorted after them.
func dataColumns(entries []domain.ImportError) []string {
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for key := range entry.SubmittedData {
			seen[key] = struct{}{}
		}
	}

	columns := make([]string, 0, len(seen))
	for _, column := range knownColumns {
		if _, ok := seen[column]; ok {
			columns = append(columns, column)
			delete(seen, column)
		}
	}
	extra := make([]string, 0, len(seen))
	for key := range seen {
		extra = append(extra, key)
	}
	slices.Sort(extra)
	return append(columns, extra...)
}

func header(columns []string) []string {
	out := make([]string, 0, len(columns)+2)
	out = append(out, columnRow)
	out = append(out, columns...)
	return append(out, columnError)
}
