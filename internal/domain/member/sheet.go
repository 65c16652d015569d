package member

const (
	ColumnEmail            = "email"
	ColumnFullName         = "full_name"
	ColumnPhone            = "phone"
	ColumnMemberNumber     = "member_number"
	ColumnProvince         = string(FieldProvince)
	ColumnUniversity       = string(FieldUniversity)
	ColumnEmploymentStatus = string(FieldEmploymentStatus)
	ColumnSalaryRange      = string(FieldSalaryRange)
	ColumnStudyProgram     = string(FieldStudyProgram)
)

// RequiredColumns must be present in the header row of every upload.
var RequiredColumns = []string{ColumnEmail, ColumnFullName}

// SheetRow is one data row. Number counts from 1 for the first row after
// the header, blank rows included.
type SheetRow struct {
	Number int
	Fields map[string]string
	Blank  bool
}

func (r SheetRow) Get(column string) string {
	return r.Fields[column]
}

type Sheet struct {
	Header []string
	Rows   []SheetRow
}

type ResolvedRow struct {
	SheetRow
	References References
	Failures   []ResolutionFailure
}

type PreviewRow struct {
	RowNumber  int               `json:"row_number"`
	Data       map[string]string `json:"data"`
	References References        `json:"references"`
	Valid      bool              `json:"valid"`
	Duplicate  bool              `json:"duplicate"`
	Errors     []string          `json:"errors"`
}

// PreviewReport is keyed by the uploaded file, not by an import batch.
type PreviewReport struct {
	FileKey     string       `json:"file_key"`
	FileName    string       `json:"file_name"`
	FileSize    int64        `json:"file_size"`
	FileHandle  string       `json:"file_handle"`
	TotalRows   int          `json:"total_rows"`
	ValidRows   int          `json:"valid_rows"`
	InvalidRows int          `json:"invalid_rows"`
	Rows        []PreviewRow `json:"rows"`
}

func (p PreviewReport) Row(number int) (PreviewRow, bool) {
	for _, row := range p.Rows {
		if row.RowNumber == number {
			return row, true
		}
	}
	return PreviewRow{}, false
}
