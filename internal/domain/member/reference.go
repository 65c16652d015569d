package member

import "github.com/shopspring/decimal"

type ReferenceField string

const (
	FieldProvince         ReferenceField = "province"
	FieldUniversity       ReferenceField = "university"
	FieldEmploymentStatus ReferenceField = "employment_status"
	FieldSalaryRange      ReferenceField = "salary_range"
	FieldStudyProgram     ReferenceField = "study_program"
)

// ReferenceFields lists the reference columns in the order their errors are reported.
var ReferenceFields = []ReferenceField{
	FieldProvince,
	FieldUniversity,
	FieldEmploymentStatus,
	FieldSalaryRange,
	FieldStudyProgram,
}

func (f ReferenceField) Label() string {
	switch f {
	case FieldEmploymentStatus:
		return "employment status"
	case FieldSalaryRange:
		return "salary range"
	case FieldStudyProgram:
		return "study program"
	default:
		return string(f)
	}
}

type ReferenceItem struct {
	ID   int64
	Name string
}

// SalaryRange is a named band. A null Max means the band has no upper bound.
type SalaryRange struct {
	ID   int64
	Name string
	Min  decimal.Decimal
	Max  decimal.NullDecimal
}

func (r SalaryRange) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(r.Min) {
		return false
	}
	return !r.Max.Valid || amount.LessThanOrEqual(r.Max.Decimal)
}

// ReferenceData is a snapshot of the master tables, loaded once per import run.
type ReferenceData struct {
	Provinces          []ReferenceItem
	Universities       []ReferenceItem
	EmploymentStatuses []ReferenceItem
	StudyPrograms      []ReferenceItem
	SalaryRanges       []SalaryRange
}

func (d ReferenceData) Items(field ReferenceField) []ReferenceItem {
	switch field {
	case FieldProvince:
		return d.Provinces
	case FieldUniversity:
		return d.Universities
	case FieldEmploymentStatus:
		return d.EmploymentStatuses
	case FieldStudyProgram:
		return d.StudyPrograms
	case FieldSalaryRange:
		items := make([]ReferenceItem, 0, len(d.SalaryRanges))
		for _, r := range d.SalaryRanges {
			items = append(items, ReferenceItem{ID: r.ID, Name: r.Name})
		}
		return items
	}
	return nil
}

type ResolutionFailure struct {
	Field      ReferenceField
	Value      string
	Ambiguous  bool
	Suggestion string
}

func (f ResolutionFailure) Message() string {
	if f.Ambiguous {
		return f.Field.Label() + ` "` + f.Value + `" matches more than one entry`
	}
	msg := f.Field.Label() + ` "` + f.Value + `" was not found`
	if f.Suggestion != "" {
		msg += ` (did you mean "` + f.Suggestion + `"?)`
	}
	return msg
}
