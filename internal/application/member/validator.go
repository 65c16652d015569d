package member

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const msgEmptyRow = "row is empty"

var (
	phonePattern        = regexp.MustCompile(`^\+?[0-9][0-9 \-]{5,19}$`)
	memberNumberPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9\-/.]*$`)

	rowValidate = newRowValidate()
)

type rowFields struct {
	Email        string `validate:"required,email,max=254"`
	FullName     string `validate:"required,max=150"`
	Phone        string `validate:"omitempty,phone"`
	MemberNumber string `validate:"omitempty,member_number,max=32"`
}

func newRowValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "member_number", func(fl validator.FieldLevel) bool {
		return memberNumberPattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// DuplicateTracker remembers the identifiers of rows seen earlier in the
// same file. One tracker serves one preview.
type DuplicateTracker struct {
	mu      sync.Mutex
	emails  map[string]int
	numbers map[string]int
}

func NewDuplicateTracker() *DuplicateTracker {
	return &DuplicateTracker{
		emails:  make(map[string]int),
		numbers: make(map[string]int),
	}
}

// duplicateRows reports the first rows that already claimed email and
// number (0 when unclaimed). A row that duplicates nothing registers its own
// identifiers; a duplicate row registers none.
func (t *DuplicateTracker) duplicateRows(row int, email, number string, register bool) (emailRow, numberRow int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if email != "" {
		emailRow = t.emails[email]
	}
	if number != "" {
		numberRow = t.numbers[number]
	}
	if !register || emailRow != 0 || numberRow != 0 {
		return emailRow, numberRow
	}
	if email != "" {
		t.emails[email] = row
	}
	if number != "" {
		t.numbers[number] = row
	}
	return 0, 0
}

type RowValidator struct {
	existing domain.ExistingIdentifiers
	tracker  *DuplicateTracker
}

func NewRowValidator(existing domain.ExistingIdentifiers, tracker *DuplicateTracker) *RowValidator {
	if tracker == nil {
		tracker = NewDuplicateTracker()
	}
	return &RowValidator{existing: existing, tracker: tracker}
}

// Validate checks row in a fixed order: blank row, required fields, field
// formats, references, duplicates. Rows must be fed in file order.
func (v *RowValidator) Validate(row domain.ResolvedRow) domain.PreviewRow {
	out := domain.PreviewRow{
		RowNumber:  row.Number,
		Data:       row.Fields,
		References: row.References,
		Errors:     []string{},
	}
	if row.Blank {
		out.Errors = append(out.Errors, msgEmptyRow)
		return out
	}

	fields := rowFields{
		Email:        row.Get(domain.ColumnEmail),
		FullName:     row.Get(domain.ColumnFullName),
		Phone:        row.Get(domain.ColumnPhone),
		MemberNumber: row.Get(domain.ColumnMemberNumber),
	}
	required, format := fieldErrors(fields)
	out.Errors = append(out.Errors, required...)
	out.Errors = append(out.Errors, format...)

	for _, failure := range row.Failures {
		out.Errors = append(out.Errors, failure.Message())
	}

	duplicates := v.duplicateErrors(row.Number, fields)
	out.Duplicate = len(duplicates) > 0
	out.Errors = append(out.Errors, duplicates...)

	out.Valid = len(out.Errors) == 0
	return out
}

func fieldErrors(fields rowFields) (required, format []string) {
	err := rowValidate.Struct(fields)
	if err == nil {
		return nil, nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, []string{err.Error()}
	}

	for _, fe := range validationErrs {
		if fe.Tag() == "required" {
			required = append(required, fieldLabel(fe.Field())+" is required")
			continue
		}
		format = append(format, formatMessage(fe))
	}
	return required, format
}

func formatMessage(fe validator.FieldError) string {
	value := fmt.Sprint(fe.Value())
	switch fe.Tag() {
	case "email":
		return fmt.Sprintf("email %q is not a valid address", value)
	case "phone":
		return fmt.Sprintf("phone %q is not a valid phone number", value)
	case "member_number":
		return fmt.Sprintf("member number %q may only contain letters, digits, '-', '/' and '.'", value)
	case "max":
		return fmt.Sprintf("%s is longer than %s characters", fieldLabel(fe.Field()), fe.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", fieldLabel(fe.Field()), fe.Tag())
}

func fieldLabel(structField string) string {
	switch structField {
	case "Email":
		return "email"
	case "FullName":
		return "full name"
	case "Phone":
		return "phone"
	case "MemberNumber":
		return "member number"
	}
	return strings.ToLower(structField)
}

func (v *RowValidator) duplicateErrors(rowNumber int, fields rowFields) []string {
	email := domain.NormalizeEmail(fields.Email)
	number := domain.NormalizeMemberNumber(fields.MemberNumber)

	var msgs []string
	if email != "" && v.existing.HasEmail(email) {
		msgs = append(msgs, fmt.Sprintf("email %q is already registered", email))
	}
	if number != "" && v.existing.HasMemberNumber(number) {
		msgs = append(msgs, fmt.Sprintf("member number %q is already registered", number))
	}

	emailRow, numberRow := v.tracker.duplicateRows(rowNumber, email, number, len(msgs) == 0)
	if emailRow != 0 {
		msgs = append(msgs, fmt.Sprintf("email %q duplicates row %d in this file", email, emailRow))
	}
	if numberRow != 0 {
		msgs = append(msgs, fmt.Sprintf("member number %q duplicates row %d in this file", number, numberRow))
	}
	return msgs
}
