package member

import (
	"net/mail"
	"strings"
	"time"
)

type MemberStatus string

const (
	MemberPendingActivation MemberStatus = "pending_activation"
	MemberActive            MemberStatus = "active"
)

type References struct {
	ProvinceID         *int64 `json:"province_id,omitempty"`
	UniversityID       *int64 `json:"university_id,omitempty"`
	EmploymentStatusID *int64 `json:"employment_status_id,omitempty"`
	SalaryRangeID      *int64 `json:"salary_range_id,omitempty"`
	StudyProgramID     *int64 `json:"study_program_id,omitempty"`
}

func (r *References) Set(field ReferenceField, id int64) {
	switch field {
	case FieldProvince:
		r.ProvinceID = &id
	case FieldUniversity:
		r.UniversityID = &id
	case FieldEmploymentStatus:
		r.EmploymentStatusID = &id
	case FieldSalaryRange:
		r.SalaryRangeID = &id
	case FieldStudyProgram:
		r.StudyProgramID = &id
	}
}

type Member struct {
	ID            string
	UserID        string
	MemberNumber  string
	Email         string
	FullName      string
	Phone         string
	References    References
	Status        MemberStatus
	ImportBatchID string
	SourceRow     int
	CreatedAt     time.Time
	ActivatedAt   *time.Time
}

type NewMemberInput struct {
	ID            string
	UserID        string
	MemberNumber  string
	Email         string
	FullName      string
	Phone         string
	References    References
	ImportBatchID string
	SourceRow     int
}

func NewMember(in NewMemberInput) (Member, error) {
	email := NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Member{}, ErrInvalidEmail
	}

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		return Member{}, ErrMissingFullName
	}

	memberNumber := strings.TrimSpace(in.MemberNumber)
	if memberNumber == "" {
		memberNumber = GenerateMemberNumber(in.ID)
	}

	return Member{
		ID:            in.ID,
		UserID:        in.UserID,
		MemberNumber:  memberNumber,
		Email:         email,
		FullName:      fullName,
		Phone:         strings.TrimSpace(in.Phone),
		References:    in.References,
		Status:        MemberPendingActivation,
		ImportBatchID: in.ImportBatchID,
		SourceRow:     in.SourceRow,
	}, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeMemberNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// GenerateMemberNumber derives a member number from the member id for rows
// that did not carry one.
func GenerateMemberNumber(memberID string) string {
	compact := strings.ToUpper(strings.ReplaceAll(memberID, "-", ""))
	if len(compact) > 12 {
		compact = compact[:12]
	}
	return "M" + compact
}

// ExistingIdentifiers holds identifiers already present in the store,
// normalized with NormalizeEmail and NormalizeMemberNumber.
type ExistingIdentifiers struct {
	Emails        map[string]struct{}
	MemberNumbers map[string]struct{}
}

func (e ExistingIdentifiers) HasEmail(email string) bool {
	_, ok := e.Emails[NormalizeEmail(email)]
	return ok
}

func (e ExistingIdentifiers) HasMemberNumber(number string) bool {
	_, ok := e.MemberNumbers[NormalizeMemberNumber(number)]
	return ok
}
