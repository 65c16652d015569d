package member

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[1-8][0-9a-fA-F]{3}-[89abAB][0-9a-fA-F]{3}-[0-9a-fA-F]{12}$`)

type GetMemberInput struct {
	ID string
}

type GetMemberOutput struct {
	ID                 string     `json:"id"`
	MemberNumber       string     `json:"member_number"`
	Email              string     `json:"email"`
	FullName           string     `json:"full_name"`
	Phone              string     `json:"phone"`
	Status             string     `json:"status"`
	ProvinceID         *int64     `json:"province_id,omitempty"`
	UniversityID       *int64     `json:"university_id,omitempty"`
	EmploymentStatusID *int64     `json:"employment_status_id,omitempty"`
	SalaryRangeID      *int64     `json:"salary_range_id,omitempty"`
	StudyProgramID     *int64     `json:"study_program_id,omitempty"`
	ImportBatchID      string     `json:"import_batch_id,omitempty"`
	SourceRow          int        `json:"source_row,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
}

type GetMember interface {
	Execute(ctx context.Context, in GetMemberInput) (GetMemberOutput, error)
}

type getMember struct {
	repo domain.MemberQueryRepository
}

func NewGetMember(repo domain.MemberQueryRepository) GetMember {
	return &getMember{repo: repo}
}

func (uc *getMember) Execute(ctx context.Context, in GetMemberInput) (GetMemberOutput, error) {
	if !uuidPattern.MatchString(in.ID) {
		return GetMemberOutput{}, ErrInvalidMemberID
	}

	m, err := uc.repo.GetByID(ctx, in.ID)
	if err != nil {
		if errors.Is(err, domain.ErrMemberNotFound) {
			return GetMemberOutput{}, ErrMemberNotFound
		}
		return GetMemberOutput{}, fmt.Errorf("%w: %v", ErrGetMember, err)
	}

	return GetMemberOutput{
		ID:                 m.ID,
		MemberNumber:       m.MemberNumber,
		Email:              m.Email,
		FullName:           m.FullName,
		Phone:              m.Phone,
		Status:             string(m.Status),
		ProvinceID:         m.References.ProvinceID,
		UniversityID:       m.References.UniversityID,
		EmploymentStatusID: m.References.EmploymentStatusID,
		SalaryRangeID:      m.References.SalaryRangeID,
		StudyProgramID:     m.References.StudyProgramID,
		ImportBatchID:      m.ImportBatchID,
		SourceRow:          m.SourceRow,
		CreatedAt:          m.CreatedAt,
		ActivatedAt:        m.ActivatedAt,
	}, nil
}
