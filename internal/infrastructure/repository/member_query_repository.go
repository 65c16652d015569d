package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

const lookupChunkSize = 500

type MemberQueryRepository struct {
	db *gorm.DB
}

func NewMemberQueryRepository(db *gorm.DB) *MemberQueryRepository {
	return &MemberQueryRepository{db: db}
}

func (r *MemberQueryRepository) GetByID(ctx context.Context, memberID string) (domain.Member, error) {
	var row models.Member

	err := r.db.WithContext(ctx).
		Preload("User").
		First(&row, "id = ?", memberID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, fmt.Errorf("get member by id: %w", err)
	}

	m := domain.Member{
		ID:           row.ID,
		UserID:       row.UserID,
		MemberNumber: row.MemberNumber,
		Email:        row.User.Email,
		FullName:     row.FullName,
		Phone:        row.Phone,
		References: domain.References{
			ProvinceID:         row.ProvinceID,
			UniversityID:       row.UniversityID,
			EmploymentStatusID: row.EmploymentStatusID,
			SalaryRangeID:      row.SalaryRangeID,
			StudyProgramID:     row.StudyProgramID,
		},
		Status:      domain.MemberStatus(row.Status),
		SourceRow:   row.SourceRow,
		CreatedAt:   row.CreatedAt,
		ActivatedAt: row.ActivatedAt,
	}
	if row.ImportBatchID != nil {
		m.ImportBatchID = *row.ImportBatchID
	}
	return m, nil
}

// FindExisting reports which of the given identifiers are already taken.
// Emails compare case-insensitively, member numbers after upper-casing.
func (r *MemberQueryRepository) FindExisting(ctx context.Context, emails []string, memberNumbers []string) (domain.ExistingIdentifiers, error) {
	out := domain.ExistingIdentifiers{
		Emails:        make(map[string]struct{}),
		MemberNumbers: make(map[string]struct{}),
	}

	for _, chunk := range chunks(emails, lookupChunkSize) {
		var found []string
		if err := r.db.WithContext(ctx).
			Model(&models.User{}).
			Where("LOWER(email) IN ?", chunk).
			Pluck("email", &found).Error; err != nil {
			return domain.ExistingIdentifiers{}, fmt.Errorf("find existing emails: %w", err)
		}
		for _, email := range found {
			out.Emails[domain.NormalizeEmail(email)] = struct{}{}
		}
	}

	for _, chunk := range chunks(memberNumbers, lookupChunkSize) {
		var found []string
		if err := r.db.WithContext(ctx).
			Model(&models.Member{}).
			Where("UPPER(member_number) IN ?", chunk).
			Pluck("member_number", &found).Error; err != nil {
			return domain.ExistingIdentifiers{}, fmt.Errorf("find existing member numbers: %w", err)
		}
		for _, number := range found {
			out.MemberNumbers[domain.NormalizeMemberNumber(number)] = struct{}{}
		}
	}

	return out, nil
}

func chunks(values []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		out = append(out, values[start:end])
	}
	return out
}
