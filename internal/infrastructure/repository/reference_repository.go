package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

// ReferenceRepository reads the master tables used to resolve sheet values.
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) LoadReferenceData(ctx context.Context) (domain.ReferenceData, error) {
	db := r.db.WithContext(ctx)
	var data domain.ReferenceData

	var provinces []models.Province
	if err := db.Order("id").Find(&provinces).Error; err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load provinces: %w", err)
	}
	for _, p := range provinces {
		data.Provinces = append(data.Provinces, domain.ReferenceItem{ID: p.ID, Name: p.Name})
	}

	var universities []models.University
	if err := db.Order("id").Find(&universities).Error; err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load universities: %w", err)
	}
	for _, u := range universities {
		data.Universities = append(data.Universities, domain.ReferenceItem{ID: u.ID, Name: u.Name})
	}

	var statuses []models.EmploymentStatus
	if err := db.Order("id").Find(&statuses).Error; err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load employment statuses: %w", err)
	}
	for _, s := range statuses {
		data.EmploymentStatuses = append(data.EmploymentStatuses, domain.ReferenceItem{ID: s.ID, Name: s.Name})
	}

	var programs []models.StudyProgram
	if err := db.Order("id").Find(&programs).Error; err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load study programs: %w", err)
	}
	for _, p := range programs {
		data.StudyPrograms = append(data.StudyPrograms, domain.ReferenceItem{ID: p.ID, Name: p.Name})
	}

	var ranges []models.SalaryRange
	if err := db.Order("min_amount, id").Find(&ranges).Error; err != nil {
		return domain.ReferenceData{}, fmt.Errorf("load salary ranges: %w", err)
	}
	for _, s := range ranges {
		data.SalaryRanges = append(data.SalaryRanges, domain.SalaryRange{
			ID:   s.ID,
			Name: s.Name,
			Min:  s.MinAmount,
			Max:  s.MaxAmount,
		})
	}

	return data, nil
}
