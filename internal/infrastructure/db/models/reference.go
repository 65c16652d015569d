package models

import "github.com/shopspring/decimal"

type Province struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (Province) TableName() string { return "provinces" }

type University struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (University) TableName() string { return "universities" }

type EmploymentStatus struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (EmploymentStatus) TableName() string { return "employment_statuses" }

type StudyProgram struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:255;not null"`
}

func (StudyProgram) TableName() string { return "study_programs" }

type SalaryRange struct {
	ID        int64               `gorm:"primaryKey"`
	Name      string              `gorm:"size:255;not null"`
	MinAmount decimal.Decimal     `gorm:"type:numeric(14,2);not null"`
	MaxAmount decimal.NullDecimal `gorm:"type:numeric(14,2)"`
}

func (SalaryRange) TableName() string { return "salary_ranges" }
