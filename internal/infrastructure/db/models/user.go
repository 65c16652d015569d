package models

import "time"

// User is the login account behind a member. It is created together with
// the member and stays pending until activation.
type User struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	Email       string `gorm:"size:320;not null;uniqueIndex"`
	FullName    string `gorm:"size:255;not null"`
	Status      string `gorm:"type:text;not null"`
	ActivatedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string {
	return "users"
}

type Member struct {
	ID                 string `gorm:"type:uuid;primaryKey"`
	UserID             string `gorm:"type:uuid;not null;uniqueIndex"`
	User               User   `gorm:"foreignKey:UserID"`
	MemberNumber       string `gorm:"size:64;not null;uniqueIndex"`
	FullName           string `gorm:"size:255;not null"`
	Phone              string `gorm:"size:32;not null;default:''"`
	ProvinceID         *int64
	UniversityID       *int64
	EmploymentStatusID *int64
	SalaryRangeID      *int64
	StudyProgramID     *int64
	Status             string  `gorm:"type:text;not null"`
	ImportBatchID      *string `gorm:"type:uuid;index"`
	SourceRow          int     `gorm:"not null;default:0"`
	ActivatedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (Member) TableName() string {
	return "members"
}
