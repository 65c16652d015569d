package models

import "time"

type ActivationToken struct {
	ID           string  `gorm:"type:uuid;primaryKey"`
	MemberID     string  `gorm:"type:uuid;not null;index"`
	TokenHash    string  `gorm:"size:64;not null;uniqueIndex"`
	Status       string  `gorm:"type:text;not null"`
	SupersededBy *string `gorm:"type:uuid"`
	IssuedAt     time.Time
	ExpiresAt    time.Time
	ActivatedAt  *time.Time
	SupersededAt *time.Time
}

func (ActivationToken) TableName() string {
	return "activation_tokens"
}
