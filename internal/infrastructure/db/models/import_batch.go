package models

import (
	"time"

	"gorm.io/datatypes"
)

type ImportBatch struct {
	ID             string             `gorm:"type:uuid;primaryKey"`
	Kind           string             `gorm:"type:text;not null"`
	FileName       string             `gorm:"type:text;not null"`
	FileSize       int64              `gorm:"not null;default:0"`
	SourceHandle   string             `gorm:"type:text;not null;default:''"`
	UploadedBy     string             `gorm:"type:text;not null"`
	Status         string             `gorm:"type:text;not null;index"`
	TotalRows      int                `gorm:"not null;default:0"`
	SuccessCount   int                `gorm:"not null;default:0"`
	FailedCount    int                `gorm:"not null;default:0"`
	SkippedCount   int                `gorm:"not null;default:0"`
	DuplicateCount int                `gorm:"not null;default:0"`
	SystemError    *string            `gorm:"type:text"`
	Errors         []ImportBatchError `gorm:"foreignKey:BatchID"`
	StartedAt      *time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time `gorm:"index"`
	UpdatedAt      time.Time
}

func (ImportBatch) TableName() string {
	return "import_batches"
}

// ImportBatchError is one entry of a batch's error log.
type ImportBatchError struct {
	ID            int64          `gorm:"primaryKey"`
	BatchID       string         `gorm:"type:uuid;index;not null"`
	RowNumber     int            `gorm:"not null"`
	SubmittedData datatypes.JSON `gorm:"type:jsonb;not null"`
	ErrorMessage  string         `gorm:"type:text;not null"`
	CreatedAt     time.Time
}

func (ImportBatchError) TableName() string {
	return "import_batch_errors"
}
