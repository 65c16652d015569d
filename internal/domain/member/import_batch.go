package member

import (
	"fmt"
	"strings"
	"time"
)

const ImportKindMembers = "members"

// ImportStatus is the lifecycle state of an ImportBatch. It only moves
// pending -> processing -> {completed, failed, partial}.
type ImportStatus string

const (
	ImportPending    ImportStatus = "pending"
	ImportProcessing ImportStatus = "processing"
	ImportCompleted  ImportStatus = "completed"
	ImportFailed     ImportStatus = "failed"
	ImportPartial    ImportStatus = "partial"
)

// ParseImportStatus accepts the five canonical states. "success" is the
// display name some screens use for completed batches.
func ParseImportStatus(raw string) (ImportStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return ImportPending, nil
	case "processing":
		return ImportProcessing, nil
	case "completed", "success":
		return ImportCompleted, nil
	case "failed":
		return ImportFailed, nil
	case "partial":
		return ImportPartial, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownImportStatus, raw)
}

func (s ImportStatus) IsTerminal() bool {
	return s == ImportCompleted || s == ImportFailed || s == ImportPartial
}

func (s ImportStatus) CanTransition(to ImportStatus) bool {
	switch s {
	case ImportPending:
		return to == ImportProcessing
	case ImportProcessing:
		return to.IsTerminal()
	default:
		return false
	}
}

type ImportCounters struct {
	TotalRows      int `json:"total_rows"`
	SuccessCount   int `json:"success_count"`
	FailedCount    int `json:"failed_count"`
	SkippedCount   int `json:"skipped_count"`
	DuplicateCount int `json:"duplicate_count"`
}

func (c ImportCounters) Processed() int {
	return c.SuccessCount + c.FailedCount + c.SkippedCount + c.DuplicateCount
}

func (c ImportCounters) Validate() error {
	if c.TotalRows < 0 || c.SuccessCount < 0 || c.FailedCount < 0 || c.SkippedCount < 0 || c.DuplicateCount < 0 {
		return ErrNegativeCounter
	}
	if c.Processed() > c.TotalRows {
		return ErrCounterOverflow
	}
	return nil
}

// TerminalStatus derives the final state from the counters: completed when
// nothing failed, failed when nothing succeeded, partial otherwise.
func (c ImportCounters) TerminalStatus() ImportStatus {
	switch {
	case c.FailedCount == 0:
		return ImportCompleted
	case c.SuccessCount == 0:
		return ImportFailed
	default:
		return ImportPartial
	}
}

type ImportError struct {
	RowNumber     int               `json:"row_number"`
	SubmittedData map[string]string `json:"submitted_data"`
	Message       string            `json:"error_message"`
}

type ImportBatch struct {
	ID           string         `json:"id"`
	Kind         string         `json:"kind"`
	FileName     string         `json:"file_name"`
	FileSize     int64          `json:"file_size"`
	SourceHandle string         `json:"-"`
	UploadedBy   string         `json:"uploaded_by"`
	Status       ImportStatus   `json:"status"`
	Counters     ImportCounters `json:"counters"`
	ErrorLog     []ImportError  `json:"error_log,omitempty"`
	SystemError  string         `json:"system_error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

type NewImportBatchInput struct {
	ID           string
	FileName     string
	FileSize     int64
	SourceHandle string
	UploadedBy   string
	TotalRows    int
}

func NewImportBatch(in NewImportBatchInput, now time.Time) (ImportBatch, error) {
	if strings.TrimSpace(in.ID) == "" {
		return ImportBatch{}, ErrMissingBatchID
	}
	if strings.TrimSpace(in.UploadedBy) == "" {
		return ImportBatch{}, ErrMissingUploader
	}
	counters := ImportCounters{TotalRows: in.TotalRows}
	if err := counters.Validate(); err != nil {
		return ImportBatch{}, err
	}

	return ImportBatch{
		ID:           in.ID,
		Kind:         ImportKindMembers,
		FileName:     in.FileName,
		FileSize:     in.FileSize,
		SourceHandle: in.SourceHandle,
		UploadedBy:   strings.TrimSpace(in.UploadedBy),
		Status:       ImportPending,
		Counters:     counters,
		CreatedAt:    now,
	}, nil
}

func (b *ImportBatch) transition(to ImportStatus) error {
	if !b.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, to)
	}
	b.Status = to
	return nil
}

func (b *ImportBatch) Start(now time.Time) error {
	if err := b.transition(ImportProcessing); err != nil {
		return err
	}
	b.StartedAt = &now
	return nil
}

func (b *ImportBatch) requireRowSlot() error {
	if b.Status != ImportProcessing {
		return fmt.Errorf("%w: batch is %s", ErrInvalidTransition, b.Status)
	}
	if b.Counters.Processed() >= b.Counters.TotalRows {
		return ErrCounterOverflow
	}
	return nil
}

func (b *ImportBatch) RecordSuccess() error {
	if err := b.requireRowSlot(); err != nil {
		return err
	}
	b.Counters.SuccessCount++
	return nil
}

func (b *ImportBatch) RecordFailure(entry ImportError) error {
	if err := b.requireRowSlot(); err != nil {
		return err
	}
	b.Counters.FailedCount++
	b.ErrorLog = append(b.ErrorLog, entry)
	return nil
}

// RecordSkipped counts a row that was not written. Duplicates are tracked
// apart from other skips; entry is nil for rows the operator excluded.
func (b *ImportBatch) RecordSkipped(duplicate bool, entry *ImportError) error {
	if err := b.requireRowSlot(); err != nil {
		return err
	}
	if duplicate {
		b.Counters.DuplicateCount++
	} else {
		b.Counters.SkippedCount++
	}
	if entry != nil {
		b.ErrorLog = append(b.ErrorLog, *entry)
	}
	return nil
}

func (b *ImportBatch) Finish(now time.Time) error {
	if err := b.transition(b.Counters.TerminalStatus()); err != nil {
		return err
	}
	b.CompletedAt = &now
	return nil
}

// Abort ends a processing batch after a system error. Rows already written
// keep their counters.
func (b *ImportBatch) Abort(reason string, now time.Time) error {
	if err := b.transition(ImportFailed); err != nil {
		return err
	}
	b.SystemError = reason
	b.CompletedAt = &now
	return nil
}

type ImportBatchFilter struct {
	Status *ImportStatus
	Kind   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}
