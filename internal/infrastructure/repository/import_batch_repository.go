package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/infrastructure/db/models"
)

const processedSQL = "success_count + failed_count + skipped_count + duplicate_count"

// ImportBatchRepository is the import log. Status changes go through the
// domain state machine under a row lock; counters are bumped in SQL so
// concurrent writers never lose an increment.
type ImportBatchRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ImportBatchRepository) Create(ctx context.Context, batch domain.ImportBatch) (domain.ImportBatch, error) {
	row := toBatchModel(batch)
	if err := r.db.WithContext(ctx).Omit("Errors").Create(&row).Error; err != nil {
		return domain.ImportBatch{}, fmt.Errorf("create import batch: %w", err)
	}
	return toBatchDomain(row), nil
}

func (r *ImportBatchRepository) Get(ctx context.Context, id string) (domain.ImportBatch, error) {
	var row models.ImportBatch
	err := r.db.WithContext(ctx).
		Preload("Errors", func(db *gorm.DB) *gorm.DB { return db.Order("row_number, id") }).
		First(&row, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ImportBatch{}, domain.ErrImportNotFound
		}
		return domain.ImportBatch{}, fmt.Errorf("get import batch: %w", err)
	}
	return toBatchDomain(row), nil
}

// List returns batches newest first without their error logs.
func (r *ImportBatchRepository) List(ctx context.Context, filter domain.ImportBatchFilter) ([]domain.ImportBatch, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ImportBatch{})
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Kind != "" {
		query = query.Where("kind = ?", filter.Kind)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count import batches: %w", err)
	}

	var rows []models.ImportBatch
	if err := query.Order("created_at DESC, id").Limit(filter.Limit).Offset(filter.Offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("list import batches: %w", err)
	}

	out := make([]domain.ImportBatch, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBatchDomain(row))
	}
	return out, total, nil
}

func (r *ImportBatchRepository) Start(ctx context.Context, id string) error {
	_, err := r.transition(ctx, id, func(b *domain.ImportBatch, now time.Time) error {
		return b.Start(now)
	})
	return err
}

func (r *ImportBatchRepository) Finish(ctx context.Context, id string) (domain.ImportBatch, error) {
	if _, err := r.transition(ctx, id, func(b *domain.ImportBatch, now time.Time) error {
		return b.Finish(now)
	}); err != nil {
		return domain.ImportBatch{}, err
	}
	return r.Get(ctx, id)
}

func (r *ImportBatchRepository) Abort(ctx context.Context, id string, reason string) (domain.ImportBatch, error) {
	if _, err := r.transition(ctx, id, func(b *domain.ImportBatch, now time.Time) error {
		return b.Abort(reason, now)
	}); err != nil {
		return domain.ImportBatch{}, err
	}
	return r.Get(ctx, id)
}

func (r *ImportBatchRepository) transition(ctx context.Context, id string, apply func(*domain.ImportBatch, time.Time) error) (domain.ImportBatch, error) {
	var out domain.ImportBatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.ImportBatch
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrImportNotFound
			}
			return fmt.Errorf("lock import batch: %w", err)
		}

		batch := toBatchDomain(row)
		if err := apply(&batch, r.now()); err != nil {
			return err
		}

		res := tx.Model(&models.ImportBatch{}).
			Where("id = ? AND status = ?", id, row.Status).
			Updates(map[string]any{
				"status":       string(batch.Status),
				"started_at":   batch.StartedAt,
				"completed_at": batch.CompletedAt,
				"system_error": nullableText(batch.SystemError),
				"updated_at":   r.now(),
			})
		if res.Error != nil {
			return fmt.Errorf("update import batch status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: batch %s changed concurrently", domain.ErrInvalidTransition, id)
		}
		out = batch
		return nil
	})
	return out, err
}

func (r *ImportBatchRepository) RecordSuccess(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.increment(tx, id, "success_count")
	})
}

func (r *ImportBatchRepository) RecordFailure(ctx context.Context, id string, entry domain.ImportError) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.increment(tx, id, "failed_count"); err != nil {
			return err
		}
		return insertImportError(tx, id, entry)
	})
}

func (r *ImportBatchRepository) RecordSkipped(ctx context.Context, id string, duplicate bool, entry *domain.ImportError) error {
	column := "skipped_count"
	if duplicate {
		column = "duplicate_count"
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.increment(tx, id, column); err != nil {
			return err
		}
		if entry == nil {
			return nil
		}
		return insertImportError(tx, id, *entry)
	})
}

// increment bumps one counter of a processing batch that still has room
// below total_rows.
func (r *ImportBatchRepository) increment(tx *gorm.DB, id, column string) error {
	res := tx.Model(&models.ImportBatch{}).
		Where("id = ? AND status = ? AND "+processedSQL+" < total_rows", id, string(domain.ImportProcessing)).
		UpdateColumns(map[string]any{
			column:       gorm.Expr(column + " + 1"),
			"updated_at": r.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("increment %s: %w", column, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return counterRejection(tx, id)
}

func counterRejection(tx *gorm.DB, id string) error {
	var row models.ImportBatch
	if err := tx.Select("status").First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrImportNotFound
		}
		return fmt.Errorf("reload import batch: %w", err)
	}
	if row.Status != string(domain.ImportProcessing) {
		return fmt.Errorf("%w: batch is %s", domain.ErrInvalidTransition, row.Status)
	}
	return domain.ErrCounterOverflow
}

func insertImportError(tx *gorm.DB, batchID string, entry domain.ImportError) error {
	submitted := entry.SubmittedData
	if submitted == nil {
		submitted = map[string]string{}
	}
	raw, err := json.Marshal(submitted)
	if err != nil {
		return fmt.Errorf("encode submitted data: %w", err)
	}

	row := models.ImportBatchError{
		BatchID:       batchID,
		RowNumber:     entry.RowNumber,
		SubmittedData: datatypes.JSON(raw),
		ErrorMessage:  entry.Message,
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert import error: %w", err)
	}
	return nil
}

func toBatchModel(b domain.ImportBatch) models.ImportBatch {
	return models.ImportBatch{
		ID:             b.ID,
		Kind:           b.Kind,
		FileName:       b.FileName,
		FileSize:       b.FileSize,
		SourceHandle:   b.SourceHandle,
		UploadedBy:     b.UploadedBy,
		Status:         string(b.Status),
		TotalRows:      b.Counters.TotalRows,
		SuccessCount:   b.Counters.SuccessCount,
		FailedCount:    b.Counters.FailedCount,
		SkippedCount:   b.Counters.SkippedCount,
		DuplicateCount: b.Counters.DuplicateCount,
		SystemError:    nullableText(b.SystemError),
		StartedAt:      b.StartedAt,
		CompletedAt:    b.CompletedAt,
		CreatedAt:      b.CreatedAt,
	}
}

func toBatchDomain(row models.ImportBatch) domain.ImportBatch {
	batch := domain.ImportBatch{
		ID:           row.ID,
		Kind:         row.Kind,
		FileName:     row.FileName,
		FileSize:     row.FileSize,
		SourceHandle: row.SourceHandle,
		UploadedBy:   row.UploadedBy,
		Status:       domain.ImportStatus(row.Status),
		Counters: domain.ImportCounters{
			TotalRows:      row.TotalRows,
			SuccessCount:   row.SuccessCount,
			FailedCount:    row.FailedCount,
			SkippedCount:   row.SkippedCount,
			DuplicateCount: row.DuplicateCount,
		},
		CreatedAt:   row.CreatedAt,
		StartedAt:   row.StartedAt,
		CompletedAt: row.CompletedAt,
	}
	if row.SystemError != nil {
		batch.SystemError = *row.SystemError
	}

	for _, e := range row.Errors {
		entry := domain.ImportError{RowNumber: e.RowNumber, Message: e.ErrorMessage}
		if len(e.SubmittedData) > 0 {
			// Rows written by this repository always decode; anything else keeps an empty payload.
			_ = json.Unmarshal(e.SubmittedData, &entry.SubmittedData)
		}
		batch.ErrorLog = append(batch.ErrorLog, entry)
	}
	return batch
}

func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
