package member

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

const maxReasonLength = 1000

type CommitInput struct {
	FileKey    string
	UploadedBy string
	// RowNumbers selects the rows to import. Nil selects every valid row.
	RowNumbers []int
}

type CommitMembers interface {
	Execute(ctx context.Context, in CommitInput) (domain.ImportBatch, error)
}

type tokenIssuer interface {
	IssueFor(ctx context.Context, member domain.Member) (domain.ActivationToken, error)
}

type commitMembers struct {
	previews domain.PreviewStore
	batches  domain.ImportBatchRepository
	members  domain.MemberWriter
	issuer   tokenIssuer
	logger   logrus.FieldLogger

	now   func() time.Time
	newID func() string
}

func NewCommitMembers(
	previews domain.PreviewStore,
	batches domain.ImportBatchRepository,
	members domain.MemberWriter,
	issuer tokenIssuer,
	logger logrus.FieldLogger,
) CommitMembers {
	return &commitMembers{
		previews: previews,
		batches:  batches,
		members:  members,
		issuer:   issuer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// Execute writes the selected rows of a cached preview and records the run
// as an import batch. Row-level failures land in the batch's error log; any
// other failure aborts the batch and is returned wrapped in ErrSystemFailure
// together with the aborted batch. Once the preview is claimed the run no
// longer follows the caller's cancellation: a started batch always reaches a
// terminal status.
func (uc *commitMembers) Execute(ctx context.Context, in CommitInput) (domain.ImportBatch, error) {
	report, err := uc.previews.Load(ctx, in.FileKey)
	if err != nil {
		return domain.ImportBatch{}, err
	}

	selected, err := selectRows(report, in.RowNumbers)
	if err != nil {
		return domain.ImportBatch{}, err
	}

	started := uc.now()
	batch, err := domain.NewImportBatch(domain.NewImportBatchInput{
		ID:           uc.newID(),
		FileName:     report.FileName,
		FileSize:     report.FileSize,
		SourceHandle: report.FileHandle,
		UploadedBy:   in.UploadedBy,
		TotalRows:    report.TotalRows,
	}, started)
	if err != nil {
		return domain.ImportBatch{}, err
	}

	claimed, err := uc.previews.Claim(ctx, report.FileKey)
	if err != nil {
		return domain.ImportBatch{}, errors.Wrap(err, "claim preview")
	}
	if !claimed {
		return domain.ImportBatch{}, ErrPreviewConsumed
	}
	ctx = context.WithoutCancel(ctx)

	if batch, err = uc.batches.Create(ctx, batch); err != nil {
		if releaseErr := uc.previews.Release(ctx, report.FileKey); releaseErr != nil {
			uc.logger.WithError(releaseErr).WithField("file_key", report.FileKey).Error("release preview claim failed")
		}
		return domain.ImportBatch{}, fmt.Errorf("%w: create batch: %v", ErrSystemFailure, err)
	}
	log := uc.logger.WithField("batch_id", batch.ID)

	if err := uc.batches.Start(ctx, batch.ID); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return batch, ErrBatchFinished
		}
		return uc.abort(ctx, log, batch, errors.Wrap(err, "start batch"))
	}

	for _, row := range report.Rows {
		var rowErr error
		switch {
		case selected[row.RowNumber]:
			rowErr = uc.importRow(ctx, log, batch.ID, row)
		case !row.Valid:
			rowErr = uc.skip(ctx, batch.ID, row.Duplicate, &domain.ImportError{
				RowNumber:     row.RowNumber,
				SubmittedData: row.Data,
				Message:       truncateReason(strings.Join(row.Errors, "; ")),
			})
		default:
			rowErr = uc.skip(ctx, batch.ID, false, nil)
		}
		if rowErr != nil {
			return uc.abort(ctx, log, batch, rowErr)
		}
	}

	finished, err := uc.batches.Finish(ctx, batch.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return batch, ErrBatchFinished
		}
		return uc.abort(ctx, log, batch, errors.Wrap(err, "finish batch"))
	}

	metrics.ObserveBatch(string(finished.Status), uc.now().Sub(started))
	log.WithFields(logrus.Fields{
		"status":    finished.Status,
		"success":   finished.Counters.SuccessCount,
		"failed":    finished.Counters.FailedCount,
		"skipped":   finished.Counters.SkippedCount,
		"duplicate": finished.Counters.DuplicateCount,
	}).Info("import batch finished")
	return finished, nil
}

// importRow returns only system errors. A row the store rejects is recorded
// as a failure and the walk goes on.
func (uc *commitMembers) importRow(ctx context.Context, log logrus.FieldLogger, batchID string, row domain.PreviewRow) error {
	memberID := uc.newID()
	member, err := domain.NewMember(domain.NewMemberInput{
		ID:            memberID,
		UserID:        uc.newID(),
		MemberNumber:  domain.NormalizeMemberNumber(row.Data[domain.ColumnMemberNumber]),
		Email:         row.Data[domain.ColumnEmail],
		FullName:      row.Data[domain.ColumnFullName],
		Phone:         row.Data[domain.ColumnPhone],
		References:    row.References,
		ImportBatchID: batchID,
		SourceRow:     row.RowNumber,
	})
	if err == nil {
		member, err = uc.members.Create(ctx, member)
	}
	if err != nil {
		if !isRowError(err) {
			return errors.Wrapf(err, "write row %d", row.RowNumber)
		}
		log.WithError(err).WithField("row", row.RowNumber).Warn("import row rejected")
		metrics.ObserveCommitRow("failed")
		return uc.batches.RecordFailure(ctx, batchID, domain.ImportError{
			RowNumber:     row.RowNumber,
			SubmittedData: row.Data,
			Message:       truncateReason(err.Error()),
		})
	}

	if err := uc.batches.RecordSuccess(ctx, batchID); err != nil {
		return err
	}
	metrics.ObserveCommitRow("success")

	if _, err := uc.issuer.IssueFor(ctx, member); err != nil {
		return errors.Wrapf(err, "issue activation token for row %d", row.RowNumber)
	}
	return nil
}

func (uc *commitMembers) skip(ctx context.Context, batchID string, duplicate bool, entry *domain.ImportError) error {
	if duplicate {
		metrics.ObserveCommitRow("duplicate")
	} else {
		metrics.ObserveCommitRow("skipped")
	}
	return uc.batches.RecordSkipped(ctx, batchID, duplicate, entry)
}

func (uc *commitMembers) abort(ctx context.Context, log logrus.FieldLogger, batch domain.ImportBatch, cause error) (domain.ImportBatch, error) {
	log.WithError(cause).Error("import batch aborted")

	aborted, err := uc.batches.Abort(ctx, batch.ID, truncateReason(cause.Error()))
	if err != nil {
		log.WithError(err).Error("mark aborted batch failed")
		aborted = batch
	} else {
		metrics.ObserveBatch(string(aborted.Status), uc.now().Sub(batch.CreatedAt))
	}
	return aborted, fmt.Errorf("%w: %v", ErrSystemFailure, cause)
}

func isRowError(err error) bool {
	return errors.Is(err, domain.ErrDuplicateMember) ||
		errors.Is(err, domain.ErrMemberRejected) ||
		errors.Is(err, domain.ErrInvalidEmail) ||
		errors.Is(err, domain.ErrMissingFullName)
}

// selectRows checks an operator selection against the preview. Nil selects
// every valid row.
func selectRows(report domain.PreviewReport, rowNumbers []int) (map[int]bool, error) {
	selected := make(map[int]bool, len(report.Rows))
	if rowNumbers == nil {
		for _, row := range report.Rows {
			if row.Valid {
				selected[row.RowNumber] = true
			}
		}
		return selected, nil
	}

	sorted := append([]int(nil), rowNumbers...)
	sort.Ints(sorted)
	for _, n := range sorted {
		row, ok := report.Row(n)
		if !ok {
			return nil, fmt.Errorf("%w: row %d", ErrUnknownRow, n)
		}
		if !row.Valid {
			return nil, fmt.Errorf("%w: row %d", ErrInvalidRowSelected, n)
		}
		selected[n] = true
	}
	return selected, nil
}

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	n := maxReasonLength
	for n > 0 && !utf8.RuneStart(reason[n]) {
		n--
	}
	return reason[:n]
}
