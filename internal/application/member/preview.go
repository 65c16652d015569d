package member

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	"github.com/mohammadpnp/member-import/internal/metrics"
)

const defaultResolveWorkers = 8

type SheetReader interface {
	Read(data []byte, ext string) (domain.Sheet, error)
}

type PreviewInput struct {
	FileName   string
	Data       []byte
	UploadedBy string
}

type PreviewMembers interface {
	Execute(ctx context.Context, in PreviewInput) (domain.PreviewReport, error)
}

type PreviewConfig struct {
	ResolveWorkers int
}

type previewMembers struct {
	reader     SheetReader
	references domain.ReferenceSource
	members    domain.MemberQueryRepository
	previews   domain.PreviewStore
	files      domain.FileStore
	cfg        PreviewConfig
	logger     logrus.FieldLogger
}

func NewPreviewMembers(
	reader SheetReader,
	references domain.ReferenceSource,
	members domain.MemberQueryRepository,
	previews domain.PreviewStore,
	files domain.FileStore,
	cfg PreviewConfig,
	logger logrus.FieldLogger,
) PreviewMembers {
	if cfg.ResolveWorkers <= 0 {
		cfg.ResolveWorkers = defaultResolveWorkers
	}
	return &previewMembers{
		reader:     reader,
		references: references,
		members:    members,
		previews:   previews,
		files:      files,
		cfg:        cfg,
		logger:     logger,
	}
}

// Execute reads, resolves and validates an upload without touching import
// batches. The report is cached under the file's content hash so a later
// commit works on exactly these rows.
func (uc *previewMembers) Execute(ctx context.Context, in PreviewInput) (domain.PreviewReport, error) {
	ext := filepath.Ext(in.FileName)
	sheet, err := uc.reader.Read(in.Data, ext)
	if err != nil {
		metrics.ObservePreview("rejected")
		return domain.PreviewReport{}, err
	}

	resolver, err := LoadResolver(ctx, uc.references)
	if err != nil {
		metrics.ObservePreview("error")
		return domain.PreviewReport{}, err
	}

	resolved, err := resolveRows(ctx, resolver, sheet.Rows, uc.cfg.ResolveWorkers)
	if err != nil {
		metrics.ObservePreview("error")
		return domain.PreviewReport{}, err
	}

	emails, numbers := identifiers(sheet.Rows)
	existing, err := uc.members.FindExisting(ctx, emails, numbers)
	if err != nil {
		metrics.ObservePreview("error")
		return domain.PreviewReport{}, errors.Wrap(err, "find existing members")
	}

	report := AssemblePreview(resolved, existing)
	report.FileKey = FileKey(in.Data)
	report.FileName = filepath.Base(in.FileName)
	report.FileSize = int64(len(in.Data))

	handle, err := uc.files.Save(ctx, report.FileKey+ext, in.Data)
	if err != nil {
		metrics.ObservePreview("error")
		return domain.PreviewReport{}, fmt.Errorf("%w: %v", ErrStoreUpload, err)
	}
	report.FileHandle = handle

	if err := uc.previews.Save(ctx, report); err != nil {
		metrics.ObservePreview("error")
		return domain.PreviewReport{}, errors.Wrap(err, "save preview")
	}

	metrics.ObservePreview("ok")
	metrics.ObservePreviewRows(report.ValidRows, report.InvalidRows)
	uc.logger.WithFields(logrus.Fields{
		"file_key":     report.FileKey,
		"file_name":    report.FileName,
		"uploaded_by":  in.UploadedBy,
		"total_rows":   report.TotalRows,
		"invalid_rows": report.InvalidRows,
	}).Info("import preview assembled")

	return report, nil
}

// AssemblePreview validates resolved rows in file order and tallies the result.
func AssemblePreview(rows []domain.ResolvedRow, existing domain.ExistingIdentifiers) domain.PreviewReport {
	rowValidator := NewRowValidator(existing, NewDuplicateTracker())

	report := domain.PreviewReport{
		TotalRows: len(rows),
		Rows:      make([]domain.PreviewRow, 0, len(rows)),
	}
	for _, row := range rows {
		previewRow := rowValidator.Validate(row)
		if previewRow.Valid {
			report.ValidRows++
		} else {
			report.InvalidRows++
		}
		report.Rows = append(report.Rows, previewRow)
	}
	return report
}

func FileKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func resolveRows(ctx context.Context, resolver *Resolver, rows []domain.SheetRow, workers int) ([]domain.ResolvedRow, error) {
	resolved := make([]domain.ResolvedRow, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range rows {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resolved[i] = resolver.Resolve(rows[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func identifiers(rows []domain.SheetRow) (emails, numbers []string) {
	seenEmail := make(map[string]struct{}, len(rows))
	seenNumber := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.Blank {
			continue
		}
		if email := domain.NormalizeEmail(row.Get(domain.ColumnEmail)); email != "" {
			if _, ok := seenEmail[email]; !ok {
				seenEmail[email] = struct{}{}
				emails = append(emails, email)
			}
		}
		if number := domain.NormalizeMemberNumber(row.Get(domain.ColumnMemberNumber)); number != "" {
			if _, ok := seenNumber[number]; !ok {
				seenNumber[number] = struct{}{}
				numbers = append(numbers, number)
			}
		}
	}
	return emails, numbers
}
