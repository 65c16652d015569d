package member

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-faster/errors"

	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// ErrorReportWriter renders a batch's error log in one download format.
type ErrorReportWriter interface {
	Write(w io.Writer, batch domain.ImportBatch) error
	ContentType() string
	Extension() string
}

type ListImportsInput struct {
	Status string
	Kind   string
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type ListImportsOutput struct {
	Items  []domain.ImportBatch `json:"items"`
	Total  int64                `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ImportHistory is the read side of the import log: listing, detail, the
// error report download and the original upload.
type ImportHistory struct {
	batches domain.ImportBatchRepository
	files   domain.FileStore
	formats map[string]ErrorReportWriter
}

func NewImportHistory(batches domain.ImportBatchRepository, files domain.FileStore, formats map[string]ErrorReportWriter) *ImportHistory {
	return &ImportHistory{batches: batches, files: files, formats: formats}
}

func (h *ImportHistory) List(ctx context.Context, in ListImportsInput) (ListImportsOutput, error) {
	filter := domain.ImportBatchFilter{
		Kind:   strings.TrimSpace(in.Kind),
		From:   in.From,
		To:     in.To,
		Limit:  in.Limit,
		Offset: in.Offset,
	}
	if strings.TrimSpace(in.Status) != "" {
		status, err := domain.ParseImportStatus(in.Status)
		if err != nil {
			return ListImportsOutput{}, err
		}
		filter.Status = &status
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, total, err := h.batches.List(ctx, filter)
	if err != nil {
		return ListImportsOutput{}, errors.Wrap(err, "list import batches")
	}
	return ListImportsOutput{Items: items, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (h *ImportHistory) Get(ctx context.Context, id string) (domain.ImportBatch, error) {
	if !uuidPattern.MatchString(id) {
		return domain.ImportBatch{}, ErrInvalidImportID
	}
	batch, err := h.batches.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrImportNotFound) {
			return domain.ImportBatch{}, err
		}
		return domain.ImportBatch{}, errors.Wrap(err, "get import batch")
	}
	return batch, nil
}

// ExportErrors writes the error log of batch id and returns the format used,
// so callers can set the download headers.
func (h *ImportHistory) ExportErrors(ctx context.Context, id, format string, w io.Writer) (ErrorReportWriter, error) {
	writer, ok := h.formats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, errors.Wrap(ErrUnknownReportFormat, format)
	}
	batch, err := h.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := writer.Write(w, batch); err != nil {
		return nil, errors.Wrap(err, "write error report")
	}
	return writer, nil
}

// OpenSource reopens the uploaded file of a batch. The caller closes the reader.
func (h *ImportHistory) OpenSource(ctx context.Context, id string) (io.ReadCloser, string, error) {
	batch, err := h.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if batch.SourceHandle == "" {
		return nil, "", ErrSourceUnavailable
	}
	rc, err := h.files.Open(ctx, batch.SourceHandle)
	if err != nil {
		return nil, "", errors.Wrap(ErrSourceUnavailable, err.Error())
	}
	return rc, filepath.Base(batch.FileName), nil
}
