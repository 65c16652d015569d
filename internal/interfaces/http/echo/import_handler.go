package echo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

// ImportHistory is the read side of the import log used by the handler.
type ImportHistory interface {
	List(ctx context.Context, in app.ListImportsInput) (app.ListImportsOutput, error)
	Get(ctx context.Context, id string) (domain.ImportBatch, error)
	ExportErrors(ctx context.Context, id, format string, w io.Writer) (app.ErrorReportWriter, error)
	OpenSource(ctx context.Context, id string) (io.ReadCloser, string, error)
}

type ImportHandler struct {
	preview app.PreviewMembers
	commit  app.CommitMembers
	history ImportHistory
	logger  logrus.FieldLogger
}

type commitRequest struct {
	FileKey    string `json:"file_key"`
	UploadedBy string `json:"uploaded_by"`
	Rows       []int  `json:"rows"`
}

func NewImportHandler(preview app.PreviewMembers, commit app.CommitMembers, history ImportHistory, logger logrus.FieldLogger) *ImportHandler {
	return &ImportHandler{preview: preview, commit: commit, history: history, logger: logger}
}

func (h *ImportHandler) Preview(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "multipart field \"file\" is required")
	}
	file, err := header.Open()
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "uploaded file could not be read")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "uploaded file could not be read")
	}

	report, err := h.preview.Execute(c.Request().Context(), app.PreviewInput{
		FileName:   header.Filename,
		Data:       data,
		UploadedBy: c.FormValue("uploaded_by"),
	})
	if err != nil {
		return h.previewError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: report})
}

func (h *ImportHandler) previewError(c echo.Context, err error) error {
	var (
		sizeErr   *domain.SizeLimitError
		rowErr    *domain.RowLimitError
		formatErr *domain.FormatError
	)
	switch {
	case errors.As(err, &sizeErr):
		return respondError(c, http.StatusRequestEntityTooLarge, "file_too_large", err.Error())
	case errors.As(err, &rowErr):
		return respondError(c, http.StatusUnprocessableEntity, "too_many_rows", err.Error())
	case errors.As(err, &formatErr):
		return respondError(c, http.StatusBadRequest, "invalid_file", err.Error())
	case errors.Is(err, app.ErrReferenceUnavailable), errors.Is(err, app.ErrStoreUpload):
		h.logger.WithError(err).Error("preview failed")
		return respondError(c, http.StatusServiceUnavailable, "system_error", "import is temporarily unavailable")
	}
	h.logger.WithError(err).Error("preview failed")
	return internalError(c, "failed to build preview")
}

func (h *ImportHandler) Commit(c echo.Context) error {
	var req commitRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	batch, err := h.commit.Execute(c.Request().Context(), app.CommitInput{
		FileKey:    req.FileKey,
		UploadedBy: req.UploadedBy,
		RowNumbers: req.Rows,
	})
	if err == nil {
		return c.JSON(http.StatusCreated, apiResponse{Data: batch})
	}

	switch {
	case errors.Is(err, domain.ErrPreviewNotFound):
		return respondError(c, http.StatusNotFound, "preview_not_found", "preview not found or expired; upload the file again")
	case errors.Is(err, app.ErrUnknownRow), errors.Is(err, app.ErrInvalidRowSelected):
		return respondError(c, http.StatusUnprocessableEntity, "invalid_selection", err.Error())
	case errors.Is(err, domain.ErrMissingUploader):
		return respondError(c, http.StatusBadRequest, "missing_uploader", "uploaded_by is required")
	case errors.Is(err, app.ErrPreviewConsumed):
		return respondError(c, http.StatusConflict, "preview_consumed", "this preview was already committed")
	case errors.Is(err, app.ErrBatchFinished):
		return respondError(c, http.StatusConflict, "batch_finished", "import batch already finished")
	case errors.Is(err, app.ErrSystemFailure):
		h.logger.WithError(err).WithField("batch_id", batch.ID).Error("commit aborted")
		return c.JSON(http.StatusServiceUnavailable, apiResponse{
			Data:  batchOrNil(batch),
			Error: &errorBody{Code: "system_error", Message: "import aborted by a system error"},
		})
	}
	h.logger.WithError(err).Error("commit failed")
	return internalError(c, "failed to commit import")
}

func batchOrNil(batch domain.ImportBatch) any {
	if batch.ID == "" {
		return nil
	}
	return batch
}

func (h *ImportHandler) List(c echo.Context) error {
	in := app.ListImportsInput{
		Status: c.QueryParam("status"),
		Kind:   c.QueryParam("kind"),
	}

	var err error
	if in.From, err = parseTimeParam(c.QueryParam("from")); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "from must be a date or RFC 3339 time")
	}
	if in.To, err = parseTimeParam(c.QueryParam("to")); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "to must be a date or RFC 3339 time")
	}
	if in.Limit, err = parseIntParam(c.QueryParam("limit")); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "limit must be an integer")
	}
	if in.Offset, err = parseIntParam(c.QueryParam("offset")); err != nil {
		return respondError(c, http.StatusBadRequest, "bad_request", "offset must be an integer")
	}

	out, err := h.history.List(c.Request().Context(), in)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownImportStatus) {
			return respondError(c, http.StatusBadRequest, "invalid_status", err.Error())
		}
		h.logger.WithError(err).Error("list imports failed")
		return internalError(c, "failed to list imports")
	}
	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *ImportHandler) Get(c echo.Context) error {
	batch, err := h.history.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.batchError(c, err)
	}
	return c.JSON(http.StatusOK, apiResponse{Data: batch})
}

func (h *ImportHandler) ExportErrors(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	var buf bytes.Buffer
	writer, err := h.history.ExportErrors(c.Request().Context(), c.Param("id"), format, &buf)
	if err != nil {
		if errors.Is(err, app.ErrUnknownReportFormat) {
			return respondError(c, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx")
		}
		return h.batchError(c, err)
	}

	name := fmt.Sprintf("import-%s-errors.%s", c.Param("id"), writer.Extension())
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return c.Blob(http.StatusOK, writer.ContentType(), buf.Bytes())
}

func (h *ImportHandler) DownloadSource(c echo.Context) error {
	rc, name, err := h.history.OpenSource(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrSourceUnavailable) {
			return respondError(c, http.StatusNotFound, "source_unavailable", "the uploaded file is no longer available")
		}
		return h.batchError(c, err)
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return c.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (h *ImportHandler) batchError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, app.ErrInvalidImportID):
		return respondError(c, http.StatusBadRequest, "invalid_import_id", "id must be a valid UUID")
	case errors.Is(err, domain.ErrImportNotFound):
		return respondError(c, http.StatusNotFound, "not_found", "import not found")
	}
	h.logger.WithError(err).Error("import lookup failed")
	return internalError(c, "failed to get import")
}

func parseTimeParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseIntParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
