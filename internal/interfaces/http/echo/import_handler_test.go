package echo_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
)

const importID = "0b7e4f5c-1f7a-4d2e-9c3b-5a6d7e8f9a0b"

func TestPreviewHandlerSuccess(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.preview.report = domain.PreviewReport{FileKey: "abc", TotalRows: 1, ValidRows: 1}

	rec := s.upload(t, "members.csv", "email,full_name\na@example.com,A\n", "operator-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report domain.PreviewReport
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &report))
	require.Equal(t, "abc", report.FileKey)

	require.Equal(t, "members.csv", s.preview.in.FileName)
	require.Equal(t, "operator-1", s.preview.in.UploadedBy)
	require.Equal(t, "email,full_name\na@example.com,A\n", string(s.preview.in.Data))
}

func TestPreviewHandlerInputErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "size", err: &domain.SizeLimitError{Size: 20, Limit: 10}, status: http.StatusRequestEntityTooLarge, code: "file_too_large"},
		{name: "rows", err: &domain.RowLimitError{Rows: 1001, Limit: 1000}, status: http.StatusUnprocessableEntity, code: "too_many_rows"},
		{name: "format", err: &domain.FormatError{Reason: "pdf"}, status: http.StatusBadRequest, code: "invalid_file"},
		{name: "references", err: fmt.Errorf("%w: timeout", app.ErrReferenceUnavailable), status: http.StatusServiceUnavailable, code: "system_error"},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError, code: "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, nil)
			s.preview.err = tc.err

			rec := s.upload(t, "members.csv", "x", "")
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestPreviewHandlerMissingFile(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	rec := s.postJSON("/api/v1/imports/members/preview", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitHandler(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.commit.batch = domain.ImportBatch{ID: importID, Status: domain.ImportCompleted}

	rec := s.postJSON("/api/v1/imports/members/commit", `{"file_key":"abc","uploaded_by":"op","rows":[1,2]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, app.CommitInput{FileKey: "abc", UploadedBy: "op", RowNumbers: []int{1, 2}}, s.commit.in)

	rec = s.postJSON("/api/v1/imports/members/commit", `{"file_key":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCommitHandlerErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "no preview", err: domain.ErrPreviewNotFound, status: http.StatusNotFound, code: "preview_not_found"},
		{name: "bad row", err: fmt.Errorf("%w: row 3", app.ErrInvalidRowSelected), status: http.StatusUnprocessableEntity, code: "invalid_selection"},
		{name: "consumed", err: app.ErrPreviewConsumed, status: http.StatusConflict, code: "preview_consumed"},
		{name: "uploader", err: domain.ErrMissingUploader, status: http.StatusBadRequest, code: "missing_uploader"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, nil)
			s.commit.err = tc.err

			rec := s.postJSON("/api/v1/imports/members/commit", `{"file_key":"abc","uploaded_by":"op"}`)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestCommitHandlerSystemFailureReturnsBatch(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.commit.batch = domain.ImportBatch{ID: importID, Status: domain.ImportFailed, SystemError: "db down"}
	s.commit.err = fmt.Errorf("%w: db down", app.ErrSystemFailure)

	rec := s.postJSON("/api/v1/imports/members/commit", `{"file_key":"abc","uploaded_by":"op"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	env := decode(t, rec)
	require.Equal(t, "system_error", env.Error.Code)

	var batch domain.ImportBatch
	require.NoError(t, json.Unmarshal(env.Data, &batch))
	require.Equal(t, importID, batch.ID)
	require.Equal(t, domain.ImportFailed, batch.Status)
}

func TestListImportsHandler(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.history.listOut = app.ListImportsOutput{Total: 1, Limit: 5}

	rec := s.get("/api/v1/imports?status=partial&kind=members&from=2026-01-01&to=2026-02-01T00:00:00Z&limit=5&offset=10")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "partial", s.history.listIn.Status)
	require.Equal(t, 5, s.history.listIn.Limit)
	require.Equal(t, 10, s.history.listIn.Offset)
	require.NotNil(t, s.history.listIn.From)
	require.NotNil(t, s.history.listIn.To)

	rec = s.get("/api/v1/imports?limit=ten")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.get("/api/v1/imports?from=yesterday")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	s.history.err = fmt.Errorf("%w: %q", domain.ErrUnknownImportStatus, "done")
	rec = s.get("/api/v1/imports?status=done")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_status", errorCode(t, rec))
}

func TestGetImportHandler(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.history.batch = domain.ImportBatch{ID: importID}
	rec := s.get("/api/v1/imports/" + importID)
	require.Equal(t, http.StatusOK, rec.Code)

	s.history.err = domain.ErrImportNotFound
	rec = s.get("/api/v1/imports/" + importID)
	require.Equal(t, http.StatusNotFound, rec.Code)

	s.history.err = app.ErrInvalidImportID
	rec = s.get("/api/v1/imports/nope")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExportErrorsHandler(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.history.report = "3:bad email\n"

	rec := s.get("/api/v1/imports/" + importID + "/errors?format=txt")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Header().Get("Content-Disposition"), "import-"+importID+"-errors.txt")
	require.Equal(t, "3:bad email\n", rec.Body.String())

	rec = s.get("/api/v1/imports/" + importID + "/errors?format=pdf")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_format", errorCode(t, rec))
}

func TestDownloadSourceHandler(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	s.history.source = "email,full_name\n"

	rec := s.get("/api/v1/imports/" + importID + "/source")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Disposition"), "members.csv")
	require.Equal(t, "email,full_name\n", rec.Body.String())

	s.history.err = app.ErrSourceUnavailable
	rec = s.get("/api/v1/imports/" + importID + "/source")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	s := newServer(t, nil)
	require.Equal(t, http.StatusOK, s.get("/healthz").Code)

	rec := s.get("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "go_goroutines")
}
