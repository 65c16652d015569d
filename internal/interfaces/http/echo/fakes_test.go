package echo_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"

	app "github.com/mohammadpnp/member-import/internal/application/member"
	domain "github.com/mohammadpnp/member-import/internal/domain/member"
	httpecho "github.com/mohammadpnp/member-import/internal/interfaces/http/echo"
)

type fakePreview struct {
	in     app.PreviewInput
	report domain.PreviewReport
	err    error
}

func (f *fakePreview) Execute(ctx context.Context, in app.PreviewInput) (domain.PreviewReport, error) {
	f.in = in
	return f.report, f.err
}

type fakeCommit struct {
	in    app.CommitInput
	batch domain.ImportBatch
	err   error
}

func (f *fakeCommit) Execute(ctx context.Context, in app.CommitInput) (domain.ImportBatch, error) {
	f.in = in
	return f.batch, f.err
}

type fakeHistory struct {
	listIn  app.ListImportsInput
	listOut app.ListImportsOutput
	batch   domain.ImportBatch
	report  string
	source  string
	err     error
}

func (f *fakeHistory) List(ctx context.Context, in app.ListImportsInput) (app.ListImportsOutput, error) {
	f.listIn = in
	return f.listOut, f.err
}

func (f *fakeHistory) Get(ctx context.Context, id string) (domain.ImportBatch, error) {
	return f.batch, f.err
}

func (f *fakeHistory) ExportErrors(ctx context.Context, id, format string, w io.Writer) (app.ErrorReportWriter, error) {
	if f.err != nil {
		return nil, f.err
	}
	if format != "txt" {
		return nil, app.ErrUnknownReportFormat
	}
	_, err := io.WriteString(w, f.report)
	return textReport{}, err
}

func (f *fakeHistory) OpenSource(ctx context.Context, id string) (io.ReadCloser, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return io.NopCloser(bytes.NewBufferString(f.source)), "members.csv", nil
}

type textReport struct{}

func (textReport) Write(w io.Writer, batch domain.ImportBatch) error { return nil }
func (textReport) ContentType() string                              { return "text/plain" }
func (textReport) Extension() string                                { return "txt" }

type fakeActivation struct {
	token domain.ActivationToken
	stats domain.ActivationStats
	err   error
	calls int
}

func (f *fakeActivation) Activate(ctx context.Context, plain string) (domain.ActivationToken, error) {
	f.calls++
	return f.token, f.err
}

func (f *fakeActivation) Resend(ctx context.Context, memberID string) (domain.ActivationToken, error) {
	f.calls++
	return f.token, f.err
}

func (f *fakeActivation) Stats(ctx context.Context, batchID string) (domain.ActivationStats, error) {
	f.calls++
	return f.stats, f.err
}

type fakeGetMember struct {
	out app.GetMemberOutput
	err error
}

func (f *fakeGetMember) Execute(ctx context.Context, in app.GetMemberInput) (app.GetMemberOutput, error) {
	if f.err != nil {
		return app.GetMemberOutput{}, f.err
	}
	return f.out, nil
}

type server struct {
	echo       *echo.Echo
	preview    *fakePreview
	commit     *fakeCommit
	history    *fakeHistory
	activation *fakeActivation
	members    *fakeGetMember
}

func newServer(t *testing.T, activationLimiter *limiter.Limiter) *server {
	t.Helper()

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	s := &server{
		echo:       echo.New(),
		preview:    &fakePreview{},
		commit:     &fakeCommit{},
		history:    &fakeHistory{},
		activation: &fakeActivation{},
		members:    &fakeGetMember{},
	}
	s.echo.Use(httpecho.RequestLogger(logger))
	httpecho.RegisterRoutes(s.echo, httpecho.Handlers{
		Imports:     httpecho.NewImportHandler(s.preview, s.commit, s.history, logger),
		Activations: httpecho.NewActivationHandler(s.activation, logger),
		Members:     httpecho.NewMemberHandler(s.members),
	}, activationLimiter)
	return s
}

func (s *server) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *server) get(path string) *httptest.ResponseRecorder {
	return s.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (s *server) postJSON(path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return s.do(req)
}

func (s *server) upload(t *testing.T, name, content, uploadedBy string) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("uploaded_by", uploadedBy))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/members/preview", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return s.do(req)
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	env := decode(t, rec)
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}
