package server

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"curiousqa/internal/testutil"
	"curiousqa/pkg/cache"
	"curiousqa/pkg/config"
	"curiousqa/pkg/errors"
	"curiousqa/pkg/export"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/metrics"
	"curiousqa/pkg/scraper"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stubExporter struct {
	buf   []byte
	err   error
	calls []string
	ctx   context.Context
}

func (s *stubExporter) Export(ctx context.Context, username string) (*bytes.Buffer, error) {
	s.calls = append(s.calls, username)
	s.ctx = ctx
	if s.err != nil {
		return nil, s.err
	}
	return bytes.NewBuffer(s.buf), nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.CuriousCat.PageDelay = 0
	cfg.CuriousCat.RequestTimeout = 5 * time.Second
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, exp Exporter) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	srv, err := New(cfg, exp, metrics.New(cfg.Metrics, reg), reg, logger.NewNopLogger())
	require.NoError(t, err)
	return srv, reg
}

func postForm(h http.Handler, values url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, DownloadPath, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestIndexRendersForm(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubExporter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="user_input"`)
	assert.Contains(t, body, `action="/download/"`)
	assert.Contains(t, body, `method="post"`)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubExporter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDownloadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
	}{
		{"missing field", url.Values{}},
		{"empty", url.Values{FormField: {""}}},
		{"whitespace", url.Values{FormField: {"   "}}},
		{"path traversal", url.Values{FormField: {"../etc"}}},
		{"too long", url.Values{FormField: {strings.Repeat("a", 200)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := &stubExporter{}
			srv, _ := newTestServer(t, testConfig(), exp)

			rec := postForm(srv.Handler(), tt.values)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, exp.calls)
		})
	}
}

func TestDownloadMapsExportErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"upstream status", errors.Status(503), http.StatusBadGateway},
		{"upstream network", errors.Network(io.ErrUnexpectedEOF), http.StatusBadGateway},
		{"malformed body", errors.Parsing(200, io.ErrUnexpectedEOF), http.StatusBadGateway},
		{"timeout", errors.Timeout(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"storage", errors.Storage(io.ErrClosedPipe), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, testConfig(), &stubExporter{err: tt.err})

			rec := postForm(srv.Handler(), url.Values{FormField: {"alice"}})

			assert.Equal(t, tt.status, rec.Code)
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
			assert.NotContains(t, rec.Header().Get("Content-Type"), "spreadsheet")
		})
	}
}

func TestDownloadNormalizesUsername(t *testing.T) {
	exp := &stubExporter{buf: []byte("PK")}
	srv, _ := newTestServer(t, testConfig(), exp)

	rec := postForm(srv.Handler(), url.Values{FormField: {" @alice/ "}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice"}, exp.calls)
	assert.Equal(t, "attachment; filename=alice_questions_answers.xlsx", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "2", rec.Header().Get("Content-Length"))
}

func TestDownloadAppliesRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RequestTimeout = time.Minute
	exp := &stubExporter{buf: []byte("PK")}
	srv, _ := newTestServer(t, cfg, exp)

	postForm(srv.Handler(), url.Values{FormField: {"alice"}})

	require.NotNil(t, exp.ctx)
	_, ok := exp.ctx.Deadline()
	assert.True(t, ok)
}

func TestDownloadEndToEnd(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.AddPosts("alice",
		testutil.Post{Question: "What is your favorite color?", Answer: "Blue", Timestamp: 1700000200},
		testutil.Post{Question: "Cats or dogs?", Answer: "Cats", Timestamp: 1700000100},
	)

	cfg := testConfig()
	cfg.CuriousCat.BaseURL = api.URL()
	cfg.Cache.Directory = t.TempDir()

	log := logger.NewNopLogger()
	store, err := cache.New(cfg.Cache, log)
	require.NoError(t, err)
	defer store.Close()

	reg := prometheus.NewRegistry()
	rec := metrics.New(cfg.Metrics, reg)
	srv, err := New(cfg, scraper.New(cfg, store, rec, log), rec, reg, log)
	require.NoError(t, err)

	resp := postForm(srv.Handler(), url.Values{FormField: {"alice"}})

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, export.ContentType, resp.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=alice_questions_answers.xlsx", resp.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, resp.Header().Get(RequestIDHeader))

	f, err := excelize.OpenReader(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Question", "Answer"},
		{"What is your favorite color?", "Blue"},
		{"Cats or dogs?", "Cats"},
	}, rows)
	assert.Len(t, api.Cursors("alice"), 2)
}

func TestDownloadUpstreamFailureEndToEnd(t *testing.T) {
	api := testutil.NewFakeAPI()
	defer api.Close()
	api.FailAfter("bob", 0, http.StatusServiceUnavailable, "down")

	cfg := testConfig()
	cfg.CuriousCat.BaseURL = api.URL()
	cfg.Cache.Directory = t.TempDir()

	log := logger.NewNopLogger()
	store, err := cache.New(cfg.Cache, log)
	require.NoError(t, err)
	defer store.Close()

	srv, err := New(cfg, scraper.New(cfg, store, nil, log), nil, nil, log)
	require.NoError(t, err)

	resp := postForm(srv.Handler(), url.Values{FormField: {"bob"}})

	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Empty(t, resp.Header().Get("Content-Disposition"))
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubExporter{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubExporter{})
	h := srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `curiousqa_http_requests_total{route="/healthz",status="2xx"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Metrics.Enabled = false
	srv, _ := newTestServer(t, cfg, &stubExporter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadRequiresPost(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(), &stubExporter{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download/", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDownloadAcceptsMultipartForm(t *testing.T) {
	exp := &stubExporter{buf: []byte("xlsx")}
	srv, _ := newTestServer(t, testConfig(), exp)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(FormField, " @alice/ "))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, DownloadPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"alice"}, exp.calls)
	assert.Equal(t, "xlsx", rec.Body.String())
}

func TestDownloadRejectsOversizedMultipart(t *testing.T) {
	exp := &stubExporter{buf: []byte("xlsx")}
	srv, _ := newTestServer(t, testConfig(), exp)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField(FormField, "alice"))
	require.NoError(t, mw.WriteField("padding", strings.Repeat("x", 2*maxFormSize)))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, DownloadPath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, exp.calls)
}
