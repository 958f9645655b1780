package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicfo/internal/advice"
	"aicfo/internal/core"
	"aicfo/internal/extract"
	"aicfo/internal/services"
)

type fakePipeline struct {
	recorded  services.Recorded
	recordErr error
	gotUpload services.Upload

	imported     services.ImportResult
	importErr    error
	gotStatement string

	dashboard services.DashboardResult

	advice    string
	adviceErr error
}

func (f *fakePipeline) RecordReceipt(_ context.Context, up services.Upload) (services.Recorded, error) {
	f.gotUpload = up
	return f.recorded, f.recordErr
}

func (f *fakePipeline) ImportStatement(_ context.Context, text string) (services.ImportResult, error) {
	f.gotStatement = text
	return f.imported, f.importErr
}

func (f *fakePipeline) Dashboard(context.Context) services.DashboardResult { return f.dashboard }

func (f *fakePipeline) Advise(context.Context) (string, error) { return f.advice, f.adviceErr }

func coffee() core.Expense {
	return core.Expense{
		Date:     core.NewDate(2024, 1, 1),
		Store:    "Coffee Shop",
		Category: "Food",
		Amount:   decimal.NewFromInt(150),
		Summary:  "Coffee",
	}
}

func newTestServer(t *testing.T, p Pipeline, opts Options) *Server {
	t.Helper()
	s := NewServer(":0", p, opts)
	t.Cleanup(func() { s.rateLimiter.stop() })
	require.Len(t, s.pages, len(pageTitles), "templates must parse")
	return s
}

func multipartRequest(t *testing.T, path, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func htmx(req *http.Request) *http.Request {
	req.Header.Set("HX-Request", "true")
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler.ServeHTTP(rr, req)
	return rr
}

func TestRootRedirectsToReceipt(t *testing.T) {
	s := newTestServer(t, &fakePipeline{}, Options{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/receipt", rr.Header().Get("Location"))
}

func TestPagesRender(t *testing.T) {
	s := newTestServer(t, &fakePipeline{dashboard: services.DashboardResult{Status: services.DashboardEmpty}}, Options{})

	tests := []struct {
		path string
		want string
	}{
		{"/receipt", "Process Receipt"},
		{"/bulk", "Preview"},
		{"/dashboard", "No data yet."},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := serve(s, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), "<!doctype html>")
			assert.Contains(t, rr.Body.String(), tt.want)
			assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
			assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
			assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))
		})
	}
}

func TestReceiptUpload(t *testing.T) {
	p := &fakePipeline{recorded: services.Recorded{Expense: coffee(), RowRef: "Sheet1!A2:E2"}}
	s := newTestServer(t, p, Options{})

	rr := serve(s, htmx(multipartRequest(t, "/receipt", "receipt", "receipt.png", []byte("png bytes"))))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "<!doctype html>", "htmx gets the partial only")
	assert.Contains(t, body, `id="receipt-result"`)
	assert.Contains(t, body, "Coffee Shop")
	assert.Contains(t, body, "2024-01-01")
	assert.Contains(t, body, "₹150.00")
	assert.Contains(t, body, "Sheet1!A2:E2")
	assert.Equal(t, "receipt.png", p.gotUpload.Filename)
	assert.Equal(t, []byte("png bytes"), p.gotUpload.Data)
}

func TestReceiptUploadWithoutHTMXRendersPage(t *testing.T) {
	p := &fakePipeline{recorded: services.Recorded{Expense: coffee(), RowRef: "mem:1"}}
	s := newTestServer(t, p, Options{})

	rr := serve(s, multipartRequest(t, "/receipt", "receipt", "r.jpg", []byte("jpeg")))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<!doctype html>")
	assert.Contains(t, rr.Body.String(), "Coffee Shop")
}

func TestReceiptUploadErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"model failure", fmt.Errorf("extract receipt: %w: %w", extract.ErrModel, errors.New("quota exceeded")), http.StatusBadGateway},
		{"not json", &extract.ParseError{Raw: "sorry", Err: errors.New("invalid character")}, http.StatusUnprocessableEntity},
		{"bad field", &extract.ValidationError{Index: -1, Field: "total", Err: extract.ErrMissingField}, http.StatusUnprocessableEntity},
		{"unsupported image", extract.ErrUnsupportedImage, http.StatusUnprocessableEntity},
		{"ledger down", errors.New("save to ledger: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakePipeline{recordErr: tt.err}, Options{})

			rr := serve(s, htmx(multipartRequest(t, "/receipt", "receipt", "r.png", []byte("x"))))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), `class="error"`)
		})
	}
}

func TestReceiptUploadMissingFile(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(t, p, Options{})

	rr := serve(s, htmx(multipartRequest(t, "/receipt", "", "", nil)))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), errNoFile.Error())
	assert.Nil(t, p.gotUpload.Data, "pipeline must not be called")
}

func TestReceiptUploadTooLarge(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(t, p, Options{MaxUploadBytes: 1 << 10})

	rr := serve(s, htmx(multipartRequest(t, "/receipt", "receipt", "big.png", bytes.Repeat([]byte("a"), 4<<10))))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Nil(t, p.gotUpload.Data)
}

func TestBulkPreview(t *testing.T) {
	var csv strings.Builder
	csv.WriteString("Date,Description,Amount\n")
	for i := 1; i <= 7; i++ {
		fmt.Fprintf(&csv, "2024-01-0%d,Shop %d,%d0.00\n", i, i, i)
	}
	s := newTestServer(t, &fakePipeline{}, Options{})

	rr := serve(s, htmx(multipartRequest(t, "/bulk/preview", "statement", "jan.csv", []byte(csv.String()))))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "jan.csv: 7 rows")
	assert.Contains(t, body, `name="statement_text"`)
	// rows 1-5 appear in the table and in the hidden text, rows 6-7 only in the text
	assert.Equal(t, 2, strings.Count(body, "Shop 1"))
	assert.Equal(t, 2, strings.Count(body, "Shop 5"))
	assert.Equal(t, 1, strings.Count(body, "Shop 7"))
}

func TestBulkPreviewEmptyStatement(t *testing.T) {
	s := newTestServer(t, &fakePipeline{}, Options{})

	rr := serve(s, htmx(multipartRequest(t, "/bulk/preview", "statement", "empty.csv", []byte("Date,Amount\n"))))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Could not read the statement")
}

func TestBulkProcess(t *testing.T) {
	p := &fakePipeline{imported: services.ImportResult{
		BatchID:    "batch-1",
		Identified: 2,
		Appended:   []services.Recorded{{Expense: coffee(), RowRef: "mem:1"}},
		Failed: []services.ItemFailure{{
			Position: 2,
			Err:      &extract.ValidationError{Index: 1, Field: "total", Err: extract.ErrMissingField},
		}},
	}}
	s := newTestServer(t, p, Options{})

	form := url.Values{"statement_text": {"Date,Description,Amount\n2024-01-01,Coffee Shop,150\n"}}
	req := httptest.NewRequest(http.MethodPost, "/bulk/process", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(s, htmx(req))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Processed 1 of 2 transactions")
	assert.Contains(t, body, "Coffee Shop")
	assert.Contains(t, body, "Item 2")
	assert.Equal(t, "Date,Description,Amount\n2024-01-01,Coffee Shop,150", p.gotStatement)
}

func TestBulkProcessRequiresText(t *testing.T) {
	p := &fakePipeline{}
	s := newTestServer(t, p, Options{})

	req := httptest.NewRequest(http.MethodPost, "/bulk/process", strings.NewReader("statement_text=+"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(s, htmx(req))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, p.gotStatement)
}

func TestBulkProcessExtractionFailure(t *testing.T) {
	p := &fakePipeline{importErr: fmt.Errorf("extract statement: %w: %w", extract.ErrModel, errors.New("401 unauthorized"))}
	s := newTestServer(t, p, Options{})

	req := httptest.NewRequest(http.MethodPost, "/bulk/process", strings.NewReader("statement_text=a%2Cb"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := serve(s, htmx(req))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "401 unauthorized")
}

func TestDashboardStates(t *testing.T) {
	records := []core.Expense{
		{Date: core.NewDate(2024, 1, 1), Store: "Cafe", Category: "Food", Amount: decimal.NewFromInt(100)},
		{Date: core.NewDate(2024, 1, 2), Store: "Taxi", Category: "Travel", Amount: decimal.NewFromInt(50)},
	}
	tests := []struct {
		name    string
		result  services.DashboardResult
		want    []string
		notWant []string
	}{
		{
			name: "ready",
			result: services.DashboardResult{
				Status:   services.DashboardReady,
				Records:  records,
				Overview: core.Summarize(records),
			},
			want: []string{"₹150.00", "Food", "Travel", "width: 100%", "width: 50%", "Get Savings Advice"},
		},
		{
			name:    "empty",
			result:  services.DashboardResult{Status: services.DashboardEmpty},
			want:    []string{"No data yet."},
			notWant: []string{"Get Savings Advice"},
		},
		{
			name:    "unavailable",
			result:  services.DashboardResult{Status: services.DashboardUnavailable, Err: errors.New("dial tcp: secret host")},
			want:    []string{"Could not reach the ledger"},
			notWant: []string{"secret host", "No data yet."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakePipeline{dashboard: tt.result}, Options{})

			rr := serve(s, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

			assert.Equal(t, http.StatusOK, rr.Code)
			for _, w := range tt.want {
				assert.Contains(t, rr.Body.String(), w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, rr.Body.String(), w)
			}
		})
	}
}

func TestAdvice(t *testing.T) {
	tests := []struct {
		name       string
		advice     string
		err        error
		wantStatus int
		want       string
	}{
		{"advice", "1. Cook at home.", nil, http.StatusOK, "1. Cook at home."},
		{"no data", "", advice.ErrNoData, http.StatusOK, "No data yet."},
		{"model failure", "", fmt.Errorf("advice: %w", errors.New("quota exceeded")), http.StatusInternalServerError, "quota exceeded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, &fakePipeline{advice: tt.advice, adviceErr: tt.err}, Options{})

			rr := serve(s, htmx(httptest.NewRequest(http.MethodPost, "/dashboard/advice", nil)))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), `id="advice"`)
			assert.Contains(t, rr.Body.String(), tt.want)
		})
	}
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t, &fakePipeline{}, Options{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := serve(s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	}
}

func TestReadyWithoutTemplates(t *testing.T) {
	s := newTestServer(t, &fakePipeline{}, Options{})
	s.pages = nil

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "not_ready")
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t, &fakePipeline{}, Options{})

	rr := serve(s, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ".bar-track")
}

func TestPostsAreRateLimited(t *testing.T) {
	s := newTestServer(t, &fakePipeline{advice: "ok"}, Options{RateLimit: 2})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, serve(s, htmx(httptest.NewRequest(http.MethodPost, "/dashboard/advice", nil))).Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	rr := serve(s, httptest.NewRequest(http.MethodGet, "/receipt", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "GET requests are not limited")
}

func TestShutdownIsIdempotent(t *testing.T) {
	s := NewServer(":0", &fakePipeline{}, Options{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, s.Shutdown(ctx))
	assert.NoError(t, s.Shutdown(ctx))
}

func TestChartBars(t *testing.T) {
	ov := core.Summarize([]core.Expense{
		{Category: "Food", Amount: decimal.NewFromInt(200)},
		{Category: "Travel", Amount: decimal.NewFromInt(50)},
		{Category: "Fees", Amount: decimal.NewFromInt(1)},
		{Category: "Refunds", Amount: decimal.Zero},
	})

	bars := chartBars(ov)

	require.Len(t, bars, 4)
	assert.Equal(t, 100, bars[0].Width)
	assert.Equal(t, 25, bars[1].Width)
	assert.Equal(t, 2, bars[2].Width, "small amounts stay visible")
	assert.Equal(t, 0, bars[3].Width)
	assert.Equal(t, chartPalette[0], bars[0].Color)
	assert.Equal(t, chartPalette[1], bars[1].Color)
}
