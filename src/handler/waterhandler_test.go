package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/ARahim900/muscatbay-sub004/entity"
	"github.com/ARahim900/muscatbay-sub004/src/service"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeImporter struct {
	requests []service.ImportRequest
	result   service.ImportResult
}

func (f *fakeImporter) Import(_ context.Context, req service.ImportRequest) service.ImportResult {
	f.requests = append(f.requests, req)
	return f.result
}

type fakeReporter struct {
	year int
	err  error
}

func (f *fakeReporter) Report(_ context.Context, year int) (entity.LossReport, error) {
	f.year = year
	return entity.LossReport{Months: []string{"Jan-25"}}, f.err
}

func (f *fakeReporter) Export(_ context.Context, year int) ([]byte, error) {
	f.year = year
	return []byte("xlsx"), f.err
}

type fakeJobs struct {
	job  entity.ImportJobEntity
	rows []entity.ImportErrorRowEntity
	err  error
}

func (f *fakeJobs) Job(int64) (entity.ImportJobEntity, []entity.ImportErrorRowEntity, error) {
	return f.job, f.rows, f.err
}

func multipartRequest(t *testing.T, url string, fields map[string]string, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if fileName != "" {
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write(content)
	}
	w.Close()
	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h *WaterHandler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	NewRouter(h).ServeHTTP(rec, req)
	return rec
}

func TestImportSync(t *testing.T) {
	importer := &fakeImporter{result: service.ImportResult{Success: true, Parsed: 2, Imported: 2, Errors: []string{}}}
	h := &WaterHandler{Importer: importer}

	req := multipartRequest(t, "/api/water/import", map[string]string{"month": "Jan-26", "year": "2026"}, "jan.csv", []byte("acct #,day 1\n1,2\n"))
	rec := serve(h, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var res service.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Success || res.Imported != 2 {
		t.Fatalf("unexpected body %+v", res)
	}
	if len(importer.requests) != 1 || importer.requests[0].Month != "Jan-26" || importer.requests[0].Year != 2026 || importer.requests[0].FileName != "jan.csv" {
		t.Fatalf("unexpected import request %+v", importer.requests)
	}
}

func TestImportUnsuccessfulIs422(t *testing.T) {
	importer := &fakeImporter{result: service.ImportResult{Errors: []string{service.NoRowsMessage}}}
	req := multipartRequest(t, "/api/water/import", map[string]string{"month": "Jan-26", "year": "2026"}, "jan.csv", []byte("x"))
	if rec := serve(&WaterHandler{Importer: importer}, req); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestImportValidation(t *testing.T) {
	cases := []struct {
		name   string
		fields map[string]string
		file   string
		want   string
	}{
		{"bad month", map[string]string{"month": "January", "year": "2026"}, "a.csv", "month must look like Jan-26"},
		{"bad year", map[string]string{"month": "Jan-26", "year": "26"}, "a.csv", "year must be a four digit year"},
		{"no file", map[string]string{"month": "Jan-26", "year": "2026"}, "", "file is required"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			importer := &fakeImporter{}
			rec := serve(&WaterHandler{Importer: importer}, multipartRequest(t, "/api/water/import", c.fields, c.file, []byte("x")))
			if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), c.want) {
				t.Fatalf("expected 400 %q, got %d %s", c.want, rec.Code, rec.Body.String())
			}
			if len(importer.requests) != 0 {
				t.Fatalf("importer should not run")
			}
		})
	}
}

func TestImportAsync(t *testing.T) {
	dir := t.TempDir()
	var queuedPath string
	h := &WaterHandler{
		Importer: &fakeImporter{},
		InboxDir: dir,
		Enqueue: func(path, month string, year int) (int64, error) {
			queuedPath = path
			return 7, nil
		},
	}
	req := multipartRequest(t, "/api/water/import?async=true", map[string]string{"month": "Feb-26", "year": "2026"}, "feb.csv", []byte("data"))
	rec := serve(h, req)

	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), `"job_id":7`) {
		t.Fatalf("expected 202 with job id, got %d %s", rec.Code, rec.Body.String())
	}
	if !strings.HasSuffix(queuedPath, "_feb.csv") {
		t.Fatalf("unexpected queued path %q", queuedPath)
	}
	data, err := os.ReadFile(queuedPath)
	if err != nil || string(data) != "data" {
		t.Fatalf("saved file mismatch: %q %v", data, err)
	}
}

func TestImportAsyncDisabled(t *testing.T) {
	req := multipartRequest(t, "/api/water/import?async=true", map[string]string{"month": "Feb-26", "year": "2026"}, "feb.csv", []byte("data"))
	if rec := serve(&WaterHandler{Importer: &fakeImporter{}}, req); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestLosses(t *testing.T) {
	reporter := &fakeReporter{}
	h := &WaterHandler{Reporter: reporter}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/losses?year=2025", nil))
	if rec.Code != http.StatusOK || reporter.year != 2025 || !strings.Contains(rec.Body.String(), `"months":["Jan-25"]`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/losses?year=abc", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad year, got %d", rec.Code)
	}

	reporter.err = errors.New("db down")
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/losses", nil)); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestExportLosses(t *testing.T) {
	rec := serve(&WaterHandler{Reporter: &fakeReporter{}}, httptest.NewRequest(http.MethodGet, "/api/water/losses/export?year=2025", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "xlsx" {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="water-losses-2025.xlsx"` {
		t.Fatalf("unexpected disposition %q", got)
	}
	if rec.Header().Get("Content-Type") != xlsxContentType {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
}

func TestJob(t *testing.T) {
	jobs := &fakeJobs{
		job:  entity.ImportJobEntity{ID: 3, Status: entity.JobStatusSuccess},
		rows: []entity.ImportErrorRowEntity{{Error: "Batch 2: timeout"}},
	}
	h := &WaterHandler{Jobs: jobs}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/jobs/3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Job.ID != 3 || len(body.Errors) != 1 || body.Errors[0] != "Batch 2: timeout" {
		t.Fatalf("unexpected body %+v", body)
	}

	jobs.err = ErrJobNotFound
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/jobs/3", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/water/jobs/x", nil)); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	if rec := serve(&WaterHandler{}, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
