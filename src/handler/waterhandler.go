package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"
	"github.com/ARahim900/muscatbay-sub004/src/service"
	"github.com/ARahim900/muscatbay-sub004/src/tools"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var monthPattern = regexp.MustCompile(`^(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)-\d{2}$`)

var ErrJobNotFound = errors.New("job not found")

type Importer interface {
	Import(ctx context.Context, req service.ImportRequest) service.ImportResult
}

type Reporter interface {
	Report(ctx context.Context, year int) (entity.LossReport, error)
	Export(ctx context.Context, year int) ([]byte, error)
}

type JobStore interface {
	Job(id int64) (entity.ImportJobEntity, []entity.ImportErrorRowEntity, error)
}

// Enqueuer hands a saved file to the worker pool and returns its job id.
type Enqueuer func(path, month string, year int) (int64, error)

type WaterHandler struct {
	Importer Importer
	Reporter Reporter
	Jobs     JobStore
	Enqueue  Enqueuer
	InboxDir string
}

type jobResponse struct {
	Job    entity.ImportJobEntity `json:"job"`
	Errors []string               `json:"errors"`
}

// NewRouter registers the water API, health and metrics routes.
func NewRouter(h *WaterHandler) *gin.Engine {
	r := gin.New()
	r.Use(tools.Recover, tools.RequestLogger)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/water")
	api.POST("/import", h.Import)
	api.GET("/losses", h.Losses)
	api.GET("/losses/export", h.ExportLosses)
	api.GET("/jobs/:id", h.Job)
	return r
}

// Import handles a multipart upload. With async=true the file is saved to the
// inbox and queued; otherwise it is imported before responding.
func (h *WaterHandler) Import(c *gin.Context) {
	month := c.PostForm("month")
	if !monthPattern.MatchString(month) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "month must look like Jan-26"})
		return
	}
	year, err := strconv.Atoi(c.PostForm("year"))
	if err != nil || year < 2000 || year > 2099 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "year must be a four digit year"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Query("async") == "true" {
		h.enqueue(c, fh.Filename, content, month, year)
		return
	}

	files := []service.ImportFile{{Name: fh.Filename, Content: content}}
	if service.IZipProcessService.IsZip(fh.Filename) {
		if files, err = service.IZipProcessService.ExtractImportFiles(content); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	result := service.ImportResult{Errors: []string{}}
	for _, file := range files {
		r := h.Importer.Import(c.Request.Context(), service.ImportRequest{
			FileName: file.Name,
			Content:  file.Content,
			Month:    month,
			Year:     year,
		})
		result.Parsed += r.Parsed
		result.Imported += r.Imported
		result.Skipped += r.Skipped
		result.Errors = append(result.Errors, r.Errors...)
		result.Success = result.Success || r.Success
		if result.StoragePath == "" {
			result.StoragePath = r.StoragePath
		}
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, result)
}

func (h *WaterHandler) enqueue(c *gin.Context, name string, content []byte, month string, year int) {
	if h.Enqueue == nil || h.InboxDir == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async import is not enabled"})
		return
	}
	if err := os.MkdirAll(h.InboxDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	path, err := filepath.Abs(filepath.Join(h.InboxDir, fmt.Sprintf("%s_%s", tools.NewUuid(), filepath.Base(name))))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	id, err := h.Enqueue(path, month, year)
	if err != nil {
		log.Logger.Warn("async import not queued", zap.String("file", path), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "job_id": id})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": id})
}

func (h *WaterHandler) Losses(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	report, err := h.Reporter.Report(c.Request.Context(), year)
	if err != nil {
		log.Logger.Error("loss report failed", zap.Int("year", year), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *WaterHandler) ExportLosses(c *gin.Context) {
	year, ok := yearQuery(c)
	if !ok {
		return
	}
	data, err := h.Reporter.Export(c.Request.Context(), year)
	if err != nil {
		log.Logger.Error("loss export failed", zap.Int("year", year), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := "water-losses.xlsx"
	if year > 0 {
		name = fmt.Sprintf("water-losses-%d.xlsx", year)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, xlsxContentType, data)
}

func (h *WaterHandler) Job(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}
	job, rows, err := h.Jobs.Job(id)
	if errors.Is(err, ErrJobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	resp := jobResponse{Job: job, Errors: []string{}}
	for _, r := range rows {
		resp.Errors = append(resp.Errors, r.Error)
	}
	c.JSON(http.StatusOK, resp)
}

// yearQuery reads ?year=, 0 meaning every year.
func yearQuery(c *gin.Context) (int, bool) {
	raw := c.Query("year")
	if raw == "" {
		return 0, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return 0, false
	}
	return year, true
}

// DBJobStore reads jobs through the job queue service.
type DBJobStore struct {
	DB *gorm.DB
}

func (s DBJobStore) Job(id int64) (entity.ImportJobEntity, []entity.ImportErrorRowEntity, error) {
	job, err := service.IJobQueueService.RetrieveQueue(id, s.DB)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return job, nil, ErrJobNotFound
	}
	if err != nil {
		return job, nil, err
	}
	rows, err := service.IJobQueueService.ListErrors(id, s.DB)
	return job, rows, err
}
