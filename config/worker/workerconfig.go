package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/database"
	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"
	"github.com/ARahim900/muscatbay-sub004/src/service"
	"github.com/ARahim900/muscatbay-sub004/src/tools"

	"go.uber.org/zap"
)

var ErrQueueFull = errors.New("job queue full")

// QueueFileJob represents a file to import
type QueueFileJob struct {
	JobID int64
	Path  string
}

// jobQueue holds files to import
var jobQueue chan QueueFileJob

var archiveDir string

// queued holds paths sitting in jobQueue so rescans do not add them twice
var queued sync.Map

// StartWorkerPool launches N workers that import files one at a time each.
// Imported files are moved to archive when it is set.
func StartWorkerPool(numWorkers, queueSize int, archive string) {
	jobQueue = make(chan QueueFileJob, queueSize)
	archiveDir = archive

	for i := 0; i < numWorkers; i++ {
		go worker(i)
	}

	log.Logger.Info("Worker pool started", zap.Int("numWorkers", numWorkers))
}

// worker picks jobs from the queue and imports them
func worker(id int) {
	log.Logger.Info("Worker started", zap.Int("id", id))
	db := database.GetDB()

	for job := range jobQueue {
		log.Logger.Info("Picked job from queue", zap.Int("worker", id), zap.String("file", job.Path))

		jobRecord, err := service.IJobQueueService.RetrieveQueue(job.JobID, db)
		if err != nil {
			log.Logger.Error("Failed to load job record, skipping job", zap.Int64("job", job.JobID), zap.Error(err))
			continue
		}

		// Mark job in progress
		if err := service.IJobQueueService.InProgressQueue(jobRecord, db); err != nil {
			log.Logger.Error("Failed to update job to in_progress, skipping job", zap.String("file", job.Path), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		// a panicking or timed out import fails only its own job
		var result, out service.ImportResult
		var outErr error
		processErr := tools.NewPanicGroup().Go(func() {
			out, outErr = importFile(ctx, jobRecord)
		}).Wait(ctx)
		if processErr == nil {
			result, processErr = out, outErr
		}
		cancel()

		// Update job record on completion
		service.IJobQueueService.HandleEndQueue(jobRecord, result, processErr, db)
		if processErr == nil {
			archiveFile(job.Path)
		}
		queued.Delete(job.Path)
	}
}

// importFile imports a csv/tsv file, or every such entry of a zip file.
func importFile(ctx context.Context, job entity.ImportJobEntity) (service.ImportResult, error) {
	content, err := os.ReadFile(job.FilePath)
	if err != nil {
		return service.ImportResult{}, fmt.Errorf("read %s: %w", job.FilePath, err)
	}

	files := []service.ImportFile{{Name: filepath.Base(job.FilePath), Content: content}}
	if service.IZipProcessService.IsZip(job.FilePath) {
		if files, err = service.IZipProcessService.ExtractImportFiles(content); err != nil {
			return service.ImportResult{}, err
		}
	}

	var total service.ImportResult
	total.Errors = []string{}
	for _, f := range files {
		r := service.IImportService.Import(ctx, service.ImportRequest{
			FileName: f.Name,
			Content:  f.Content,
			Month:    job.Month,
			Year:     job.Year,
		})
		total.Parsed += r.Parsed
		total.Imported += r.Imported
		total.Skipped += r.Skipped
		total.Errors = append(total.Errors, r.Errors...)
		total.Success = total.Success || r.Success
	}
	return total, nil
}

func archiveFile(path string) {
	if archiveDir == "" {
		return
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		log.Logger.Error("Failed to create archive dir", zap.String("dir", archiveDir), zap.Error(err))
		return
	}
	dest := filepath.Join(archiveDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Logger.Error("Failed to archive file", zap.String("file", path), zap.Error(err))
	}
}

// EnqueueFile records a pending job for a file and hands it to the pool.
func EnqueueFile(filePath, month string, year int) (int64, error) {
	db := database.GetDB()
	job, err := service.IJobQueueService.InitQueue(filePath, month, year, db)
	if err != nil {
		log.Logger.Error("Failed to initialize job, not enqueuing", zap.String("file", filePath), zap.Error(err))
		return 0, err
	}
	if job.Status != entity.JobStatusPending {
		log.Logger.Debug("File already has a job", zap.String("file", filePath), zap.String("status", job.Status))
		return job.ID, nil
	}
	if _, loaded := queued.LoadOrStore(filePath, job.ID); loaded {
		return job.ID, nil
	}

	select {
	case jobQueue <- QueueFileJob{JobID: job.ID, Path: filePath}:
		log.Logger.Info("File enqueued", zap.String("file", filePath), zap.Int64("job", job.ID))
		return job.ID, nil
	default:
		queued.Delete(filePath)
		log.Logger.Warn("Job queue full, cannot enqueue file", zap.String("file", filePath))
		return job.ID, ErrQueueFull
	}
}
