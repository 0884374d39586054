package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type JobQueueServiceImpl struct{}

// RetrieveQueue returns the job record with id
func (j *JobQueueServiceImpl) RetrieveQueue(id int64, db *gorm.DB) (entity.ImportJobEntity, error) {
	var job entity.ImportJobEntity
	err := db.First(&job, "id = ?", id).Error
	return job, err
}

// InitQueue creates a pending job for a file if the file has none yet
func (j *JobQueueServiceImpl) InitQueue(filePath, month string, year int, db *gorm.DB) (entity.ImportJobEntity, error) {
	job := entity.ImportJobEntity{
		FilePath: filePath,
		Status:   entity.JobStatusPending,
		Month:    month,
		Year:     year,
	}
	if err := db.FirstOrCreate(&job, entity.ImportJobEntity{FilePath: filePath}).Error; err != nil {
		log.Logger.Error("Failed to record job in DB", zap.String("file", filePath), zap.Error(err))
		return entity.ImportJobEntity{}, err
	}
	return job, nil
}

// InProgressQueue marks a job as in_progress
func (j *JobQueueServiceImpl) InProgressQueue(job entity.ImportJobEntity, db *gorm.DB) error {
	start := time.Now().UTC()
	if err := db.Model(&job).Updates(map[string]interface{}{
		"status":        entity.JobStatusInProgress,
		"started_at":    &start,
		"finished_at":   nil,
		"error_message": nil,
	}).Error; err != nil {
		log.Logger.Error("Failed to update job status to in_progress", zap.String("file", job.FilePath), zap.Error(err))
		return err
	}
	return nil
}

// HandleEndQueue stores the outcome of an import on its job. err covers
// failures before the import could run, such as an unreadable file.
func (j *JobQueueServiceImpl) HandleEndQueue(job entity.ImportJobEntity, result ImportResult, err error, db *gorm.DB) {
	finish := time.Now().UTC()

	updates := map[string]interface{}{
		"finished_at": &finish,
		"parsed":      result.Parsed,
		"imported":    result.Imported,
		"skipped":     result.Skipped,
	}

	switch {
	case err != nil:
		updates["status"] = entity.JobStatusFailed
		updates["error_message"] = err.Error()
		log.Logger.Error("Import job failed", zap.Int64("job", job.ID), zap.String("file", job.FilePath), zap.Error(err))
	case !result.Success:
		updates["status"] = entity.JobStatusFailed
		updates["error_message"] = strings.Join(result.Errors, "; ")
		log.Logger.Warn("Import job stored no rows", zap.Int64("job", job.ID), zap.String("file", job.FilePath))
	default:
		updates["status"] = entity.JobStatusSuccess
		log.Logger.Info("Import job succeeded", zap.Int64("job", job.ID), zap.String("file", job.FilePath))
	}

	if dbErr := db.Model(&job).Updates(updates).Error; dbErr != nil {
		log.Logger.Error("Failed to update job completion status", zap.Int64("job", job.ID), zap.Error(dbErr))
	}
	if len(result.Errors) > 0 {
		j.StoreErrors(job, result.Errors, db)
	}
}

// StoreErrors keeps every error message of a job in import_error_rows.
func (j *JobQueueServiceImpl) StoreErrors(job entity.ImportJobEntity, errs []string, db *gorm.DB) {
	data, _ := json.Marshal(map[string]interface{}{"month": job.Month, "year": job.Year})
	rows := make([]entity.ImportErrorRowEntity, 0, len(errs))
	for _, e := range errs {
		rows = append(rows, entity.ImportErrorRowEntity{
			JobID:    job.ID,
			Data:     data,
			Error:    e,
			FilePath: job.FilePath,
		})
	}
	if err := db.CreateInBatches(&rows, DefaultBatchSize).Error; err != nil {
		log.Logger.Error("Failed to store job errors", zap.Int64("job", job.ID), zap.Error(err))
	}
}

// ListErrors returns the stored errors of a job.
func (j *JobQueueServiceImpl) ListErrors(id int64, db *gorm.DB) ([]entity.ImportErrorRowEntity, error) {
	var rows []entity.ImportErrorRowEntity
	err := db.Where("job_id = ?", id).Order("id asc").Find(&rows).Error
	return rows, err
}
