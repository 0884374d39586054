package entity

import (
	"time"

	"gorm.io/gorm"
)

const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusSuccess    = "success"
	JobStatusFailed     = "failed"
)

// ImportJobEntity tracks one CSV import from enqueue to completion.
type ImportJobEntity struct {
	ID         int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	FilePath   string     `json:"file_path" gorm:"column:file_path;type:varchar(512);index"`
	Status     string     `json:"status" gorm:"column:status;type:varchar(16);default:'pending'"` // pending, in_progress, success, failed
	Month      string     `json:"month" gorm:"column:month;type:varchar(8)"`
	Year       int        `json:"year" gorm:"column:year"`
	Parsed     int        `json:"parsed" gorm:"column:parsed"`
	Imported   int        `json:"imported" gorm:"column:imported"`
	Skipped    int        `json:"skipped" gorm:"column:skipped"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	ErrorMsg   *string    `json:"error_message" gorm:"column:error_message;type:text"`
	CreatedAt  int64      `json:"created_at" gorm:"autoCreateTime:milli;column:created_at;comment:'Created at'"`
	UpdatedAt  int64      `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at;comment:'Updated at'"`
}

func (ImportJobEntity) TableName() string {
	return "import_jobs"
}

func (c *ImportJobEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
