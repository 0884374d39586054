package entity

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ImportErrorRowEntity keeps one error surfaced by an import job for later inspection.
// Data holds the job's reporting period.
type ImportErrorRowEntity struct {
	ID        int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	JobID     int64           `json:"job_id" gorm:"not null;index;column:job_id"`
	Data      json.RawMessage `json:"data" gorm:"type:json"`
	Error     string          `json:"error" gorm:"type:text"`
	FilePath  string          `json:"file_path" gorm:"type:text"`
	Resolved  bool            `json:"resolved" gorm:"default:false"`
	CreatedAt int64           `json:"created_at" gorm:"autoCreateTime:milli;column:created_at"`
	UpdatedAt int64           `json:"updated_at" gorm:"autoUpdateTime:milli;column:updated_at"`
}

func (ImportErrorRowEntity) TableName() string {
	return "import_error_rows"
}

func (c *ImportErrorRowEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UnixMilli())
	return nil
}
