package entity

import (
	"time"

	"gorm.io/gorm"
)

// WaterMeterEntity is one configured meter in the "water_system" registry table.
type WaterMeterEntity struct {
	ID            int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Label         string    `json:"label" gorm:"column:label;type:varchar(255);not null"`
	AccountNumber string    `json:"account_number" gorm:"column:account_number;type:varchar(64);index"`
	Level         string    `json:"level" gorm:"column:level;type:varchar(16)"`
	Zone          string    `json:"zone" gorm:"column:zone;type:varchar(64)"`
	ParentMeter   string    `json:"parent_meter" gorm:"column:parent_meter;type:varchar(255)"`
	Type          string    `json:"type" gorm:"column:type;type:varchar(64)"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime;column:created_at"`
	UpdatedAt     time.Time `json:"updated_at" gorm:"autoUpdateTime;column:updated_at"`
}

func (WaterMeterEntity) TableName() string {
	return "water_system"
}

func (c *WaterMeterEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UTC())
	return nil
}
