package entity

import (
	"time"

	"gorm.io/gorm"
)

// WaterLossDailyEntity is the L2 vs L3 balance of one zone on one day.
type WaterLossDailyEntity struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Zone        string    `json:"zone" gorm:"column:zone;type:varchar(64);not null;uniqueIndex:idx_wld_zone_day_month_year"`
	Day         int       `json:"day" gorm:"column:day;not null;uniqueIndex:idx_wld_zone_day_month_year"`
	Date        string    `json:"date" gorm:"column:date;type:varchar(10);not null"`
	L2TotalM3   float64   `json:"l2_total_m3" gorm:"column:l2_total_m3;type:decimal(14,2)"`
	L3TotalM3   float64   `json:"l3_total_m3" gorm:"column:l3_total_m3;type:decimal(14,2)"`
	LossM3      float64   `json:"loss_m3" gorm:"column:loss_m3;type:decimal(14,2)"`
	LossPercent float64   `json:"loss_percent" gorm:"column:loss_percent;type:decimal(8,2)"`
	Month       string    `json:"month" gorm:"column:month;type:varchar(8);not null;uniqueIndex:idx_wld_zone_day_month_year"`
	Year        int       `json:"year" gorm:"column:year;not null;uniqueIndex:idx_wld_zone_day_month_year"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime;column:created_at"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime;column:updated_at"`
}

func (WaterLossDailyEntity) TableName() string {
	return "water_loss_daily"
}

func (c *WaterLossDailyEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UTC())
	return nil
}
