package entity

import (
	"time"

	"gorm.io/gorm"
)

// WaterDailyConsumptionEntity is one meter's daily readings for one month.
// (account_number, month, year) is unique so re-imports overwrite instead of duplicating.
type WaterDailyConsumptionEntity struct {
	ID            int64   `json:"id" gorm:"primaryKey;autoIncrement"`
	MeterName     string  `json:"meter_name" gorm:"column:meter_name;type:varchar(255);not null"`
	AccountNumber string  `json:"account_number" gorm:"column:account_number;type:varchar(64);not null;uniqueIndex:idx_wdc_account_month_year"`
	Label         *string `json:"label" gorm:"column:label;type:varchar(16)"`
	Zone          *string `json:"zone" gorm:"column:zone;type:varchar(64);index"`
	ParentMeter   *string `json:"parent_meter" gorm:"column:parent_meter;type:varchar(255)"`
	Type          *string `json:"type" gorm:"column:type;type:varchar(64)"`
	Month         string  `json:"month" gorm:"column:month;type:varchar(8);not null;uniqueIndex:idx_wdc_account_month_year"`
	Year          int     `json:"year" gorm:"column:year;not null;uniqueIndex:idx_wdc_account_month_year"`

	Day1  *float64 `json:"day_1" gorm:"column:day_1;type:decimal(14,3)"`
	Day2  *float64 `json:"day_2" gorm:"column:day_2;type:decimal(14,3)"`
	Day3  *float64 `json:"day_3" gorm:"column:day_3;type:decimal(14,3)"`
	Day4  *float64 `json:"day_4" gorm:"column:day_4;type:decimal(14,3)"`
	Day5  *float64 `json:"day_5" gorm:"column:day_5;type:decimal(14,3)"`
	Day6  *float64 `json:"day_6" gorm:"column:day_6;type:decimal(14,3)"`
	Day7  *float64 `json:"day_7" gorm:"column:day_7;type:decimal(14,3)"`
	Day8  *float64 `json:"day_8" gorm:"column:day_8;type:decimal(14,3)"`
	Day9  *float64 `json:"day_9" gorm:"column:day_9;type:decimal(14,3)"`
	Day10 *float64 `json:"day_10" gorm:"column:day_10;type:decimal(14,3)"`
	Day11 *float64 `json:"day_11" gorm:"column:day_11;type:decimal(14,3)"`
	Day12 *float64 `json:"day_12" gorm:"column:day_12;type:decimal(14,3)"`
	Day13 *float64 `json:"day_13" gorm:"column:day_13;type:decimal(14,3)"`
	Day14 *float64 `json:"day_14" gorm:"column:day_14;type:decimal(14,3)"`
	Day15 *float64 `json:"day_15" gorm:"column:day_15;type:decimal(14,3)"`
	Day16 *float64 `json:"day_16" gorm:"column:day_16;type:decimal(14,3)"`
	Day17 *float64 `json:"day_17" gorm:"column:day_17;type:decimal(14,3)"`
	Day18 *float64 `json:"day_18" gorm:"column:day_18;type:decimal(14,3)"`
	Day19 *float64 `json:"day_19" gorm:"column:day_19;type:decimal(14,3)"`
	Day20 *float64 `json:"day_20" gorm:"column:day_20;type:decimal(14,3)"`
	Day21 *float64 `json:"day_21" gorm:"column:day_21;type:decimal(14,3)"`
	Day22 *float64 `json:"day_22" gorm:"column:day_22;type:decimal(14,3)"`
	Day23 *float64 `json:"day_23" gorm:"column:day_23;type:decimal(14,3)"`
	Day24 *float64 `json:"day_24" gorm:"column:day_24;type:decimal(14,3)"`
	Day25 *float64 `json:"day_25" gorm:"column:day_25;type:decimal(14,3)"`
	Day26 *float64 `json:"day_26" gorm:"column:day_26;type:decimal(14,3)"`
	Day27 *float64 `json:"day_27" gorm:"column:day_27;type:decimal(14,3)"`
	Day28 *float64 `json:"day_28" gorm:"column:day_28;type:decimal(14,3)"`
	Day29 *float64 `json:"day_29" gorm:"column:day_29;type:decimal(14,3)"`
	Day30 *float64 `json:"day_30" gorm:"column:day_30;type:decimal(14,3)"`
	Day31 *float64 `json:"day_31" gorm:"column:day_31;type:decimal(14,3)"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime;column:updated_at"`
}

// WaterDailyConsumptionTable is the physical table name.
const WaterDailyConsumptionTable = "water_daily_consumption"

// WaterDailyConsumptionUniqueIndex backs the upsert conflict target.
const WaterDailyConsumptionUniqueIndex = "idx_wdc_account_month_year"

func (WaterDailyConsumptionEntity) TableName() string {
	return WaterDailyConsumptionTable
}

func (c *WaterDailyConsumptionEntity) BeforeUpdate(tx *gorm.DB) error {
	tx.Statement.SetColumn("updated_at", time.Now().UTC())
	return nil
}

// DayValues returns the 31 day columns indexed 1..31; index 0 is unused.
func (c *WaterDailyConsumptionEntity) DayValues() [32]*float64 {
	return [32]*float64{
		nil,
		c.Day1, c.Day2, c.Day3, c.Day4, c.Day5, c.Day6, c.Day7, c.Day8, c.Day9, c.Day10,
		c.Day11, c.Day12, c.Day13, c.Day14, c.Day15, c.Day16, c.Day17, c.Day18, c.Day19, c.Day20,
		c.Day21, c.Day22, c.Day23, c.Day24, c.Day25, c.Day26, c.Day27, c.Day28, c.Day29, c.Day30, c.Day31,
	}
}
