package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	cb "github.com/ARahim900/muscatbay-sub004/config/circuitbreaker"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrMissingUniqueConstraint mirrors the postgres ON CONFLICT failure for
// dialects that silently accept an upsert without a unique index.
var ErrMissingUniqueConstraint = errors.New("there is no unique or exclusion constraint matching the ON CONFLICT specification")

// MeterRegistry lists every configured meter.
type MeterRegistry interface {
	ListMeters(ctx context.Context) ([]entity.Meter, error)
}

// LossDailyStore persists daily zone loss records.
type LossDailyStore interface {
	UpsertLossDaily(ctx context.Context, records []entity.WaterLossDailyEntity) error
}

// ConsumptionReader reads persisted daily consumption for aggregation.
type ConsumptionReader interface {
	ListConsumption(ctx context.Context, year int) ([]entity.WaterDailyConsumptionEntity, error)
}

// WaterRepositoryServiceImpl is the gorm-backed data store. Every call runs
// through the DB circuit breaker with bounded retries.
type WaterRepositoryServiceImpl struct {
	db         *gorm.DB
	maxRetries int
}

func NewWaterRepositoryServiceImpl(db *gorm.DB, maxRetries int) *WaterRepositoryServiceImpl {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WaterRepositoryServiceImpl{db: db, maxRetries: maxRetries}
}

func (r *WaterRepositoryServiceImpl) run(ctx context.Context, fn func(*gorm.DB) error) error {
	return cb.RetryWithCircuitBreaker(r.db.WithContext(ctx), fn, r.maxRetries)
}

// ListMeters reads the whole registry on every call.
func (r *WaterRepositoryServiceImpl) ListMeters(ctx context.Context) ([]entity.Meter, error) {
	var rows []entity.WaterMeterEntity
	err := r.run(ctx, func(tx *gorm.DB) error {
		return tx.Order("id asc").Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	meters := make([]entity.Meter, len(rows))
	for i, row := range rows {
		meters[i] = row.ToMeter()
	}
	return meters, nil
}

func (r *WaterRepositoryServiceImpl) Upsert(ctx context.Context, records []ConsumptionRecord, conflictKeys []string) error {
	if len(records) == 0 {
		return nil
	}
	if r.db.Dialector.Name() == "mysql" {
		// ON DUPLICATE KEY UPDATE inserts duplicates when the unique index is gone
		if !r.db.Migrator().HasIndex(&entity.WaterDailyConsumptionEntity{}, entity.WaterDailyConsumptionUniqueIndex) {
			return ErrMissingUniqueConstraint
		}
	}

	conflict := make([]clause.Column, len(conflictKeys))
	isKey := make(map[string]bool, len(conflictKeys))
	for i, k := range conflictKeys {
		conflict[i] = clause.Column{Name: k}
		isKey[k] = true
	}

	now := time.Now().UTC()
	groups := groupByColumns(records)
	// one batch is all or nothing even when it splits into column groups
	return r.run(ctx, func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, group := range groups {
				var updates []string
				for _, col := range group.columns {
					if !isKey[col] {
						updates = append(updates, col)
					}
				}
				updates = append(updates, "updated_at")
				values := toGormMaps(group.records, now)

				err := tx.Model(&entity.WaterDailyConsumptionEntity{}).Clauses(clause.OnConflict{
					Columns:   conflict,
					DoUpdates: clause.AssignmentColumns(updates),
				}).Create(&values).Error
				if err != nil {
					return err
				}
			}
			return nil
		})
	})
}

func (r *WaterRepositoryServiceImpl) Delete(ctx context.Context, filter DeleteFilter) error {
	return r.run(ctx, func(tx *gorm.DB) error {
		return tx.Where("month = ? AND year = ? AND account_number IN ?", filter.Month, filter.Year, filter.AccountNumbers).
			Delete(&entity.WaterDailyConsumptionEntity{}).Error
	})
}

func (r *WaterRepositoryServiceImpl) Insert(ctx context.Context, records []ConsumptionRecord) error {
	if len(records) == 0 {
		return nil
	}
	values := toGormMaps(records, time.Now().UTC())
	return r.run(ctx, func(tx *gorm.DB) error {
		return tx.Model(&entity.WaterDailyConsumptionEntity{}).Create(&values).Error
	})
}

func (r *WaterRepositoryServiceImpl) UpsertLossDaily(ctx context.Context, records []entity.WaterLossDailyEntity) error {
	if len(records) == 0 {
		return nil
	}
	return r.run(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "zone"}, {Name: "day"}, {Name: "month"}, {Name: "year"}},
			DoUpdates: clause.AssignmentColumns([]string{"date", "l2_total_m3", "l3_total_m3", "loss_m3", "loss_percent", "updated_at"}),
		}).Create(&records).Error
	})
}

// ListConsumption returns all records of a year, or every record when year is 0.
func (r *WaterRepositoryServiceImpl) ListConsumption(ctx context.Context, year int) ([]entity.WaterDailyConsumptionEntity, error) {
	var rows []entity.WaterDailyConsumptionEntity
	err := r.run(ctx, func(tx *gorm.DB) error {
		q := tx.Order("year asc, account_number asc")
		if year > 0 {
			q = q.Where("year = ?", year)
		}
		return q.Find(&rows).Error
	})
	return rows, err
}

type columnGroup struct {
	columns []string
	records []ConsumptionRecord
}

// groupByColumns splits records by their key set so every upsert statement
// only assigns the columns its records actually carry.
func groupByColumns(records []ConsumptionRecord) []columnGroup {
	var groups []columnGroup
	index := make(map[string]int)
	for _, rec := range records {
		cols := make([]string, 0, len(rec))
		for k := range rec {
			cols = append(cols, k)
		}
		sort.Strings(cols)
		sig := strings.Join(cols, ",")
		i, ok := index[sig]
		if !ok {
			i = len(groups)
			index[sig] = i
			groups = append(groups, columnGroup{columns: cols})
		}
		groups[i].records = append(groups[i].records, rec)
	}
	return groups
}

func toGormMaps(records []ConsumptionRecord, now time.Time) []map[string]interface{} {
	values := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		m := make(map[string]interface{}, len(rec)+2)
		for k, v := range rec {
			m[k] = v
		}
		m["created_at"] = now
		m["updated_at"] = now
		values[i] = m
	}
	return values
}
