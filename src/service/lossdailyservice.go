package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type LossDailyResult struct {
	Upserted int
	Errors   []string
}

type LossDailyServiceImpl struct {
	store     LossDailyStore
	batchSize int
}

func NewLossDailyServiceImpl(store LossDailyStore, batchSize int) *LossDailyServiceImpl {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &LossDailyServiceImpl{store: store, batchSize: batchSize}
}

// Update recomputes the per-zone daily L2 vs L3 balance of an imported period
// and upserts it. Rows whose zone is not a known display zone are ignored.
func (s *LossDailyServiceImpl) Update(ctx context.Context, rows []entity.ReadingRow, month string, year int) LossDailyResult {
	records := BuildLossDaily(rows, month, year)
	if len(records) == 0 {
		log.Logger.Info("no zone loss records to write", zap.String("month", month), zap.Int("year", year))
		return LossDailyResult{}
	}

	var result LossDailyResult
	for i := 0; i < len(records); i += s.batchSize {
		batch := records[i:min(i+s.batchSize, len(records))]
		if err := s.store.UpsertLossDaily(ctx, batch); err != nil {
			log.Logger.Error("water loss daily upsert failed", zap.Int("batch", i/s.batchSize+1), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("Water loss daily batch %d: %s", i/s.batchSize+1, err.Error()))
			continue
		}
		result.Upserted += len(batch)
	}
	log.Logger.Info("water loss daily updated",
		zap.Int("upserted", result.Upserted),
		zap.Int("records", len(records)))
	return result
}

// BuildLossDaily groups rows by display zone and emits one record per zone and
// day up to the last day carrying any reading. Days where neither L2 nor
// individual meters report are skipped.
func BuildLossDaily(rows []entity.ReadingRow, month string, year int) []entity.WaterLossDailyEntity {
	groups := make(map[string][]entity.ReadingRow)
	for _, row := range rows {
		zone, ok := ResolveZoneDisplay(row.Zone)
		if !ok {
			continue
		}
		groups[zone] = append(groups[zone], row)
	}
	if len(groups) == 0 {
		return nil
	}

	maxDay := 0
	for _, row := range rows {
		for d := entity.MaxDay; d > maxDay; d-- {
			if row.Day(d) != nil {
				maxDay = d
				break
			}
		}
	}
	if maxDay == 0 {
		return nil
	}

	zones := make([]string, 0, len(groups))
	for zone := range groups {
		zones = append(zones, zone)
	}
	sort.Strings(zones)

	var records []entity.WaterLossDailyEntity
	for _, zone := range zones {
		var bulk, individual []entity.ReadingRow
		for _, row := range groups[zone] {
			switch strings.ToUpper(row.Label) {
			case entity.LevelL2:
				bulk = append(bulk, row)
			case entity.LevelL1:
			default:
				individual = append(individual, row)
			}
		}

		for day := 1; day <= maxDay; day++ {
			l2Total, hasL2 := sumDay(bulk, day)
			l3Total, hasL3 := sumDay(individual, day)
			if !hasL2 && !hasL3 {
				continue
			}
			loss := l2Total - l3Total
			records = append(records, entity.WaterLossDailyEntity{
				Zone:        zone,
				Day:         day,
				Date:        lossDate(month, year, day),
				L2TotalM3:   round2(l2Total),
				L3TotalM3:   round2(l3Total),
				LossM3:      round2(loss),
				LossPercent: round2(lossPercent(loss, l2Total)),
				Month:       month,
				Year:        year,
			})
		}
	}
	return records
}

func sumDay(rows []entity.ReadingRow, day int) (float64, bool) {
	var total float64
	found := false
	for _, row := range rows {
		if v := row.Day(day); v != nil {
			total += *v
			found = true
		}
	}
	return total, found
}

func lossDate(month string, year, day int) string {
	name, _, _ := strings.Cut(month, "-")
	return fmt.Sprintf("%d-%02d-%02d", year, monthOrdinal[name], day)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
