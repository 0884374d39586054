package service

import (
	"context"
	"fmt"
	"sort"

	cb "github.com/ARahim900/muscatbay-sub004/config/circuitbreaker"
	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
)

// DefaultBatchSize bounds the number of records sent in one store request.
const DefaultBatchSize = 50

// RLSRemediationMessage replaces every row-level security failure of a write.
const RLSRemediationMessage = "Database security policies are blocking write access. Please run the RLS fix script in the SQL editor: sql/fixes/fix_water_daily_consumption_rls.sql"

// ConflictKeys is the natural key of a persisted consumption record.
var ConflictKeys = []string{"account_number", "month", "year"}

// ConsumptionRecord is one flat row for the water_daily_consumption table.
type ConsumptionRecord map[string]interface{}

// DeleteFilter selects the records of one period for a set of accounts.
type DeleteFilter struct {
	Month          string
	Year           int
	AccountNumbers []string
}

// ConsumptionStore is the batched write surface of the data store.
type ConsumptionStore interface {
	Upsert(ctx context.Context, records []ConsumptionRecord, conflictKeys []string) error
	Delete(ctx context.Context, filter DeleteFilter) error
	Insert(ctx context.Context, records []ConsumptionRecord) error
}

// WriteResult reports how many rows reached the store and every error met.
// Partial success is a valid outcome.
type WriteResult struct {
	Imported     int
	Errors       []string
	UsedFallback bool
}

type PersistServiceImpl struct {
	store     ConsumptionStore
	batchSize int
}

func NewPersistServiceImpl(store ConsumptionStore, batchSize int) *PersistServiceImpl {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PersistServiceImpl{store: store, batchSize: batchSize}
}

// Write upserts rows batch by batch. When the store cannot honour the
// (account_number, month, year) conflict target the rows are rewritten with
// delete+insert per period instead.
func (p *PersistServiceImpl) Write(ctx context.Context, rows []entity.ReadingRow) WriteResult {
	if len(rows) == 0 {
		return WriteResult{}
	}

	records := make([]ConsumptionRecord, len(rows))
	for i, row := range rows {
		records[i] = BuildConsumptionRecord(row)
	}

	var result WriteResult
	imported, needFallback := p.upsertBatches(ctx, records, &result.Errors)
	if needFallback {
		log.Logger.Info("upsert rejected by store constraint, using delete+insert fallback", zap.Int("rows", len(rows)))
		result.Errors = result.Errors[:0]
		result.UsedFallback = true
		imported = p.deleteInsert(ctx, records, rows, &result.Errors)
	}
	result.Imported = imported
	result.Errors = collapseAccessDenied(result.Errors)

	log.Logger.Info("consumption rows written",
		zap.Int("imported", result.Imported),
		zap.Int("errors", len(result.Errors)),
		zap.Bool("fallback", result.UsedFallback))
	return result
}

// upsertBatches returns the imported count, or needFallback=true as soon as a
// batch fails on the missing constraint.
func (p *PersistServiceImpl) upsertBatches(ctx context.Context, records []ConsumptionRecord, errs *[]string) (int, bool) {
	imported := 0
	for i := 0; i < len(records); i += p.batchSize {
		batch := records[i:min(i+p.batchSize, len(records))]
		err := p.store.Upsert(ctx, batch, ConflictKeys)
		if err == nil {
			imported += len(batch)
			continue
		}
		if cb.IsConstraintError(err) {
			log.Logger.Warn("upsert constraint error", zap.Error(err))
			return 0, true
		}
		log.Logger.Error("upsert batch failed", zap.Int("batch", i/p.batchSize+1), zap.Error(err))
		*errs = append(*errs, fmt.Sprintf("Batch %d: %s", i/p.batchSize+1, err.Error()))
	}
	return imported, false
}

// deleteInsert clears every (month, year, accounts) group before inserting
// all records, so a period is absent only for the duration of the rewrite.
func (p *PersistServiceImpl) deleteInsert(ctx context.Context, records []ConsumptionRecord, rows []entity.ReadingRow, errs *[]string) int {
	for _, filter := range periodFilters(rows) {
		if err := p.store.Delete(ctx, filter); err != nil {
			log.Logger.Error("fallback delete failed", zap.String("month", filter.Month), zap.Int("year", filter.Year), zap.Error(err))
			*errs = append(*errs, fmt.Sprintf("Delete error for %s: %s", filter.Month, err.Error()))
		}
	}

	imported := 0
	for i := 0; i < len(records); i += p.batchSize {
		batch := records[i:min(i+p.batchSize, len(records))]
		if err := p.store.Insert(ctx, batch); err != nil {
			log.Logger.Error("fallback insert failed", zap.Int("batch", i/p.batchSize+1), zap.Error(err))
			*errs = append(*errs, fmt.Sprintf("Insert batch %d: %s", i/p.batchSize+1, err.Error()))
			continue
		}
		imported += len(batch)
	}
	return imported
}

// periodFilters groups account numbers by (month, year) in first-seen order.
func periodFilters(rows []entity.ReadingRow) []DeleteFilter {
	type period struct {
		month string
		year  int
	}
	var order []period
	accounts := make(map[period]map[string]struct{})
	for _, row := range rows {
		key := period{row.Month, row.Year}
		set, ok := accounts[key]
		if !ok {
			set = make(map[string]struct{})
			accounts[key] = set
			order = append(order, key)
		}
		set[row.AccountNumber] = struct{}{}
	}

	filters := make([]DeleteFilter, 0, len(order))
	for _, key := range order {
		list := make([]string, 0, len(accounts[key]))
		for acct := range accounts[key] {
			list = append(list, acct)
		}
		sort.Strings(list)
		filters = append(filters, DeleteFilter{Month: key.month, Year: key.year, AccountNumbers: list})
	}
	return filters
}

func collapseAccessDenied(errs []string) []string {
	for _, e := range errs {
		if cb.IsAccessDeniedMessage(e) {
			return []string{RLSRemediationMessage}
		}
	}
	return errs
}

// BuildConsumptionRecord flattens a row. Metadata keys are present only when
// non-empty so a re-import never blanks previously stored values.
func BuildConsumptionRecord(row entity.ReadingRow) ConsumptionRecord {
	name := row.MeterName
	if name == "" {
		name = row.AccountNumber
	}
	record := ConsumptionRecord{
		"meter_name":     name,
		"account_number": row.AccountNumber,
		"month":          row.Month,
		"year":           row.Year,
	}
	if row.Label != "" {
		record["label"] = row.Label
	}
	if row.Zone != "" {
		record["zone"] = row.Zone
	}
	if row.ParentMeter != "" {
		record["parent_meter"] = row.ParentMeter
	}
	if row.Type != "" {
		record["type"] = row.Type
	}
	for day := 1; day <= entity.MaxDay; day++ {
		if v := row.Day(day); v != nil {
			record[DayColumn(day)] = *v
		} else {
			record[DayColumn(day)] = nil
		}
	}
	return record
}

// DayColumn names the column holding day d.
func DayColumn(d int) string {
	return fmt.Sprintf("day_%d", d)
}
