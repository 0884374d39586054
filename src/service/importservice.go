package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/metrics"
	"github.com/ARahim900/muscatbay-sub004/entity"

	uuid "github.com/satori/go.uuid"
	"go.uber.org/zap"
)

const (
	// NoRowsMessage lists the headers a file needs to yield any row.
	NoRowsMessage = `No valid data rows found in CSV. Ensure the file has a header row with an account column ("Acct #", "account_number", or "meter_name") and day columns ("Day 1"..."Day 31", "day_1"..."day_31", or "1"..."31").`

	noMatchFormat = "No matching meters found. %d rows were parsed but none matched the Water System configuration. Check that account numbers or meter names in the CSV match the configured meters."

	lockKeyPrefix = "water:import:"
)

var ErrImportInProgress = errors.New("an import of this file is already in progress")

// Locker guards an import against concurrent runs of the same content.
type Locker interface {
	Lock(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key, token string) error
}

type ImportRequest struct {
	FileName string
	Content  []byte
	Month    string // Mon-YY
	Year     int
}

type ImportResult struct {
	Success     bool     `json:"success"`
	Parsed      int      `json:"parsed"`
	Imported    int      `json:"imported"`
	Skipped     int      `json:"skipped"`
	Errors      []string `json:"errors"`
	StoragePath string   `json:"storage_path,omitempty"`
}

// ImportDeps wires the collaborators of the import workflow. Backup and
// Locker are optional.
type ImportDeps struct {
	Registry  MeterRegistry
	Writer    *PersistServiceImpl
	LossDaily *LossDailyServiceImpl
	Backup    *BackupServiceImpl
	Locker    Locker
	LockTTL   time.Duration
}

type ImportServiceImpl struct {
	parser     *CsvParseServiceImpl
	reconciler *ReconcileServiceImpl
	deps       ImportDeps
}

func NewImportServiceImpl(deps ImportDeps) *ImportServiceImpl {
	if deps.LockTTL <= 0 {
		deps.LockTTL = 5 * time.Minute
	}
	return &ImportServiceImpl{
		parser:     ICsvParseService,
		reconciler: IReconcileService,
		deps:       deps,
	}
}

// Import runs one file through backup, parse, reconcile, write and the daily
// zone loss update. Success means at least one row was stored.
func (s *ImportServiceImpl) Import(ctx context.Context, req ImportRequest) (result ImportResult) {
	start := time.Now()
	result.Errors = []string{}
	defer func() {
		status := metrics.ResultError
		if result.Success {
			status = metrics.ResultSuccess
		}
		metrics.ObserveImport(status, time.Since(start), result.Imported, result.Skipped)
		log.Logger.Info("import finished",
			zap.String("file", req.FileName),
			zap.Bool("success", result.Success),
			zap.Int("imported", result.Imported),
			zap.Int("skipped", result.Skipped),
			zap.Int("errors", len(result.Errors)),
			zap.Duration("took", time.Since(start)))
	}()

	release, err := s.lock(ctx, req.Content)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	defer release()

	if s.deps.Backup != nil {
		result.StoragePath = s.deps.Backup.Backup(ctx, req.FileName, req.Content, req.Month, req.Year)
	}

	rows, err := s.parser.Parse(req.Content, req.Month, req.Year)
	if err != nil && !errors.Is(err, ErrMissingIdentifierColumn) {
		result.Errors = append(result.Errors, fmt.Sprintf("Processing error: %s", err.Error()))
		return result
	}
	result.Parsed = len(rows)
	if len(rows) == 0 {
		result.Errors = append(result.Errors, NoRowsMessage)
		return result
	}

	registry, err := s.deps.Registry.ListMeters(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Processing error: %s", err.Error()))
		return result
	}
	valid, skipped := s.reconciler.Reconcile(rows, registry)
	result.Skipped = skipped
	if len(valid) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf(noMatchFormat, len(rows)))
		return result
	}

	written := s.deps.Writer.Write(ctx, valid)
	result.Imported = written.Imported
	result.Errors = append(result.Errors, written.Errors...)
	metrics.AddWriteErrors(len(written.Errors))
	if written.UsedFallback {
		metrics.IncFallback()
	}

	if written.Imported > 0 && s.deps.LossDaily != nil {
		for _, p := range periodsOf(valid) {
			loss := s.deps.LossDaily.Update(ctx, p.rows, p.month, p.year)
			result.Errors = append(result.Errors, loss.Errors...)
		}
	}

	result.Success = result.Imported > 0
	return result
}

// lock returns a release func; without a Locker it is a no-op.
func (s *ImportServiceImpl) lock(ctx context.Context, content []byte) (func(), error) {
	if s.deps.Locker == nil {
		return func() {}, nil
	}
	sum := sha256.Sum256(content)
	key := lockKeyPrefix + hex.EncodeToString(sum[:])
	token := uuid.NewV4().String()

	ok, err := s.deps.Locker.Lock(ctx, key, token, s.deps.LockTTL)
	if err != nil {
		log.Logger.Warn("import lock unavailable, continuing without it", zap.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, ErrImportInProgress
	}
	return func() {
		if err := s.deps.Locker.Unlock(context.Background(), key, token); err != nil {
			log.Logger.Warn("failed to release import lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

type periodRows struct {
	month string
	year  int
	rows  []entity.ReadingRow
}

// periodsOf splits rows by reporting period; pivot files can span several.
func periodsOf(rows []entity.ReadingRow) []periodRows {
	var out []periodRows
	index := make(map[string]int)
	for _, row := range rows {
		key := fmt.Sprintf("%s|%d", row.Month, row.Year)
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, periodRows{month: row.Month, year: row.Year})
		}
		out[i].rows = append(out[i].rows, row)
	}
	return out
}
