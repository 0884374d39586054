package circuitbreaker

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SQLSTATE raised by postgres when ON CONFLICT has no matching unique index.
const sqlStateInvalidColumnReference = "42P10"

var dbCircuitBreaker *gobreaker.CircuitBreaker

// retryBaseDelay is the first backoff step; tests shrink it.
var retryBaseDelay = time.Second

func init() {
	settings := gobreaker.Settings{
		Name:        "DBCircuitBreaker",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Logger.Warn("circuit breaker state changed", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	dbCircuitBreaker = gobreaker.NewCircuitBreaker(settings)
}

// Wrap DB calls with circuit breaker
func DBWithCircuitBreaker(db *gorm.DB, fn func(*gorm.DB) error) error {
	var permanent error
	_, err := dbCircuitBreaker.Execute(func() (interface{}, error) {
		err := fn(db)
		if IsPermanentError(err) {
			// permanent error, don't trip CB
			permanent = err
			return nil, nil
		}
		return nil, err // transient errors trip CB
	})
	if permanent != nil {
		return permanent
	}
	return err
}

func RetryWithCircuitBreaker(db *gorm.DB, fn func(*gorm.DB) error, maxRetries int) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error
	for attempt := range maxRetries {
		lastErr = DBWithCircuitBreaker(db, fn)
		if lastErr == nil {
			return nil
		}
		if IsPermanentError(lastErr) {
			log.Logger.Debug("Permanent DB error, will not retry", zap.Error(lastErr))
			return lastErr
		}
		if attempt == maxRetries-1 {
			break
		}
		log.Logger.Warn("DB operation failed, will retry", zap.Int("attempt", attempt+1), zap.Int("max_retries", maxRetries), zap.Error(lastErr))
		sleep := time.Duration(math.Pow(2, float64(attempt))) * retryBaseDelay
		if ctx := db.Statement.Context; ctx != nil {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(sleep):
			}
		} else {
			time.Sleep(sleep)
		}
	}
	log.Logger.Error("DB operation failed after max retry", zap.Int("max_retries", maxRetries), zap.Error(lastErr))

	return lastErr
}

// IsPermanentError reports errors that a retry cannot fix: bad data, a
// missing uniqueness constraint, or a row-level security policy.
func IsPermanentError(err error) bool {
	if err == nil {
		return false
	}
	if IsConstraintError(err) || IsAccessDeniedError(err) {
		return true
	}

	msg := err.Error()
	if strings.Contains(msg, "Data too long") ||
		strings.Contains(msg, "invalid") ||
		strings.Contains(msg, "cannot be null") {
		return true
	}

	// Otherwise, assume transient error (connection, deadlock, timeout, etc.)
	return false
}

// IsConstraintError reports whether the store rejected an upsert because the
// conflict target has no uniqueness guarantee.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidColumnReference {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "unique") ||
		strings.Contains(msg, "constraint") ||
		strings.Contains(msg, "ON CONFLICT")
}

// IsAccessDeniedError reports a write blocked by a row-level security policy.
func IsAccessDeniedError(err error) bool {
	return err != nil && IsAccessDeniedMessage(err.Error())
}

func IsAccessDeniedMessage(msg string) bool {
	return strings.Contains(msg, "row-level security policy")
}
