package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func testDB() *gorm.DB {
	return &gorm.DB{Statement: &gorm.Statement{Context: context.Background()}}
}

// The breaker is shared; each test ends with a success so the failure count
// never reaches the trip threshold.
func TestRetryRecoversFromTransientError(t *testing.T) {
	retryBaseDelay = time.Millisecond
	calls := 0
	err := RetryWithCircuitBreaker(testDB(), func(*gorm.DB) error {
		calls++
		if calls == 1 {
			return errors.New("connection reset by peer")
		}
		return nil
	}, 3)
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second attempt, got %v after %d calls", err, calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	retryBaseDelay = time.Millisecond
	calls := 0
	rls := errors.New(`new row violates row-level security policy for table "water_daily_consumption"`)
	err := RetryWithCircuitBreaker(testDB(), func(*gorm.DB) error {
		calls++
		return rls
	}, 3)
	if !errors.Is(err, rls) || calls != 1 {
		t.Fatalf("expected one call returning the permanent error, got %v after %d calls", err, calls)
	}
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	retryBaseDelay = time.Millisecond
	calls := 0
	err := RetryWithCircuitBreaker(testDB(), func(*gorm.DB) error {
		calls++
		return errors.New("i/o timeout")
	}, 3)
	if err == nil || calls != 3 {
		t.Fatalf("expected 3 failed calls, got %v after %d calls", err, calls)
	}

	// reset consecutive failures
	if err := RetryWithCircuitBreaker(testDB(), func(*gorm.DB) error { return nil }, 1); err != nil {
		t.Fatalf("breaker should still be closed: %v", err)
	}
}

func TestRetryHonoursCancelledContext(t *testing.T) {
	retryBaseDelay = time.Hour
	defer func() { retryBaseDelay = time.Second }()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- RetryWithCircuitBreaker(&gorm.DB{Statement: &gorm.Statement{Context: ctx}}, func(*gorm.DB) error {
			calls++
			if calls > 1 {
				return nil
			}
			return errors.New("connection refused")
		}, 3)
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected the transient error to be returned")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("retry ignored the cancelled context")
	}

	if err := RetryWithCircuitBreaker(testDB(), func(*gorm.DB) error { return nil }, 1); err != nil {
		t.Fatalf("breaker should still be closed: %v", err)
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		err        error
		constraint bool
		denied     bool
		permanent  bool
	}{
		{nil, false, false, false},
		{errors.New("there is no unique or exclusion constraint matching the ON CONFLICT specification"), true, false, true},
		{fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "42P10", Message: "bad target"}), true, false, true},
		{errors.New(`new row violates row-level security policy for table "x"`), false, true, true},
		{errors.New("Data too long for column 'zone'"), false, false, true},
		{errors.New("dial tcp: connection refused"), false, false, false},
	}
	for _, c := range cases {
		if got := IsConstraintError(c.err); got != c.constraint {
			t.Errorf("IsConstraintError(%v) = %v", c.err, got)
		}
		if got := IsAccessDeniedError(c.err); got != c.denied {
			t.Errorf("IsAccessDeniedError(%v) = %v", c.err, got)
		}
		if got := IsPermanentError(c.err); got != c.permanent {
			t.Errorf("IsPermanentError(%v) = %v", c.err, got)
		}
	}
}
