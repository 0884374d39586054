package cronjob

import (
	"context"
	"sync"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

var (
	_cj      *cron.Cron
	initOnce sync.Once
)

// GetCJ returns the shared scheduler, started on first use. Schedules are
// evaluated in UTC.
func GetCJ() *cron.Cron {
	initOnce.Do(func() {
		_cj = cron.New(cron.WithLocation(time.UTC), cron.WithChain(cron.SkipIfStillRunning(cronLogger{})))
		_cj.Start()
	})
	return _cj
}

// StopCJ stops scheduling and returns a context done once running jobs finish.
func StopCJ() context.Context {
	if _cj == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return _cj.Stop()
}

// cronLogger routes scheduler messages to zap.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Logger.Debug(msg, zap.Any("details", keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Logger.Error(msg, zap.Error(err), zap.Any("details", keysAndValues))
}
