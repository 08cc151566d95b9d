package health

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/go-faster/errors"
)

// GoroutineCountCheck flags a goroutine leak: the process is considered
// unhealthy once the live goroutine count passes limit.
func GoroutineCountCheck(limit int) CheckFunc {
	return func(_ context.Context) error {
		if n := runtime.NumGoroutine(); n > limit {
			return errors.Errorf("%d goroutines running, limit is %d", n, limit)
		}
		return nil
	}
}

// GCMaxPauseCheck flags stop-the-world pauses longer than max, a symptom of
// heap pressure that stalls request handling.
func GCMaxPauseCheck(max time.Duration) CheckFunc {
	return func(_ context.Context) error {
		var stats debug.GCStats
		debug.ReadGCStats(&stats)
		for _, pause := range stats.Pause {
			if pause > max {
				return errors.Errorf("GC pause of %s, limit is %s", pause, max)
			}
		}
		return nil
	}
}
