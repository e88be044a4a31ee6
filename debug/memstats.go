// Package debug holds opt-in runtime instrumentation, enabled by the debug
// config flag. The frame pipeline recycles large pixel buffers through a
// pool, so heap behaviour over long sessions is worth watching.
package debug

import (
	"context"
	"log/slog"
	"runtime"
	"time"
)

// StartMemLogger periodically logs heap statistics until ctx is cancelled.
// A growing heap_inuse with stable captures points at frames escaping the
// recycle path.
func StartMemLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			logger.Debug("debug: memstats",
				slog.Uint64("heap_alloc", ms.HeapAlloc),
				slog.Uint64("heap_inuse", ms.HeapInuse),
				slog.Uint64("heap_idle", ms.HeapIdle),
				slog.Uint64("heap_sys", ms.HeapSys),
				slog.Uint64("next_gc", ms.NextGC),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
				slog.Uint64("pause_total_ns", ms.PauseTotalNs),
			)
		}
	}()
}
