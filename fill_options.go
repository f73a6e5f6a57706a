package kdftable

import (
	"log/slog"
	"time"
)

// FillOption is a functional option for configuring a fill.
type FillOption func(*fillConfig)

type fillConfig struct {
	workers          int // 0 = runtime.GOMAXPROCS(0)
	logger           *slog.Logger
	progressInterval time.Duration
	progressFn       func(Progress)
	memoryBudget     uint64 // 0 = unbounded
}

func defaultFillConfig() *fillConfig {
	return &fillConfig{
		logger: slog.New(slog.DiscardHandler),
	}
}

// WithWorkers sets the number of parallel workers. Zero (the default)
// uses runtime.GOMAXPROCS(0). The count is capped at the number of row
// segments, and by WithMemoryBudget when set.
func WithWorkers(n int) FillOption {
	return func(c *fillConfig) {
		c.workers = n
	}
}

// WithLogger sets the logger for fill lifecycle and progress records.
// By default nothing is logged.
func WithLogger(l *slog.Logger) FillOption {
	return func(c *fillConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithProgress calls fn every interval while the fill runs, and once more
// when it ends. fn runs on its own goroutine and must not block for long.
func WithProgress(interval time.Duration, fn func(Progress)) FillOption {
	return func(c *fillConfig) {
		c.progressInterval = interval
		c.progressFn = fn
	}
}

// WithMemoryBudget bounds peak memory, table rows plus one MemoryCost per
// worker, to bytes. The worker count is reduced to fit; if a single worker
// does not fit the fill fails with ErrMemoryBudget before hashing.
func WithMemoryBudget(bytes uint64) FillOption {
	return func(c *fillConfig) {
		c.memoryBudget = bytes
	}
}
