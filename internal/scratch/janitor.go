package scratch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrShutdownTimeout is returned when the janitor doesn't stop within timeout.
var ErrShutdownTimeout = errors.New("janitor shutdown timed out")

// Janitor periodically sweeps orphaned scratch files.
type Janitor struct {
	dir      *Dir
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewJanitor creates a janitor for dir.
func NewJanitor(dir *Dir, interval, maxAge time.Duration, logger *slog.Logger) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Janitor{
		dir:      dir,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the sweep loop.
func (j *Janitor) Start() {
	j.logger.Info("starting scratch janitor",
		"dir", j.dir.Path(),
		"interval", j.interval,
		"max_age", j.maxAge,
	)

	j.wg.Add(1)
	go j.run()
}

// Stop gracefully stops the janitor.
func (j *Janitor) Stop(timeout time.Duration) error {
	j.cancel()

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrShutdownTimeout
	}
}

func (j *Janitor) run() {
	defer j.wg.Done()

	// Reclaim leftovers from a previous crash right away.
	j.dir.Sweep(j.maxAge)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.ctx.Done():
			j.logger.Info("scratch janitor stopping")
			return
		case <-ticker.C:
			j.dir.Sweep(j.maxAge)
		}
	}
}
