package scheduler

import (
	"context"
	"log"
	"time"
)

type cycleFunc func(ctx context.Context)

// Worker runs one cycle at start and then on every tick until the context is
// cancelled. Cycles never overlap.
type Worker struct {
	name     string
	interval time.Duration
	cycle    cycleFunc
	logger   *log.Logger
}

func newWorker(name string, interval time.Duration, cycle cycleFunc, logger *log.Logger) *Worker {
	return &Worker{
		name:     name,
		interval: interval,
		cycle:    cycle,
		logger:   logger,
	}
}

func (w *Worker) Name() string {
	return w.name
}

func (w *Worker) Start(ctx context.Context) {
	if w == nil || w.cycle == nil || w.interval <= 0 {
		return
	}

	w.logf("%s worker started interval=%s", w.name, w.interval)

	w.cycle(ctx)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logf("%s worker stopped", w.name)
			return
		case <-ticker.C:
			w.cycle(ctx)
		}
	}
}

func (w *Worker) logf(format string, args ...any) {
	if w.logger == nil {
		return
	}
	w.logger.Printf(format, args...)
}
