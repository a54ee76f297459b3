// Package worker drains change events into the activity log and removes
// notices once they expire.
package worker

import (
	"context"
	"log"
	"time"

	"tutoring/internal/metrics"
	"tutoring/internal/queue"
)

// Store is the part of the institute service the worker drives.
type Store interface {
	RecordChange(ctx context.Context, c queue.Change) error
	SweepExpiredNotices(ctx context.Context) (int64, error)
}

// Worker consumes queue changes and runs the periodic notice sweep.
type Worker struct {
	store      Store
	sweepEvery time.Duration
}

// New creates a worker. A non-positive sweepEvery disables the sweep.
func New(store Store, sweepEvery time.Duration) *Worker {
	return &Worker{store: store, sweepEvery: sweepEvery}
}

// Run blocks until ctx ends or the change stream closes.
func (w *Worker) Run(ctx context.Context, q queue.Queue) error {
	changes, err := q.Consume(ctx)
	if err != nil {
		return err
	}

	var tick <-chan time.Time
	if w.sweepEvery > 0 {
		t := time.NewTicker(w.sweepEvery)
		defer t.Stop()
		tick = t.C
		w.sweep(ctx)
	}

	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return nil
			}
			w.handle(ctx, c)
		case <-tick:
			w.sweep(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

func (w *Worker) handle(ctx context.Context, c queue.Change) {
	if err := w.store.RecordChange(ctx, c); err != nil {
		metrics.ChangesProcessed.WithLabelValues(c.Entity, "failed").Inc()
		log.Printf("record %s.%s for %s failed: %v", c.Entity, c.Action, c.StudentID, err)
		return
	}
	metrics.ChangesProcessed.WithLabelValues(c.Entity, "recorded").Inc()
}

func (w *Worker) sweep(ctx context.Context) {
	n, err := w.store.SweepExpiredNotices(ctx)
	if err != nil {
		log.Printf("notice sweep failed: %v", err)
		return
	}
	if n > 0 {
		metrics.NoticesSwept.Add(float64(n))
		log.Printf("swept %d expired notices", n)
	}
}
