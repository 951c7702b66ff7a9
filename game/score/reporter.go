// Package score persists game outcomes without ever blocking gameplay.
//
// Report enqueues and returns immediately. A single worker applies each
// outcome to the record store with a per-write timeout. Failures are logged
// and counted; there are no retries, and the outcome already broadcast to
// players stands regardless.
package score

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/wricardo/tictactoe-arena/game/engine"
	"github.com/wricardo/tictactoe-arena/metrics"
	"github.com/wricardo/tictactoe-arena/store"
)

const (
	DefaultQueueSize = 256
	DefaultTimeout   = 5 * time.Second
)

// Recorder applies one outcome to a player's stats
type Recorder interface {
	RecordOutcome(ctx context.Context, nick string, outcome store.Outcome) error
}

// Options tunes the reporter
type Options struct {
	QueueSize int
	Timeout   time.Duration
	Metrics   *metrics.Metrics
}

// Reporter is the asynchronous score writer
type Reporter struct {
	rec     Recorder
	queue   chan engine.Score
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// New starts a reporter writing to rec
func New(rec Recorder, opts Options) *Reporter {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	r := &Reporter{
		rec:     rec,
		queue:   make(chan engine.Score, opts.QueueSize),
		timeout: opts.Timeout,
		metrics: opts.Metrics,
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// Report enqueues s. When the queue is full or the reporter is closed the
// report is dropped.
func (r *Reporter) Report(s engine.Score) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		log.Printf("[SCORE] Reporter closed, dropping %s for %s", s.Outcome, s.Nick)
		r.metrics.ScoreDropped()
		return
	}
	select {
	case r.queue <- s:
	default:
		log.Printf("[SCORE] Queue full, dropping %s for %s", s.Outcome, s.Nick)
		r.metrics.ScoreDropped()
	}
}

// Close stops accepting reports and waits until the queue is drained
func (r *Reporter) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()
	<-r.done
}

func (r *Reporter) run() {
	defer close(r.done)
	for s := range r.queue {
		r.write(s)
	}
}

func (r *Reporter) write(s engine.Score) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	err := r.rec.RecordOutcome(ctx, s.Nick, store.Outcome(s.Outcome))
	switch {
	case err == nil:
		r.metrics.ScoreReport("ok")
	case errors.Is(err, store.ErrNotFound):
		// guests have no stats
		r.metrics.ScoreReport("skipped")
	default:
		log.Printf("[SCORE] Failed to record %s for %s: %v", s.Outcome, s.Nick, err)
		r.metrics.ScoreReport("failed")
	}
}
