// Package cron runs a job on a standard 5-field cron expression, parsed by
// gronx. The bot uses it to rebuild the index periodically.
package cron

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/adhocore/gronx"
)

// JobFunc is the work run on every tick of the schedule.
type JobFunc func(ctx context.Context) error

// Status is a snapshot of the service state.
type Status struct {
	Expr      string    `json:"expr"`
	NextRun   time.Time `json:"nextRun"`
	LastRun   time.Time `json:"lastRun,omitzero"`
	LastError string    `json:"lastError,omitempty"`
	Runs      int       `json:"runs"`
}

// Service fires a job whenever its cron expression comes due.
type Service struct {
	name     string
	expr     string
	job      JobFunc
	retryCfg RetryConfig
	tick     time.Duration
	now      func() time.Time

	mu      sync.Mutex
	running bool
	nextRun time.Time
	lastRun time.Time
	lastErr error
	runs    int
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewService creates a service running job on expr. name only labels logs.
func NewService(name, expr string, job JobFunc) (*Service, error) {
	gx := gronx.New()
	if !gx.IsValid(expr) {
		return nil, fmt.Errorf("cron: invalid expression %q", expr)
	}
	return &Service{
		name:     name,
		expr:     expr,
		job:      job,
		retryCfg: DefaultRetryConfig(),
		tick:     time.Second,
		now:      time.Now,
	}, nil
}

// SetRetryConfig overrides the default retry configuration.
func (cs *Service) SetRetryConfig(cfg RetryConfig) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.retryCfg = cfg
}

// Start computes the first run and begins the scheduling loop.
func (cs *Service) Start(ctx context.Context) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.running {
		return nil
	}
	next, err := cs.computeNextRun(cs.now())
	if err != nil {
		return err
	}
	cs.nextRun = next

	ctx, cs.cancel = context.WithCancel(ctx)
	cs.done = make(chan struct{})
	cs.running = true
	go cs.runLoop(ctx, cs.done)

	slog.Info("cron service started", "job", cs.name, "expr", cs.expr, "next", next)
	return nil
}

// Stop halts the scheduling loop and waits for a running job to return.
func (cs *Service) Stop() {
	cs.mu.Lock()
	if !cs.running {
		cs.mu.Unlock()
		return
	}
	cs.running = false
	cs.cancel()
	done := cs.done
	cs.mu.Unlock()

	<-done
	slog.Info("cron service stopped", "job", cs.name)
}

// Status returns the current schedule state.
func (cs *Service) Status() Status {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	st := Status{Expr: cs.expr, NextRun: cs.nextRun, LastRun: cs.lastRun, Runs: cs.runs}
	if cs.lastErr != nil {
		st.LastError = cs.lastErr.Error()
	}
	return st
}

func (cs *Service) runLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(cs.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cs.checkDue(ctx)
		}
	}
}

// checkDue runs the job if its next run has passed. The next run is
// advanced before the job starts so a slow job is not fired twice.
func (cs *Service) checkDue(ctx context.Context) {
	cs.mu.Lock()
	now := cs.now()
	if cs.nextRun.IsZero() || now.Before(cs.nextRun) {
		cs.mu.Unlock()
		return
	}
	next, err := cs.computeNextRun(now)
	if err != nil {
		slog.Error("cron: failed to compute next run", "job", cs.name, "expr", cs.expr, "error", err)
	}
	cs.nextRun = next
	retryCfg := cs.retryCfg
	cs.mu.Unlock()

	start := time.Now()
	attempts, err := ExecuteWithRetry(ctx, cs.job, retryCfg)

	cs.mu.Lock()
	cs.lastRun = now
	cs.lastErr = err
	cs.runs++
	cs.mu.Unlock()

	if err != nil {
		slog.Error("cron job failed", "job", cs.name, "attempts", attempts, "error", err)
		return
	}
	slog.Info("cron job done", "job", cs.name, "attempts", attempts, "took", time.Since(start), "next", next)
}

func (cs *Service) computeNextRun(now time.Time) (time.Time, error) {
	return gronx.NextTickAfter(cs.expr, now, false)
}
