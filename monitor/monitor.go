// Package monitor tracks the best candidate seen so far, enforces the
// search budgets (wall clock, evaluation count, stop bound) and writes
// the human-readable watch.log. Cancellation is surfaced through a
// context.Context the monitor owns: when any budget trips, the context
// is cancelled and the worker-facing sender sees it on its next send.
package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Cause explains why the search terminated.
type Cause string

const (
	CauseNone           Cause = ""
	CauseTimeout        Cause = "timeout"
	CauseMaxEvaluations Cause = "max_evaluations"
	CauseStopBound      Cause = "stop_bound"
	CauseExhausted      Cause = "space_exhausted"
)

// Config carries the budget and output knobs the monitor enforces.
type Config struct {
	// Timeout is the wall-clock budget; zero disables it.
	Timeout time.Duration
	// MaxEvaluations is the total evaluation budget; zero disables it.
	MaxEvaluations uint64
	// StopBound aborts the search once the best score reaches this value
	// in ns; zero disables it.
	StopBound float64
	// Output receives watch.log lines; nil discards them.
	Output io.Writer
}

// Monitor is safe for concurrent use by the search workers and the
// evaluation goroutine.
type Monitor struct {
	cfg    Config
	log    *logiface.Logger[*stumpy.Event]
	start  time.Time
	cancel context.CancelFunc

	mu          sync.Mutex
	best        float64
	haveBest    bool
	evaluations uint64
	cause       Cause
}

// New builds a Monitor writing watch-log lines to cfg.Output.
func New(cfg Config) *Monitor {
	out := cfg.Output
	if out == nil {
		out = io.Discard
	}
	return &Monitor{
		cfg: cfg,
		log: stumpy.L.New(
			stumpy.L.WithStumpy(stumpy.WithWriter(out)),
		),
		start: time.Now(),
	}
}

// Context derives the context the search runs under: it is cancelled on
// the wall-clock timeout and whenever a recorded evaluation trips the
// evaluation-count or stop-bound budget.
func (m *Monitor) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	m.cancel = cancel
	if m.cfg.Timeout > 0 {
		deadline := time.AfterFunc(m.cfg.Timeout, func() {
			m.terminate(CauseTimeout)
		})
		go func() {
			<-ctx.Done()
			deadline.Stop()
		}()
	}
	return ctx, cancel
}

func (m *Monitor) terminate(cause Cause) {
	m.mu.Lock()
	first := m.cause == CauseNone
	if first {
		m.cause = cause
	}
	m.mu.Unlock()
	if !first {
		return
	}
	m.log.Info().
		Str("event", "termination").
		Str("cause", string(cause)).
		Dur("elapsed", time.Since(m.start)).
		Log("search terminated")
	if m.cancel != nil {
		m.cancel()
	}
}

// Terminate records a caller-decided termination cause (e.g. the
// bound-order driver exhausting the space) and cancels the context.
func (m *Monitor) Terminate(cause Cause) { m.terminate(cause) }

// RecordEvaluation folds one measured score into the monitor's state,
// logs it, and trips any budget it crosses. It reports whether the score
// is a new incumbent.
func (m *Monitor) RecordEvaluation(score float64, depth int) (newBest bool) {
	m.mu.Lock()
	m.evaluations++
	count := m.evaluations
	if !m.haveBest || score < m.best {
		m.best = score
		m.haveBest = true
		newBest = true
	}
	best := m.best
	m.mu.Unlock()

	if newBest {
		m.log.Info().
			Str("event", "new_best").
			Float64("score_ns", score).
			Int("depth", depth).
			Uint64("evaluations", count).
			Dur("elapsed", time.Since(m.start)).
			Log("new best candidate")
	} else {
		m.log.Debug().
			Str("event", "evaluation").
			Float64("score_ns", score).
			Uint64("evaluations", count).
			Log("candidate evaluated")
	}

	if m.cfg.StopBound > 0 && best <= m.cfg.StopBound {
		m.terminate(CauseStopBound)
	} else if m.cfg.MaxEvaluations > 0 && count >= m.cfg.MaxEvaluations {
		m.terminate(CauseMaxEvaluations)
	}
	return newBest
}

// RecordFailure logs an evaluation the device rejected (score +Inf).
func (m *Monitor) RecordFailure(err error) {
	m.mu.Lock()
	m.evaluations++
	count := m.evaluations
	m.mu.Unlock()
	m.log.Warning().
		Str("event", "evaluation_failed").
		Err(err).
		Uint64("evaluations", count).
		Log("candidate evaluation failed")
	if m.cfg.MaxEvaluations > 0 && count >= m.cfg.MaxEvaluations {
		m.terminate(CauseMaxEvaluations)
	}
}

// Best returns the best score recorded so far.
func (m *Monitor) Best() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.best, m.haveBest
}

// Evaluations returns the number of completed evaluations.
func (m *Monitor) Evaluations() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.evaluations
}

// TerminationCause returns the recorded cause, or CauseNone while the
// search is still running.
func (m *Monitor) TerminationCause() Cause {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cause
}
