// Package eval implements the async evaluator harness: a
// pool of search workers that roll the MCTS tree out to fully constrained
// candidates, and a single evaluation goroutine that compiles, measures
// and scores them, feeding the result back into the tree: many
// producers, one consumer holding the device handle, a bounded channel
// between them for back-pressure, context cancellation throughout.
package eval

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/space"
)

// Config controls per-candidate measurement and the worker/channel shape
type Config struct {
	NumWorkers     int
	NumEvals       int
	NumOutliers    int
	SkipThreshold  float64
	EvalBufferSize int
	OptLevel       int
}

// DefaultConfig returns the standard measurement defaults.
func DefaultConfig() Config {
	return Config{
		NumWorkers:     1,
		NumEvals:       20,
		NumOutliers:    4,
		SkipThreshold:  3.0,
		EvalBufferSize: 100,
		OptLevel:       0,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.NumWorkers > 0 {
		d.NumWorkers = c.NumWorkers
	}
	if c.NumEvals > 0 {
		d.NumEvals = c.NumEvals
	}
	if c.NumOutliers >= 0 {
		d.NumOutliers = c.NumOutliers
	}
	if c.SkipThreshold > 0 {
		d.SkipThreshold = c.SkipThreshold
	}
	if c.EvalBufferSize > 0 {
		d.EvalBufferSize = c.EvalBufferSize
	}
	d.OptLevel = c.OptLevel
	return d
}

// Job is a fully constrained candidate, along with the rollout path that
// reached it, queued by a search worker for the evaluation goroutine
type Job struct {
	Candidate *space.Candidate
	Path      []*mcts.Edge
}

// CheckFunc validates a compiled kernel's measured output against a
// reference implementation. A non-nil
// error is reported as a ReferenceMismatchError.
type CheckFunc func(k device.Kernel) error

// OnEvaluation is invoked once per completed job, after the score has been
// backpropagated into the tree; used by the monitor to log and to persist
// a new incumbent.
type OnEvaluation func(job Job, score float64, err error)

// Harness drives the two-pool evaluator: search
// workers feed a bounded channel (back-pressure by blocking send); one
// evaluation goroutine drains it, owns the device handle, and is the only
// caller of Device.Execute.
type Harness struct {
	Device device.Device
	Tree   *mcts.Tree
	Config Config
	Check  CheckFunc
	Strict bool
	OnEval OnEvaluation

	jobs     chan Job
	evalDone chan struct{}
}

// Run launches NumWorkers search workers and the evaluation goroutine, and
// blocks until ctx is cancelled and every in-flight job has drained.
// It is safe to call once per Harness.
func (h *Harness) Run(ctx context.Context) {
	cfg := h.Config.withDefaults()
	h.Config = cfg
	h.jobs = make(chan Job, cfg.EvalBufferSize)
	h.evalDone = make(chan struct{})

	go func() {
		defer close(h.evalDone)
		for job := range h.jobs {
			h.measure(job)
		}
	}()

	var wg sync.WaitGroup
	wg.Add(cfg.NumWorkers)
	for i := 0; i < cfg.NumWorkers; i++ {
		go func() {
			defer wg.Done()
			h.searchWorker(ctx)
		}()
	}
	wg.Wait()

	// Dropping the sender here is the cancellation signal: the
	// evaluator drains whatever is already buffered, then its range
	// loop exits.
	close(h.jobs)
	<-h.evalDone
}

// searchWorker repeatedly rolls the tree out to a fully constrained leaf
// and queues it for evaluation, blocking on send when the evaluator is
// saturated.
func (h *Harness) searchWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		cand, path, err := h.Tree.Rollout()
		if err != nil {
			// Infeasible/dead subtrees are absorbed locally;
			// the worker simply tries another rollout. If the whole tree
			// is dead the space is exhausted and the worker exits.
			if dead, _ := h.Tree.Root().IsDead(); dead {
				return
			}
			continue
		}

		select {
		case h.jobs <- Job{Candidate: cand, Path: path}:
		case <-ctx.Done():
			return
		}
	}
}

// measure compiles and scores one job, then backpropagates the result
// into the tree regardless of outcome (a failed evaluation still needs to
// record +Inf so the tree stops favouring that branch).
func (h *Harness) measure(job Job) {
	score, err := h.measureCandidate(job.Candidate)
	h.Tree.Backpropagate(job.Path, score)
	if h.OnEval != nil {
		h.OnEval(job, score, err)
	}
}

func (h *Harness) measureCandidate(c *space.Candidate) (float64, error) {
	return Measure(h.Device, h.Config, c, h.Check, h.Strict, h.Tree.CurrentBest)
}

// Measure compiles and times one fully constrained candidate, applying
// the skip-threshold early abandon and the outlier-trimmed averaging.
// It is shared between the MCTS harness and the
// simpler bound-order driver, which measures inline rather than through
// the worker/evaluator split. currentBest supplies the incumbent score
// for the skip threshold; nil disables skipping.
func Measure(dev device.Device, cfg Config, c *space.Candidate, check CheckFunc, strict bool, currentBest func() (float64, bool)) (float64, error) {
	fn := c.Space.Store().Function()
	kernel, err := dev.Compile(fn, c.Space, cfg.OptLevel)
	if err != nil {
		return mcts.FailScore, fmt.Errorf("eval: %w: compile: %v", ErrEvaluationFailed, err)
	}

	if check != nil {
		if err := check(kernel); err != nil {
			mismatch := &ReferenceMismatchError{Candidate: c, Err: err}
			if strict {
				return mcts.FailScore, mismatch
			}
			// Non-strict: surfaced via the return error for logging, but
			// the search continues past it.
			return mcts.FailScore, mismatch
		}
	}

	samples := make([]float64, 0, cfg.NumEvals)
	var best float64
	haveBest := false
	if currentBest != nil {
		if b, ok := currentBest(); ok {
			best, haveBest = b, true
		}
	}

	for i := 0; i < cfg.NumEvals; i++ {
		ticks, err := dev.Execute(kernel)
		if err != nil {
			return mcts.FailScore, fmt.Errorf("eval: %w: execute: %v", ErrEvaluationFailed, err)
		}
		ns := dev.TicksToNs(ticks)
		if i == 0 && haveBest && ns > cfg.SkipThreshold*best {
			// First timing already far worse than the incumbent: abandon
			// early rather than spend the remaining NumEvals-1 launches
			return ns, nil
		}
		samples = append(samples, ns)
	}

	return trimmedMean(samples, cfg.NumOutliers), nil
}

// trimmedMean averages the samples closest to the median, discarding the
// numOutliers farthest from it. Centering on the median trims both tails:
// spuriously slow samples (thermal throttling, scheduler jitter) and
// spuriously fast ones (a warm-cache fluke) are discarded alike.
func trimmedMean(samples []float64, numOutliers int) float64 {
	if len(samples) == 0 {
		return math.Inf(1)
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	sort.Slice(sorted, func(i, j int) bool {
		return math.Abs(sorted[i]-median) < math.Abs(sorted[j]-median)
	})
	keep := len(sorted) - numOutliers
	if keep <= 0 {
		keep = 1
	}
	kept := sorted[:keep]
	var sum float64
	for _, v := range kept {
		sum += v
	}
	return sum / float64(len(kept))
}
