package explorer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/eval"
	"github.com/ulysseB/Telamon/eventlog"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/monitor"
	"github.com/ulysseB/Telamon/space"
)

// Result is what a finished search returns: the best candidate found (nil
// if no feasible implementation exists), its measured score, and how the
// search ended.
type Result struct {
	Best        *space.Candidate
	Score       float64
	Evaluations uint64
	Cause       monitor.Cause
}

// Search runs the configured driver over the decision space of fn under
// registry, measuring candidates on dev. check, if non-nil, validates
// each compiled kernel against the reference output. Infeasible decisions and failed evaluations are
// absorbed; only IO/serialization failures and a strict reference
// mismatch surface as errors.
func Search(ctx context.Context, cfg Config, dev device.Device, registry *space.Registry, fn *ir.Function, check eval.CheckFunc) (*Result, error) {
	cfg = cfg.withDefaults()

	sp, err := space.NewSearchSpace(registry, fn)
	if err != nil {
		// The initial propagation already proved the space empty: no
		// feasible implementation exists at all.
		return &Result{Cause: monitor.CauseExhausted}, nil
	}
	root := space.NewCandidate(sp)
	boundFn := NewBoundFunc(dev)
	rootBound, err := boundFn(root)
	if err != nil {
		return nil, fmt.Errorf("explorer: root bound: %w", err)
	}
	root.Bound = &rootBound

	watch, closeWatch, err := openWatchLog(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer closeWatch()

	mon := monitor.New(monitor.Config{
		Timeout:        cfg.Timeout,
		MaxEvaluations: cfg.MaxEvaluations,
		StopBound:      cfg.StopBound,
		Output:         watch,
	})

	recorder, closeLog, err := openEventLog(cfg, rootBound)
	if err != nil {
		return nil, err
	}
	defer closeLog()

	ctx, cancel := mon.Context(ctx)
	defer cancel()

	var res *Result
	switch cfg.Algorithm {
	case AlgorithmMCTS:
		res, err = runMCTS(ctx, cfg, dev, root, boundFn, check, mon, recorder)
	case AlgorithmBoundOrder:
		res, err = runBoundOrder(ctx, cfg, dev, root, boundFn, check, mon, recorder)
	default:
		return nil, fmt.Errorf("explorer: unknown algorithm %q", cfg.Algorithm)
	}
	if err != nil {
		return nil, err
	}

	if recorder != nil {
		if err := recorder.RecordTrace(string(res.Cause)); err != nil {
			return nil, err
		}
	}
	if res.Best != nil {
		if err := persistBest(cfg, dev, res.Best, res.Score); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func openWatchLog(outputDir string) (io.Writer, func(), error) {
	if outputDir == "" {
		return nil, func() {}, nil
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("explorer: output dir: %w", err)
	}
	f, err := os.Create(filepath.Join(outputDir, "watch.log"))
	if err != nil {
		return nil, nil, fmt.Errorf("explorer: watch.log: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func openEventLog(cfg Config, rootBound float64) (*eventlog.Recorder, func(), error) {
	path := cfg.EventlogPath
	if path == "" && cfg.OutputDir != "" {
		path = filepath.Join(cfg.OutputDir, "eventlog.bin.gz")
	}
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("explorer: eventlog: %w", err)
	}
	w := eventlog.NewWriter(f)
	rec, err := eventlog.NewRecorder(w, rootBound)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return rec, func() {
		w.Close()
		f.Close()
	}, nil
}

// incumbent tracks the best evaluated candidate across workers.
type incumbent struct {
	mu    sync.Mutex
	best  *space.Candidate
	score float64
}

func (b *incumbent) offer(c *space.Candidate, score float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.best == nil || score < b.score {
		b.best, b.score = c, score
		return true
	}
	return false
}

func (b *incumbent) get() (*space.Candidate, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.best, b.score
}

func runMCTS(ctx context.Context, cfg Config, dev device.Device, root *space.Candidate, boundFn mcts.BoundFunc, check eval.CheckFunc, mon *monitor.Monitor, recorder *eventlog.Recorder) (*Result, error) {
	var treeRef *mcts.Tree
	currentBest := func() (float64, bool) {
		if treeRef == nil {
			return 0, false
		}
		return treeRef.CurrentBest()
	}
	policy, err := cfg.treePolicy(currentBest)
	if err != nil {
		return nil, err
	}
	leaf, err := cfg.leafOrder(currentBest, nil)
	if err != nil {
		return nil, err
	}
	topK := cfg.TreePolicy.TopK
	if tag, ok := policy.(mcts.TAG); ok {
		topK = tag.TopK
	}
	tree, err := mcts.NewTree(root, cfg.choiceOrder(), boundFn, policy, topK)
	if err != nil {
		return nil, err
	}
	treeRef = tree
	tree.SetLeafOrder(leaf)

	var inc incumbent
	var strictErr error
	var strictOnce sync.Once

	harness := &eval.Harness{
		Device: dev,
		Tree:   tree,
		Config: eval.Config{
			NumWorkers:     cfg.NumWorkers,
			NumEvals:       cfg.NumEvals,
			NumOutliers:    cfg.NumOutliers,
			SkipThreshold:  cfg.SkipThreshold,
			EvalBufferSize: cfg.EvalBufferSize,
		},
		Check:  check,
		Strict: cfg.Strict,
		OnEval: func(job eval.Job, score float64, evalErr error) {
			if evalErr != nil {
				var mismatch *eval.ReferenceMismatchError
				if errors.As(evalErr, &mismatch) {
					if cfg.Strict {
						strictOnce.Do(func() {
							strictErr = evalErr
							mon.Terminate(monitor.CauseExhausted)
						})
						return
					}
					dumpMismatch(cfg.OutputDir, mismatch)
				}
				mon.RecordFailure(evalErr)
				return
			}
			inc.offer(job.Candidate, score)
			mon.RecordEvaluation(score, job.Candidate.Depth)
			if recorder != nil {
				// An eventlog write failure is fatal, but
				// it happens on the evaluator goroutine; the strict-error
				// slot carries it out.
				if _, err := recorder.RecordEvaluation(job.Candidate, score); err != nil {
					strictOnce.Do(func() {
						strictErr = err
						mon.Terminate(monitor.CauseExhausted)
					})
				}
			}
		},
	}

	harness.Run(ctx)
	if strictErr != nil {
		return nil, strictErr
	}

	cause := mon.TerminationCause()
	if cause == monitor.CauseNone {
		// Workers exited with every budget intact: the tree is dead, the
		// space fully explored.
		mon.Terminate(monitor.CauseExhausted)
		cause = mon.TerminationCause()
	}
	best, score := inc.get()
	return &Result{Best: best, Score: score, Evaluations: mon.Evaluations(), Cause: cause}, nil
}
