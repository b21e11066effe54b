package explorer

import (
	"container/heap"
	"context"
	"errors"

	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/eval"
	"github.com/ulysseB/Telamon/eventlog"
	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/monitor"
	"github.com/ulysseB/Telamon/space"
)

// candidateQueue is a min-heap of candidates ordered by model bound, the
// priority list behind the simpler search variant.
type candidateQueue []*space.Candidate

func (q candidateQueue) Len() int { return len(q) }
func (q candidateQueue) Less(i, j int) bool {
	return *q[i].Bound < *q[j].Bound
}
func (q candidateQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *candidateQueue) Push(x any) { *q = append(*q, x.(*space.Candidate)) }
func (q *candidateQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return c
}

// runBoundOrder is best-first branch and bound: repeatedly take the
// queued candidate with the lowest bound, evaluate it if fully
// constrained, branch it otherwise, pruning every child whose bound
// already exceeds the incumbent. Measurement happens inline on the
// driver goroutine; the queue is the suspension point the bounded
// channel provides in the MCTS harness.
func runBoundOrder(ctx context.Context, cfg Config, dev device.Device, root *space.Candidate, boundFn mcts.BoundFunc, check eval.CheckFunc, mon *monitor.Monitor, recorder *eventlog.Recorder) (*Result, error) {
	order := cfg.choiceOrder()
	evalCfg := eval.Config{
		NumEvals:       cfg.NumEvals,
		NumOutliers:    cfg.NumOutliers,
		SkipThreshold:  cfg.SkipThreshold,
		EvalBufferSize: cfg.EvalBufferSize,
		NumWorkers:     1,
	}

	var inc incumbent
	currentBest := func() (float64, bool) {
		best, score := inc.get()
		if best == nil {
			return 0, false
		}
		return score, true
	}

	queue := &candidateQueue{root}
	heap.Init(queue)

	for queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return boundOrderResult(&inc, mon), nil
		default:
		}

		c := heap.Pop(queue).(*space.Candidate)
		if best, ok := currentBest(); ok && *c.Bound >= best {
			// Everything left in the queue has an even larger bound.
			break
		}

		if c.Space.IsConstrained() {
			score, err := eval.Measure(dev, evalCfg, c, check, cfg.Strict, currentBest)
			if err != nil {
				var mismatch *eval.ReferenceMismatchError
				if errors.As(err, &mismatch) {
					if cfg.Strict {
						return nil, err
					}
					dumpMismatch(cfg.OutputDir, mismatch)
				}
				mon.RecordFailure(err)
				continue
			}
			inc.offer(c, score)
			mon.RecordEvaluation(score, c.Depth)
			if recorder != nil {
				if _, err := recorder.RecordEvaluation(c, score); err != nil {
					return nil, err
				}
			}
			continue
		}

		_, actions, ok, err := space.Enumerate(c.Space.Store(), order)
		if err != nil || !ok {
			continue
		}
		for _, a := range actions {
			child, err := c.Apply(a)
			if err != nil {
				// Infeasible branch, absorbed.
				continue
			}
			b, err := boundFn(child)
			if err != nil {
				continue
			}
			child.Bound = &b
			if best, ok := currentBest(); ok && b >= best {
				continue
			}
			heap.Push(queue, child)
		}
	}

	mon.Terminate(monitor.CauseExhausted)
	return boundOrderResult(&inc, mon), nil
}

func boundOrderResult(inc *incumbent, mon *monitor.Monitor) *Result {
	best, score := inc.get()
	return &Result{Best: best, Score: score, Evaluations: mon.Evaluations(), Cause: mon.TerminationCause()}
}
