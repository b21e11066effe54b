package eventlog

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ulysseB/Telamon/space"
)

// Recorder assigns stable node ids to candidates as they are evaluated
// and emits the Node/Evaluation records the replay machinery consumes.
// Ids are interned per action prefix: two candidates sharing a common
// ancestry share the ancestor's Node records, so the log stores each
// edge exactly once however many rollouts pass through it.
type Recorder struct {
	w *Writer

	mu    sync.Mutex
	ids   map[string]uint64
	next  uint64
	start time.Time
}

// NewRecorder builds a Recorder over w and logs the root node with the
// given bound.
func NewRecorder(w *Writer, rootBound float64) (*Recorder, error) {
	r := &Recorder{
		w:     w,
		ids:   map[string]uint64{"": RootID},
		next:  RootID + 1,
		start: time.Now(),
	}
	err := w.Append(Message{Node: &NodeMessage{
		ID:            RootID,
		Parent:        RootID,
		Bound:         rootBound,
		DiscoveryTime: r.start,
	}})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func prefixKey(recs []ActionRecord) string {
	var b strings.Builder
	for _, rec := range recs {
		fmt.Fprintf(&b, "%s%v|%s|%s%v%v%d:%d:%t;",
			rec.Choice, rec.Args, rec.Lowering, rec.Value.Kind,
			rec.Value.Symbols, rec.Value.Values,
			rec.Value.Min, rec.Value.Max, rec.Value.HasMax)
	}
	return b.String()
}

// RecordEvaluation logs the Node chain for a candidate's action path
// (emitting only the suffix not yet interned) followed by its
// Evaluation record, and returns the leaf's node id.
func (r *Recorder) RecordEvaluation(c *space.Candidate, score float64) (uint64, error) {
	recs := make([]ActionRecord, len(c.Actions))
	for i, a := range c.Actions {
		rec, err := EncodeAction(a)
		if err != nil {
			return 0, err
		}
		recs[i] = rec
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	parent := RootID
	for i := range recs {
		key := prefixKey(recs[:i+1])
		id, ok := r.ids[key]
		if !ok {
			id = r.next
			r.next++
			r.ids[key] = id
			var bound float64
			if i == len(recs)-1 && c.Bound != nil {
				bound = *c.Bound
			}
			err := r.w.Append(Message{Node: &NodeMessage{
				ID:            id,
				Parent:        parent,
				Action:        recs[i],
				Bound:         bound,
				DiscoveryTime: time.Now(),
			}})
			if err != nil {
				return 0, err
			}
		}
		parent = id
	}

	err := r.w.Append(Message{Evaluation: &EvaluationMessage{
		ID:        parent,
		Score:     score,
		Timestamp: time.Now(),
	}})
	return parent, err
}

// RecordTrace logs the termination trace.
func (r *Recorder) RecordTrace(cause string) error {
	return r.w.Append(Message{Trace: &TraceMessage{Cause: cause}})
}
