// Package eventlog implements the append-only search event log:
// a gzipped stream of length-prefixed binary records, each
// one a Message describing a discovered tree node, an evaluation result,
// or a terminating trace, plus the replay machinery that reconstructs a
// candidate from a recorded node id.
package eventlog

import (
	"fmt"
	"time"

	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/space"
)

// RootID is the node id assigned to the initial search space; it has no
// parent and no inbound action.
const RootID uint64 = 0

// ValueRecord is the wire form of a domain.Value. Universes are not
// serialised: they are statically known code, so the record only names
// the surviving members and is resolved against the live universe at
// replay time.
type ValueRecord struct {
	Kind    string // "enum", "numeric", "range", "constant"
	Symbols []string
	Values  []int64
	Min     uint64
	Max     uint64
	HasMax  bool
}

// ActionRecord is the wire form of a space.Action.
type ActionRecord struct {
	Choice   string
	Args     []uint32
	Value    ValueRecord
	Lowering string // non-empty for a forced-lowering action
}

// EncodeAction converts an Action to its wire form. Constant-valued
// restrictions are rejected: constants are never narrowed,
// so no recorded decision can legitimately carry one.
func EncodeAction(a space.Action) (ActionRecord, error) {
	if a.Lowering != "" {
		return ActionRecord{Lowering: a.Lowering, Args: a.Args}, nil
	}
	rec := ActionRecord{Choice: a.Key.Choice, Args: a.Key.Args}
	switch v := a.Value.(type) {
	case *domain.EnumSet:
		rec.Value = ValueRecord{Kind: "enum", Symbols: v.Symbols()}
	case *domain.NumericSet:
		rec.Value = ValueRecord{Kind: "numeric", Values: v.Values()}
	case *domain.Range:
		rec.Value = ValueRecord{Kind: "range", Min: v.Min, Max: v.Max, HasMax: v.HasMax}
	default:
		return ActionRecord{}, fmt.Errorf("eventlog: cannot encode action value %T", a.Value)
	}
	return rec, nil
}

// DecodeAction resolves a wire-form action against a live store: the
// store's current domain at the recorded key supplies the universe the
// record's members are rebuilt in.
func DecodeAction(rec ActionRecord, st *space.Store) (space.Action, error) {
	if rec.Lowering != "" {
		return space.Lower(rec.Lowering, rec.Args...), nil
	}
	key := space.NewKey(rec.Choice, rec.Args...)
	current := st.Get(key)
	if current == nil {
		return space.Action{}, fmt.Errorf("eventlog: recorded key %s not allocated in store", key)
	}
	switch rec.Value.Kind {
	case "enum":
		es, ok := current.(*domain.EnumSet)
		if !ok {
			return space.Action{}, fmt.Errorf("eventlog: %s holds %T, record says enum", key, current)
		}
		return space.Restriction(key, domain.NewEnumSet(es.Universe(), rec.Value.Symbols...)), nil
	case "numeric":
		ns, ok := current.(*domain.NumericSet)
		if !ok {
			return space.Action{}, fmt.Errorf("eventlog: %s holds %T, record says numeric", key, current)
		}
		return space.Restriction(key, domain.NewNumericSet(ns.Universe(), rec.Value.Values...)), nil
	case "range":
		if rec.Value.HasMax {
			return space.Restriction(key, domain.Closed(rec.Value.Min, rec.Value.Max)), nil
		}
		return space.Restriction(key, domain.HalfOpen(rec.Value.Min)), nil
	default:
		return space.Action{}, fmt.Errorf("eventlog: unknown value kind %q", rec.Value.Kind)
	}
}

// Stub describes one unexpanded outgoing edge of a logged node: the
// action it would apply and the child's bound if already computed.
type Stub struct {
	Action ActionRecord
	Bound  float64
	HasBnd bool
}

// NodeMessage records the discovery of one tree node. Action
// is the edge that led here from Parent; unset for the root.
type NodeMessage struct {
	ID            uint64
	Parent        uint64
	Action        ActionRecord
	Children      []Stub
	Bound         float64
	DiscoveryTime time.Time
}

// EvaluationMessage records one measured score for a node.
// Score is +Inf for a
// failed run.
type EvaluationMessage struct {
	ID        uint64
	Score     float64
	Timestamp time.Time
}

// PathEvent is one step of a terminating trace.
type PathEvent struct {
	NodeID uint64
	Action ActionRecord
}

// TraceMessage records the path a terminating rollout took and why it
// ended.
type TraceMessage struct {
	Events []PathEvent
	Cause  string
}

// Message is the tagged union written to the log; exactly one of the
// pointers is non-nil per record.
type Message struct {
	Node       *NodeMessage
	Evaluation *EvaluationMessage
	Trace      *TraceMessage
}
