package eval

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ulysseB/Telamon/space"
)

// ErrEvaluationFailed is wrapped by any error the device backend returns
// during compilation, launch or result collection; the candidate's score is recorded as +Inf rather
// than surfaced to the caller.
var ErrEvaluationFailed = errors.New("eval: evaluation failed")

// ErrReferenceMismatch is wrapped by ReferenceMismatchError.
var ErrReferenceMismatch = errors.New("eval: reference mismatch")

// ReferenceMismatchError reports that a candidate's measured output
// deviated from the reference function's expected result.
// The search continues past it unless the harness is configured Strict.
type ReferenceMismatchError struct {
	Candidate *space.Candidate
	Err       error
}

func (e *ReferenceMismatchError) Error() string {
	return fmt.Sprintf("eval: reference mismatch on candidate at depth %d: %v", e.Candidate.Depth, e.Err)
}

func (e *ReferenceMismatchError) Unwrap() error { return ErrReferenceMismatch }

// Dump renders the offending candidate for diagnosis: its decision list
// plus a JSON snapshot of every choice's current domain.
func (e *ReferenceMismatchError) Dump() string {
	domains := make(map[string]string)
	st := e.Candidate.Space.Store()
	for _, k := range st.Keys() {
		domains[k.String()] = st.Get(k).String()
	}
	actions := make([]string, len(e.Candidate.Actions))
	for i, a := range e.Candidate.Actions {
		if a.Lowering != "" {
			actions[i] = fmt.Sprintf("lower %s%v", a.Lowering, a.Args)
		} else {
			actions[i] = fmt.Sprintf("%s <- %s", a.Key, a.Value)
		}
	}
	out, err := json.MarshalIndent(struct {
		Error   string            `json:"error"`
		Actions []string          `json:"actions"`
		Domains map[string]string `json:"domains"`
	}{e.Err.Error(), actions, domains}, "", "  ")
	if err != nil {
		return e.Error()
	}
	return string(out)
}
