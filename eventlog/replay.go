package eventlog

import (
	"fmt"

	"github.com/ulysseB/Telamon/space"
)

// Replay reconstructs the candidate a logged node id corresponds to by
// walking the Node records' parent chain back to the root and re-applying
// the recorded actions, in order, to a fresh clone of the initial space
func Replay(messages []Message, nodeID uint64, root *space.Candidate) (*space.Candidate, error) {
	nodes := make(map[uint64]*NodeMessage, len(messages))
	for _, m := range messages {
		if m.Node != nil {
			nodes[m.Node.ID] = m.Node
		}
	}

	var path []*NodeMessage
	for id := nodeID; id != RootID; {
		n, ok := nodes[id]
		if !ok {
			return nil, fmt.Errorf("eventlog: replay: node %d not in log", id)
		}
		path = append(path, n)
		id = n.Parent
	}
	// The chain was collected leaf-first; apply root-first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	cand := root
	for _, n := range path {
		action, err := DecodeAction(n.Action, cand.Space.Store())
		if err != nil {
			return nil, fmt.Errorf("eventlog: replay node %d: %w", n.ID, err)
		}
		next, err := cand.Apply(action)
		if err != nil {
			return nil, fmt.Errorf("eventlog: replay node %d: %w", n.ID, err)
		}
		cand = next
	}
	return cand, nil
}
