package mcts

import "errors"

// errNoLiveEdges is returned by a TreePolicy when every child is dead;
// the caller (Tree.Rollout) treats it as "kill the parent and back out",
// not a fatal error.
var errNoLiveEdges = errors.New("mcts: no live edges")
