package space

import "github.com/ulysseB/Telamon/domain"

// Action is one step a search decision can take against a SearchSpace:
// either an atomic restriction of a single choice's domain, or a request
// to apply a choice's designated lowering immediately.
type Action struct {
	// Key and Value are set for a restriction action.
	Key   Key
	Value domain.Value

	// Lowering names the choice whose registered lowering trigger should
	// be forced to fire now, independent of its declared condition. Args
	// selects the instance. Empty for a restriction action.
	Lowering string
	Args     []uint32
}

// Restriction builds an atomic domain-restriction Action.
func Restriction(k Key, v domain.Value) Action { return Action{Key: k, Value: v} }

// Lower builds a forced-lowering Action.
func Lower(choice string, args ...uint32) Action {
	return Action{Lowering: choice, Args: append([]uint32(nil), args...)}
}

func (a Action) isLowering() bool { return a.Lowering != "" }
