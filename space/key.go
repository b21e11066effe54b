// Package space implements the decision store and constraint-propagation
// engine: a keyed collection of choice domains, the
// on-change/filter/counter/trigger actions that keep them consistent, and
// the SearchSpace/Candidate types the search driver branches over.
package space

import (
	"fmt"
	"strconv"
	"strings"
)

// Key identifies one instance of a choice: its name plus the concrete
// argument tuple (entity ids) it was instantiated with.
type Key struct {
	Choice string
	Args   []uint32
}

// NewKey builds a Key.
func NewKey(choice string, args ...uint32) Key { return Key{Choice: choice, Args: append([]uint32(nil), args...)} }

// swapped returns the key with its (first two) arguments reversed, used
// for symmetric two-argument choices.
func (k Key) swapped() Key {
	if len(k.Args) != 2 {
		return k
	}
	return Key{Choice: k.Choice, Args: []uint32{k.Args[1], k.Args[0]}}
}

func (k Key) String() string {
	parts := make([]string, len(k.Args))
	for i, a := range k.Args {
		parts[i] = strconv.FormatUint(uint64(a), 10)
	}
	return fmt.Sprintf("%s(%s)", k.Choice, strings.Join(parts, ","))
}

// hashKey is the comparable form used as a map key.
type hashKey string

func (k Key) hash() hashKey { return hashKey(k.String()) }
