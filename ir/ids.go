// Package ir implements the typed tensor-program representation the search
// space is built over: dimensions, instructions, operands, access patterns,
// memory regions, induction variables, SSA-like variables and the function
// signature. A Function starts frozen-then-extendable: freeze snapshots the
// current id counters, and extend appends freshly minted ids, recording them
// in a NewObjs delta the decision store consumes to allocate domains for the
// choices a lowering just introduced.
package ir

import "fmt"

// DimID identifies an iteration dimension within a Function.
type DimID uint32

// InstID identifies an instruction within a Function.
type InstID uint32

// MemID identifies a memory region within a Function.
type MemID uint32

// VarID identifies an SSA-like variable produced by an instruction.
type VarID uint32

func (d DimID) String() string  { return fmt.Sprintf("dim%d", uint32(d)) }
func (i InstID) String() string { return fmt.Sprintf("inst%d", uint32(i)) }
func (m MemID) String() string  { return fmt.Sprintf("mem%d", uint32(m)) }
func (v VarID) String() string  { return fmt.Sprintf("var%d", uint32(v)) }

// idCounter mints dense, monotonically increasing ids for one entity kind.
// It supports freeze (snapshot the current boundary) so a later extend can
// report exactly which ids are new.
type idCounter struct {
	next  uint32
	frame uint32
}

func (c *idCounter) mint() uint32 {
	id := c.next
	c.next++
	return id
}

func (c *idCounter) freeze() { c.frame = c.next }

// newSince returns every id minted since the last freeze, in minting order.
func (c *idCounter) newSince() []uint32 {
	if c.next <= c.frame {
		return nil
	}
	out := make([]uint32, 0, c.next-c.frame)
	for i := c.frame; i < c.next; i++ {
		out = append(out, i)
	}
	return out
}

// NewObjs records the ids introduced by one extend() call, in the order
// each entity kind was minted. The decision store's alloc() consumes this
// delta to create domains for the choices a lowering just introduced.
type NewObjs struct {
	Dims  []DimID
	Insts []InstID
	Mems  []MemID
	Vars  []VarID
}

// IsEmpty reports whether the delta introduced no new entities.
func (n *NewObjs) IsEmpty() bool {
	return n == nil || (len(n.Dims) == 0 && len(n.Insts) == 0 && len(n.Mems) == 0 && len(n.Vars) == 0)
}
