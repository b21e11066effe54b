// Package model implements the performance lower-bound estimator: a
// monotone bound that only ever increases as a candidate is narrowed,
// usable to prune the search tree without ever discarding the optimum
package model

import "fmt"

// Bottleneck names the hardware resource whose pressure determines a
// level's duration.
type Bottleneck int

const (
	BottleneckThread Bottleneck = iota
	BottleneckBlock
	BottleneckGlobal
)

func (b Bottleneck) String() string {
	switch b {
	case BottleneckThread:
		return "thread"
	case BottleneckBlock:
		return "block"
	case BottleneckGlobal:
		return "global"
	default:
		return fmt.Sprintf("bottleneck(%d)", int(b))
	}
}

// HwPressure is the resource consumption an instruction or level imposes
// on each hardware dimension, in abstract units. It is
// additive across instructions sharing a level and takes the max across
// parallel levels.
type HwPressure struct {
	Thread uint64
	Block  uint64
	Global uint64
}

// Add accumulates another pressure additively (instructions issued in
// sequence on the same level).
func (p HwPressure) Add(o HwPressure) HwPressure {
	return HwPressure{Thread: p.Thread + o.Thread, Block: p.Block + o.Block, Global: p.Global + o.Global}
}

// Max takes the per-dimension maximum (levels running in parallel).
func (p HwPressure) Max(o HwPressure) HwPressure {
	return HwPressure{Thread: maxU64(p.Thread, o.Thread), Block: maxU64(p.Block, o.Block), Global: maxU64(p.Global, o.Global)}
}

// Scale multiplies every dimension by a repetition factor (a dimension's
// loop trip count).
func (p HwPressure) Scale(factor uint64) HwPressure {
	return HwPressure{Thread: p.Thread * factor, Block: p.Block * factor, Global: p.Global * factor}
}

// Dominant returns the bottleneck resource and its value: the slowest of
// the three dimensions determines how long the level actually takes.
func (p HwPressure) Dominant() (Bottleneck, uint64) {
	b, v := BottleneckThread, p.Thread
	if p.Block > v {
		b, v = BottleneckBlock, p.Block
	}
	if p.Global > v {
		b, v = BottleneckGlobal, p.Global
	}
	return b, v
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
