// Package device defines the thin external-collaborator interface the
// core consumes from a concrete GPU backend: device limits,
// hardware-pressure contributions, vectorization limits, compilation and
// measured execution. Concrete backends (CUDA/MPPA/x86 code printers, PTX
// emission, cuBLAS baselines) are explicitly out of scope;
// this package only carries the interface plus an in-memory mock used by
// the explorer's tests and example driver.
package device

import (
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/model"
	"github.com/ulysseB/Telamon/space"
)

// Info is the static device description a backend reports: max threads,
// max unrolling, shared mem bytes, L1/L2 cache line and size, wrap size,
// SM count, memory-space support flags. Thread/block/total rates are
// reported by the Device methods, not by Info.
type Info struct {
	MaxThreads     int
	MaxUnrolling   int
	SharedMemBytes uint64
	WrapSize       int
	SMCount        int
	L1LineBytes    uint64
	L1SizeBytes    uint64
	L2LineBytes    uint64
	L2SizeBytes    uint64
	// MemorySpaces lists the memory-space names this device supports
	// (e.g. "global", "shared", "privatised_global").
	MemorySpaces []string
}

// Kernel is the opaque compiled-code handle returned by Compile and
// consumed by Execute. Source/CFG carry the persisted outputs: the
// generated source and the CFG dump.
type Kernel struct {
	Source string
	CFG    string
}

// Device is the external collaborator interface a backend implements. Every
// method is a thin passthrough to backend-specific code the core never
// implements.
type Device interface {
	// DeviceInfo returns the device's static limits and rates.
	DeviceInfo() Info

	// LowerType resolves a pointer type once the memory space it targets
	// is fixed by the given space's decisions; ok is false if the space
	// does not yet constrain the relevant choice enough to decide.
	LowerType(t ir.Type, sp *space.SearchSpace) (lowered ir.Type, ok bool)

	// HwPressure returns one instruction's hardware-pressure
	// contribution, with one entry per bottleneck level.
	HwPressure(fn *ir.Function, inst ir.InstID, sp *space.SearchSpace) (model.HwPressure, error)

	// LoopIterPressure returns the per-iteration and end-of-iteration
	// overhead contributed by a loop of the given dimension kind.
	LoopIterPressure(dimKind string) (perIter, endOfIter model.HwPressure)

	ThreadRates() model.HwPressure
	BlockRates() model.HwPressure
	TotalRates() model.HwPressure

	// Bottlenecks returns the fixed-order list of bottleneck names
	// matched positionally against HwPressure vectors.
	Bottlenecks() []string

	// LowerVectorSize returns the maximum vectorization factor the ISA
	// allows for the given operator.
	LowerVectorSize(op ir.Operator) int

	// Compile lowers fn under the (fully constrained) space to device
	// code at the given optimisation level.
	Compile(fn *ir.Function, sp *space.SearchSpace, optLevel int) (Kernel, error)

	// Execute runs a compiled kernel once and returns the elapsed device
	// clock ticks.
	Execute(k Kernel) (ticks uint64, err error)

	// TicksToNs converts a tick count to nanoseconds using the device's
	// clock rate.
	TicksToNs(ticks uint64) float64
}
