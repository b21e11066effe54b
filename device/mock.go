package device

import (
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/model"
	"github.com/ulysseB/Telamon/space"
)

// MockDevice is an in-memory stand-in used by tests and the example
// driver. It reports a small,
// fixed set of device limits and synthesizes a runtime from the length of
// the kernel source it renders plus jitter drawn from one seeded
// generator, so runs with the same seed and the same sequence of
// executions are reproducible.
type MockDevice struct {
	Rng        *rand.Rand
	ClockGHz   float64 // device_ticks -> ns conversion
	executions int64   // atomic counter, exposed via Executions for tests
}

// NewMockDevice builds a MockDevice with a deterministic seed.
func NewMockDevice(seed int64) *MockDevice {
	return &MockDevice{Rng: rand.New(rand.NewSource(seed)), ClockGHz: 1.5}
}

// Executions returns how many times Execute has been called so far.
func (d *MockDevice) Executions() int64 { return atomic.LoadInt64(&d.executions) }

func (d *MockDevice) DeviceInfo() Info {
	return Info{
		MaxThreads:     1024,
		MaxUnrolling:   8,
		SharedMemBytes: 48 * 1024,
		WrapSize:       32,
		SMCount:        80,
		L1LineBytes:    128,
		L1SizeBytes:    128 * 1024,
		L2LineBytes:    32,
		L2SizeBytes:    6 * 1024 * 1024,
		MemorySpaces:   []string{"global", "shared", "privatised_global"},
	}
}

func (d *MockDevice) LowerType(t ir.Type, sp *space.SearchSpace) (ir.Type, bool) {
	if t.Kind != ir.KindPointerLogical {
		return t, true
	}
	// The mock does not distinguish address spaces, so any logical
	// pointer lowers to the device's native 64-bit width.
	return t.Lower(64), true
}

// HwPressure charges a flat per-instruction cost, scaled up for memory
// operators (loads/stores) to approximate a device where memory
// instructions are the usual bottleneck.
func (d *MockDevice) HwPressure(fn *ir.Function, id ir.InstID, sp *space.SearchSpace) (model.HwPressure, error) {
	inst, ok := fn.Instruction(id)
	if !ok {
		return model.HwPressure{}, fmt.Errorf("device: unknown instruction %s", id)
	}
	switch inst.Op.Kind {
	case ir.OpLoad, ir.OpStore, ir.OpTmpLoad, ir.OpTmpStore:
		return model.HwPressure{Thread: 4, Block: 1, Global: 1}, nil
	default:
		return model.HwPressure{Thread: 1, Block: 0, Global: 0}, nil
	}
}

func (d *MockDevice) LoopIterPressure(dimKind string) (perIter, endOfIter model.HwPressure) {
	return model.HwPressure{Thread: 1}, model.HwPressure{Thread: 1}
}

func (d *MockDevice) ThreadRates() model.HwPressure { return model.HwPressure{Thread: 1, Block: 1, Global: 1} }
func (d *MockDevice) BlockRates() model.HwPressure  { return model.HwPressure{Thread: 1, Block: 1, Global: 1} }
func (d *MockDevice) TotalRates() model.HwPressure  { return model.HwPressure{Thread: 1, Block: 1, Global: 1} }

func (d *MockDevice) Bottlenecks() []string { return []string{"thread", "block", "global"} }

func (d *MockDevice) LowerVectorSize(op ir.Operator) int { return 4 }

// Compile renders a minimal textual dump of the function; it does not
// emit real device code.
func (d *MockDevice) Compile(fn *ir.Function, sp *space.SearchSpace, optLevel int) (Kernel, error) {
	if !sp.IsConstrained() {
		return Kernel{}, fmt.Errorf("device: cannot compile a partially constrained space")
	}
	return Kernel{
		Source: fmt.Sprintf("// mock kernel %q, %d instructions, opt=%d\n", fn.Signature.Name, len(fn.Instructions()), optLevel),
		CFG:    fmt.Sprintf("digraph %s { }\n", fn.Signature.Name),
	}, nil
}

// Execute synthesizes a runtime proportional to the kernel's rendered
// size plus deterministic jitter, standing in for a real launch+timer.
func (d *MockDevice) Execute(k Kernel) (uint64, error) {
	atomic.AddInt64(&d.executions, 1)
	base := uint64(len(k.Source)) * 1000
	jitter := uint64(d.Rng.Int63n(int64(base/10 + 1)))
	return base + jitter, nil
}

func (d *MockDevice) TicksToNs(ticks uint64) float64 {
	return float64(ticks) / d.ClockGHz
}
