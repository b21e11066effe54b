package explorer

import (
	"github.com/ulysseB/Telamon/device"
	"github.com/ulysseB/Telamon/domain"
	"github.com/ulysseB/Telamon/ir"
	"github.com/ulysseB/Telamon/mcts"
	"github.com/ulysseB/Telamon/model"
	"github.com/ulysseB/Telamon/space"
)

// DimKindChoice is the choice name the driver inspects to decide whether
// a dimension is vectorized. Kernel registries that expose dimension
// kinds under this name get every dimension that can still be vector
// excluded from thread-level repetition in the bound, so the bound only
// grows as that choice narrows; registries without it see every
// dimension as sequential, and each static trip count multiplies its
// level's duration.
const DimKindChoice = "dim_kind"

// DimKindVector is the enum symbol naming the vector dimension kind.
const DimKindVector = "vector"

// deviceModel adapts a device.Device plus one candidate's SearchSpace to
// the model package's DeviceModel (model stays decoupled from space and
// device; the adapter closes the loop per candidate).
type deviceModel struct {
	dev device.Device
	sp  *space.SearchSpace
}

func (m deviceModel) InstructionPressure(fn *ir.Function, inst ir.InstID) (model.HwPressure, error) {
	return m.dev.HwPressure(fn, inst, m.sp)
}

func (m deviceModel) IsVectorDim(fn *ir.Function, dim ir.DimID) bool {
	v := m.sp.Store().Get(space.NewKey(DimKindChoice, uint32(dim)))
	es, ok := v.(*domain.EnumSet)
	return ok && es.Has(DimKindVector)
}

// NewBoundFunc builds the admissibility oracle the search drivers prune
// with: for each candidate it instantiates the estimator against the
// candidate's own partially constrained space.
func NewBoundFunc(dev device.Device) mcts.BoundFunc {
	return func(c *space.Candidate) (float64, error) {
		est := model.NewEstimator(deviceModel{dev: dev, sp: c.Space})
		return est.FastBound(c.Space.Store().Function(), nil)
	}
}
