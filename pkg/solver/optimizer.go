package solver

import (
	"bytes"
	"context"
	"fmt"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
)

// Optimizer allocates stock to regions; it holds no per-call state and may
// be shared by concurrent callers.
type Optimizer struct {
	spec *config.OptimizerSpec
}

// Create optimizer with the given spec; a nil spec uses the defaults
func NewOptimizer(spec *config.OptimizerSpec) *Optimizer {
	if spec == nil {
		spec = config.NewDefaultOptimizerSpec()
	}
	return &Optimizer{
		spec: spec,
	}
}

// Create optimizer from spec
func NewOptimizerFromSpec(byteValue []byte) (*Optimizer, error) {
	spec, err := config.ParseOptimizerSpec(byteValue)
	if err != nil {
		return nil, err
	}
	return NewOptimizer(spec), nil
}

func (o *Optimizer) Spec() *config.OptimizerSpec {
	return o.spec
}

// Allocate the total stock over the regions in proportion to their demand
func (o *Optimizer) Optimize(ctx context.Context, demand core.DemandMap, totalStock int) (*Result, error) {
	return o.OptimizeWith(ctx, demand, totalStock, nil)
}

// Allocate with the optimizer spec overridden by the set fields of override
func (o *Optimizer) OptimizeWith(ctx context.Context, demand core.DemandMap, totalStock int,
	override *config.OptimizerSpec) (*Result, error) {
	spec := o.spec
	if override != nil {
		spec = o.spec.Merge(override)
		if err := spec.Validate(); err != nil {
			return nil, err
		}
	}
	problem, err := core.NewProblem(demand, totalStock)
	if err != nil {
		return nil, err
	}
	return NewSolver(spec).Solve(ctx, problem)
}

func (o *Optimizer) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Optimizer: strategy=%s, timeLimit=%d msec, maxNodes=%d, maxModelRows=%d, milpRegionLimit=%d\n",
		o.spec.Strategy, o.spec.TimeLimitMsec, o.spec.MaxNodes, o.spec.MaxModelRows, o.spec.MILPRegionLimit)
	return b.String()
}

// Allocate the total stock over the regions with the default optimizer spec
func Allocate(ctx context.Context, demand core.DemandMap, totalStock int) (core.AllocationMap, error) {
	result, err := NewOptimizer(nil).Optimize(ctx, demand, totalStock)
	if err != nil {
		return nil, err
	}
	return result.Allocation, nil
}
