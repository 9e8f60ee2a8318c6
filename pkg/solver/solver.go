package solver

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
)

// Solver of the proportional allocation problem
type Solver struct {
	optimizerSpec *config.OptimizerSpec
}

// Outcome of a solve
type Result struct {
	Allocation core.AllocationMap // allocated units per region
	Strategy   string             // strategy that produced the allocation
	Objective  float64            // summed absolute deviation from the target shares
	MaxDev     float64            // largest absolute deviation from a target share
	NumNodes   int                // branch and bound nodes solved (milp only)
	Optimal    bool               // false if a limit cut the search short
	Duration   time.Duration      // solve time
}

func (r *Result) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "strategy=%s, objective=%v, maxDev=%v, nodes=%d, optimal=%v, time=%d msec\n",
		r.Strategy, r.Objective, r.MaxDev, r.NumNodes, r.Optimal, r.Duration.Milliseconds())
	fmt.Fprintf(&b, "allocation=%v\n", r.Allocation)
	return b.String()
}

// Create a solver; a nil spec uses the defaults
func NewSolver(optimizerSpec *config.OptimizerSpec) *Solver {
	if optimizerSpec == nil {
		optimizerSpec = config.NewDefaultOptimizerSpec()
	}
	return &Solver{
		optimizerSpec: optimizerSpec,
	}
}

func (s *Solver) Spec() *config.OptimizerSpec {
	return s.optimizerSpec
}

// Strategy used for a problem: auto picks milp up to the region limit
func (s *Solver) StrategyFor(problem *core.Problem) string {
	if s.optimizerSpec.Strategy != config.StrategyAuto {
		return s.optimizerSpec.Strategy
	}
	if limit := s.optimizerSpec.MILPRegionLimit; limit > 0 && problem.NumRegions() > limit {
		return config.StrategyGreedy
	}
	return config.StrategyMILP
}

// Find an optimal allocation for the problem
func (s *Solver) Solve(ctx context.Context, problem *core.Problem) (*Result, error) {
	strategy := s.StrategyFor(problem)
	result := &Result{
		Strategy: strategy,
		Optimal:  true,
	}

	startTime := time.Now()
	var values []int
	switch strategy {
	case config.StrategyGreedy:
		var err error
		if values, err = SolveGreedy(problem); err != nil {
			return nil, err
		}
	case config.StrategyMILP:
		mip := NewMILPSolver(s.optimizerSpec, problem)
		if err := mip.Solve(ctx); err != nil {
			return nil, err
		}
		values = mip.Solution()
		result.NumNodes = mip.NumNodes()
		result.Optimal = mip.Optimal()
	default:
		return nil, fmt.Errorf("unknown optimizer strategy %q", strategy)
	}
	result.Duration = time.Since(startTime)

	result.Allocation = problem.AllocationFromSlice(values)
	if err := problem.Check(result.Allocation); err != nil {
		return nil, core.NewSolverError(strategy, core.StatusCheckFailed, err)
	}
	result.Objective = problem.TotalDeviation(result.Allocation)
	result.MaxDev = problem.MaxDeviation(result.Allocation)
	return result, nil
}
