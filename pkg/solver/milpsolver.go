package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
)

// Columns and slack columns of the model for one region
type regionCols struct {
	x       int // allocated units
	d       int // absolute deviation from target
	under   int // slack of x - d <= t
	over    int // surplus of x + d >= t
	secant  int // slack of the secant cut, -1 if the target is integral
	floor   float64
	fracPrt float64
}

// Branch and bound node: the root model plus bound rows
type bnbNode struct {
	model *lpModel
	depth int
}

// MILP solver of the proportional allocation problem
//
//	minimize	sum_i d_i
//	s.t.		sum_i x_i = T
//				x_i - d_i <= t_i
//				x_i + d_i >= t_i
//				(1 - 2f_i) x_i - d_i <= (1 - 2f_i) floor(t_i) - f_i	(f_i = frac(t_i) > 0)
//				x_i integer, x_i, d_i >= 0
//
// The secant cut is valid for every integer x_i and makes the LP relaxation
// describe the convex hull of each region's integer deviation curve, so the
// root relaxation is usually integral and branching is rarely needed.
type MILPSolver struct {
	optimizerSpec *config.OptimizerSpec
	problem       *core.Problem

	numRegions int          // number of regions
	targets    []float64    // [numRegions]
	cols       []regionCols // [numRegions]
	model      *lpModel     // root model
	basis      []int        // initial basis of the root model, nil for a cold start

	incumbent    []int   // best integer allocation found [numRegions]
	bestObjValue float64 // objective of the incumbent
	solution     []int   // resulting allocation [numRegions]
	objValue     float64 // resulting objective
	numNodes     int     // number of branch and bound nodes solved
	optimal      bool    // solution proven optimal

	relaxationErr error // numerical failure of the LP relaxation, if the incumbent was kept
}

func NewMILPSolver(optimizerSpec *config.OptimizerSpec, problem *core.Problem) *MILPSolver {
	return &MILPSolver{
		optimizerSpec: optimizerSpec,
		problem:       problem,
		bestObjValue:  math.Inf(1),
	}
}

func (v *MILPSolver) Solve(ctx context.Context) error {
	v.preProcess()

	if err := v.createProblem(); err != nil {
		return err
	}
	if err := v.optimize(ctx); err != nil {
		return err
	}
	return v.postProcess()
}

// prepare input data and the heuristic incumbent
func (v *MILPSolver) preProcess() {
	v.numRegions = v.problem.NumRegions()
	v.targets = v.problem.Targets()

	// the largest remainder allocation is an optimal candidate and bounds the search
	if values, err := SolveGreedy(v.problem); err == nil {
		v.incumbent = values
		v.bestObjValue = v.deviation(values)
	}
}

// build the root model and, if possible, a warm start basis from the incumbent
func (v *MILPSolver) createProblem() error {
	m := newLPModel()
	v.cols = make([]regionCols, v.numRegions)
	for i := range v.cols {
		v.cols[i].x = m.addVariable(0)
		v.cols[i].d = m.addVariable(1)
	}

	// conservation of stock
	sumTerms := make([]lpTerm, v.numRegions)
	for i := range v.cols {
		sumTerms[i] = lpTerm{col: v.cols[i].x, coef: 1}
	}
	m.addEquality(sumTerms, float64(v.problem.TotalStock()))

	// deviation
	for i, t := range v.targets {
		c := &v.cols[i]
		c.floor = math.Floor(t)
		c.fracPrt = t - c.floor
		c.under = m.addLessEqual([]lpTerm{{col: c.x, coef: 1}, {col: c.d, coef: -1}}, t)
		c.over = m.addGreaterEqual([]lpTerm{{col: c.x, coef: 1}, {col: c.d, coef: 1}}, t)
		c.secant = -1
		if c.fracPrt > 0 {
			slope := 1 - 2*c.fracPrt
			c.secant = m.addLessEqual([]lpTerm{{col: c.x, coef: slope}, {col: c.d, coef: -1}},
				slope*c.floor-c.fracPrt)
		}
	}

	if limit := v.optimizerSpec.MaxModelRows; limit > 0 && m.numRows() > limit {
		return core.NewSolverError(config.StrategyMILP, core.StatusModelLimit,
			fmt.Errorf("model has %d rows for %d regions, limit is %d", m.numRows(), v.numRegions, limit))
	}
	v.model = m
	v.basis = v.warmStartBasis()
	return nil
}

// Basis of the root model matching the incumbent: x and d of every region,
// the one non-tight deviation row slack of every fractional region, and one
// extra degenerate slack of the first region to cover the stock row.
func (v *MILPSolver) warmStartBasis() []int {
	if v.incumbent == nil || v.numRegions == 0 {
		return nil
	}
	basis := make([]int, 0, v.model.numRows())
	for i, c := range v.cols {
		basis = append(basis, c.x, c.d)
		value := float64(v.incumbent[i])
		var extra int
		switch {
		case c.secant < 0 && value == c.floor:
			extra = c.under
		case c.secant >= 0 && value == c.floor:
			basis = append(basis, c.under)
			extra = c.over
		case c.secant >= 0 && value == c.floor+1:
			basis = append(basis, c.over)
			extra = c.under
		default:
			return nil
		}
		if i == 0 {
			basis = append(basis, extra)
		}
	}
	if len(basis) != v.model.numRows() {
		return nil
	}
	return basis
}

// run depth first branch and bound over the LP relaxation
func (v *MILPSolver) optimize(ctx context.Context) error {
	if limit := v.optimizerSpec.TimeLimit(); limit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, limit)
		defer cancel()
	}
	tol := v.optimizerSpec.Tolerance
	gap := v.optimizerSpec.IntegralityTolerance

	v.optimal = true
	stack := []bnbNode{{model: v.model}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return v.stopSearch(core.StatusTimeLimit, err)
		}
		if maxNodes := v.optimizerSpec.MaxNodes; maxNodes > 0 && v.numNodes >= maxNodes {
			return v.stopSearch(core.StatusNodeLimit,
				fmt.Errorf("explored %d nodes with %d open", v.numNodes, len(stack)))
		}

		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var basis []int
		if node.depth == 0 {
			basis = v.basis
		}
		sol := node.model.solve(ctx, tol, basis)
		v.numNodes++

		switch {
		case sol.err == nil:
		case errors.Is(sol.err, context.Canceled) || errors.Is(sol.err, context.DeadlineExceeded):
			return v.stopSearch(core.StatusTimeLimit, sol.err)
		case isInfeasible(sol.err) && node.depth > 0:
			continue
		case isInfeasible(sol.err) && v.incumbent == nil:
			return core.NewSolverError(config.StrategyMILP, core.StatusInfeasible,
				fmt.Errorf("%w: %v", core.ErrInfeasible, sol.err))
		case isUnbounded(sol.err):
			return core.NewSolverError(config.StrategyMILP, core.StatusUnbounded, sol.err)
		case v.incumbent == nil:
			return core.NewSolverError(config.StrategyMILP, core.StatusNumerical, sol.err)
		default:
			// the relaxation failed numerically, but the incumbent is already
			// optimal: largest remainder rounding minimizes the summed deviation
			v.relaxationErr = sol.err
			v.solution = v.incumbent
			v.objValue = v.bestObjValue
			return nil
		}

		// bound
		if sol.objective >= v.bestObjValue-gap {
			continue
		}

		branch := v.branchingRegion(sol.values, gap)
		if branch < 0 {
			v.incumbent = v.roundSolution(sol.values)
			v.bestObjValue = v.deviation(v.incumbent)
			continue
		}

		// push the farther side first so the nearer side is explored next
		x := sol.values[v.cols[branch].x]
		floor := math.Floor(x)
		down := node.model.clone()
		down.addLessEqual([]lpTerm{{col: v.cols[branch].x, coef: 1}}, floor)
		up := node.model.clone()
		up.addGreaterEqual([]lpTerm{{col: v.cols[branch].x, coef: 1}}, floor+1)
		downNode := bnbNode{model: down, depth: node.depth + 1}
		upNode := bnbNode{model: up, depth: node.depth + 1}
		if x-floor < 0.5 {
			stack = append(stack, upNode, downNode)
		} else {
			stack = append(stack, downNode, upNode)
		}
	}

	if v.incumbent == nil {
		return core.NewSolverError(config.StrategyMILP, core.StatusInfeasible, core.ErrInfeasible)
	}
	v.solution = v.incumbent
	v.objValue = v.bestObjValue
	return nil
}

// End the search early: keep the incumbent if allowed and there is one, fail otherwise
func (v *MILPSolver) stopSearch(status core.SolverStatus, err error) error {
	if v.incumbent == nil || !v.optimizerSpec.AcceptIncumbent {
		return core.NewSolverError(config.StrategyMILP, status, err)
	}
	v.solution = v.incumbent
	v.objValue = v.bestObjValue
	v.optimal = false
	return nil
}

// first region whose allocation is not integral, -1 if none
func (v *MILPSolver) branchingRegion(values []float64, gap float64) int {
	for i, c := range v.cols {
		x := values[c.x]
		if math.Abs(x-math.Round(x)) > gap {
			return i
		}
	}
	return -1
}

func (v *MILPSolver) roundSolution(values []float64) []int {
	rounded := make([]int, v.numRegions)
	for i, c := range v.cols {
		rounded[i] = int(math.Round(values[c.x]))
	}
	return rounded
}

// summed absolute deviation of integer values from the targets
func (v *MILPSolver) deviation(values []int) float64 {
	dev := make([]float64, len(values))
	for i, x := range values {
		dev[i] = math.Abs(float64(x) - v.targets[i])
	}
	return floats.Sum(dev)
}

// check the resulting allocation
func (v *MILPSolver) postProcess() error {
	alloc := v.problem.AllocationFromSlice(v.solution)
	if err := v.problem.Check(alloc); err != nil {
		return core.NewSolverError(config.StrategyMILP, core.StatusCheckFailed, err)
	}
	return nil
}

// Allocation values aligned with the problem regions
func (v *MILPSolver) Solution() []int {
	return v.solution
}

func (v *MILPSolver) ObjectiveValue() float64 {
	return v.objValue
}

func (v *MILPSolver) NumNodes() int {
	return v.numNodes
}

// True if the search completed, false if it stopped at a limit and fell back to the incumbent
func (v *MILPSolver) Optimal() bool {
	return v.optimal
}

// Numerical failure of the LP relaxation that ended the search with the
// rounding incumbent, nil otherwise
func (v *MILPSolver) RelaxationErr() error {
	return v.relaxationErr
}
