package solver

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/walpredict/stock-optimizer/pkg/config"
	"github.com/walpredict/stock-optimizer/pkg/core"
)

// Find an allocation by the largest remainder method: every region gets the
// floor of its target share, then the units still missing go one each to the
// regions with the largest fractional parts. Ties go to the region that comes
// first in name order. The result minimizes the summed absolute deviation.
func SolveGreedy(problem *core.Problem) ([]int, error) {
	targets := problem.Targets()
	n := len(targets)
	values := make([]int, n)
	remainders := make([]float64, n)
	assigned := 0
	for i, t := range targets {
		floor := math.Floor(t)
		values[i] = int(floor)
		remainders[i] = t - floor
		assigned += values[i]
	}

	// now sum(values) <= total stock, up to one unit short per region with a
	// fractional target, e.g.
	//
	//    total = 10
	//    targets = [ 3.333..., 3.333..., 3.333... ]
	//    values before adjustment = [ 3, 3, 3 ]
	//    missing = 1
	//    values after adjustment = [ 4, 3, 3 ] -> equal remainders, first region wins
	//
	missing := problem.TotalStock() - assigned
	if missing < 0 || missing > n {
		return nil, core.NewSolverError(config.StrategyGreedy, core.StatusNumerical,
			fmt.Errorf("rounded shares are off by %d units for %d regions", missing, n))
	}
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(remainders[b], remainders[a])
	})
	for _, i := range order[:missing] {
		values[i]++
	}
	return values, nil
}
