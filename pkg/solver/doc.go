// Package solver allocates an integer stock over regions in proportion to
// their forecast demand.
//
// The allocation minimizes the summed absolute deviation between the units
// given to each region and its exact proportional share. Two strategies are
// available:
//
//   - milp: a branch and bound search over the LP relaxation of a mixed
//     integer model, solved with the gonum simplex method.
//   - greedy: the largest remainder method, which reaches the same optimum
//     in O(n log n) and is used for problems too large for the dense simplex.
//
// The auto strategy picks milp for problems up to a configured number of
// regions and greedy beyond it. Ties between equally good allocations are
// broken in favor of the region that comes first in name order.
package solver
