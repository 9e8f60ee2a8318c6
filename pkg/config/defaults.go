package config

import "time"

/**
 * Parameters
 */

// solve strategies
const (
	StrategyAuto   = "auto"   // milp for small problems, greedy otherwise
	StrategyMILP   = "milp"   // branch and bound over an LP relaxation
	StrategyGreedy = "greedy" // largest remainder apportionment
)

// default solve strategy
const DefaultStrategy = StrategyAuto

// default solve time budget
var DefaultTimeLimit = 5 * time.Second

// default limit on the number of branch and bound nodes
var DefaultMaxNodes = 10000

// default limit on the number of constraint rows of a MILP model; the
// simplex works on a dense matrix, so this also bounds the cost of one LP
var DefaultMaxModelRows = 256

// default number of regions up to which the auto strategy uses the MILP solver
var DefaultMILPRegionLimit = 64

// default simplex reduced cost tolerance
var DefaultTolerance = 1e-9

// default distance to an integer accepted as integral
var DefaultIntegralityTolerance = 1e-6
