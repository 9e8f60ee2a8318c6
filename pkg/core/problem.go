package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Largest stock for which every target share is exact in float64
const MaxTotalStock = 1 << 53

// relative distance under which a target share is snapped to an integer
const targetSnapTolerance = 1e-12

var (
	predictionsPath = field.NewPath("predictions")
	totalStockPath  = field.NewPath("total_stock")
)

// An allocation problem: validated demand, stock, and derived target shares.
// Regions are kept in ascending name order and all slices are aligned with it.
type Problem struct {
	regions      []string
	demand       []float64
	totalStock   int
	targets      []float64
	equalWeights bool
}

// Create an allocation problem, validating the input
func NewProblem(demand DemandMap, totalStock int) (*Problem, error) {
	if errs := ValidateInput(demand, totalStock); len(errs) > 0 {
		return nil, NewInvalidInputError(errs)
	}
	regions := demand.Regions()
	p := &Problem{
		regions:    regions,
		demand:     make([]float64, len(regions)),
		totalStock: totalStock,
	}
	for i, r := range regions {
		p.demand[i] = demand[r]
	}
	p.targets, p.equalWeights = TargetShares(p.demand, totalStock)
	return p, nil
}

// Check demand and stock, returning all problems found
func ValidateInput(demand DemandMap, totalStock int) field.ErrorList {
	var allErrs field.ErrorList
	if len(demand) == 0 {
		allErrs = append(allErrs, field.Required(predictionsPath, "at least one region is required"))
	}
	for _, r := range demand.Regions() {
		v := demand[r]
		if r == "" {
			allErrs = append(allErrs, field.Invalid(predictionsPath.Key(r), r, "region name must not be empty"))
		}
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			allErrs = append(allErrs, field.Invalid(predictionsPath.Key(r), fmt.Sprint(v), "demand must be finite"))
		case v < 0:
			allErrs = append(allErrs, field.Invalid(predictionsPath.Key(r), v, "demand must be non-negative"))
		}
	}
	if len(allErrs) == 0 {
		sum := 0.0
		for _, v := range demand {
			sum += v
		}
		if math.IsInf(sum, 0) {
			allErrs = append(allErrs, field.Invalid(predictionsPath, fmt.Sprint(sum), "total demand must be finite"))
		}
	}
	allErrs = append(allErrs, validateStock(totalStock)...)
	return allErrs
}

func validateStock(totalStock int) field.ErrorList {
	var allErrs field.ErrorList
	if totalStock < 0 {
		allErrs = append(allErrs, field.Invalid(totalStockPath, totalStock, "must be non-negative"))
	}
	if int64(totalStock) > MaxTotalStock {
		allErrs = append(allErrs, field.Invalid(totalStockPath, totalStock,
			fmt.Sprintf("must not exceed %d", int64(MaxTotalStock))))
	}
	return allErrs
}

// Convert a wire level stock value to an integer, rejecting non-integral values
func StockFromFloat(v float64) (int, error) {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return 0, NewInvalidInputError(field.ErrorList{
			field.Invalid(totalStockPath, fmt.Sprint(v), "must be finite")})
	case v != math.Trunc(v):
		return 0, NewInvalidInputError(field.ErrorList{
			field.Invalid(totalStockPath, v, "must be an integer")})
	case v < 0:
		return 0, NewInvalidInputError(field.ErrorList{
			field.Invalid(totalStockPath, v, "must be non-negative")})
	case v > MaxTotalStock:
		return 0, NewInvalidInputError(field.ErrorList{
			field.Invalid(totalStockPath, v, fmt.Sprintf("must not exceed %d", int64(MaxTotalStock)))})
	}
	return int(int64(v)), nil
}

// Compute demand proportional target shares of a stock. If all demand is zero,
// every region is weighted equally and the second return value is true.
func TargetShares(demand []float64, totalStock int) ([]float64, bool) {
	targets := make([]float64, len(demand))
	if len(demand) == 0 {
		return targets, false
	}
	stock := float64(totalStock)
	total := floats.Sum(demand)
	if total == 0 {
		for i := range targets {
			targets[i] = snapToInteger(stock / float64(len(demand)))
		}
		return targets, true
	}
	for i, d := range demand {
		targets[i] = snapToInteger(stock * (d / total))
	}
	return targets, false
}

func snapToInteger(v float64) float64 {
	r := math.Round(v)
	if math.Abs(v-r) <= targetSnapTolerance*math.Max(1, math.Abs(v)) {
		return r
	}
	return v
}

// Region names in ascending order
func (p *Problem) Regions() []string {
	return p.regions
}

func (p *Problem) NumRegions() int {
	return len(p.regions)
}

func (p *Problem) TotalStock() int {
	return p.totalStock
}

// Target shares aligned with Regions()
func (p *Problem) Targets() []float64 {
	return p.targets
}

// Demand values aligned with Regions()
func (p *Problem) Demand() []float64 {
	return p.demand
}

// True if all demand was zero and regions are weighted equally
func (p *Problem) EqualWeights() bool {
	return p.equalWeights
}

// Target shares keyed by region
func (p *Problem) TargetMap() map[string]float64 {
	m := make(map[string]float64, len(p.regions))
	for i, r := range p.regions {
		m[r] = p.targets[i]
	}
	return m
}

// Build an allocation map from values aligned with Regions()
func (p *Problem) AllocationFromSlice(values []int) AllocationMap {
	alloc := make(AllocationMap, len(p.regions))
	for i, r := range p.regions {
		alloc[r] = values[i]
	}
	return alloc
}

// Sum of absolute deviations of an allocation from the target shares
func (p *Problem) TotalDeviation(alloc AllocationMap) float64 {
	sum := 0.0
	for i, r := range p.regions {
		sum += math.Abs(float64(alloc[r]) - p.targets[i])
	}
	return sum
}

// Largest absolute deviation of an allocation from the target shares
func (p *Problem) MaxDeviation(alloc AllocationMap) float64 {
	maxDev := 0.0
	for i, r := range p.regions {
		maxDev = math.Max(maxDev, math.Abs(float64(alloc[r])-p.targets[i]))
	}
	return maxDev
}

// Check that an allocation covers exactly the problem regions with
// non-negative values summing to the total stock
func (p *Problem) Check(alloc AllocationMap) error {
	if len(alloc) != len(p.regions) {
		return fmt.Errorf("allocation has %d regions, expected %d", len(alloc), len(p.regions))
	}
	sum := 0
	for _, r := range p.regions {
		v, exists := alloc[r]
		if !exists {
			return fmt.Errorf("allocation is missing region %q", r)
		}
		if v < 0 {
			return fmt.Errorf("allocation for region %q is negative: %d", r, v)
		}
		sum += v
	}
	if sum != p.totalStock {
		return fmt.Errorf("allocation sums to %d, expected %d", sum, p.totalStock)
	}
	return nil
}
