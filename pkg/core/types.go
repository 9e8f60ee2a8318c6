package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Predicted demand per region
type DemandMap map[string]float64

// Names of regions in ascending order
func (d DemandMap) Regions() []string {
	return slices.Sorted(maps.Keys(d))
}

// Number of units allocated per region
type AllocationMap map[string]int

// Total number of allocated units
func (a AllocationMap) Sum() int {
	sum := 0
	for _, v := range a {
		sum += v
	}
	return sum
}

// Names of regions in ascending order
func (a AllocationMap) Regions() []string {
	return slices.Sorted(maps.Keys(a))
}

func (a AllocationMap) String() string {
	var b strings.Builder
	b.WriteString("{")
	for i, r := range a.Regions() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %d", r, a[r])
	}
	b.WriteString("}")
	return b.String()
}
