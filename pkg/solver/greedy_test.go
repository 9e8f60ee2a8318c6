package solver

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/walpredict/stock-optimizer/pkg/core"
)

func mustProblem(t *testing.T, demand core.DemandMap, totalStock int) *core.Problem {
	t.Helper()
	p, err := core.NewProblem(demand, totalStock)
	if err != nil {
		t.Fatalf("NewProblem() error = %v", err)
	}
	return p
}

func TestSolveGreedy(t *testing.T) {
	tests := []struct {
		name       string
		demand     core.DemandMap
		totalStock int
		want       core.AllocationMap
	}{
		{
			name:       "exact shares",
			demand:     core.DemandMap{"North": 50, "South": 30, "East": 20},
			totalStock: 100,
			want:       core.AllocationMap{"North": 50, "South": 30, "East": 20},
		},
		{
			name:       "single region takes all",
			demand:     core.DemandMap{"R": 5},
			totalStock: 10,
			want:       core.AllocationMap{"R": 10},
		},
		{
			name:       "equal demand tie goes to first region",
			demand:     core.DemandMap{"B": 10, "A": 10},
			totalStock: 7,
			want:       core.AllocationMap{"A": 4, "B": 3},
		},
		{
			name:       "all zero demand splits equally",
			demand:     core.DemandMap{"A": 0, "B": 0, "C": 0},
			totalStock: 9,
			want:       core.AllocationMap{"A": 3, "B": 3, "C": 3},
		},
		{
			name:       "all zero demand with remainder",
			demand:     core.DemandMap{"A": 0, "B": 0, "C": 0},
			totalStock: 10,
			want:       core.AllocationMap{"A": 4, "B": 3, "C": 3},
		},
		{
			name:       "largest remainder wins",
			demand:     core.DemandMap{"a": 4, "b": 6, "c": 7},
			totalStock: 15,
			want:       core.AllocationMap{"a": 4, "b": 5, "c": 6},
		},
		{
			name:       "zero stock",
			demand:     core.DemandMap{"a": 3, "b": 1},
			totalStock: 0,
			want:       core.AllocationMap{"a": 0, "b": 0},
		},
		{
			name:       "zero demand region gets nothing",
			demand:     core.DemandMap{"a": 0, "b": 2, "c": 1},
			totalStock: 4,
			want:       core.AllocationMap{"a": 0, "b": 3, "c": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustProblem(t, tt.demand, tt.totalStock)
			values, err := SolveGreedy(p)
			if err != nil {
				t.Fatalf("SolveGreedy() error = %v", err)
			}
			got := p.AllocationFromSlice(values)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SolveGreedy() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSolveGreedy_Properties(t *testing.T) {
	demands := []core.DemandMap{
		{"a": 1, "b": 1, "c": 1},
		{"a": 0.3, "b": 12.7, "c": 5, "d": 0},
		{"x": 1e6, "y": 1, "z": 0.001},
		{"a": 2.5, "b": 2.5, "c": 2.5, "d": 2.5, "e": 2.5, "f": 2.5, "g": 2.5},
	}
	stocks := []int{0, 1, 2, 7, 100, 12345}

	for _, demand := range demands {
		for _, stock := range stocks {
			p := mustProblem(t, demand, stock)
			values, err := SolveGreedy(p)
			if err != nil {
				t.Fatalf("SolveGreedy(%v, %d) error = %v", demand, stock, err)
			}
			alloc := p.AllocationFromSlice(values)
			if err := p.Check(alloc); err != nil {
				t.Errorf("SolveGreedy(%v, %d) = %v: %v", demand, stock, alloc, err)
			}
			// every region is within one unit of its target share
			if dev := p.MaxDeviation(alloc); dev >= 1 {
				t.Errorf("SolveGreedy(%v, %d) = %v: max deviation %v", demand, stock, alloc, dev)
			}
		}
	}
}

func TestSolveGreedy_Monotone(t *testing.T) {
	base := core.DemandMap{"a": 3, "b": 5, "c": 8, "d": 1}
	const stock = 37

	before, err := SolveGreedy(mustProblem(t, base, stock))
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range []string{"a", "b", "c", "d"} {
		for _, extra := range []float64{0.1, 1, 4, 20} {
			raised := core.DemandMap{}
			for k, v := range base {
				raised[k] = v
			}
			raised[r] += extra
			after, err := SolveGreedy(mustProblem(t, raised, stock))
			if err != nil {
				t.Fatal(err)
			}
			if after[i] < before[i] {
				t.Errorf("raising demand of %s by %v lowered its allocation from %d to %d",
					r, extra, before[i], after[i])
			}
		}
	}
}
