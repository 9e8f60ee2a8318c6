package solver

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// A term of a sparse constraint row
type lpTerm struct {
	col  int
	coef float64
}

// A constraint row: sum of terms equals rhs
type lpRow struct {
	terms []lpTerm
	rhs   float64
}

// Linear program in standard form
//
//	minimize	cost · v
//	s.t.		rows (as equalities)
//				v >= 0
//
// Inequalities are turned into equalities by adding one slack column per row,
// so the constraint matrix always has full row rank when every inequality row
// owns a slack.
type lpModel struct {
	cost []float64
	rows []lpRow
}

// Result of solving the LP relaxation
type lpSolution struct {
	objective float64
	values    []float64
	err       error
}

func newLPModel() *lpModel {
	return &lpModel{}
}

// number of columns (structural and slack variables)
func (m *lpModel) numCols() int {
	return len(m.cost)
}

func (m *lpModel) numRows() int {
	return len(m.rows)
}

// Add a non-negative variable with the given objective coefficient, returning its column
func (m *lpModel) addVariable(cost float64) int {
	m.cost = append(m.cost, cost)
	return len(m.cost) - 1
}

// Add the equality terms = rhs
func (m *lpModel) addEquality(terms []lpTerm, rhs float64) {
	m.rows = append(m.rows, lpRow{terms: terms, rhs: rhs})
}

// Add the inequality terms <= rhs, returning the column of its slack
func (m *lpModel) addLessEqual(terms []lpTerm, rhs float64) int {
	slack := m.addVariable(0)
	row := make([]lpTerm, len(terms), len(terms)+1)
	copy(row, terms)
	m.rows = append(m.rows, lpRow{terms: append(row, lpTerm{col: slack, coef: 1}), rhs: rhs})
	return slack
}

// Add the inequality terms >= rhs, returning the column of its surplus
func (m *lpModel) addGreaterEqual(terms []lpTerm, rhs float64) int {
	slack := m.addVariable(0)
	row := make([]lpTerm, len(terms), len(terms)+1)
	copy(row, terms)
	m.rows = append(m.rows, lpRow{terms: append(row, lpTerm{col: slack, coef: -1}), rhs: rhs})
	return slack
}

// Copy of the model sharing no mutable state with the receiver
func (m *lpModel) clone() *lpModel {
	c := &lpModel{
		cost: make([]float64, len(m.cost)),
		rows: make([]lpRow, len(m.rows)),
	}
	copy(c.cost, m.cost)
	copy(c.rows, m.rows)
	return c
}

// Dense constraint matrix and right hand side; rows with a negative
// right hand side are negated
func (m *lpModel) matrix() (*mat.Dense, []float64) {
	a := mat.NewDense(m.numRows(), m.numCols(), nil)
	b := make([]float64, m.numRows())
	for i, row := range m.rows {
		sign := 1.0
		if row.rhs < 0 {
			sign = -1
		}
		for _, t := range row.terms {
			a.Set(i, t.col, a.At(i, t.col)+sign*t.coef)
		}
		b[i] = sign * row.rhs
	}
	return a, b
}

// Solve the LP with the simplex method. A non-nil basis is tried as the
// initial feasible basis; if it is rejected or the warm solve fails the
// solve starts from scratch. The context is checked before each attempt;
// a running simplex is not interrupted.
func (m *lpModel) solve(ctx context.Context, tol float64, basis []int) lpSolution {
	if err := ctx.Err(); err != nil {
		return lpSolution{err: err}
	}
	a, b := m.matrix()
	c := make([]float64, len(m.cost))
	copy(c, m.cost)

	if basis != nil {
		if sol, ok := simplexFromBasis(c, a, b, tol, basis); ok && sol.err == nil {
			return sol
		}
		if err := ctx.Err(); err != nil {
			return lpSolution{err: err}
		}
	}
	return simplex(c, a, b, tol, nil)
}

// simplex panics on an infeasible initial basis; report that as not ok
func simplexFromBasis(c []float64, a *mat.Dense, b []float64, tol float64, basis []int) (sol lpSolution, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	objective, values, err := lp.Simplex(c, a, b, tol, basis)
	return lpSolution{objective: objective, values: values, err: err}, true
}

func simplex(c []float64, a *mat.Dense, b []float64, tol float64, basis []int) (sol lpSolution) {
	defer func() {
		if r := recover(); r != nil {
			sol = lpSolution{err: fmt.Errorf("simplex failed: %v", r)}
		}
	}()
	objective, values, err := lp.Simplex(c, a, b, tol, basis)
	return lpSolution{objective: objective, values: values, err: err}
}

// true if the error reports an infeasible LP
func isInfeasible(err error) bool {
	return errors.Is(err, lp.ErrInfeasible)
}

// true if the error reports an unbounded LP
func isUnbounded(err error) bool {
	return errors.Is(err, lp.ErrUnbounded)
}
