package core

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// InvalidInputError reports malformed demand or stock values. No solve is
// attempted when it is returned.
type InvalidInputError struct {
	Errs field.ErrorList
}

func NewInvalidInputError(errs field.ErrorList) *InvalidInputError {
	return &InvalidInputError{Errs: errs}
}

func (e *InvalidInputError) Error() string {
	if len(e.Errs) == 0 {
		return "invalid input"
	}
	return "invalid input: " + e.Errs.ToAggregate().Error()
}

// Status reported by a failed solve
type SolverStatus string

const (
	StatusInfeasible  SolverStatus = "Infeasible"
	StatusUnbounded   SolverStatus = "Unbounded"
	StatusTimeLimit   SolverStatus = "TimeLimit"
	StatusNodeLimit   SolverStatus = "NodeLimit"
	StatusNumerical   SolverStatus = "Numerical"
	StatusCheckFailed SolverStatus = "CheckFailed"
	StatusModelLimit  SolverStatus = "ModelTooLarge"
)

// Cause wrapped by a SolverError with status Infeasible
var ErrInfeasible = errors.New("allocation problem is infeasible")

// SolverError reports a solve that did not produce an optimal allocation.
type SolverError struct {
	Strategy string       // solve strategy
	Status   SolverStatus // solver status
	Err      error        // underlying diagnostic
}

func NewSolverError(strategy string, status SolverStatus, err error) *SolverError {
	return &SolverError{
		Strategy: strategy,
		Status:   status,
		Err:      err,
	}
}

func (e *SolverError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s solver failed: status=%s", e.Strategy, e.Status)
	}
	return fmt.Sprintf("%s solver failed: status=%s: %v", e.Strategy, e.Status, e.Err)
}

func (e *SolverError) Unwrap() error {
	return e.Err
}

func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

func IsSolverError(err error) bool {
	var target *SolverError
	return errors.As(err, &target)
}

// true if the error is a SolverError for an infeasible problem
func IsInfeasible(err error) bool {
	var target *SolverError
	if errors.As(err, &target) && target.Status == StatusInfeasible {
		return true
	}
	return errors.Is(err, ErrInfeasible)
}
