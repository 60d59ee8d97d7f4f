package survival

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// StepFunction is a right-continuous piecewise-constant function defined on
// [X[0], X[len(X)-1]]. It takes the value Y[i] on [X[i], X[i+1]).
type StepFunction struct {
	X []float64
	Y []float64
}

// NewStepFunction copies x and y into a step function. x must be strictly
// increasing and have the same length as y.
func NewStepFunction(x, y []float64) (*StepFunction, error) {
	if len(x) == 0 {
		return nil, errors.NewModelError("NewStepFunction", "empty domain", errors.ErrEmptyData)
	}
	if len(x) != len(y) {
		return nil, errors.NewDimensionError("NewStepFunction", len(x), len(y), 0)
	}
	if err := validateTimeBins("NewStepFunction", x); err != nil {
		return nil, err
	}
	return &StepFunction{
		X: append([]float64(nil), x...),
		Y: append([]float64(nil), y...),
	}, nil
}

// Domain returns the closed interval on which the function is defined.
func (f *StepFunction) Domain() (lo, hi float64) {
	return f.X[0], f.X[len(f.X)-1]
}

// Eval returns the value at t. Points outside the domain are rejected with a
// *errors.ValueError.
func (f *StepFunction) Eval(t float64) (float64, error) {
	lo, hi := f.Domain()
	if math.IsNaN(t) || t < lo || t > hi {
		return 0, errors.NewValueError("StepFunction.Eval",
			fmt.Sprintf("x is out of domain: %v not in [%v, %v]", t, lo, hi))
	}
	i := sort.SearchFloat64s(f.X, t)
	if i == len(f.X) || f.X[i] != t {
		i--
	}
	return f.Y[i], nil
}

// EvalMany evaluates the function at every point of ts.
func (f *StepFunction) EvalMany(ts []float64) ([]float64, error) {
	out := make([]float64, len(ts))
	for i, t := range ts {
		v, err := f.Eval(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// NewStepFunctions builds one step function per row of surv, an (M, K)
// matrix aligned with the K time bins.
func NewStepFunctions(timeBins []float64, surv mat.Matrix) ([]*StepFunction, error) {
	m, k := surv.Dims()
	if k != len(timeBins) {
		return nil, errors.NewDimensionError("NewStepFunctions", len(timeBins), k, 1)
	}
	fns := make([]*StepFunction, m)
	for i := 0; i < m; i++ {
		fn, err := NewStepFunction(timeBins, mat.Row(nil, i, surv))
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}
