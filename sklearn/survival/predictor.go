package survival

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/core/parallel"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
)

// PredictHazard returns the (K, M) matrix of interval hazards for the M rows
// of X: entry (k, m) is the probability that subject m has the event within
// interval k given it survived to the start of k.
//
// Every probability returned by a classifier is checked: NaN or Inf yields a
// *errors.NumericalInstabilityError and values outside [0, 1] a
// *errors.ValueError, both wrapped in *errors.IntervalError.
func (e *DiscreteTimeEnsemble) PredictHazard(X mat.Matrix) (*mat.Dense, error) {
	fs, err := e.snapshot("PredictHazard")
	if err != nil {
		return nil, err
	}
	return e.predictHazard(fs, X)
}

func (e *DiscreteTimeEnsemble) predictHazard(fs fittedState, X mat.Matrix) (*mat.Dense, error) {
	m, nFeatures := X.Dims()
	if nFeatures != fs.nFeatures {
		return nil, errors.NewDimensionError(e.name+".PredictHazard", fs.nFeatures, nFeatures, 1)
	}
	if m == 0 {
		return nil, errors.NewModelError(e.name+".PredictHazard", "empty data", errors.ErrEmptyData)
	}

	k := len(fs.estimators)
	hazard := mat.NewDense(k, m, nil)

	err := parallel.ForEach(k, e.workers, func(i int) error {
		row, err := predictInterval(fs.estimators[i], X, m, i)
		if err != nil {
			return errors.NewIntervalError("predict", i, err)
		}
		// Rows are disjoint, so concurrent SetRow calls do not overlap.
		hazard.SetRow(i, row)
		return nil
	})
	if err != nil {
		e.logger.Error("Prediction failed", err, log.OperationKey, log.OperationPredict)
		return nil, err
	}

	e.logger.Debug("Hazards predicted",
		log.OperationKey, log.OperationPredict,
		log.PredsKey, m,
		log.NBinsKey, k,
	)
	return hazard, nil
}

// predictInterval extracts the event-class probability (column 1) of one classifier.
func predictInterval(clf model.Classifier, X mat.Matrix, m, k int) ([]float64, error) {
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	r, c := proba.Dims()
	if r != m {
		return nil, errors.NewDimensionError("PredictProba", m, r, 0)
	}
	if c < 2 {
		return nil, errors.NewValueError("PredictProba",
			fmt.Sprintf("expected at least 2 class columns, got %d", c))
	}

	row := make([]float64, m)
	for j := 0; j < m; j++ {
		row[j] = proba.At(j, 1)
	}
	if err := errors.CheckProbabilities("PredictProba", row, k); err != nil {
		return nil, err
	}
	return row, nil
}

// PredictSurvival returns the raw (M, K) survival matrix: entry (m, k) is the
// probability that subject m survives past TimeBins()[k]. Each row is
// non-increasing and lies in [0, 1].
func (e *DiscreteTimeEnsemble) PredictSurvival(X mat.Matrix) (*mat.Dense, error) {
	fs, err := e.snapshot("PredictSurvival")
	if err != nil {
		return nil, err
	}
	hazard, err := e.predictHazard(fs, X)
	if err != nil {
		return nil, err
	}
	return CumulativeSurvival(hazard, e.workers), nil
}

// PredictSurvivalFunction returns one step function per row of X over the
// fitted time bins. At every boundary it agrees with PredictSurvival.
func (e *DiscreteTimeEnsemble) PredictSurvivalFunction(X mat.Matrix) ([]*StepFunction, error) {
	fs, err := e.snapshot("PredictSurvivalFunction")
	if err != nil {
		return nil, err
	}
	hazard, err := e.predictHazard(fs, X)
	if err != nil {
		return nil, err
	}
	return NewStepFunctions(fs.timeBins, CumulativeSurvival(hazard, e.workers))
}
