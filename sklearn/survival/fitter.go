package survival

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/core/parallel"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
)

// fitIntervals fits one classifier per target column. Intervals are
// independent and run on the worker pool; the bank is gathered by index.
func (e *DiscreteTimeEnsemble) fitIntervals(X mat.Matrix, targets *mat.Dense) ([]model.Classifier, []int, error) {
	_, k := targets.Dims()
	bank := make([]model.Classifier, k)
	isDegenerate := make([]bool, k)

	err := parallel.ForEach(k, e.workers, func(i int) error {
		clf, degenerate, err := e.fitInterval(X, targets, i)
		if err != nil {
			return err
		}
		bank[i] = clf
		isDegenerate[i] = degenerate
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	var degenerate []int
	for i, d := range isDegenerate {
		if d {
			degenerate = append(degenerate, i)
		}
	}
	return bank, degenerate, nil
}

// fitInterval fits the classifier of interval k on the subjects whose outcome
// in that interval is known.
func (e *DiscreteTimeEnsemble) fitInterval(X mat.Matrix, targets *mat.Dense, k int) (model.Classifier, bool, error) {
	Xk, yk := maskInterval(X, targets, k)
	if yk == nil {
		return nil, false, errors.NewNoObservationsInBucketError(k)
	}
	n, _ := yk.Dims()

	if class, single := singleClass(yk); single {
		clf := NewConstantClassifier(class)
		if err := clf.Fit(Xk, yk); err != nil {
			return nil, false, errors.NewIntervalError("fit", k, err)
		}
		// An installed warning handler takes the warning instead of the log.
		w := errors.NewDegenerateIntervalWarning(k, class, n)
		if errors.Intercept(w) {
			return clf, true, nil
		}
		e.logger.Warn("Degenerate time interval, using a constant classifier",
			log.OperationKey, log.OperationFit,
			log.IntervalKey, k,
			log.ObservationsKey, n,
			log.ClassifierKindKey, "constant",
			log.WarningKey, w,
		)
		return clf, true, nil
	}

	clf := e.base.Clone()
	if err := clf.Fit(Xk, yk); err != nil {
		return nil, false, errors.NewIntervalError("fit", k, err)
	}
	e.progress("Interval fitted",
		log.OperationKey, log.OperationFit,
		log.IntervalKey, k,
		log.ObservationsKey, n,
		log.ClassifierKindKey, "fitted",
	)
	return clf, false, nil
}

// maskInterval copies the rows of X and column k of targets where the target
// is not Sentinel. It returns nil matrices when no row qualifies.
func maskInterval(X mat.Matrix, targets *mat.Dense, k int) (*mat.Dense, *mat.Dense) {
	nSamples, nFeatures := X.Dims()

	rows := make([]int, 0, nSamples)
	for i := 0; i < nSamples; i++ {
		if targets.At(i, k) != Sentinel {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		return nil, nil
	}

	Xk := mat.NewDense(len(rows), nFeatures, nil)
	yk := mat.NewDense(len(rows), 1, nil)
	buf := make([]float64, nFeatures)
	for r, i := range rows {
		Xk.SetRow(r, mat.Row(buf, i, X))
		yk.Set(r, 0, targets.At(i, k))
	}
	return Xk, yk
}

// singleClass reports whether every label in y is the same, and which one.
func singleClass(y mat.Matrix) (int, bool) {
	n, _ := y.Dims()
	first := y.At(0, 0)
	for i := 1; i < n; i++ {
		if y.At(i, 0) != first {
			return 0, false
		}
	}
	return int(first), true
}

func (e *DiscreteTimeEnsemble) progress(msg string, fields ...any) {
	if e.verbose {
		e.logger.Info(msg, fields...)
		return
	}
	e.logger.Debug(msg, fields...)
}
