package survival

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
)

func TestDiscreteTimeEnsemble_FitPredict(t *testing.T) {
	X, y := eventScenario()
	bins := []float64{1, 2, 3}

	ens, logger := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, bins))
	assert.True(t, ens.IsFitted())
	assert.Equal(t, bins, ens.TimeBins())
	assert.Len(t, ens.Estimators(), 3)
	assert.Empty(t, ens.DegenerateIntervals())

	hazard, err := ens.PredictHazard(X)
	require.NoError(t, err)
	k, m := hazard.Dims()
	assert.Equal(t, 3, k)
	assert.Equal(t, 100, m)

	surv, err := ens.PredictSurvival(X)
	require.NoError(t, err)
	r, c := surv.Dims()
	assert.Equal(t, 100, r)
	assert.Equal(t, 3, c)

	for i := 0; i < r; i++ {
		row := mat.Row(nil, i, surv)
		require.True(t, isNonIncreasingInUnit(row), "row %d: %v", i, row)
		assert.InDelta(t, 1-hazard.At(0, i), row[0], 1e-12)
	}

	assert.True(t, logger.ContainsMessage("Training started"))
	assert.True(t, logger.ContainsMessage("Training completed"))
	assert.True(t, logger.ContainsField(log.EventsKey, float64(10)))
	assert.True(t, logger.ContainsField(log.EstimatorIDKey, ens.ID()))
}

func TestDiscreteTimeEnsemble_ConstantHazardIgnoresFeatures(t *testing.T) {
	X, y := eventScenario()
	bins := []float64{1, 2, 3}

	ens, _ := newTestEnsemble(WithBaseClassifier(&fixedClassifier{p: 0.2}))
	require.NoError(t, ens.Fit(X, y, bins))

	XTest := mat.NewDense(3, 1, []float64{-100, 0, 1e6})
	surv, err := ens.PredictSurvival(XTest)
	require.NoError(t, err)

	want := []float64{0.8, 0.64, 0.512}
	for i := 0; i < 3; i++ {
		assert.InDeltaSlice(t, want, mat.Row(nil, i, surv), 1e-12)
	}
}

func TestDiscreteTimeEnsemble_DegenerateInterval(t *testing.T) {
	X, y := eventScenario()
	// Nobody has the event in [3, 4): the last column is all zeros.
	bins := []float64{1, 2, 3, 4}

	ens, logger := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, bins))
	assert.Equal(t, []int{3}, ens.DegenerateIntervals())

	clf, ok := ens.Estimators()[3].(*ConstantClassifier)
	require.True(t, ok, "interval 3 should hold a ConstantClassifier")
	assert.Equal(t, 0, clf.Class())

	hazard, err := ens.PredictHazard(X)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, 0.0, hazard.At(3, i))
	}

	surv, err := ens.PredictSurvival(X)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		assert.Equal(t, surv.At(i, 2), surv.At(i, 3), "survival factor of a no-event interval must be 1")
	}

	assert.True(t, logger.ContainsMessage("Degenerate time interval"))
	assert.True(t, logger.ContainsField(log.IntervalKey, float64(3)))
	assert.Equal(t, 1, logger.CountLevel("WARN"))
}

func TestDiscreteTimeEnsemble_DegenerateWarningHandler(t *testing.T) {
	var (
		mu       sync.Mutex
		warnings []error
	)
	errors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		warnings = append(warnings, w)
	})
	defer errors.SetWarningHandler(nil)

	X, y := eventScenario()
	ens, logger := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3, 4}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, warnings, 1)
	var w *errors.DegenerateIntervalWarning
	require.True(t, errors.As(warnings[0], &w))
	assert.Equal(t, 3, w.Interval)
	assert.Equal(t, 0, w.Class)
	assert.Equal(t, 0, logger.CountLevel("WARN"), "the handler replaces the log record")
}

func TestDiscreteTimeEnsemble_DegenerateWarningGlobalLogger(t *testing.T) {
	global, _ := log.NewTestLogger(log.LevelDebug)
	log.SetLogger(global)
	defer log.SetLogger(nil)

	X, y := eventScenario()
	ens := NewDiscreteTimeEnsemble(WithBaseClassifier(seededBase()))
	require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3, 4}))

	assert.Equal(t, []int{3}, ens.DegenerateIntervals())
	assert.Equal(t, 1, global.CountLevel("WARN"))
	assert.True(t, global.ContainsField(log.IntervalKey, float64(3)))
}

func TestDiscreteTimeEnsemble_EmptyBucket(t *testing.T) {
	X, y := eventScenario()
	ens, _ := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3}))
	before, err := ens.PredictSurvival(X)
	require.NoError(t, err)

	// Every subject leaves the risk set before 1: intervals 1 and 2 are empty.
	early := make([]Label, len(y))
	for i := range early {
		early[i] = Label{Event: i%2 == 0, Time: 0.5}
	}
	err = ens.Fit(X, early, []float64{1, 2, 3})
	var bucketErr *errors.NoObservationsInBucketError
	require.True(t, errors.As(err, &bucketErr), "got %v", err)
	assert.Equal(t, 1, bucketErr.Interval)

	// The previous fit is untouched.
	assert.Equal(t, []float64{1, 2, 3}, ens.TimeBins())
	after, err := ens.PredictSurvival(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, after))
}

func TestDiscreteTimeEnsemble_EmptyBucketOnFreshModel(t *testing.T) {
	X, _ := eventScenario()
	y := make([]Label, 100)
	for i := range y {
		y[i] = Label{Event: false, Time: 0.1}
	}

	ens, _ := newTestEnsemble()
	err := ens.Fit(X, y, []float64{1})
	var bucketErr *errors.NoObservationsInBucketError
	require.True(t, errors.As(err, &bucketErr))
	assert.Equal(t, 0, bucketErr.Interval)
	assert.False(t, ens.IsFitted())
}

func TestDiscreteTimeEnsemble_NotFitted(t *testing.T) {
	ens, _ := newTestEnsemble()
	X := mat.NewDense(2, 1, []float64{1, 2})

	calls := []struct {
		method string
		call   func() error
	}{
		{"PredictHazard", func() error {
			_, err := ens.PredictHazard(X)
			return err
		}},
		{"PredictSurvival", func() error {
			_, err := ens.PredictSurvival(X)
			return err
		}},
		{"PredictSurvivalFunction", func() error {
			_, err := ens.PredictSurvivalFunction(X)
			return err
		}},
		{"Snapshot", func() error {
			_, err := ens.Snapshot()
			return err
		}},
	}
	for _, tc := range calls {
		t.Run(tc.method, func(t *testing.T) {
			err := tc.call()
			var nfErr *errors.NotFittedError
			require.True(t, errors.As(err, &nfErr), "got %v", err)
			assert.Equal(t, tc.method, nfErr.Method)
		})
	}
}

func TestDiscreteTimeEnsemble_RefitMatchesFreshFit(t *testing.T) {
	X, y := eventScenario()

	// A first fit on a different target set
	shifted := make([]Label, len(y))
	for i, l := range y {
		shifted[i] = Label{Event: l.Event, Time: l.Time + 0.25}
	}

	refit, _ := newTestEnsemble()
	require.NoError(t, refit.Fit(X, shifted, []float64{1, 2, 3, 4}))
	require.NoError(t, refit.Fit(X, y, []float64{1, 2, 3}))

	fresh, _ := newTestEnsemble()
	require.NoError(t, fresh.Fit(X, y, []float64{1, 2, 3}))

	a, err := refit.PredictSurvival(X)
	require.NoError(t, err)
	b, err := fresh.PredictSurvival(X)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(a, b, 1e-12))
	assert.Equal(t, fresh.TimeBins(), refit.TimeBins())
	assert.Equal(t, fresh.DegenerateIntervals(), refit.DegenerateIntervals())
}

func TestDiscreteTimeEnsemble_StepFunctionsMatchMatrix(t *testing.T) {
	X, y := eventScenario()
	bins := []float64{1, 2, 3}
	ens, _ := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, bins))

	surv, err := ens.PredictSurvival(X)
	require.NoError(t, err)
	fns, err := ens.PredictSurvivalFunction(X)
	require.NoError(t, err)
	require.Len(t, fns, 100)

	for i, fn := range fns {
		for k, b := range bins {
			v, err := fn.Eval(b)
			require.NoError(t, err)
			assert.Equal(t, surv.At(i, k), v)
		}
		v, err := fn.Eval(2.5)
		require.NoError(t, err)
		assert.Equal(t, surv.At(i, 1), v)

		_, err = fn.Eval(0.5)
		assert.Error(t, err)
	}
}

func TestDiscreteTimeEnsemble_ConcurrentPredict(t *testing.T) {
	X, y := eventScenario()
	ens, _ := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3}))
	want, err := ens.PredictSurvival(X)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ens.PredictSurvival(X)
			if err != nil {
				errs <- err
				return
			}
			if !mat.Equal(want, got) {
				errs <- fmt.Errorf("concurrent prediction differs")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestDiscreteTimeEnsemble_UpstreamFitError(t *testing.T) {
	X, y := eventScenario()
	upstream := fmt.Errorf("solver diverged")

	ens, _ := newTestEnsemble(WithBaseClassifier(&failingClassifier{err: upstream}))
	err := ens.Fit(X, y, []float64{1, 2, 3})

	var ivErr *errors.IntervalError
	require.True(t, errors.As(err, &ivErr), "got %v", err)
	assert.Equal(t, 0, ivErr.Interval)
	assert.Equal(t, "fit", ivErr.Op)
	assert.True(t, errors.Is(err, upstream))
	assert.False(t, ens.IsFitted())
}

func TestDiscreteTimeEnsemble_InvalidProbabilities(t *testing.T) {
	X, y := eventScenario()

	tests := []struct {
		name  string
		p     float64
		check func(t *testing.T, err error)
	}{
		{"nan", math.NaN(), func(t *testing.T, err error) {
			var numErr *errors.NumericalInstabilityError
			assert.True(t, errors.As(err, &numErr), "got %v", err)
		}},
		{"above one", 1.5, func(t *testing.T, err error) {
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr), "got %v", err)
		}},
		{"negative", -0.1, func(t *testing.T, err error) {
			var valErr *errors.ValueError
			assert.True(t, errors.As(err, &valErr), "got %v", err)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ens, _ := newTestEnsemble(WithBaseClassifier(&fixedClassifier{p: tt.p}))
			require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3}))

			_, err := ens.PredictSurvival(X)
			require.Error(t, err)
			var ivErr *errors.IntervalError
			require.True(t, errors.As(err, &ivErr))
			assert.Equal(t, "predict", ivErr.Op)
			assert.Equal(t, 0, ivErr.Interval)
			tt.check(t, err)
		})
	}
}

func TestDiscreteTimeEnsemble_PredictShapeErrors(t *testing.T) {
	X, y := eventScenario()

	ens, _ := newTestEnsemble()
	require.NoError(t, ens.Fit(X, y, []float64{1, 2, 3}))
	_, err := ens.PredictSurvival(mat.NewDense(1, 2, []float64{1, 2}))
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))

	short, _ := newTestEnsemble(WithBaseClassifier(&shortClassifier{}))
	require.NoError(t, short.Fit(X, y, []float64{1, 2, 3}))
	_, err = short.PredictHazard(X)
	var ivErr *errors.IntervalError
	assert.True(t, errors.As(err, &ivErr))

	err = ens.Fit(X, y[:10], []float64{1, 2, 3})
	assert.True(t, errors.As(err, &dimErr))
}

func TestDiscreteTimeEnsemble_PanickingClassifier(t *testing.T) {
	X, y := eventScenario()
	ens, _ := newTestEnsemble(WithBaseClassifier(&panickyClassifier{}))
	err := ens.Fit(X, y, []float64{1, 2, 3})

	var panicErr *errors.PanicError
	require.True(t, errors.As(err, &panicErr), "got %v", err)
	assert.False(t, ens.IsFitted())
}
