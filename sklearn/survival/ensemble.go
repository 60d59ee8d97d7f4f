// Package survival implements a discrete-time survival model built from a
// bank of binary classifiers, one per time interval.
//
// Each classifier estimates the hazard of its interval: the probability that
// the event happens within the interval given the subject survived to its
// start. Predicted hazards are folded into survival curves with the product
// rule S(k) = Π_{j<=k} (1 - h(j)).
//
//	y, _ := survival.NewLabels(events, times)
//	ens := survival.NewDiscreteTimeEnsemble(survival.WithWorkers(4))
//	if err := ens.Fit(X, y, []float64{30, 60, 90, 180}); err != nil {
//	    return err
//	}
//	surv, err := ens.PredictSurvival(XTest) // (n_test, 4)
package survival

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
	"github.com/YuminosukeSato/gosurv/sklearn/linear_model"
)

const defaultName = "DiscreteTimeEnsemble"

// DiscreteTimeEnsemble is a discrete-time survival estimator.
//
// It is Unfitted after construction and Fitted after a successful Fit. A
// failed Fit leaves the previous state untouched; a successful Fit replaces
// the whole classifier bank. Predict methods may be called concurrently.
type DiscreteTimeEnsemble struct {
	state *model.StateManager

	// Configuration
	base    model.CloneableClassifier
	workers int
	name    string
	verbose bool
	logger  log.Logger
	id      string

	// Fitted state, guarded by mu
	mu         sync.RWMutex
	estimators []model.Classifier
	timeBins   []float64
	degenerate []int
}

// NewDiscreteTimeEnsemble creates an unfitted ensemble. The default base
// classifier is an L2 LogisticRegression.
func NewDiscreteTimeEnsemble(opts ...Option) *DiscreteTimeEnsemble {
	e := &DiscreteTimeEnsemble{
		state: model.NewStateManager(),
		name:  defaultName,
		id:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.base == nil {
		e.base = linear_model.NewLogisticRegression()
	}
	if e.logger == nil {
		e.logger = log.GetLogger()
	}
	e.logger = e.logger.With(
		log.ModelNameKey, e.name,
		log.EstimatorIDKey, e.id,
	)
	return e
}

// Fit builds the interval targets from y and timeBins and fits one classifier
// per interval. timeBins must be strictly increasing; they are stored and
// reused by every prediction.
//
// Fit fails with *errors.NoObservationsInBucketError when an interval has no
// evaluable subject. Errors from the base classifier are returned wrapped in
// *errors.IntervalError.
func (e *DiscreteTimeEnsemble) Fit(X mat.Matrix, y []Label, timeBins []float64) error {
	start := time.Now()
	nSamples, nFeatures := X.Dims()
	if nSamples != len(y) {
		return errors.NewDimensionError(e.name+".Fit", nSamples, len(y), 0)
	}

	targets, err := BuildTargets(y, timeBins)
	if err != nil {
		return err
	}

	e.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.EventsKey, countEvents(y),
		log.NBinsKey, len(timeBins),
		log.WorkersKey, e.workers,
	)

	bank, degenerate, err := e.fitIntervals(X, targets)
	if err != nil {
		e.logger.Error("Training failed", err, log.OperationKey, log.OperationFit)
		return err
	}

	bins := append([]float64(nil), timeBins...)

	e.mu.Lock()
	e.estimators = bank
	e.timeBins = bins
	e.degenerate = degenerate
	e.state.SetDimensions(nFeatures, nSamples)
	e.state.SetFitted()
	e.mu.Unlock()

	e.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		log.NBinsKey, len(bank),
		"survival.degenerate_intervals", len(degenerate),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// fittedState is a consistent view of the fitted bank for one prediction call.
type fittedState struct {
	estimators []model.Classifier
	timeBins   []float64
	nFeatures  int
}

func (e *DiscreteTimeEnsemble) snapshot(method string) (fittedState, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.state.RequireFitted(e.name, method); err != nil {
		return fittedState{}, err
	}
	nFeatures, _ := e.state.GetDimensions()
	return fittedState{
		estimators: e.estimators,
		timeBins:   e.timeBins,
		nFeatures:  nFeatures,
	}, nil
}

// IsFitted reports whether Fit has succeeded at least once.
func (e *DiscreteTimeEnsemble) IsFitted() bool {
	return e.state.IsFitted()
}

// TimeBins returns a copy of the boundaries used by the last successful Fit.
func (e *DiscreteTimeEnsemble) TimeBins() []float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]float64(nil), e.timeBins...)
}

// NFeatures returns the number of features seen by the last successful Fit,
// or 0 when unfitted.
func (e *DiscreteTimeEnsemble) NFeatures() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n, _ := e.state.GetDimensions()
	return n
}

// Estimators returns the classifier bank, index-aligned with TimeBins.
// The returned classifiers must not be re-fitted.
func (e *DiscreteTimeEnsemble) Estimators() []model.Classifier {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]model.Classifier(nil), e.estimators...)
}

// DegenerateIntervals returns the indices of intervals served by a ConstantClassifier.
func (e *DiscreteTimeEnsemble) DegenerateIntervals() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]int(nil), e.degenerate...)
}

// Name returns the model name.
func (e *DiscreteTimeEnsemble) Name() string {
	return e.name
}

// ID returns the estimator id attached to every log record.
func (e *DiscreteTimeEnsemble) ID() string {
	return e.id
}

func countEvents(y []Label) int {
	n := 0
	for _, l := range y {
		if l.Event {
			n++
		}
	}
	return n
}
