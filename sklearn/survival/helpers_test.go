package survival

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/log"
	"github.com/YuminosukeSato/gosurv/sklearn/linear_model"
)

// eventScenario returns 100 subjects with one feature. Subjects 0..9 have an
// event at 0.5, 1.5 or 2.5 (in turn); the others are censored at 5.
func eventScenario() (*mat.Dense, []Label) {
	const n = 100
	X := mat.NewDense(n, 1, nil)
	y := make([]Label, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i)/n)
		if i < 10 {
			y[i] = Label{Event: true, Time: 0.5 + float64(i%3)}
		} else {
			y[i] = Label{Event: false, Time: 5}
		}
	}
	return X, y
}

func seededBase() *linear_model.LogisticRegression {
	return linear_model.NewLogisticRegression(
		linear_model.WithLRRandomState(0),
		linear_model.WithLRMaxIter(200),
		linear_model.WithLRConvergenceWarning(false),
	)
}

func newTestEnsemble(opts ...Option) (*DiscreteTimeEnsemble, *log.TestLogger) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	base := []Option{WithBaseClassifier(seededBase()), WithWorkers(4), WithLogger(logger)}
	return NewDiscreteTimeEnsemble(append(base, opts...)...), logger
}

// fixedClassifier predicts the same event probability for every row.
type fixedClassifier struct {
	p      float64
	fitted bool
}

func (f *fixedClassifier) Fit(X, y mat.Matrix) error {
	f.fitted = true
	return nil
}

func (f *fixedClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		out.Set(i, 0, 1-f.p)
		out.Set(i, 1, f.p)
	}
	return out, nil
}

func (f *fixedClassifier) Clone() model.Classifier {
	return &fixedClassifier{p: f.p}
}

// failingClassifier fails every Fit with err.
type failingClassifier struct {
	err error
}

func (f *failingClassifier) Fit(X, y mat.Matrix) error { return f.err }

func (f *failingClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	return nil, fmt.Errorf("not fitted")
}

func (f *failingClassifier) Clone() model.Classifier { return f }

// shortClassifier returns one row fewer than asked for.
type shortClassifier struct{ fixedClassifier }

func (s *shortClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	return mat.NewDense(n+1, 2, nil), nil
}

func (s *shortClassifier) Clone() model.Classifier { return &shortClassifier{} }

// panickyClassifier panics inside Fit.
type panickyClassifier struct{ fixedClassifier }

func (p *panickyClassifier) Fit(X, y mat.Matrix) error { panic("index out of range") }

func (p *panickyClassifier) Clone() model.Classifier { return &panickyClassifier{} }

func isNonIncreasingInUnit(row []float64) bool {
	prev := 1.0
	for _, v := range row {
		if math.IsNaN(v) || v < 0 || v > 1 || v > prev {
			return false
		}
		prev = v
	}
	return true
}
