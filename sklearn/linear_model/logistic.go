package linear_model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

const logisticWeightsVersion = "1"

// LogisticRegression implements binary logistic regression.
// Compatible with scikit-learn's LogisticRegression for two classes, and the
// default base classifier of the survival ensemble.
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // Regularization: "l2", "none"
	C            float64 // Inverse regularization strength (1/alpha)
	fitIntercept bool    // Whether to fit intercept
	randomState  int64   // Random seed, negative means unseeded
	maxIter      int     // Maximum iterations
	tol          float64 // Tolerance for stopping
	warnOnNoConv bool    // Emit ConvergenceWarning when maxIter is reached

	// Model parameters
	coef_      []float64 // Coefficients (n_features)
	intercept_ float64   // Intercept term
	classes_   []int     // Sorted class labels, classes_[1] is the positive class
	nFeatures_ int       // Number of features
	nIter_     int       // Actual iterations

	// Internal state
	rand *rand.Rand
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      "l2",
		C:            1.0,
		fitIntercept: true,
		randomState:  -1,
		maxIter:      100,
		tol:          1e-4,
		warnOnNoConv: true,
	}

	for _, opt := range opts {
		opt(lr)
	}
	lr.resetRand()

	return lr
}

// WithLRPenalty sets the regularization type ("l2" or "none")
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// WithLRRandomState sets the random seed
func WithLRRandomState(seed int64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.randomState = seed
	}
}

// WithLRConvergenceWarning toggles the ConvergenceWarning emitted when maxIter is reached
func WithLRConvergenceWarning(enabled bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.warnOnNoConv = enabled
	}
}

func (lr *LogisticRegression) resetRand() {
	if lr.randomState >= 0 {
		lr.rand = rand.New(rand.NewSource(lr.randomState))
	} else {
		lr.rand = rand.New(rand.NewSource(rand.Int63()))
	}
}

// Clone returns an unfitted LogisticRegression with the same hyperparameters.
// The clone owns its own random generator.
func (lr *LogisticRegression) Clone() model.Classifier {
	return &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      lr.penalty,
		C:            lr.C,
		fitIntercept: lr.fitIntercept,
		randomState:  lr.randomState,
		maxIter:      lr.maxIter,
		tol:          lr.tol,
		warnOnNoConv: lr.warnOnNoConv,
		rand:         cloneRand(lr.randomState),
	}
}

func cloneRand(seed int64) *rand.Rand {
	if seed >= 0 {
		return rand.New(rand.NewSource(seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}

// Fit trains the logistic regression model. y must hold exactly two distinct labels.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()

	if nSamples == 0 {
		return errors.NewModelError("LogisticRegression.Fit", "empty data", errors.ErrEmptyData)
	}
	if nFeatures == 0 {
		return errors.NewValueError("LogisticRegression.Fit", "X has no features")
	}
	if nSamples != yRows {
		return errors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}

	classes := extractClasses(y)
	if len(classes) != 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("binary classification needs exactly 2 classes, got %d", len(classes)))
	}

	// A refit that fails part way leaves the model unfitted, not half-updated.
	lr.state.Reset()
	lr.classes_ = classes
	lr.nFeatures_ = nFeatures
	lr.initializeWeights(nFeatures)

	if err := lr.fitBinary(X, y); err != nil {
		return err
	}

	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()
	return nil
}

// extractClasses identifies sorted unique class labels
func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	classMap := make(map[int]bool)
	for i := 0; i < rows; i++ {
		classMap[int(y.At(i, 0))] = true
	}

	classes := make([]int, 0, len(classMap))
	for class := range classMap {
		classes = append(classes, class)
	}
	sort.Ints(classes)
	return classes
}

// initializeWeights initializes model weights with small random values
func (lr *LogisticRegression) initializeWeights(nFeatures int) {
	lr.coef_ = make([]float64, nFeatures)
	lr.intercept_ = 0
	lr.nIter_ = 0
	for j := range lr.coef_ {
		lr.coef_[j] = lr.rand.NormFloat64() * 0.01
	}
}

// fitBinary fits the weights with full-batch gradient descent and a decaying step
func (lr *LogisticRegression) fitBinary(X, y mat.Matrix) error {
	nSamples, nFeatures := X.Dims()

	target := make([]float64, nSamples)
	for i := 0; i < nSamples; i++ {
		if int(y.At(i, 0)) == lr.classes_[1] {
			target[i] = 1
		}
	}

	weights := mat.NewVecDense(nFeatures, lr.coef_)
	z := mat.NewVecDense(nSamples, nil)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)

	const baseLearningRate = 1.0
	converged := false

	for iter := 0; iter < lr.maxIter; iter++ {
		z.MulVec(X, weights)
		for i := 0; i < nSamples; i++ {
			residual.SetVec(i, sigmoid(z.AtVec(i)+lr.intercept_)-target[i])
		}

		grad.MulVec(X.T(), residual)
		grad.ScaleVec(1/float64(nSamples), grad)
		gradIntercept := floats.Sum(residual.RawVector().Data) / float64(nSamples)

		if lr.penalty == "l2" {
			grad.AddScaledVec(grad, 1.0/lr.C, weights)
		}

		if err := errors.CheckNumericalStability("LogisticRegression.gradient", grad.RawVector().Data, iter); err != nil {
			return err
		}

		learningRate := baseLearningRate / (1.0 + 0.1*float64(iter))
		weights.AddScaledVec(weights, -learningRate, grad)
		if lr.fitIntercept {
			lr.intercept_ -= learningRate * gradIntercept
		}

		lr.nIter_ = iter + 1

		maxGrad := math.Max(math.Abs(gradIntercept), floats.Norm(grad.RawVector().Data, math.Inf(1)))
		if maxGrad < lr.tol {
			converged = true
			break
		}
	}

	if !converged && lr.warnOnNoConv {
		errors.Warn(errors.NewConvergenceWarning("LogisticRegression", lr.nIter_, ""))
	}
	return nil
}

// decision returns the linear score of sample i
func (lr *LogisticRegression) decision(X mat.Matrix, i int) float64 {
	z := lr.intercept_
	for j := 0; j < lr.nFeatures_; j++ {
		z += X.At(i, j) * lr.coef_[j]
	}
	return z
}

func (lr *LogisticRegression) checkPredictInput(X mat.Matrix, method string) error {
	if err := lr.state.RequireFitted("LogisticRegression", method); err != nil {
		return err
	}
	if _, c := X.Dims(); c != lr.nFeatures_ {
		return errors.NewDimensionError("LogisticRegression."+method, lr.nFeatures_, c, 1)
	}
	return nil
}

// Predict returns the predicted class label per sample
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkPredictInput(X, "Predict"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		if sigmoid(lr.decision(X, i)) >= 0.5 {
			predictions.Set(i, 0, float64(lr.classes_[1]))
		} else {
			predictions.Set(i, 0, float64(lr.classes_[0]))
		}
	}
	return predictions, nil
}

// PredictProba returns an n×2 matrix of class probabilities, column 1 being classes_[1]
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.checkPredictInput(X, "PredictProba"); err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	probas := mat.NewDense(nSamples, 2, nil)
	for i := 0; i < nSamples; i++ {
		prob1 := sigmoid(lr.decision(X, i))
		probas.Set(i, 0, 1.0-prob1)
		probas.Set(i, 1, prob1)
	}
	return probas, nil
}

// Score returns the mean accuracy on the given test data and labels
func (lr *LogisticRegression) Score(X, y mat.Matrix) (float64, error) {
	predictions, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	nSamples, _ := X.Dims()
	if r, _ := y.Dims(); r != nSamples {
		return 0, errors.NewDimensionError("LogisticRegression.Score", nSamples, r, 0)
	}

	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples), nil
}

// Classes returns the sorted class labels seen during fitting
func (lr *LogisticRegression) Classes() []int {
	return append([]int(nil), lr.classes_...)
}

// NIterations returns the number of gradient steps taken by the last Fit
func (lr *LogisticRegression) NIterations() int {
	return lr.nIter_
}

// Coef returns a copy of the learned coefficients
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the learned intercept
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"fit_intercept": lr.fitIntercept,
		"random_state":  lr.randomState,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters.
// Numeric values decoded from JSON (float64) are accepted for integer parameters.
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "penalty":
			lr.penalty, ok = value.(string)
		case "C":
			lr.C, ok = asFloat(value)
		case "fit_intercept":
			lr.fitIntercept, ok = value.(bool)
		case "random_state":
			var seed float64
			if seed, ok = asFloat(value); ok {
				lr.randomState = int64(seed)
				lr.resetRand()
			}
		case "max_iter":
			var n float64
			if n, ok = asFloat(value); ok {
				lr.maxIter = int(n)
			}
		case "tol":
			lr.tol, ok = asFloat(value)
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "unexpected type", value)
		}
	}
	return nil
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// ExportWeights implements model.WeightExporter
func (lr *LogisticRegression) ExportWeights() (*model.ModelWeights, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:       "LogisticRegression",
		Version:         logisticWeightsVersion,
		Coefficients:    lr.Coef(),
		Intercept:       lr.intercept_,
		Classes:         lr.Classes(),
		Hyperparameters: lr.GetParams(),
		IsFitted:        true,
	}, nil
}

// ImportWeights implements model.WeightExporter
func (lr *LogisticRegression) ImportWeights(w *model.ModelWeights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ModelType != "LogisticRegression" {
		return errors.NewValidationError("model_type", "expected LogisticRegression", w.ModelType)
	}
	if !w.IsFitted || len(w.Classes) != 2 {
		return errors.NewValidationError("classes", "fitted binary model expected", w.Classes)
	}
	if err := lr.SetParams(w.Hyperparameters); err != nil {
		return err
	}

	lr.coef_ = append([]float64(nil), w.Coefficients...)
	lr.intercept_ = w.Intercept
	lr.classes_ = append([]int(nil), w.Classes...)
	lr.nFeatures_ = len(w.Coefficients)
	lr.state.SetDimensions(lr.nFeatures_, 0)
	lr.state.SetFitted()
	return nil
}

// sigmoid computes the logistic function without overflowing exp
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1.0 / (1.0 + errors.StabilizeExp(-z))
	}
	ez := errors.StabilizeExp(z)
	return ez / (1.0 + ez)
}
