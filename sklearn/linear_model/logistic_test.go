package linear_model

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

func separableData() (*mat.Dense, *mat.Dense) {
	// Class 0: points around (1, 1)
	// Class 1: points around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{
		0, 0, 0,
		1, 1, 1,
	})
	return X, y
}

// TestLogisticRegression_FitPredict_Binary tests binary classification
func TestLogisticRegression_FitPredict_Binary(t *testing.T) {
	X, y := separableData()

	lr := NewLogisticRegression(
		WithLRMaxIter(1000),
		WithLRTol(1e-4),
		WithLRRandomState(42),
		WithLRC(100),
	)
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	XTest := mat.NewDense(2, 2, []float64{
		1.0, 1.0, // Should be class 0
		3.0, 3.0, // Should be class 1
	})
	testPreds, err := lr.Predict(XTest)
	if err != nil {
		t.Fatalf("Failed to predict on test data: %v", err)
	}
	if testPreds.At(0, 0) != 0 {
		t.Errorf("Test point (1,1) should be class 0, got %v", testPreds.At(0, 0))
	}
	if testPreds.At(1, 0) != 1 {
		t.Errorf("Test point (3,3) should be class 1, got %v", testPreds.At(1, 0))
	}

	score, err := lr.Score(X, y)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.99 {
		t.Errorf("Expected perfect training accuracy on separable data, got %v", score)
	}
}

// TestLogisticRegression_PredictProba tests probability predictions
func TestLogisticRegression_PredictProba(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
	})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	lr := NewLogisticRegression(WithLRMaxIter(500), WithLRRandomState(1))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Failed to fit model: %v", err)
	}

	probas, err := lr.PredictProba(X)
	if err != nil {
		t.Fatalf("Failed to predict probabilities: %v", err)
	}

	rows, cols := probas.Dims()
	if rows != 4 || cols != 2 {
		t.Fatalf("Expected probas shape (4, 2), got (%d, %d)", rows, cols)
	}

	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			prob := probas.At(i, j)
			if prob < 0 || prob > 1 {
				t.Errorf("Invalid probability at (%d, %d): %v", i, j, prob)
			}
			sum += prob
		}
		if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("Probabilities for sample %d don't sum to 1: %v", i, sum)
		}
	}

	// Feature 0 drives the positive class
	if probas.At(2, 1) <= probas.At(0, 1) {
		t.Errorf("P(y=1|x=(1,0)) = %v should exceed P(y=1|x=(0,0)) = %v", probas.At(2, 1), probas.At(0, 1))
	}
}

// TestLogisticRegression_Clone checks that clones share hyperparameters but not fitted state
func TestLogisticRegression_Clone(t *testing.T) {
	X, y := separableData()

	base := NewLogisticRegression(WithLRMaxIter(300), WithLRRandomState(7), WithLRC(10))
	a := base.Clone().(*LogisticRegression)
	b := base.Clone().(*LogisticRegression)

	if a == b {
		t.Fatal("Clone should return distinct instances")
	}
	if a.maxIter != 300 || a.C != 10 || a.randomState != 7 {
		t.Errorf("Clone lost hyperparameters: %+v", a.GetParams())
	}
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if _, err := b.PredictProba(X); err == nil {
		t.Error("Fitting one clone must not fit the other")
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	// Same seed, same data: identical models
	for j, c := range a.Coef() {
		if c != b.Coef()[j] {
			t.Errorf("coef[%d] differs between seeded clones: %v vs %v", j, c, b.Coef()[j])
		}
	}
}

func TestLogisticRegression_InvalidInput(t *testing.T) {
	lr := NewLogisticRegression()

	tests := []struct {
		name string
		X    mat.Matrix
		y    mat.Matrix
	}{
		{
			name: "single class",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewDense(3, 1, []float64{1, 1, 1}),
		},
		{
			name: "three classes",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewDense(3, 1, []float64{0, 1, 2}),
		},
		{
			name: "row mismatch",
			X:    mat.NewDense(3, 1, []float64{1, 2, 3}),
			y:    mat.NewDense(2, 1, []float64{0, 1}),
		},
		{
			name: "y not a column",
			X:    mat.NewDense(2, 1, []float64{1, 2}),
			y:    mat.NewDense(2, 2, []float64{0, 1, 1, 0}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := lr.Fit(tt.X, tt.y); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

// TestLogisticRegression_NotFitted tests that prediction before fitting fails
func TestLogisticRegression_NotFitted(t *testing.T) {
	lr := NewLogisticRegression()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := lr.PredictProba(X)
	var nfErr *errors.NotFittedError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFittedError, got %v", err)
	}
	if _, err := lr.Predict(X); err == nil {
		t.Error("Predict should fail before Fit")
	}
}

func TestLogisticRegression_FeatureMismatch(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	_, err := lr.PredictProba(mat.NewDense(1, 3, []float64{1, 2, 3}))
	var dimErr *errors.DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("Expected DimensionError, got %v", err)
	}
}

// TestLogisticRegression_FailedRefit checks that a refit diverging on NaN input drops the old fit
func TestLogisticRegression_FailedRefit(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(0))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	bad := mat.DenseCopyOf(X)
	bad.Set(0, 0, math.NaN())
	if err := lr.Fit(bad, y); err == nil {
		t.Fatal("Fit on NaN input should fail")
	}

	_, err := lr.PredictProba(X)
	var nfErr *errors.NotFittedError
	if !errors.As(err, &nfErr) {
		t.Fatalf("Expected NotFittedError after a failed refit, got %v", err)
	}

	// Input rejected before training leaves the previous fit in place
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	if err := lr.Fit(X, mat.NewDense(6, 1, []float64{1, 1, 1, 1, 1, 1})); err == nil {
		t.Fatal("single-class y should be rejected")
	}
	if _, err := lr.PredictProba(X); err != nil {
		t.Errorf("validation failure should keep the previous fit: %v", err)
	}
}

// TestLogisticRegression_GetSetParams tests parameter access
func TestLogisticRegression_GetSetParams(t *testing.T) {
	lr := NewLogisticRegression()

	err := lr.SetParams(map[string]interface{}{
		"C":            0.5,
		"max_iter":     250,
		"random_state": float64(3), // as decoded from JSON
	})
	if err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}

	params := lr.GetParams()
	if params["C"] != 0.5 || params["max_iter"] != 250 || params["random_state"] != int64(3) {
		t.Errorf("unexpected params: %v", params)
	}

	if err := lr.SetParams(map[string]interface{}{"solver": "lbfgs"}); err == nil {
		t.Error("Unknown parameter should be rejected")
	}
	if err := lr.SetParams(map[string]interface{}{"C": "large"}); err == nil {
		t.Error("Wrong type should be rejected")
	}
}

func TestLogisticRegression_ExportImportWeights(t *testing.T) {
	X, y := separableData()
	lr := NewLogisticRegression(WithLRRandomState(11), WithLRMaxIter(200))
	if err := lr.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	w, err := lr.ExportWeights()
	if err != nil {
		t.Fatalf("ExportWeights failed: %v", err)
	}

	restored := NewLogisticRegression()
	if err := restored.ImportWeights(w); err != nil {
		t.Fatalf("ImportWeights failed: %v", err)
	}

	want, _ := lr.PredictProba(X)
	got, err := restored.PredictProba(X)
	if err != nil {
		t.Fatalf("PredictProba after import failed: %v", err)
	}
	if !mat.EqualApprox(want, got, 1e-12) {
		t.Error("Imported model should reproduce the original probabilities")
	}

	w.ModelType = "ConstantClassifier"
	if err := restored.ImportWeights(w); err == nil {
		t.Error("Importing foreign weights should fail")
	}
}
