package survival

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

const constantWeightsVersion = "1"

// ConstantClassifier fills the slot of a degenerate time interval, where every
// evaluable subject had the same outcome. It reports the observed class with
// probability 1 for any input.
type ConstantClassifier struct {
	state *model.StateManager
	class int
}

// NewConstantClassifier returns a classifier that, once fitted, always predicts class.
func NewConstantClassifier(class int) *ConstantClassifier {
	return &ConstantClassifier{
		state: model.NewStateManager(),
		class: class,
	}
}

// Fit records the single class present in y. It fails when y holds more
// than one distinct label or a label other than 0 and 1.
func (c *ConstantClassifier) Fit(X, y mat.Matrix) error {
	rows, cols := y.Dims()
	if rows == 0 {
		return errors.NewModelError("ConstantClassifier.Fit", "empty data", errors.ErrEmptyData)
	}
	if cols != 1 {
		return errors.NewValueError("ConstantClassifier.Fit",
			fmt.Sprintf("y must be a column vector: got shape (%d, %d)", rows, cols))
	}
	if xr, _ := X.Dims(); xr != rows {
		return errors.NewDimensionError("ConstantClassifier.Fit", rows, xr, 0)
	}

	class := int(y.At(0, 0))
	for i := 1; i < rows; i++ {
		if int(y.At(i, 0)) != class {
			return errors.NewValueError("ConstantClassifier.Fit", "y holds more than one class")
		}
	}
	if class != 0 && class != 1 {
		return errors.NewValueError("ConstantClassifier.Fit",
			fmt.Sprintf("class must be 0 or 1, got %d", class))
	}

	_, nFeatures := X.Dims()
	c.class = class
	c.state.SetDimensions(nFeatures, rows)
	c.state.SetFitted()
	return nil
}

// PredictProba returns an n×2 matrix with 1 in the column of the fitted class.
// Feature values are ignored.
func (c *ConstantClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := c.state.RequireFitted("ConstantClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	probas := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		probas.Set(i, c.class, 1)
	}
	return probas, nil
}

// Class returns the class reported with certainty.
func (c *ConstantClassifier) Class() int {
	return c.class
}

// ExportWeights implements model.WeightExporter.
func (c *ConstantClassifier) ExportWeights() (*model.ModelWeights, error) {
	if err := c.state.RequireFitted("ConstantClassifier", "ExportWeights"); err != nil {
		return nil, err
	}
	return &model.ModelWeights{
		ModelType:       "ConstantClassifier",
		Version:         constantWeightsVersion,
		Classes:         []int{c.class},
		Hyperparameters: map[string]interface{}{},
		IsFitted:        true,
	}, nil
}

// ImportWeights implements model.WeightExporter.
func (c *ConstantClassifier) ImportWeights(w *model.ModelWeights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	if w.ModelType != "ConstantClassifier" {
		return errors.NewValidationError("model_type", "expected ConstantClassifier", w.ModelType)
	}
	if !w.IsFitted || len(w.Classes) != 1 || (w.Classes[0] != 0 && w.Classes[0] != 1) {
		return errors.NewValidationError("classes", "exactly one class in {0, 1} expected", w.Classes)
	}
	c.class = w.Classes[0]
	c.state.SetFitted()
	return nil
}
