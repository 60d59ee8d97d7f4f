package survival

import (
	"io"

	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/sklearn/linear_model"
)

// Snapshot is the serializable form of a fitted ensemble.
type Snapshot struct {
	Name      string
	TimeBins  []float64
	NFeatures int
	Slots     []model.ModelWeights
}

// slotDecoders maps ModelWeights.ModelType to a constructor able to import it.
var slotDecoders = map[string]func() importer{
	"LogisticRegression": func() importer { return linear_model.NewLogisticRegression() },
	"ConstantClassifier": func() importer { return NewConstantClassifier(0) },
}

type importer interface {
	model.Classifier
	ImportWeights(w *model.ModelWeights) error
}

// Snapshot exports the fitted bank. Every slot must implement
// model.WeightExporter.
func (e *DiscreteTimeEnsemble) Snapshot() (*Snapshot, error) {
	fs, err := e.snapshot("Snapshot")
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Name:      e.name,
		TimeBins:  append([]float64(nil), fs.timeBins...),
		NFeatures: fs.nFeatures,
		Slots:     make([]model.ModelWeights, len(fs.estimators)),
	}
	for k, clf := range fs.estimators {
		exporter, ok := clf.(model.WeightExporter)
		if !ok {
			return nil, errors.NewIntervalError("snapshot", k,
				errors.Newf("classifier %T does not support weight export", clf))
		}
		w, err := exporter.ExportWeights()
		if err != nil {
			return nil, errors.NewIntervalError("snapshot", k, err)
		}
		snap.Slots[k] = *w
	}
	return snap, nil
}

// FromSnapshot rebuilds a fitted ensemble. opts configure the runtime side
// (workers, logger, base classifier for later refits).
func FromSnapshot(snap *Snapshot, opts ...Option) (*DiscreteTimeEnsemble, error) {
	if err := validateTimeBins("FromSnapshot", snap.TimeBins); err != nil {
		return nil, err
	}
	if len(snap.Slots) != len(snap.TimeBins) {
		return nil, errors.NewDimensionError("FromSnapshot", len(snap.TimeBins), len(snap.Slots), 0)
	}
	if snap.NFeatures <= 0 {
		return nil, errors.NewValidationError("n_features", "must be positive", snap.NFeatures)
	}

	if snap.Name != "" {
		opts = append([]Option{WithName(snap.Name)}, opts...)
	}
	e := NewDiscreteTimeEnsemble(opts...)

	bank := make([]model.Classifier, len(snap.Slots))
	var degenerate []int
	for k := range snap.Slots {
		w := snap.Slots[k]
		newSlot, ok := slotDecoders[w.ModelType]
		if !ok {
			return nil, errors.NewIntervalError("load", k,
				errors.NewValidationError("model_type", "unknown classifier type", w.ModelType))
		}
		clf := newSlot()
		if err := clf.ImportWeights(&w); err != nil {
			return nil, errors.NewIntervalError("load", k, err)
		}
		// Every slot other than a constant one holds one coefficient per feature.
		if _, isConst := clf.(*ConstantClassifier); isConst {
			degenerate = append(degenerate, k)
		} else if len(w.Coefficients) != snap.NFeatures {
			return nil, errors.NewIntervalError("load", k,
				errors.NewDimensionError("FromSnapshot", snap.NFeatures, len(w.Coefficients), 1))
		}
		bank[k] = clf
	}

	e.estimators = bank
	e.timeBins = append([]float64(nil), snap.TimeBins...)
	e.degenerate = degenerate
	e.state.SetDimensions(snap.NFeatures, 0)
	e.state.SetFitted()
	return e, nil
}

// Save writes the fitted ensemble to path in gob format.
func (e *DiscreteTimeEnsemble) Save(path string) error {
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	return model.SaveModel(snap, path)
}

// Encode writes the fitted ensemble to w in gob format.
func (e *DiscreteTimeEnsemble) Encode(w io.Writer) error {
	snap, err := e.Snapshot()
	if err != nil {
		return err
	}
	return model.SaveModelToWriter(snap, w)
}

// Load reads an ensemble written by Save.
func Load(path string, opts ...Option) (*DiscreteTimeEnsemble, error) {
	var snap Snapshot
	if err := model.LoadModel(&snap, path); err != nil {
		return nil, err
	}
	return FromSnapshot(&snap, opts...)
}

// Decode reads an ensemble written by Encode.
func Decode(r io.Reader, opts ...Option) (*DiscreteTimeEnsemble, error) {
	var snap Snapshot
	if err := model.LoadModelFromReader(&snap, r); err != nil {
		return nil, err
	}
	return FromSnapshot(&snap, opts...)
}
