// Package tracking records evaluation runs of survival models: parameters,
// metrics and the time bins they were scored on.
package tracking

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/sklearn/survival"
)

// Metric names written by NewRunFromCV.
const (
	MetricMeanIBS    = "mean_ibs"
	MetricStdIBS     = "std_ibs"
	MetricMeanCIndex = "mean_c_index"
	MetricStdCIndex  = "std_c_index"
	MetricFolds      = "n_folds"
)

// Run is one tracked evaluation.
type Run struct {
	ID        uuid.UUID
	Name      string
	Model     string
	Params    Params
	Metrics   Metrics
	TimeBins  []float64
	CreatedAt time.Time
}

// NewRunFromCV summarizes a cross-validation result as a run.
func NewRunFromCV(name, model string, params Params, cv *survival.CVResult) *Run {
	return &Run{
		Name:   name,
		Model:  model,
		Params: params,
		Metrics: Metrics{
			MetricMeanIBS:    cv.IBS.Mean,
			MetricStdIBS:     cv.IBS.Std,
			MetricMeanCIndex: cv.CIndex.Mean,
			MetricStdCIndex:  cv.CIndex.Std,
			MetricFolds:      float64(len(cv.Folds)),
		},
		TimeBins: append([]float64(nil), cv.TimeBins...),
	}
}

func (r *Run) clone() *Run {
	c := *r
	c.Params = make(Params, len(r.Params))
	for k, v := range r.Params {
		c.Params[k] = v
	}
	c.Metrics = make(Metrics, len(r.Metrics))
	for k, v := range r.Metrics {
		c.Metrics[k] = v
	}
	c.TimeBins = append([]float64(nil), r.TimeBins...)
	return &c
}

// Params are the hyperparameters of a run, stored as jsonb.
type Params map[string]interface{}

// Value implements driver.Valuer.
func (p Params) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner.
func (p *Params) Scan(value interface{}) error {
	out := make(Params)
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// Metrics are the scores of a run, stored as jsonb.
type Metrics map[string]float64

// Value implements driver.Valuer.
func (m Metrics) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *Metrics) Scan(value interface{}) error {
	out := make(Metrics)
	if err := scanJSON(value, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

func scanJSON(value interface{}, dst interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.Newf("tracking: cannot scan %T into a JSON column", value)
	}
	if len(data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(data, dst), "tracking: decode JSON column")
}
