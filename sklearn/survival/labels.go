package survival

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// Label is the right-censored outcome of one subject.
// Event=false means the subject was censored at Time: the event, if any,
// happens after Time.
type Label struct {
	Event bool
	Time  float64
}

// NewLabels zips an event indicator array and a time array into labels.
func NewLabels(events []bool, times []float64) ([]Label, error) {
	if len(events) != len(times) {
		return nil, errors.NewDimensionError("NewLabels", len(events), len(times), 0)
	}
	y := make([]Label, len(events))
	for i := range events {
		y[i] = Label{Event: events[i], Time: times[i]}
	}
	if err := validateLabels("NewLabels", y); err != nil {
		return nil, err
	}
	return y, nil
}

// Split returns the event indicators and times as parallel arrays.
func Split(y []Label) (events []bool, times []float64) {
	events = make([]bool, len(y))
	times = make([]float64, len(y))
	for i, l := range y {
		events[i] = l.Event
		times[i] = l.Time
	}
	return events, times
}

// Subset returns the labels at the given row indices.
func Subset(y []Label, rows []int) []Label {
	out := make([]Label, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}

func validateLabels(op string, y []Label) error {
	if len(y) == 0 {
		return errors.NewModelError(op, "empty labels", errors.ErrEmptyData)
	}
	for i, l := range y {
		if math.IsNaN(l.Time) || math.IsInf(l.Time, 0) || l.Time < 0 {
			return errors.NewValueError(op,
				fmt.Sprintf("time of subject %d must be a finite non-negative value, got %v", i, l.Time))
		}
	}
	return nil
}
