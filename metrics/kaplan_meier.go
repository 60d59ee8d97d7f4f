package metrics

import (
	"math"
	"sort"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// KaplanMeier is a fitted product-limit estimator. Survival[i] is the
// estimate on [Times[i], Times[i+1]).
type KaplanMeier struct {
	Times    []float64
	Survival []float64
}

// NewKaplanMeier fits the product-limit estimator of the event distribution.
func NewKaplanMeier(events []bool, times []float64) (*KaplanMeier, error) {
	return fitKaplanMeier("NewKaplanMeier", events, times, false)
}

// NewCensoringKaplanMeier fits the product-limit estimator of the censoring
// distribution G, treating censoring as the event.
func NewCensoringKaplanMeier(events []bool, times []float64) (*KaplanMeier, error) {
	return fitKaplanMeier("NewCensoringKaplanMeier", events, times, true)
}

func fitKaplanMeier(op string, events []bool, times []float64, reverse bool) (*KaplanMeier, error) {
	if err := checkOutcomes(op, events, times); err != nil {
		return nil, err
	}

	order := make([]int, len(times))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return times[order[a]] < times[order[b]] })

	km := &KaplanMeier{}
	atRisk := len(times)
	s := 1.0
	for i := 0; i < len(order); {
		t := times[order[i]]
		var d, n int
		for ; i < len(order) && times[order[i]] == t; i++ {
			if events[order[i]] != reverse {
				d++
			}
			n++
		}
		if d > 0 {
			s *= 1 - float64(d)/float64(atRisk)
			km.Times = append(km.Times, t)
			km.Survival = append(km.Survival, s)
		}
		atRisk -= n
	}
	return km, nil
}

// Eval returns the estimate at t. It is 1 before the first observed event and
// stays at the last value after the last one.
func (km *KaplanMeier) Eval(t float64) float64 {
	i := sort.Search(len(km.Times), func(j int) bool { return km.Times[j] > t })
	if i == 0 {
		return 1
	}
	return km.Survival[i-1]
}

func checkOutcomes(op string, events []bool, times []float64) error {
	if len(times) == 0 {
		return errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if len(events) != len(times) {
		return errors.NewDimensionError(op, len(times), len(events), 0)
	}
	for _, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.NewValueError(op, "times must be finite")
		}
	}
	return nil
}
