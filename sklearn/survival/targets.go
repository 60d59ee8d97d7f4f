package survival

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// Sentinel marks a (subject, interval) cell whose outcome is unknown:
// the subject was censored, or already had the event, before the interval.
const Sentinel = -1.0

// BuildTargets turns right-censored labels into the (n_subjects, K) multi-task
// target matrix used to fit one binary classifier per time interval.
//
// With boundaries t_0 < ... < t_{K-1}, interval k covers [t_{k-1}, t_k) with
// t_{-1} = 0. Let b be the number of boundaries <= T_i. Then row i holds 0 in
// columns j < b (the subject survived past t_j), 1 in column b if the subject
// had the event and Sentinel if it was censored, and Sentinel in every column
// after b. A subject observed beyond t_{K-1} has an all-zero row.
//
// An event exactly at t_j falls in interval j+1, so predicted survival at
// t_k reads as P(T >= t_k). metrics.BrierScores scores with the same
// convention.
func BuildTargets(y []Label, timeBins []float64) (*mat.Dense, error) {
	if err := validateLabels("BuildTargets", y); err != nil {
		return nil, err
	}
	if err := validateTimeBins("BuildTargets", timeBins); err != nil {
		return nil, err
	}

	k := len(timeBins)
	targets := mat.NewDense(len(y), k, nil)
	for i, l := range y {
		b := sort.Search(k, func(j int) bool { return timeBins[j] > l.Time })
		for j := b; j < k; j++ {
			targets.Set(i, j, Sentinel)
		}
		if b < k && l.Event {
			targets.Set(i, b, 1)
		}
	}
	return targets, nil
}

func validateTimeBins(op string, timeBins []float64) error {
	if len(timeBins) == 0 {
		return errors.NewValidationError("time_bins", "must contain at least one boundary", timeBins)
	}
	for j, t := range timeBins {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return errors.NewValidationError("time_bins", fmt.Sprintf("boundary %d is not finite", j), t)
		}
		if j > 0 && t <= timeBins[j-1] {
			return errors.NewValidationError("time_bins", "must be strictly increasing", timeBins)
		}
	}
	return nil
}
