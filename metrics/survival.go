package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// Outcomes holds right-censored observations as parallel arrays.
type Outcomes struct {
	Events []bool
	Times  []float64
}

// BrierScores computes the IPCW Brier score (Graf et al.) at every time in
// times. surv is the (M, len(times)) matrix of predicted survival for the
// test subjects. The censoring distribution is estimated on train.
//
// S(t) is read as P(T >= t): an event exactly at t has not happened before t,
// matching intervals [t_{k-1}, t_k) of the discrete-time targets. A subject
// contributes S(t)^2 / G(T_i) if it had the event at T_i < t,
// (1 - S(t))^2 / G(t) if T_i >= t, and nothing if it was censored before t.
// Weights where G is zero are set to zero.
func BrierScores(train, test Outcomes, surv mat.Matrix, times []float64) ([]float64, error) {
	if err := checkOutcomes("BrierScores", test.Events, test.Times); err != nil {
		return nil, err
	}
	m, k := surv.Dims()
	if m != len(test.Times) {
		return nil, errors.NewDimensionError("BrierScores", len(test.Times), m, 0)
	}
	if k != len(times) {
		return nil, errors.NewDimensionError("BrierScores", len(times), k, 1)
	}

	cens, err := NewCensoringKaplanMeier(train.Events, train.Times)
	if err != nil {
		return nil, err
	}

	gAtObs := make([]float64, m)
	for i, ti := range test.Times {
		gAtObs[i] = cens.Eval(ti)
	}

	scores := make([]float64, k)
	for j, t := range times {
		gAtT := cens.Eval(t)
		var sum float64
		for i := 0; i < m; i++ {
			s := surv.At(i, j)
			ti := test.Times[i]
			switch {
			case ti < t && test.Events[i]:
				if gAtObs[i] > 0 {
					sum += s * s / gAtObs[i]
				}
			case ti >= t:
				if gAtT > 0 {
					sum += (1 - s) * (1 - s) / gAtT
				}
			}
		}
		scores[j] = sum / float64(m)
	}
	return scores, nil
}

// IntegratedBrierScore integrates BrierScores over times with the trapezoidal
// rule and divides by the covered span. At least two times are required.
func IntegratedBrierScore(train, test Outcomes, surv mat.Matrix, times []float64) (float64, error) {
	if len(times) < 2 {
		return 0, errors.NewValueError("IntegratedBrierScore",
			fmt.Sprintf("at least 2 time points are required, got %d", len(times)))
	}
	for j := 1; j < len(times); j++ {
		if times[j] <= times[j-1] {
			return 0, errors.NewValidationError("times", "must be strictly increasing", times)
		}
	}
	scores, err := BrierScores(train, test, surv, times)
	if err != nil {
		return 0, err
	}
	span := times[len(times)-1] - times[0]
	return integrate.Trapezoidal(times, scores) / span, nil
}

// ConcordanceIndex computes Harrell's C-index. risk is a score where higher
// means earlier event. A pair (i, j) is comparable when i had the event and
// T_i < T_j; it is concordant when risk_i > risk_j, and counts one half when
// the risks tie.
func ConcordanceIndex(events []bool, times, risk []float64) (float64, error) {
	if err := checkOutcomes("ConcordanceIndex", events, times); err != nil {
		return 0, err
	}
	if len(risk) != len(times) {
		return 0, errors.NewDimensionError("ConcordanceIndex", len(times), len(risk), 0)
	}

	var concordant, comparable float64
	for i := range times {
		if !events[i] {
			continue
		}
		for j := range times {
			if times[i] >= times[j] {
				continue
			}
			comparable++
			switch {
			case risk[i] > risk[j]:
				concordant++
			case risk[i] == risk[j]:
				concordant += 0.5
			}
		}
	}
	if comparable == 0 {
		return 0, errors.NewValueError("ConcordanceIndex", "no comparable pairs")
	}
	return concordant / comparable, nil
}
