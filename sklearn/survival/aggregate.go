package survival

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/core/parallel"
)

// aggregateThreshold is the subject count below which the product is computed
// on the calling goroutine.
const aggregateThreshold = 2048

// CumulativeSurvival folds a (K, M) hazard matrix into an (M, K) survival
// matrix with the discrete-time product rule
//
//	S(m, k) = Π_{j=0..k} (1 - hazard(j, m))
//
// Hazards are assumed to lie in [0, 1], in which case every row of the result
// is non-increasing and within [0, 1].
func CumulativeSurvival(hazard mat.Matrix, workers int) *mat.Dense {
	k, m := hazard.Dims()
	surv := mat.NewDense(m, k, nil)

	parallel.ParallelizeWithThreshold(m, aggregateThreshold, workers, func(start, end int) {
		for s := start; s < end; s++ {
			acc := 1.0
			for j := 0; j < k; j++ {
				acc *= 1 - hazard.At(j, s)
				surv.Set(s, j, acc)
			}
		}
	})
	return surv
}
