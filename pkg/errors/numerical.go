package errors

import (
	"fmt"
	"math"
)

// CheckNumericalStability checks if values contain NaN or Inf
// and returns an error if numerical instability is detected.
func CheckNumericalStability(operation string, values []float64, iteration int) error {
	var unstable []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			unstable = append(unstable, v)
			if len(unstable) >= 10 {
				break
			}
		}
	}
	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable, iteration)
	}
	return nil
}

// CheckProbabilities validates that every value is a finite probability in [0, 1].
// NaN and Inf are reported as NumericalInstabilityError, anything else outside the
// unit interval as ValueError. iteration identifies the producer (for example the
// interval index).
func CheckProbabilities(operation string, values []float64, iteration int) error {
	if err := CheckNumericalStability(operation, values, iteration); err != nil {
		return err
	}
	for i, v := range values {
		if v < 0 || v > 1 {
			return NewValueError(operation,
				fmt.Sprintf("probability %.6g at position %d is outside [0, 1]", v, i))
		}
	}
	return nil
}

// StabilizeExp computes exp with protection against overflow.
// Clips the input to prevent exp from returning Inf.
func StabilizeExp(value float64) float64 {
	const maxExp = 700.0 // exp(700) is close to the maximum float64
	if value > maxExp {
		return math.Exp(maxExp)
	}
	if value < -maxExp {
		return 0
	}
	return math.Exp(value)
}
