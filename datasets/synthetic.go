// Package datasets generates synthetic right-censored survival data.
package datasets

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// SurvivalConfig configures MakeSurvival.
type SurvivalConfig struct {
	NSamples  int
	NFeatures int
	// BaseRate is the event hazard of a subject whose features are all zero.
	BaseRate float64
	// CensoringRate is the hazard of the independent censoring time.
	// Zero disables censoring.
	CensoringRate float64
	// MaxTime administratively censors every subject still at risk.
	// Zero disables it.
	MaxTime float64
	Seed    uint64
}

// DefaultSurvivalConfig returns a small proportional-hazards problem.
func DefaultSurvivalConfig() SurvivalConfig {
	return SurvivalConfig{
		NSamples:      500,
		NFeatures:     4,
		BaseRate:      0.01,
		CensoringRate: 0.005,
		MaxTime:       365,
		Seed:          42,
	}
}

// SurvivalData is a generated dataset. Coef holds the true log-hazard
// coefficients.
type SurvivalData struct {
	X      *mat.Dense
	Events []bool
	Times  []float64
	Coef   []float64
}

// MakeSurvival draws standard normal features and exponential event times
// with rate BaseRate * exp(x·Coef), then applies exponential and
// administrative censoring.
func MakeSurvival(cfg SurvivalConfig) (*SurvivalData, error) {
	if cfg.NSamples <= 0 || cfg.NFeatures <= 0 {
		return nil, errors.NewValueError("MakeSurvival",
			fmt.Sprintf("need positive sizes, got %d samples and %d features", cfg.NSamples, cfg.NFeatures))
	}
	if cfg.BaseRate <= 0 || cfg.CensoringRate < 0 || cfg.MaxTime < 0 {
		return nil, errors.NewValueError("MakeSurvival", "rates and MaxTime must be non-negative, BaseRate positive")
	}

	src := rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	coef := make([]float64, cfg.NFeatures)
	for j := range coef {
		// Decaying effects with alternating signs
		coef[j] = math.Pow(-1, float64(j)) / float64(j+1)
	}

	X := mat.NewDense(cfg.NSamples, cfg.NFeatures, nil)
	events := make([]bool, cfg.NSamples)
	times := make([]float64, cfg.NSamples)

	censor := distuv.Exponential{Rate: cfg.CensoringRate, Src: src}
	for i := 0; i < cfg.NSamples; i++ {
		var eta float64
		for j := 0; j < cfg.NFeatures; j++ {
			x := norm.Rand()
			X.Set(i, j, x)
			eta += x * coef[j]
		}

		t := distuv.Exponential{Rate: cfg.BaseRate * math.Exp(eta), Src: src}.Rand()
		c := math.Inf(1)
		if cfg.CensoringRate > 0 {
			c = censor.Rand()
		}
		if cfg.MaxTime > 0 && cfg.MaxTime < c {
			c = cfg.MaxTime
		}

		if t <= c {
			events[i], times[i] = true, t
		} else {
			events[i], times[i] = false, c
		}
	}

	return &SurvivalData{X: X, Events: events, Times: times, Coef: coef}, nil
}

// EventRate returns the fraction of subjects with an observed event.
func (d *SurvivalData) EventRate() float64 {
	var n int
	for _, e := range d.Events {
		if e {
			n++
		}
	}
	return float64(n) / float64(len(d.Events))
}
