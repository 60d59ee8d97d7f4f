package survival

import (
	"github.com/YuminosukeSato/gosurv/core/model"
	"github.com/YuminosukeSato/gosurv/pkg/log"
)

// Option configures a DiscreteTimeEnsemble.
type Option func(*DiscreteTimeEnsemble)

// WithBaseClassifier sets the classifier cloned for every non-degenerate
// time interval. It is never fitted itself.
func WithBaseClassifier(c model.CloneableClassifier) Option {
	return func(e *DiscreteTimeEnsemble) {
		e.base = c
	}
}

// WithWorkers sets how many intervals are fitted or predicted concurrently.
// n <= 0 uses one worker per CPU.
func WithWorkers(n int) Option {
	return func(e *DiscreteTimeEnsemble) {
		e.workers = n
	}
}

// WithLogger sets the logger. Defaults to log.GetLogger().
func WithLogger(l log.Logger) Option {
	return func(e *DiscreteTimeEnsemble) {
		e.logger = l
	}
}

// WithName sets the model name used in logs and errors.
func WithName(name string) Option {
	return func(e *DiscreteTimeEnsemble) {
		e.name = name
	}
}

// WithVerbose logs per-interval progress at info level instead of debug.
func WithVerbose(verbose bool) Option {
	return func(e *DiscreteTimeEnsemble) {
		e.verbose = verbose
	}
}
