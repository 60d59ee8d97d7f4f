// Package log defines standard attribute keys for estimator logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log records from fit and predict runs can be filtered consistently.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "DiscreteTimeEnsemble", "LogisticRegression", "StandardScaler"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific model instance (UUID string).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// EventsKey indicates the number of uncensored subjects.
	EventsKey = "data.events"
)

// Survival context
const (
	// NBinsKey is the number of time intervals (classifier bank size).
	NBinsKey = "survival.n_bins"

	// IntervalKey is the 0-based index of a time interval.
	IntervalKey = "survival.interval"

	// ObservationsKey is the number of evaluable subjects in an interval.
	ObservationsKey = "survival.observations"

	// ClassifierKindKey tells which classifier variant populates a slot ("constant", "fitted").
	ClassifierKindKey = "survival.classifier"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// WorkersKey is the degree of parallelism used for a fan-out.
	WorkersKey = "parallel.workers"

	// IterationKey records the current iteration number during iterative processes.
	IterationKey = "training.iteration"

	// LossKey records loss value during training or evaluation.
	LossKey = "metrics.loss"

	// BrierScoreKey records the integrated Brier score of an evaluation.
	BrierScoreKey = "metrics.ibs"

	// ConcordanceKey records the concordance index of an evaluation.
	ConcordanceKey = "metrics.c_index"
)

// Prediction Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// HTTP Context
const (
	HTTPMethodKey = "http.method"
	HTTPPathKey   = "http.path"
	HTTPStatusKey = "http.status"

	// RequestIDKey carries the id assigned by the request-id middleware.
	RequestIDKey = "http.request_id"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	StacktraceKey = "error.stacktrace"

	// WarningKey carries a structured warning object.
	WarningKey = "warning"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyBucket       = "NO_OBSERVATIONS_IN_BUCKET"
	ErrorInvalidInput      = "INVALID_INPUT"
)
