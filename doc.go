// Package gosurv provides discrete-time survival analysis for Go services.
//
// A survival model is assembled from ordinary binary classifiers: the time
// axis is cut into bins, one classifier estimates the hazard of each bin, and
// the hazards are combined into survival curves with the product rule.
//
// # Packages
//
//   - sklearn/survival: DiscreteTimeEnsemble, target encoding, step functions,
//     cross-validation and persistence
//   - sklearn/linear_model: LogisticRegression, the default per-bin classifier
//   - metrics: Kaplan-Meier, IPCW Brier score, integrated Brier score,
//     Harrell's C-index, fold summaries
//   - preprocessing: StandardScaler
//   - datasets: synthetic right-censored data
//   - survplot: survival and Brier score curves with gonum/plot
//   - tracking: evaluation runs in memory or PostgreSQL
//   - report: Markdown, HTML and Excel cross-validation reports
//   - server, cmd/survserve: HTTP prediction API for a saved model
//   - core/parallel: worker pool used for per-bin fitting and prediction
//   - pkg/errors, pkg/log: error types and zerolog-based structured logging
//
// # Quick Start
//
//	y, err := survival.NewLabels(events, times)
//	if err != nil {
//	    return err
//	}
//	ens := survival.NewDiscreteTimeEnsemble(survival.WithWorkers(4))
//	if err := ens.Fit(X, y, []float64{30, 60, 90, 180}); err != nil {
//	    return err
//	}
//	surv, err := ens.PredictSurvival(XTest) // (n_test, 4)
//
// Prediction before Fit returns *errors.NotFittedError. A time bin in which
// no subject is still at risk makes Fit fail with
// *errors.NoObservationsInBucketError, and a bin where every subject at risk
// has the same outcome is served by a ConstantClassifier after a
// DegenerateIntervalWarning.
package gosurv
