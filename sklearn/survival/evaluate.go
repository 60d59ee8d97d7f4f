package survival

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gosurv/metrics"
	"github.com/YuminosukeSato/gosurv/pkg/errors"
	"github.com/YuminosukeSato/gosurv/pkg/log"
)

// FoldScore holds the evaluation of one cross-validation fold.
type FoldScore struct {
	Fold       int
	IBS        float64
	CIndex     float64
	BrierScore []float64
	Duration   time.Duration
}

// CVResult is the outcome of CrossValidate.
type CVResult struct {
	TimeBins []float64
	Folds    []FoldScore
	IBS      metrics.Summary
	CIndex   metrics.Summary
}

// MeanBrierScores averages the per-bin Brier scores over the folds that
// recorded one per time bin.
func (r *CVResult) MeanBrierScores() []float64 {
	mean := make([]float64, len(r.TimeBins))
	n := 0
	for _, f := range r.Folds {
		if len(f.BrierScore) != len(mean) {
			continue
		}
		floats.Add(mean, f.BrierScore)
		n++
	}
	if n > 0 {
		floats.Scale(1/float64(n), mean)
	}
	return mean
}

// CrossValidate fits a fresh ensemble from newEstimator on each of nFolds
// shuffled folds and scores it on the held-out rows with the integrated
// Brier score over timeBins and Harrell's C-index. The risk score of a
// subject is the negated sum of its predicted survival curve.
func CrossValidate(newEstimator func() *DiscreteTimeEnsemble, X mat.Matrix, y []Label, timeBins []float64, nFolds int, seed int64) (*CVResult, error) {
	n, _ := X.Dims()
	if n != len(y) {
		return nil, errors.NewDimensionError("CrossValidate", n, len(y), 0)
	}
	folds, err := metrics.KFold(n, nFolds, true, seed)
	if err != nil {
		return nil, err
	}

	res := &CVResult{
		TimeBins: append([]float64(nil), timeBins...),
		Folds:    make([]FoldScore, 0, len(folds)),
	}
	ibs := make([]float64, 0, len(folds))
	cidx := make([]float64, 0, len(folds))

	for i, fold := range folds {
		var fs FoldScore
		err := errors.SafeExecute(fmt.Sprintf("CrossValidate fold %d", i), func() error {
			var err error
			fs, err = evaluateFold(newEstimator, X, y, timeBins, i, fold)
			return err
		})
		if err != nil {
			return nil, errors.Wrapf(err, "fold %d", i)
		}
		res.Folds = append(res.Folds, fs)
		ibs = append(ibs, fs.IBS)
		cidx = append(cidx, fs.CIndex)
	}

	if res.IBS, err = metrics.Summarize(ibs); err != nil {
		return nil, err
	}
	if res.CIndex, err = metrics.Summarize(cidx); err != nil {
		return nil, err
	}
	return res, nil
}

// evaluateFold fits a fresh estimator on the training rows of fold and scores
// it on the held-out rows.
func evaluateFold(newEstimator func() *DiscreteTimeEnsemble, X mat.Matrix, y []Label, timeBins []float64, i int, fold metrics.Fold) (FoldScore, error) {
	start := time.Now()
	est := newEstimator()

	XTrain, yTrain := subsetRows(X, fold.Train), Subset(y, fold.Train)
	XTest, yTest := subsetRows(X, fold.Test), Subset(y, fold.Test)

	if err := est.Fit(XTrain, yTrain, timeBins); err != nil {
		return FoldScore{}, err
	}
	surv, err := est.PredictSurvival(XTest)
	if err != nil {
		return FoldScore{}, err
	}

	trainEvents, trainTimes := Split(yTrain)
	testEvents, testTimes := Split(yTest)
	train := metrics.Outcomes{Events: trainEvents, Times: trainTimes}
	test := metrics.Outcomes{Events: testEvents, Times: testTimes}

	scores, err := metrics.BrierScores(train, test, surv, timeBins)
	if err != nil {
		return FoldScore{}, err
	}
	foldIBS := scores[0]
	if len(timeBins) > 1 {
		if foldIBS, err = metrics.IntegratedBrierScore(train, test, surv, timeBins); err != nil {
			return FoldScore{}, err
		}
	}
	c, err := metrics.ConcordanceIndex(testEvents, testTimes, RiskScores(surv))
	if err != nil {
		return FoldScore{}, err
	}

	fs := FoldScore{Fold: i, IBS: foldIBS, CIndex: c, BrierScore: scores, Duration: time.Since(start)}
	est.logger.Info("Fold evaluated",
		log.OperationKey, log.OperationScore,
		"cv.fold", i,
		log.BrierScoreKey, foldIBS,
		log.ConcordanceKey, c,
		log.DurationMsKey, fs.Duration.Milliseconds(),
	)
	return fs, nil
}

// RiskScores turns an (M, K) survival matrix into one risk score per subject:
// the negated area under its survival curve on the bin index scale.
func RiskScores(surv mat.Matrix) []float64 {
	m, _ := surv.Dims()
	risk := make([]float64, m)
	for i := 0; i < m; i++ {
		risk[i] = -floats.Sum(mat.Row(nil, i, surv))
	}
	return risk
}

// TimeGrid returns n evenly spaced evaluation times between the 5th and 95th
// percentiles of the observed times in y.
func TimeGrid(y []Label, n int) ([]float64, error) {
	if err := validateLabels("TimeGrid", y); err != nil {
		return nil, err
	}
	_, times := Split(y)
	return metrics.TimeGrid(times, 5, 95, n)
}

func subsetRows(X mat.Matrix, rows []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(rows), c, nil)
	buf := make([]float64, c)
	for r, i := range rows {
		out.SetRow(r, mat.Row(buf, i, X))
	}
	return out
}
