package metrics

import (
	"fmt"
	"math/rand"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/gosurv/pkg/errors"
)

// Summary aggregates one metric across folds.
type Summary struct {
	Mean float64
	Std  float64
	N    int
}

// String formats the summary as "mean ± std".
func (s Summary) String() string {
	return fmt.Sprintf("%.4f ± %.4f", s.Mean, s.Std)
}

// Summarize returns the mean and population standard deviation of values.
func Summarize(values []float64) (Summary, error) {
	mean, err := stats.Mean(values)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarize")
	}
	std, err := stats.StandardDeviation(values)
	if err != nil {
		return Summary{}, errors.Wrap(err, "summarize")
	}
	return Summary{Mean: mean, Std: std, N: len(values)}, nil
}

// TimeGrid returns n evenly spaced points between the lo-th and hi-th
// percentiles of times.
func TimeGrid(times []float64, lo, hi float64, n int) ([]float64, error) {
	if n < 2 {
		return nil, errors.NewValueError("TimeGrid", fmt.Sprintf("n must be at least 2, got %d", n))
	}
	if lo <= 0 || hi > 100 || lo >= hi {
		return nil, errors.NewValueError("TimeGrid",
			fmt.Sprintf("percentiles must satisfy 0 < lo < hi <= 100, got %v and %v", lo, hi))
	}
	start, err := stats.Percentile(times, lo)
	if err != nil {
		return nil, errors.Wrap(err, "time grid lower bound")
	}
	end, err := stats.Percentile(times, hi)
	if err != nil {
		return nil, errors.Wrap(err, "time grid upper bound")
	}
	if end <= start {
		return nil, errors.NewValueError("TimeGrid", "observed times do not span an interval")
	}

	grid := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range grid {
		grid[i] = start + float64(i)*step
	}
	grid[n-1] = end
	return grid, nil
}

// Fold is one train/test split of row indices.
type Fold struct {
	Train []int
	Test  []int
}

// KFold splits n rows into k folds. With shuffle the rows are permuted with
// the given seed first. The first n%k folds get one extra test row.
func KFold(n, k int, shuffle bool, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, errors.NewValueError("KFold", fmt.Sprintf("k must be at least 2, got %d", k))
	}
	if n < k {
		return nil, errors.NewValueError("KFold", fmt.Sprintf("cannot split %d rows into %d folds", n, k))
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	}

	folds := make([]Fold, k)
	start := 0
	for f := 0; f < k; f++ {
		size := n / k
		if f < n%k {
			size++
		}
		test := append([]int(nil), idx[start:start+size]...)
		train := make([]int, 0, n-size)
		train = append(train, idx[:start]...)
		train = append(train, idx[start+size:]...)
		folds[f] = Fold{Train: train, Test: test}
		start += size
	}
	return folds, nil
}
