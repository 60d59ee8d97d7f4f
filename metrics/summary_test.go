package metrics

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 3, s.N)
	assert.Equal(t, "2.0000 ± 0.8165", s.String())

	_, err = Summarize(nil)
	assert.Error(t, err)
}

func TestTimeGrid(t *testing.T) {
	times := make([]float64, 100)
	for i := range times {
		times[i] = float64(i + 1)
	}

	grid, err := TimeGrid(times, 10, 90, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 30, 50, 70, 90}, grid)

	_, err = TimeGrid(times, 10, 90, 1)
	assert.Error(t, err)
	_, err = TimeGrid(times, 50, 10, 5)
	assert.Error(t, err)
	_, err = TimeGrid([]float64{4, 4, 4, 4}, 25, 100, 3)
	assert.Error(t, err)
}

func TestKFold(t *testing.T) {
	for _, shuffle := range []bool{false, true} {
		folds, err := KFold(10, 3, shuffle, 42)
		require.NoError(t, err)
		require.Len(t, folds, 3)

		var allTest []int
		for i, f := range folds {
			assert.Len(t, f.Train, 10-len(f.Test))
			seen := make(map[int]bool, len(f.Test))
			for _, r := range f.Test {
				seen[r] = true
			}
			for _, r := range f.Train {
				assert.False(t, seen[r], "fold %d: row %d in both train and test", i, r)
			}
			allTest = append(allTest, f.Test...)
		}
		assert.Equal(t, 4, len(folds[0].Test))
		assert.Equal(t, 3, len(folds[2].Test))

		sort.Ints(allTest)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, allTest)
	}

	a, _ := KFold(20, 4, true, 7)
	b, _ := KFold(20, 4, true, 7)
	assert.Equal(t, a, b, "same seed must give the same folds")

	_, err := KFold(2, 3, false, 0)
	assert.Error(t, err)
	_, err = KFold(10, 1, false, 0)
	assert.Error(t, err)
}
