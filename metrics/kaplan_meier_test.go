package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKaplanMeier(t *testing.T) {
	events := []bool{true, false, true, true, false}
	times := []float64{1, 2, 3, 4, 5}

	km, err := NewKaplanMeier(events, times)
	require.NoError(t, err)

	tests := []struct {
		at   float64
		want float64
	}{
		{0.5, 1},
		{1, 0.8},
		{2.5, 0.8},
		{3, 0.8 * 2 / 3},
		{4, 0.8 * 2 / 3 * 1 / 2},
		{10, 0.8 * 2 / 3 * 1 / 2},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, km.Eval(tt.at), 1e-12, "S(%v)", tt.at)
	}
}

func TestCensoringKaplanMeier(t *testing.T) {
	events := []bool{true, false, true, true, false}
	times := []float64{1, 2, 3, 4, 5}

	g, err := NewCensoringKaplanMeier(events, times)
	require.NoError(t, err)

	assert.Equal(t, 1.0, g.Eval(1.5))
	assert.InDelta(t, 0.75, g.Eval(2), 1e-12)
	assert.Equal(t, 0.0, g.Eval(5))
}

func TestKaplanMeierTiedTimes(t *testing.T) {
	km, err := NewKaplanMeier([]bool{true, true, false, true}, []float64{2, 2, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, km.Eval(2), 1e-12)
	assert.Equal(t, 0.0, km.Eval(3))
}

func TestKaplanMeierInvalidInput(t *testing.T) {
	_, err := NewKaplanMeier(nil, nil)
	assert.Error(t, err)

	_, err = NewKaplanMeier([]bool{true}, []float64{1, 2})
	assert.Error(t, err)
}
