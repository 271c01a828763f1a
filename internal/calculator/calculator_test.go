package calculator

import (
	"errors"
	"math"
	"testing"

	"github.com/localrivet/localmcp/internal/errortypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdd(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{2, 3, 5},
		{0, 0, 0},
		{-7, 4, -3},
		{-2, -2, -4},
		{10, -10, 0},
		{math.MaxInt, 1, math.MinInt},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Add(tt.a, tt.b), "Add(%d, %d)", tt.a, tt.b)
	}
}

func TestBMI(t *testing.T) {
	got, err := BMI(70, 1.75)
	require.NoError(t, err)
	assert.InDelta(t, 22.857142857, got, 1e-6)

	got, err = BMI(0, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = BMI(80, -2)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, got, 1e-9)
}

func TestBMIZeroHeight(t *testing.T) {
	for _, height := range []float64{0, math.Copysign(0, -1), 1e-200, -1e-200} {
		_, err := BMI(70, height)
		require.Error(t, err, "height %g", height)
		assert.True(t, errors.Is(err, ErrDivideByZero))
		assert.True(t, errortypes.IsArithmeticError(err))
	}
}

func TestBMINonFinite(t *testing.T) {
	tests := []struct {
		name           string
		weight, height float64
	}{
		{"nan weight", math.NaN(), 1.8},
		{"nan height", 70, math.NaN()},
		{"infinite weight", math.Inf(1), 1.8},
		{"infinite over infinite", math.Inf(1), math.Inf(-1)},
		{"overflow", math.MaxFloat64, 1e-160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BMI(tt.weight, tt.height)
			require.Error(t, err)
			assert.Equal(t, 0.0, got)
			assert.True(t, errortypes.IsArithmeticError(err))
		})
	}
}
