// Package calculator implements the stateless arithmetic tools.
package calculator

import (
	"errors"
	"math"
	"strconv"

	"github.com/localrivet/localmcp/internal/errortypes"
)

var (
	// ErrDivideByZero is returned by BMI when the squared height is zero.
	ErrDivideByZero = errors.New("division by zero")

	// ErrUndefinedResult is returned by BMI when the result is NaN or infinite.
	ErrUndefinedResult = errors.New("undefined result")
)

// Add returns a + b with the platform's int overflow behaviour.
func Add(a, b int) int {
	return a + b
}

// BMI returns weightKg / heightM². A height whose square is zero, including
// one that underflows, yields ErrDivideByZero. A NaN or infinite result
// yields ErrUndefinedResult. Negative inputs follow IEEE 754 arithmetic.
func BMI(weightKg, heightM float64) (float64, error) {
	squared := heightM * heightM
	if squared == 0 {
		return 0, errortypes.ArithmeticError(ErrDivideByZero, "cannot calculate BMI with zero height").
			WithField("weight_kg", strconv.FormatFloat(weightKg, 'g', -1, 64)).
			WithField("height_m", strconv.FormatFloat(heightM, 'g', -1, 64))
	}

	bmi := weightKg / squared
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) {
		return 0, errortypes.ArithmeticError(ErrUndefinedResult, "BMI is not a finite number").
			WithField("weight_kg", strconv.FormatFloat(weightKg, 'g', -1, 64)).
			WithField("height_m", strconv.FormatFloat(heightM, 'g', -1, 64))
	}
	return bmi, nil
}
