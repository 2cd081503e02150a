// Package outlier implements the z-score outlier analysis shared by every
// spending dimension (providers, HCPCS codes, billing mismatches, states).
//
// The engine is a pure transform: it takes an already-aggregated collection
// of entities and returns a report. It performs no I/O and keeps no state,
// so independent analyses may run concurrently.
package outlier

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyPopulation is returned by Summarize when there are no values.
var ErrEmptyPopulation = errors.New("outlier: empty population")

// Summary holds the population statistics of one measure.
type Summary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Count  int     `json:"count"`
}

// Summarize returns the arithmetic mean and the population standard
// deviation (divide by N) of values.
//
// A population with fewer than two distinct values has a standard deviation
// of exactly 0 and a mean equal to that value.
func Summarize(values []float64) (Summary, error) {
	if len(values) == 0 {
		return Summary{}, ErrEmptyPopulation
	}

	if allEqual(values) {
		return Summary{Mean: values[0], StdDev: 0, Count: len(values)}, nil
	}

	mean, std := stat.PopMeanStdDev(values, nil)
	if math.IsNaN(std) || math.IsInf(std, 0) {
		std = 0
	}
	return Summary{Mean: mean, StdDev: std, Count: len(values)}, nil
}

func allEqual(values []float64) bool {
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return false
		}
	}
	return true
}

// ZScore returns (value-mean)/stddev. The second result is false when the
// z-score is undefined because the population has no spread.
func ZScore(value float64, s Summary) (float64, bool) {
	if s.StdDev == 0 || math.IsNaN(s.StdDev) {
		return 0, false
	}
	z := (value - s.Mean) / s.StdDev
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, false
	}
	return z, true
}

// Round2 rounds v to two decimal places. It is only applied when a report is
// assembled; comparisons always use full precision.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
