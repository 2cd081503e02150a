package outlier

import (
	"fmt"
	"math"
)

// Bucket is the classification of a single z-score.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketHigh
	BucketLow
)

func (b Bucket) String() string {
	switch b {
	case BucketHigh:
		return "high"
	case BucketLow:
		return "low"
	default:
		return "none"
	}
}

// Thresholds are the exclusive z-score bounds of one analysis. A z-score
// equal to a bound is not an outlier.
type Thresholds struct {
	High float64
	Low  float64
}

// HighOnly returns thresholds that never produce low outliers.
func HighOnly(high float64) Thresholds {
	return Thresholds{High: high, Low: math.Inf(-1)}
}

// Classify places z into a bucket.
func (t Thresholds) Classify(z float64) Bucket {
	switch {
	case z > t.High:
		return BucketHigh
	case z < t.Low:
		return BucketLow
	default:
		return BucketNone
	}
}

func (t Thresholds) String() string {
	if math.IsInf(t.Low, -1) {
		return fmt.Sprintf("z > %g", t.High)
	}
	return fmt.Sprintf("z > %g, z < %g", t.High, t.Low)
}

// FormatZScore renders z with one decimal and a sigma suffix, e.g. "+3.2σ".
func FormatZScore(z float64) string {
	formatted := fmt.Sprintf("%.1f", z)
	if z >= 0 {
		return "+" + formatted + "σ"
	}
	return formatted + "σ"
}
