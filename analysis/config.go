// Package analysis composes the outlier engine into the named analyses the
// service publishes: provider, procedure code and billing mismatch spending,
// state per-capita spending and the FMAP overview.
package analysis

import (
	"math"

	"github.com/COG-GTM/devin-hhs/outlier"
)

// DomainConfig parameterises one analysis.
type DomainConfig struct {
	// Floor is the exclusive minimum activity an entity needs to join the
	// population: total claims for spending analyses, residents for states.
	Floor      float64
	Thresholds outlier.Thresholds
	Profile    outlier.Profile
}

// DefaultSpendingConfig flags spending more than three deviations above the
// mean among entities with over 100 claims.
func DefaultSpendingConfig() DomainConfig {
	return DomainConfig{
		Floor:      100,
		Thresholds: outlier.HighOnly(3),
		Profile:    outlier.ProfileGeneral,
	}
}

// DefaultStateConfig flags per-capita spending above 2 or below -1.5
// deviations among jurisdictions with more than 100,000 residents.
func DefaultStateConfig() DomainConfig {
	return DomainConfig{
		Floor:      100_000,
		Thresholds: outlier.Thresholds{High: 2, Low: -1.5},
		Profile:    outlier.ProfileFederal,
	}
}

func round2(v float64) float64 { return outlier.Round2(v) }

func above(key string, floor float64) func(outlier.Entity) bool {
	return func(e outlier.Entity) bool {
		v, ok := e.Measure(key)
		return ok && v > floor
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
