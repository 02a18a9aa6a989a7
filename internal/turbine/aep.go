package turbine

import (
	"fmt"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/layowt/layowt/internal/units"
)

// HoursPerYear is the mean length of a calendar year in hours.
const HoursPerYear = 8766

// WeibullAEP computes the gross annual energy production of a single
// turbine in a Weibull wind climate with scale a (m/s) and shape k. The
// power curve is integrated against the Weibull density over the curve's
// wind speed bins. No wake or availability losses are applied.
func WeibullAEP(t *Turbine, weibullA, weibullK float64, unit string) (float64, error) {
	if weibullA <= 0 || weibullK <= 0 {
		return 0, fmt.Errorf("weibull a and k must be positive, got a=%g k=%g", weibullA, weibullK)
	}
	if !units.IsValid(unit) {
		return 0, fmt.Errorf("unit must be one of %s, got %q", units.GetValidUnitsString(), unit)
	}
	// Simpsons needs at least 3 strictly increasing abscissae and panics
	// otherwise, so reject short or degenerate curves here.
	if len(t.WindSpeeds) < 3 {
		return 0, fmt.Errorf("turbine %s has no usable power curve", t.Name)
	}
	for i := 1; i < len(t.WindSpeeds); i++ {
		if t.WindSpeeds[i] <= t.WindSpeeds[i-1] {
			return 0, fmt.Errorf("turbine %s power curve wind speeds are not strictly increasing", t.Name)
		}
	}

	dist := distuv.Weibull{K: weibullK, Lambda: weibullA}
	weighted := make([]float64, len(t.WindSpeeds))
	for i, u := range t.WindSpeeds {
		weighted[i] = dist.Prob(u) * t.Power[i]
	}

	wh := HoursPerYear * integrate.Simpsons(t.WindSpeeds, weighted)
	return units.ConvertEnergy(wh, unit), nil
}
