// Package turbine loads wind turbine generator definitions and computes
// gross yield figures from them. Power curves come from WAsP .wtg files,
// the interchange format most manufacturers publish.
package turbine

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
)

// Turbine is a wind turbine generator: a rotor and a power curve.
type Turbine struct {
	Name          string
	RotorDiameter float64 // m

	// WindSpeeds (m/s, ascending) and Power (W) define the power curve.
	WindSpeeds []float64
	Power      []float64
}

// wtg file structure. A .wtg may carry several performance tables, one
// per air density; the first table is used.
type wtgFile struct {
	Description       string `xml:"Description,attr"`
	RotorDiameter     float64 `xml:"RotorDiameter,attr"`
	PerformanceTables []struct {
		AirDensity float64 `xml:"AirDensity,attr"`
		DataPoints []struct {
			WindSpeed   float64 `xml:"WindSpeed,attr"`
			PowerOutput float64 `xml:"PowerOutput,attr"`
		} `xml:"DataTable>DataPoint"`
	} `xml:"PerformanceTable"`
}

// FromWTG reads a turbine definition from a WAsP .wtg XML file.
func FromWTG(path string) (*Turbine, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading wtg %s: %w", path, err)
	}
	return parseWTG(raw, path)
}

func parseWTG(raw []byte, path string) (*Turbine, error) {
	var f wtgFile
	if err := xml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parsing wtg %s: %w", path, err)
	}
	if len(f.PerformanceTables) == 0 {
		return nil, fmt.Errorf("wtg %s: no performance tables", path)
	}
	table := f.PerformanceTables[0]
	// Yield integration needs at least 3 strictly increasing speed bins.
	if len(table.DataPoints) < 3 {
		return nil, fmt.Errorf("wtg %s: power curve needs at least 3 points, has %d", path, len(table.DataPoints))
	}

	t := &Turbine{
		Name:          f.Description,
		RotorDiameter: f.RotorDiameter,
		WindSpeeds:    make([]float64, len(table.DataPoints)),
		Power:         make([]float64, len(table.DataPoints)),
	}
	for i, dp := range table.DataPoints {
		t.WindSpeeds[i] = dp.WindSpeed
		t.Power[i] = dp.PowerOutput
	}
	for i := 1; i < len(t.WindSpeeds); i++ {
		if t.WindSpeeds[i] <= t.WindSpeeds[i-1] {
			return nil, fmt.Errorf("wtg %s: power curve wind speeds are not strictly ascending", path)
		}
	}
	return t, nil
}

// RatedPower returns the maximum of the power curve, in watts.
func (t *Turbine) RatedPower() float64 {
	var max float64
	for _, p := range t.Power {
		if p > max {
			max = p
		}
	}
	return max
}

// PowerAt linearly interpolates turbine output at a wind speed, in
// watts. Speeds outside the curve produce zero.
func (t *Turbine) PowerAt(windSpeed float64) float64 {
	n := len(t.WindSpeeds)
	if n == 0 || windSpeed < t.WindSpeeds[0] || windSpeed > t.WindSpeeds[n-1] {
		return 0
	}
	i := sort.SearchFloat64s(t.WindSpeeds, windSpeed)
	if i < n && t.WindSpeeds[i] == windSpeed {
		return t.Power[i]
	}
	lo, hi := i-1, i
	frac := (windSpeed - t.WindSpeeds[lo]) / (t.WindSpeeds[hi] - t.WindSpeeds[lo])
	return t.Power[lo] + frac*(t.Power[hi]-t.Power[lo])
}
