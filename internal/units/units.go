// Package units provides shared constants and validation for energy units
package units

// Unit constants. AEP figures are computed in watt-hours and scaled.
const (
	GWH = "gwh"
	MWH = "mwh"
	KWH = "kwh"
	WH  = "wh"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{GWH, MWH, KWH, WH}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return "gwh, mwh, kwh, wh"
}

// ScaleFactor returns the number of watt-hours in one of the target unit.
// Unknown units scale by 1 (watt-hours).
func ScaleFactor(unit string) float64 {
	switch unit {
	case GWH:
		return 1e9
	case MWH:
		return 1e6
	case KWH:
		return 1e3
	default:
		return 1
	}
}

// ConvertEnergy converts an energy value in watt-hours to the target units.
func ConvertEnergy(wh float64, targetUnits string) float64 {
	return wh / ScaleFactor(targetUnits)
}
