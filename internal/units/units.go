// Package units provides shared constants and conversions for the
// angle and distance units used at the tool boundaries. Internally
// everything is radians and meters.
package units

import "math"

// Unit constants
const (
	Radians = "rad"
	Degrees = "deg"
	Meters  = "m"
	Feet    = "ft"
)

// ValidAngleUnits contains all valid angle unit values
var ValidAngleUnits = []string{Radians, Degrees}

// IsValidAngleUnit checks if the given unit is in the list of valid angle units
func IsValidAngleUnit(unit string) bool {
	for _, validUnit := range ValidAngleUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// DegreesToRadians converts an angle from degrees to radians
func DegreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadiansToDegrees converts an angle from radians to degrees
func RadiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// ConvertAngle converts an angle in radians to the target units
// Internal state stores angles in radians
func ConvertAngle(rad float64, targetUnits string) float64 {
	switch targetUnits {
	case Degrees:
		return RadiansToDegrees(rad)
	case Radians:
		return rad
	default:
		return rad // default to radians if unknown unit
	}
}

// FeetToMeters converts a distance from feet to meters
func FeetToMeters(ft float64) float64 {
	return ft * 0.3048
}

// MetersToFeet converts a distance from meters to feet
func MetersToFeet(m float64) float64 {
	return m / 0.3048
}
