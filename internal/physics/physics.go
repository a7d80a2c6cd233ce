package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	ZeroCelsius = 273.15   // 0°C in Kelvin
	FeetToM     = 0.3048   // Conversion factor from feet to meters
	KmhToKnots  = 0.539957 // Conversion factor from km/h to knots
	MphToKmh    = 1.609344 // Conversion factor from mph to km/h
)

// CalculateMagneticVariation calculates the magnetic declination for a given position and time
// Returns declination in degrees (+East, -West)
func CalculateMagneticVariation(lat, lon, altFt float64, date time.Time) float64 {
	altM := altFt * FeetToM

	loc := egm96.NewLocationGeodetic(lat, lon, altM)

	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		// Outside the model's validity window
		return 0.0
	}

	return mag.D()
}

// TrueToMagnetic converts a true bearing to a magnetic one given the
// declination (+East). The result is normalized to [0, 360).
func TrueToMagnetic(trueDeg, declination float64) float64 {
	return NormalizeHeading(trueDeg - declination)
}

// NormalizeHeading wraps a bearing into [0, 360)
func NormalizeHeading(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// ToCelsius converts a temperature reported in the given service unit
// ("m" Celsius, "f" Fahrenheit, "s" Kelvin) to Celsius
func ToCelsius(temp float64, unit string) float64 {
	switch unit {
	case "f":
		return (temp - 32) * 5 / 9
	case "s":
		return temp - ZeroCelsius
	default:
		return temp
	}
}

// ToKmh converts a wind speed in the given service unit to km/h. The
// service reports mph for "f" and km/h otherwise.
func ToKmh(speed float64, unit string) float64 {
	if unit == "f" {
		return speed * MphToKmh
	}
	return speed
}
