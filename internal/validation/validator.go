// Package validation runs advisory structure and type checks over parsed
// Weatherstack payloads. Checks never fail loudly: they log what is wrong
// and return false, and the caller decides whether that is fatal.
package validation

import (
	"encoding/json"

	"github.com/yegors/wxstack/pkg/logger"
)

// Required key sets, in the order they are reported when missing
var (
	RequiredResponseKeys = []string{"request", "location", "current"}
	RequiredLocationKeys = []string{"name", "country", "region", "lat", "lon", "timezone_id"}
	RequiredCurrentKeys  = []string{
		"temperature",
		"weather_descriptions",
		"wind_speed",
		"wind_degree",
		"pressure",
		"humidity",
		"cloudcover",
		"feelslike",
		"visibility",
	}
)

// Validator checks response payloads. It holds no state besides its logger
// and is safe for concurrent use.
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a validator that reports failures on log
func NewValidator(log *logger.Logger) *Validator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Validator{logger: log.Named("validator")}
}

// MissingKeys returns the entries of required that are absent from m
func MissingKeys(m map[string]any, required []string) []string {
	var missing []string
	for _, key := range required {
		if _, ok := m[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// ValidateResponseStructure reports whether the payload has request, location and current
func (v *Validator) ValidateResponseStructure(payload map[string]any) bool {
	return v.requireKeys("Missing required keys", payload, RequiredResponseKeys)
}

// ValidateLocationData reports whether a location object is complete
func (v *Validator) ValidateLocationData(location map[string]any) bool {
	return v.requireKeys("Missing location keys", location, RequiredLocationKeys)
}

// ValidateCurrentWeatherData reports whether a current-conditions object is complete
func (v *Validator) ValidateCurrentWeatherData(current map[string]any) bool {
	return v.requireKeys("Missing current weather keys", current, RequiredCurrentKeys)
}

func (v *Validator) requireKeys(msg string, m map[string]any, required []string) bool {
	missing := MissingKeys(m, required)
	if len(missing) > 0 {
		v.logger.Error(msg, logger.Strings("missing_keys", missing))
		return false
	}
	return true
}

// ValidateDataTypes checks the field types callers rely on. Coordinates are
// numeric-looking strings in the live API and must stay strings.
func (v *Validator) ValidateDataTypes(payload map[string]any) bool {
	location, ok := payload["location"].(map[string]any)
	if !ok {
		return v.typeFailure("location", "object")
	}
	for _, key := range []string{"name", "country", "lat", "lon"} {
		if _, ok := location[key].(string); !ok {
			return v.typeFailure("location."+key, "string")
		}
	}

	current, ok := payload["current"].(map[string]any)
	if !ok {
		return v.typeFailure("current", "object")
	}
	for _, key := range []string{"temperature", "wind_speed", "humidity", "pressure"} {
		if !IsNumber(current[key]) {
			return v.typeFailure("current."+key, "number")
		}
	}
	if _, ok := current["weather_descriptions"].([]any); !ok {
		return v.typeFailure("current.weather_descriptions", "array")
	}

	return true
}

func (v *Validator) typeFailure(field, want string) bool {
	v.logger.Error("Data type validation failed",
		logger.String("field", field),
		logger.String("expected", want))
	return false
}

// IsNumber reports whether a decoded JSON value is numeric. Booleans are not numbers.
func IsNumber(val any) bool {
	switch val.(type) {
	case float64, float32, int, int32, int64, json.Number:
		return true
	default:
		return false
	}
}
