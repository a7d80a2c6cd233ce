package weatherstack

import (
	"encoding/json"
	"sort"
)

// Payload is a decoded JSON response body: nested map[string]any, []any,
// float64, string, bool and nil values. No schema is applied when it is
// decoded; run it through the validation package before projecting it.
type Payload map[string]any

// Lookup walks path through nested objects
func (p Payload) Lookup(path ...string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Object returns the object at path
func (p Payload) Object(path ...string) (map[string]any, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// String returns the string at path
func (p Payload) String(path ...string) (string, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns the number at path
func (p Payload) Number(path ...string) (float64, bool) {
	v, ok := p.Lookup(path...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// HasError reports whether the service flagged the response as an error
func (p Payload) HasError() bool {
	_, ok := p["error"]
	return ok
}

// ServiceError returns the service error code and info. Fields that are
// missing or of the wrong type come back as zero values.
func (p Payload) ServiceError() (code int, info string) {
	if f, ok := p.Number("error", "code"); ok {
		code = int(f)
	}
	info, _ = p.String("error", "info")
	return code, info
}

// Historical returns the entry for date (YYYY-MM-DD) under "historical"
func (p Payload) Historical(date string) (map[string]any, bool) {
	return p.Object("historical", date)
}

// ForecastDays returns the date keys under "forecast" in ascending order
func (p Payload) ForecastDays() []string {
	forecast, ok := p.Object("forecast")
	if !ok {
		return nil
	}
	days := make([]string, 0, len(forecast))
	for day := range forecast {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}
