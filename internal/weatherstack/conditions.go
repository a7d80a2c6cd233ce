package weatherstack

import (
	"fmt"
	"strconv"
	"time"

	"github.com/yegors/wxstack/internal/physics"
	"github.com/yegors/wxstack/internal/validation"
)

// CurrentConditions is the typed view of a validated current-weather payload.
// Lat and Lon keep the string form the service sends.
type CurrentConditions struct {
	Location     string   `json:"location"`
	Country      string   `json:"country"`
	Region       string   `json:"region"`
	Lat          string   `json:"lat"`
	Lon          string   `json:"lon"`
	TimezoneID   string   `json:"timezone_id"`
	Units        string   `json:"units"`
	Temperature  float64  `json:"temperature"`
	FeelsLike    float64  `json:"feelslike"`
	WindSpeed    float64  `json:"wind_speed"`
	WindDegree   float64  `json:"wind_degree"`
	Pressure     float64  `json:"pressure"`
	Humidity     float64  `json:"humidity"`
	CloudCover   float64  `json:"cloudcover"`
	Visibility   float64  `json:"visibility"`
	Descriptions []string `json:"weather_descriptions"`

	TemperatureC       float64  `json:"temperature_c"`
	WindSpeedKmh       float64  `json:"wind_speed_kmh"`
	WindDegreeMagnetic *float64 `json:"wind_degree_magnetic,omitempty"`
}

// ProjectCurrent validates payload and converts it into CurrentConditions.
// at is the time used for the magnetic variation model.
func ProjectCurrent(v *validation.Validator, payload Payload, at time.Time) (*CurrentConditions, error) {
	if !v.ValidateResponseStructure(payload) {
		return nil, fmt.Errorf("response structure is invalid")
	}
	location, _ := payload.Object("location")
	current, _ := payload.Object("current")
	if !v.ValidateLocationData(location) {
		return nil, fmt.Errorf("location data is invalid")
	}
	if !v.ValidateCurrentWeatherData(current) {
		return nil, fmt.Errorf("current weather data is invalid")
	}
	if !v.ValidateDataTypes(payload) {
		return nil, fmt.Errorf("response data types are invalid")
	}

	units, ok := payload.String("request", "unit")
	if !ok || units == "" {
		units = UnitsMetric
	}

	cc := &CurrentConditions{
		Units: units,
	}
	cc.Location, _ = payload.String("location", "name")
	cc.Country, _ = payload.String("location", "country")
	cc.Region, _ = payload.String("location", "region")
	cc.Lat, _ = payload.String("location", "lat")
	cc.Lon, _ = payload.String("location", "lon")
	cc.TimezoneID, _ = payload.String("location", "timezone_id")
	cc.Temperature, _ = payload.Number("current", "temperature")
	cc.FeelsLike, _ = payload.Number("current", "feelslike")
	cc.WindSpeed, _ = payload.Number("current", "wind_speed")
	cc.WindDegree, _ = payload.Number("current", "wind_degree")
	cc.Pressure, _ = payload.Number("current", "pressure")
	cc.Humidity, _ = payload.Number("current", "humidity")
	cc.CloudCover, _ = payload.Number("current", "cloudcover")
	cc.Visibility, _ = payload.Number("current", "visibility")

	if descs, ok := current["weather_descriptions"].([]any); ok {
		for _, d := range descs {
			if s, ok := d.(string); ok {
				cc.Descriptions = append(cc.Descriptions, s)
			}
		}
	}

	cc.TemperatureC = physics.ToCelsius(cc.Temperature, units)
	cc.WindSpeedKmh = physics.ToKmh(cc.WindSpeed, units)

	lat, latErr := strconv.ParseFloat(cc.Lat, 64)
	lon, lonErr := strconv.ParseFloat(cc.Lon, 64)
	if latErr == nil && lonErr == nil {
		decl := physics.CalculateMagneticVariation(lat, lon, 0, at)
		magnetic := physics.TrueToMagnetic(cc.WindDegree, decl)
		cc.WindDegreeMagnetic = &magnetic
	}

	return cc, nil
}
