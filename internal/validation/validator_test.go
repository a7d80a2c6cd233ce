package validation

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yegors/wxstack/pkg/logger"
)

func newObservedValidator() (*Validator, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewValidator(logger.NewFromZap(zap.New(core))), logs
}

func loadFixture(t *testing.T, name string) map[string]any {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestValidateResponseStructure(t *testing.T) {
	v, _ := newObservedValidator()
	payload := loadFixture(t, "current.json")

	if !v.ValidateResponseStructure(payload) {
		t.Fatal("expected complete payload to pass")
	}
}

func TestValidateResponseStructureMissingKeys(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		missing []string
	}{
		{"empty", map[string]any{}, []string{"request", "location", "current"}},
		{"no request", map[string]any{"location": map[string]any{}, "current": map[string]any{}}, []string{"request"}},
		{"no location", map[string]any{"request": map[string]any{}, "current": map[string]any{}}, []string{"location"}},
		{"no current", map[string]any{"request": map[string]any{}, "location": map[string]any{}}, []string{"current"}},
		{"error payload", map[string]any{"error": map[string]any{"code": 101.0}}, []string{"request", "location", "current"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, logs := newObservedValidator()
			if v.ValidateResponseStructure(tt.payload) {
				t.Fatal("expected validation to fail")
			}

			if got := MissingKeys(tt.payload, RequiredResponseKeys); !reflect.DeepEqual(got, tt.missing) {
				t.Errorf("missing keys = %v, want %v", got, tt.missing)
			}

			entries := logs.FilterMessage("Missing required keys").All()
			if len(entries) != 1 {
				t.Fatalf("expected one log entry, got %d", len(entries))
			}
			logged, ok := entries[0].ContextMap()["missing_keys"].([]interface{})
			if !ok || len(logged) != len(tt.missing) {
				t.Errorf("logged missing keys = %v, want %v", entries[0].ContextMap()["missing_keys"], tt.missing)
			}
		})
	}
}

func TestValidateLocationData(t *testing.T) {
	v, logs := newObservedValidator()
	payload := loadFixture(t, "current.json")
	location := payload["location"].(map[string]any)

	if !v.ValidateLocationData(location) {
		t.Fatal("expected fixture location to pass")
	}

	delete(location, "timezone_id")
	delete(location, "region")
	if v.ValidateLocationData(location) {
		t.Fatal("expected incomplete location to fail")
	}
	if got := MissingKeys(location, RequiredLocationKeys); !reflect.DeepEqual(got, []string{"region", "timezone_id"}) {
		t.Errorf("unexpected missing keys: %v", got)
	}
	if logs.FilterMessage("Missing location keys").Len() != 1 {
		t.Error("expected missing location keys to be logged")
	}
}

func TestValidateCurrentWeatherData(t *testing.T) {
	v, _ := newObservedValidator()
	payload := loadFixture(t, "current.json")
	current := payload["current"].(map[string]any)

	if !v.ValidateCurrentWeatherData(current) {
		t.Fatal("expected fixture current data to pass")
	}

	for _, key := range RequiredCurrentKeys {
		reduced := make(map[string]any, len(current))
		for k, val := range current {
			if k != key {
				reduced[k] = val
			}
		}
		if v.ValidateCurrentWeatherData(reduced) {
			t.Errorf("expected failure without %q", key)
		}
	}
}

func TestValidateDataTypes(t *testing.T) {
	v, _ := newObservedValidator()
	payload := loadFixture(t, "current.json")

	if !v.ValidateDataTypes(payload) {
		t.Fatal("expected fixture data types to pass")
	}
}

func TestValidateDataTypesNumericCoordinates(t *testing.T) {
	v, logs := newObservedValidator()
	payload := loadFixture(t, "current.json")
	location := payload["location"].(map[string]any)
	location["lat"] = 46.767
	location["lon"] = 23.6

	if v.ValidateDataTypes(payload) {
		t.Fatal("numeric lat/lon must be rejected")
	}

	entries := logs.FilterMessage("Data type validation failed").All()
	if len(entries) != 1 || entries[0].ContextMap()["field"] != "location.lat" {
		t.Errorf("expected failure on location.lat, got %v", entries)
	}
}

func TestValidateDataTypesFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p map[string]any)
	}{
		{"missing location", func(p map[string]any) { delete(p, "location") }},
		{"missing current", func(p map[string]any) { delete(p, "current") }},
		{"location not object", func(p map[string]any) { p["location"] = "Cluj" }},
		{"name not string", func(p map[string]any) { p["location"].(map[string]any)["name"] = 1.0 }},
		{"temperature string", func(p map[string]any) { p["current"].(map[string]any)["temperature"] = "5" }},
		{"temperature missing", func(p map[string]any) { delete(p["current"].(map[string]any), "temperature") }},
		{"humidity bool", func(p map[string]any) { p["current"].(map[string]any)["humidity"] = true }},
		{"descriptions string", func(p map[string]any) { p["current"].(map[string]any)["weather_descriptions"] = "Fog" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, _ := newObservedValidator()
			payload := loadFixture(t, "current.json")
			tt.mutate(payload)
			if v.ValidateDataTypes(payload) {
				t.Fatal("expected type validation to fail")
			}
		})
	}
}

func TestNilLoggerDoesNotPanic(t *testing.T) {
	v := NewValidator(nil)
	if v.ValidateResponseStructure(nil) {
		t.Fatal("nil payload must not validate")
	}
	if v.ValidateDataTypes(nil) {
		t.Fatal("nil payload must not validate")
	}
}
