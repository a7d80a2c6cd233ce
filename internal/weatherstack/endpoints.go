package weatherstack

import "fmt"

// QueryKind is the logical query an endpoint serves
type QueryKind string

const (
	QueryCurrent    QueryKind = "current"
	QueryHistorical QueryKind = "historical"
	QueryForecast   QueryKind = "forecast"
)

// Endpoints maps each query kind to its URL path suffix
type Endpoints map[QueryKind]string

// DefaultEndpoints returns the Weatherstack endpoint paths
func DefaultEndpoints() Endpoints {
	return Endpoints{
		QueryCurrent:    "/current",
		QueryHistorical: "/historical",
		QueryForecast:   "/forecast",
	}
}

// Path returns the path for kind
func (e Endpoints) Path(kind QueryKind) (string, error) {
	path, ok := e[kind]
	if !ok || path == "" {
		return "", fmt.Errorf("no endpoint configured for %q", kind)
	}
	return path, nil
}

// withDefaults fills kinds missing from e with the default paths
func (e Endpoints) withDefaults() Endpoints {
	out := DefaultEndpoints()
	for kind, path := range e {
		if path != "" {
			out[kind] = path
		}
	}
	return out
}
