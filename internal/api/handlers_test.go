package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yegors/wxstack/internal/instrumentation"
	"github.com/yegors/wxstack/internal/weatherstack"
	"github.com/yegors/wxstack/pkg/logger"
)

// fakeClient records the last call and returns canned results
type fakeClient struct {
	payload weatherstack.Payload
	err     error

	location string
	date     string
	days     int
	units    string
}

func (f *fakeClient) GetCurrentWeather(_ context.Context, location, units string) (weatherstack.Payload, error) {
	f.location, f.units = location, units
	return f.payload, f.err
}

func (f *fakeClient) GetHistoricalWeather(_ context.Context, location, date, units string) (weatherstack.Payload, error) {
	f.location, f.date, f.units = location, date, units
	return f.payload, f.err
}

func (f *fakeClient) GetForecastWeather(_ context.Context, location string, days int, units string) (weatherstack.Payload, error) {
	f.location, f.days, f.units = location, days, units
	return f.payload, f.err
}

func loadFixture(t *testing.T) weatherstack.Payload {
	t.Helper()
	data, err := os.ReadFile("testdata/current.json")
	if err != nil {
		t.Fatal(err)
	}
	var p weatherstack.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	return p
}

func serve(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body.Error
}

func TestCurrentWeatherRoute(t *testing.T) {
	fake := &fakeClient{payload: loadFixture(t)}
	routes := NewRouter(fake, nil, nil, "", logger.NewNop()).Routes()

	rec := serve(t, routes, "/api/v1/weather/current?query=Cluj-Napoca&units=f")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}
	if fake.location != "Cluj-Napoca" || fake.units != "f" {
		t.Errorf("client called with %q, %q", fake.location, fake.units)
	}

	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["location"].(map[string]any)["name"] != "Cluj-Napoca" {
		t.Errorf("payload not passed through: %v", got["location"])
	}
}

func TestCurrentSummaryRoute(t *testing.T) {
	fake := &fakeClient{payload: loadFixture(t)}
	routes := NewRouter(fake, nil, nil, "", logger.NewNop()).Routes()

	rec := serve(t, routes, "/api/v1/weather/current/summary?query=Cluj-Napoca")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var cc weatherstack.CurrentConditions
	if err := json.Unmarshal(rec.Body.Bytes(), &cc); err != nil {
		t.Fatal(err)
	}
	if cc.Location != "Cluj-Napoca" || cc.Temperature != 4 || cc.WindDegreeMagnetic == nil {
		t.Errorf("unexpected summary: %+v", cc)
	}

	// A payload missing required keys is refused
	broken := loadFixture(t)
	delete(broken, "current")
	fake.payload = broken
	rec = serve(t, routes, "/api/v1/weather/current/summary?query=Cluj-Napoca")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	if kind := decodeError(t, rec).Kind; kind != "invalid_response" {
		t.Errorf("kind = %q", kind)
	}
}

func TestHistoricalAndForecastRoutes(t *testing.T) {
	fake := &fakeClient{payload: weatherstack.Payload{"location": map[string]any{}}}
	routes := NewRouter(fake, nil, nil, "", logger.NewNop()).Routes()

	rec := serve(t, routes, "/api/v1/weather/historical?query=Cluj&date=2024-12-24")
	if rec.Code != http.StatusOK || fake.date != "2024-12-24" {
		t.Errorf("historical: status %d, date %q", rec.Code, fake.date)
	}

	rec = serve(t, routes, "/api/v1/weather/forecast?query=Cluj&days=3")
	if rec.Code != http.StatusOK || fake.days != 3 {
		t.Errorf("forecast: status %d, days %d", rec.Code, fake.days)
	}

	rec = serve(t, routes, "/api/v1/weather/forecast?query=Cluj")
	if rec.Code != http.StatusOK || fake.days != 0 {
		t.Errorf("forecast without days should leave the default to the client, got %d", fake.days)
	}
}

func TestBadRequests(t *testing.T) {
	routes := NewRouter(&fakeClient{}, nil, nil, "", logger.NewNop()).Routes()

	for _, target := range []string{
		"/api/v1/weather/current",
		"/api/v1/weather/current?query=%20%20",
		"/api/v1/weather/historical?query=Cluj",
		"/api/v1/weather/forecast?query=Cluj&days=seven",
	} {
		rec := serve(t, routes, target)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", target, rec.Code)
			continue
		}
		if kind := decodeError(t, rec).Kind; kind != "bad_request" {
			t.Errorf("%s: kind = %q", target, kind)
		}
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{&weatherstack.Error{Kind: weatherstack.KindInvalidAPIKey, Message: "invalid API key: x", ErrorCode: 101}, http.StatusBadGateway, "invalid_api_key"},
		{&weatherstack.Error{Kind: weatherstack.KindInvalidLocation, Message: "invalid location: x", ErrorCode: 615}, http.StatusNotFound, "invalid_location"},
		{&weatherstack.Error{Kind: weatherstack.KindUsageLimit, Message: "usage limit reached: x", ErrorCode: 104}, http.StatusTooManyRequests, "usage_limit"},
		{&weatherstack.Error{Kind: weatherstack.KindTimeout, Message: "request timeout after maximum retries"}, http.StatusGatewayTimeout, "timeout"},
		{&weatherstack.Error{Kind: weatherstack.KindAPIRequest, Message: "API error 999: x", ErrorCode: 999}, http.StatusBadGateway, "api_request"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			routes := NewRouter(&fakeClient{err: tt.err}, nil, nil, "", logger.NewNop()).Routes()
			rec := serve(t, routes, "/api/v1/weather/current?query=x")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			detail := decodeError(t, rec)
			if detail.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", detail.Kind, tt.wantKind)
			}
			if want := tt.err.(*weatherstack.Error).ErrorCode; detail.ErrorCode != want {
				t.Errorf("error_code = %d, want %d", detail.ErrorCode, want)
			}
		})
	}
}

func TestHealthRoute(t *testing.T) {
	router := NewRouter(&fakeClient{}, nil, nil, "", logger.NewNop())
	router.handler.now = func() time.Time { return router.handler.startedAt.Add(90 * time.Second) }

	rec := serve(t, router.Routes(), "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" || body["uptime_seconds"] != float64(90) {
		t.Errorf("unexpected health body: %v", body)
	}
}

// End to end through a real client against a fake upstream, including the metrics route
func TestRoutesWithUpstream(t *testing.T) {
	fixture, err := os.ReadFile("testdata/current.json")
	if err != nil {
		t.Fatal(err)
	}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("query") {
		case "Nowhere":
			_, _ = io.WriteString(w, `{"success":false,"error":{"code":615,"type":"request_failed","info":"Your API request failed."}}`)
		default:
			_, _ = w.Write(fixture)
		}
	}))
	defer upstream.Close()

	reg := prometheus.NewRegistry()
	cfg := weatherstack.DefaultConfig()
	cfg.APIKey = "secret"
	cfg.BaseURL = upstream.URL
	client, err := weatherstack.NewClient(cfg, logger.NewNop(), weatherstack.WithInstrumentation(instrumentation.New("client", reg)))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	routes := NewRouter(client, nil, reg, "/metrics", logger.NewNop()).Routes()

	if rec := serve(t, routes, "/api/v1/weather/current/summary?query=Cluj-Napoca"); rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec := serve(t, routes, "/api/v1/weather/current?query=Nowhere")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if detail := decodeError(t, rec); detail.ErrorCode != 615 {
		t.Errorf("error_code = %d", detail.ErrorCode)
	}

	rec = serve(t, routes, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		`wxstack_client_requests_total{operation="current"} 2`,
		`wxstack_client_errors_total{error_kind="invalid_location",operation="current"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetricsRouteDisabled(t *testing.T) {
	routes := NewRouter(&fakeClient{}, nil, nil, "/metrics", logger.NewNop()).Routes()
	if rec := serve(t, routes, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 without a gatherer", rec.Code)
	}
}
