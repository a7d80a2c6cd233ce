package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yegors/wxstack/internal/validation"
	"github.com/yegors/wxstack/internal/weatherstack"
	"github.com/yegors/wxstack/pkg/logger"
)

// WeatherClient is the subset of *weatherstack.Client the handlers call
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, location, units string) (weatherstack.Payload, error)
	GetHistoricalWeather(ctx context.Context, location, date, units string) (weatherstack.Payload, error)
	GetForecastWeather(ctx context.Context, location string, days int, units string) (weatherstack.Payload, error)
}

// Handler contains the API handlers
type Handler struct {
	client    WeatherClient
	validator *validation.Validator
	startedAt time.Time
	now       func() time.Time
	logger    *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(client WeatherClient, validator *validation.Validator, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	if validator == nil {
		validator = validation.NewValidator(log)
	}
	return &Handler{
		client:    client,
		validator: validator,
		startedAt: time.Now(),
		now:       time.Now,
		logger:    log.Named("api-handler"),
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// GetCurrentWeather proxies a current conditions query
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	location, ok := h.requireParam(w, r, "query")
	if !ok {
		return
	}

	payload, err := h.client.GetCurrentWeather(r.Context(), location, r.URL.Query().Get("units"))
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payload)
}

// GetCurrentSummary returns the validated, typed view of current conditions
func (h *Handler) GetCurrentSummary(w http.ResponseWriter, r *http.Request) {
	location, ok := h.requireParam(w, r, "query")
	if !ok {
		return
	}

	payload, err := h.client.GetCurrentWeather(r.Context(), location, r.URL.Query().Get("units"))
	if err != nil {
		h.writeClientError(w, err)
		return
	}

	conditions, err := weatherstack.ProjectCurrent(h.validator, payload, h.now())
	if err != nil {
		h.logger.Error("Current weather payload failed validation",
			logger.String("query", location),
			logger.Error(err))
		writeError(w, http.StatusBadGateway, errorDetail{Kind: "invalid_response", Message: err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, conditions)
}

// GetHistoricalWeather proxies a historical query for one date
func (h *Handler) GetHistoricalWeather(w http.ResponseWriter, r *http.Request) {
	location, ok := h.requireParam(w, r, "query")
	if !ok {
		return
	}
	date, ok := h.requireParam(w, r, "date")
	if !ok {
		return
	}

	payload, err := h.client.GetHistoricalWeather(r.Context(), location, date, r.URL.Query().Get("units"))
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payload)
}

// GetForecastWeather proxies a forecast query. days defaults to the
// client's default when absent.
func (h *Handler) GetForecastWeather(w http.ResponseWriter, r *http.Request) {
	location, ok := h.requireParam(w, r, "query")
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.logger.Debug("Rejected forecast request", logger.String("days", raw))
			writeError(w, http.StatusBadRequest, errorDetail{Kind: "bad_request", Message: "days must be an integer"})
			return
		}
		days = n
	}

	payload, err := h.client.GetForecastWeather(r.Context(), location, days, r.URL.Query().Get("units"))
	if err != nil {
		h.writeClientError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, payload)
}

// GetHealth returns the health status of the API
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(h.now().Sub(h.startedAt).Seconds()),
	}
	WriteJSON(w, http.StatusOK, response)
}

func (h *Handler) requireParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		writeError(w, http.StatusBadRequest, errorDetail{Kind: "bad_request", Message: "missing required parameter: " + name})
		return "", false
	}
	return value, true
}

// writeClientError renders a weather client error. The client has already
// logged it where it was detected.
func (h *Handler) writeClientError(w http.ResponseWriter, err error) {
	detail := errorDetail{Kind: weatherstack.KindOf(err).String(), Message: err.Error()}
	var apiErr *weatherstack.Error
	if errors.As(err, &apiErr) {
		detail.ErrorCode = apiErr.ErrorCode
	}
	writeError(w, StatusForError(err), detail)
}

// StatusForError maps a weather client error to the HTTP status returned to callers
func StatusForError(err error) int {
	switch weatherstack.KindOf(err) {
	case weatherstack.KindInvalidLocation:
		return http.StatusNotFound
	case weatherstack.KindUsageLimit:
		return http.StatusTooManyRequests
	case weatherstack.KindTimeout:
		return http.StatusGatewayTimeout
	case weatherstack.KindInvalidAPIKey, weatherstack.KindAPIRequest:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, detail errorDetail) {
	WriteJSON(w, status, errorBody{Error: detail})
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
