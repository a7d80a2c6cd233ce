package weatherstack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yegors/wxstack/internal/instrumentation"
	"github.com/yegors/wxstack/pkg/logger"
)

// Units accepted by the service. They are passed through unchecked.
const (
	UnitsMetric     = "m" // Celsius
	UnitsFahrenheit = "f"
	UnitsScientific = "s" // Kelvin
)

const (
	DefaultBaseURL        = "https://api.weatherstack.com"
	DefaultUserAgent      = "Weatherstack-API-Framework/1.0"
	DefaultRequestTimeout = 10 * time.Second
	DefaultMaxRetries     = 3
	DefaultRetryDelay     = 1 * time.Second
	DefaultForecastDays   = 7
)

// Config holds the client settings
type Config struct {
	APIKey         string
	BaseURL        string
	Endpoints      Endpoints
	UserAgent      string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the service defaults with no API key
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		Endpoints:      DefaultEndpoints(),
		UserAgent:      DefaultUserAgent,
		RequestTimeout: DefaultRequestTimeout,
		MaxRetries:     DefaultMaxRetries,
		RetryDelay:     DefaultRetryDelay,
	}
}

// Option customizes a Client
type Option func(*options)

type options struct {
	transport http.RoundTripper
	sleep     func(context.Context, time.Duration) error
	inst      *instrumentation.Instrumentation
}

// WithTransport replaces the HTTP transport of the session
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// WithSleep replaces the function used to wait between timeout retries
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(o *options) { o.sleep = fn }
}

// WithInstrumentation attaches metrics and tracing
func WithInstrumentation(inst *instrumentation.Instrumentation) Option {
	return func(o *options) { o.inst = inst }
}

// Client queries the Weatherstack API over one reusable HTTP session.
//
// The client stores no per-call state, and the underlying resty client is
// safe for concurrent use, so one Client may be shared between goroutines.
// Each query blocks until the exchange and any retry waits complete, or
// until ctx is done.
type Client struct {
	apiKey     string
	baseURL    string
	endpoints  Endpoints
	maxRetries int
	retryDelay time.Duration

	http    *resty.Client
	sleep   func(context.Context, time.Duration) error
	metrics *instrumentation.Metrics
	tracing *instrumentation.TracingHelper
	logger  *logger.Logger
}

// NewClient creates a client and its HTTP session. Release it with Close.
func NewClient(cfg Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("request timeout must be greater than 0")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max retries must be 0 or greater")
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay must be 0 or greater")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	o := options{sleep: sleepContext}
	for _, opt := range opts {
		opt(&o)
	}
	if o.inst == nil {
		o.inst = instrumentation.Nop()
	}
	if o.inst.Tracing == nil {
		o.inst.Tracing = instrumentation.NewTracingHelper(nil)
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("weatherstack-client")

	if cfg.APIKey == "" {
		// The service answers with error 101, which surfaces as KindInvalidAPIKey
		log.Warn("No API key configured")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	session := resty.New().
		SetBaseURL(baseURL).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetTimeout(cfg.RequestTimeout).
		SetRetryCount(0).
		SetLogger(restyLogger{log: log.Named("http")})
	if o.transport != nil {
		session.SetTransport(o.transport)
	}

	log.Debug("Created weather client",
		logger.String("base_url", baseURL),
		logger.Duration("timeout", cfg.RequestTimeout),
		logger.Int("max_retries", cfg.MaxRetries))

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		endpoints:  cfg.Endpoints.withDefaults(),
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		http:       session,
		sleep:      o.sleep,
		metrics:    o.inst.Metrics,
		tracing:    o.inst.Tracing,
		logger:     log,
	}, nil
}

// Close releases idle connections held by the session
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// GetCurrentWeather fetches current conditions for location
func (c *Client) GetCurrentWeather(ctx context.Context, location, units string) (Payload, error) {
	return c.query(ctx, QueryCurrent, c.baseParams(location, units))
}

// GetHistoricalWeather fetches the weather for location on date (YYYY-MM-DD)
func (c *Client) GetHistoricalWeather(ctx context.Context, location, date, units string) (Payload, error) {
	params := c.baseParams(location, units)
	params.Set("historical_date", date)
	return c.query(ctx, QueryHistorical, params)
}

// GetForecastWeather fetches a forecast of days days for location. Zero
// days means DefaultForecastDays. The range (1-7) is checked by the service.
func (c *Client) GetForecastWeather(ctx context.Context, location string, days int, units string) (Payload, error) {
	if days == 0 {
		days = DefaultForecastDays
	}
	params := c.baseParams(location, units)
	params.Set("forecast_days", strconv.Itoa(days))
	return c.query(ctx, QueryForecast, params)
}

func (c *Client) baseParams(location, units string) url.Values {
	if units == "" {
		units = UnitsMetric
	}
	return url.Values{
		"access_key": {c.apiKey},
		"query":      {location},
		"units":      {units},
	}
}

func (c *Client) query(ctx context.Context, kind QueryKind, params url.Values) (payload Payload, err error) {
	requestID := uuid.NewString()
	ctx, span := c.tracing.StartSpan(ctx, "weatherstack."+string(kind),
		attribute.String("weatherstack.query", params.Get("query")),
		attribute.String("weatherstack.request_id", requestID))

	fields := []logger.Field{
		logger.String("request_id", requestID),
		logger.String("operation", string(kind)),
	}
	if traceID := c.tracing.GetTraceID(ctx); traceID.IsValid() {
		fields = append(fields, logger.String("trace_id", traceID.String()))
	}
	log := c.logger.With(fields...)
	done := c.metrics.Begin(string(kind))
	defer func() {
		errorKind := ""
		if err != nil {
			errorKind = KindOf(err).String()
		}
		done(errorKind)
		instrumentation.EndSpan(span, err)
	}()

	payload, status, err := c.executeRequest(ctx, kind, params, log)
	if err != nil {
		return nil, err
	}
	if err := c.handleErrorResponse(log, payload); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && status != 0 {
			apiErr.StatusCode = status
		}
		return nil, err
	}
	return payload, nil
}

// executeRequest performs the GET, retrying only on timeouts with a fixed delay
func (c *Client) executeRequest(ctx context.Context, kind QueryKind, params url.Values, log *logger.Logger) (Payload, int, error) {
	path, err := c.endpoints.Path(kind)
	if err != nil {
		log.Error("Invalid endpoint", logger.Error(err))
		return nil, 0, &Error{Kind: KindAPIRequest, Message: "invalid endpoint", Err: err}
	}

	for attempt := 0; ; attempt++ {
		payload, status, timeoutErr, err := c.doRequest(ctx, path, params, log)
		if timeoutErr == nil {
			return payload, status, err
		}

		if attempt >= c.maxRetries {
			log.Error("Request timeout after maximum retries",
				logger.Int("max_retries", c.maxRetries),
				logger.Error(timeoutErr))
			return nil, 0, &Error{
				Kind:    KindTimeout,
				Message: "request timeout after maximum retries",
				Err:     timeoutErr,
			}
		}

		log.Warn("Request timeout, retrying",
			logger.Int("attempt", attempt+1),
			logger.Int("max_retries", c.maxRetries),
			logger.Duration("delay", c.retryDelay))
		c.metrics.RecordRetry(string(kind))

		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return nil, 0, contextError(err, log)
		}
	}
}

// doRequest sends one request. A non-nil timeoutErr means the attempt timed
// out and may be retried; otherwise payload or err is the final result.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, log *logger.Logger) (payload Payload, status int, timeoutErr error, err error) {
	log.Info("Making request",
		logger.String("url", c.baseURL+path),
		logger.String("params", redact(params).Encode()))

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		Get(path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, nil, contextError(ctxErr, log)
		}
		if isTimeout(err) {
			return nil, 0, err, nil
		}
		log.Error("Request failed", logger.Error(err))
		return nil, 0, nil, &Error{Kind: KindAPIRequest, Message: "request failed", Err: err}
	}

	status = resp.StatusCode()
	if jsonErr := json.Unmarshal(resp.Body(), &payload); jsonErr != nil || payload == nil {
		if !resp.IsSuccess() {
			log.Error("Request failed with HTTP error status",
				logger.Int("status_code", status))
			return nil, 0, nil, &Error{
				Kind:       KindAPIRequest,
				Message:    fmt.Sprintf("HTTP error: %s", resp.Status()),
				StatusCode: status,
			}
		}
		if jsonErr == nil {
			jsonErr = errors.New("response body is not a JSON object")
		}
		log.Error("Invalid JSON response from API",
			logger.Int("status_code", status),
			logger.Error(jsonErr))
		return nil, 0, nil, &Error{
			Kind:       KindAPIRequest,
			Message:    "invalid JSON response from API",
			StatusCode: status,
			Err:        jsonErr,
		}
	}

	logResponse(log, path, status, payload)
	return payload, status, nil, nil
}

// HandleErrorResponse returns the typed error for a service error payload,
// or nil when the payload carries no "error" key
func (c *Client) HandleErrorResponse(payload Payload) error {
	return c.handleErrorResponse(c.logger, payload)
}

func (c *Client) handleErrorResponse(log *logger.Logger, payload Payload) error {
	if !payload.HasError() {
		return nil
	}

	code, info := payload.ServiceError()
	log.Error("API error",
		logger.Int("error_code", code),
		logger.String("info", info))

	switch code {
	case 101, 102:
		return &Error{Kind: KindInvalidAPIKey, Message: "invalid API key: " + info, ErrorCode: code}
	case 601, 615:
		return &Error{Kind: KindInvalidLocation, Message: "invalid location: " + info, ErrorCode: code}
	case 104:
		return &Error{Kind: KindUsageLimit, Message: "usage limit reached: " + info, ErrorCode: code}
	default:
		return &Error{Kind: KindAPIRequest, Message: fmt.Sprintf("API error %d: %s", code, info), ErrorCode: code}
	}
}

func logResponse(log *logger.Logger, path string, status int, payload Payload) {
	fields := []logger.Field{
		logger.String("endpoint", path),
		logger.Int("status_code", status),
	}
	if _, ok := payload["location"]; ok {
		fields = append(fields, logger.String("result", "success"))
		if name, ok := payload.String("location", "name"); ok {
			fields = append(fields, logger.String("location", name))
		}
		if country, ok := payload.String("location", "country"); ok {
			fields = append(fields, logger.String("country", country))
		}
	} else {
		fields = append(fields, logger.String("result", "error"))
	}
	log.Info("Response received", fields...)
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// contextError maps a done caller context. Caller deadlines count as
// timeouts; neither case is retried.
func contextError(err error, log *logger.Logger) *Error {
	log.Warn("Request aborted by caller context", logger.Error(err))
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
	}
	return &Error{Kind: KindAPIRequest, Message: "request cancelled", Err: err}
}

func redact(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, v := range params {
		out[k] = v
	}
	if out.Get("access_key") != "" {
		out.Set("access_key", "***")
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// restyLogger routes resty's own messages through zap
type restyLogger struct {
	log *logger.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}
