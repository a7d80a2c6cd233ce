package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yegors/wxstack/internal/validation"
	"github.com/yegors/wxstack/pkg/logger"
)

// Router wires the API handlers to HTTP routes
type Router struct {
	handler     *Handler
	gatherer    prometheus.Gatherer
	metricsPath string
	logger      *logger.Logger
}

// NewRouter creates a new router. A nil gatherer disables the metrics route.
func NewRouter(client WeatherClient, validator *validation.Validator, gatherer prometheus.Gatherer, metricsPath string, log *logger.Logger) *Router {
	if log == nil {
		log = logger.NewNop()
	}
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	return &Router{
		handler:     NewHandler(client, validator, log),
		gatherer:    gatherer,
		metricsPath: metricsPath,
		logger:      log.Named("router"),
	}
}

// Routes returns the HTTP handler serving every route
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(rt.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", rt.handler.GetHealth)
	if rt.gatherer != nil {
		r.Method(http.MethodGet, rt.metricsPath, promhttp.HandlerFor(rt.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/weather", func(r chi.Router) {
		r.Get("/current", rt.handler.GetCurrentWeather)
		r.Get("/current/summary", rt.handler.GetCurrentSummary)
		r.Get("/historical", rt.handler.GetHistoricalWeather)
		r.Get("/forecast", rt.handler.GetForecastWeather)
	})

	return r
}

// requestLogger logs one line per request at debug level
func (rt *Router) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		rt.logger.Debug("Handled request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("http_request_id", middleware.GetReqID(r.Context())))
	})
}
