package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

// Instrumentation holds the metrics and tracing used by the weather client
type Instrumentation struct {
	Metrics *Metrics
	Tracing *TracingHelper
}

// New creates an instrumentation set registered on reg, tracing through the
// globally configured OpenTelemetry provider
func New(subsystem string, reg prometheus.Registerer) *Instrumentation {
	return &Instrumentation{
		Metrics: NewMetrics(subsystem, reg),
		Tracing: NewTracingHelper(otel.Tracer("github.com/yegors/wxstack/" + subsystem)),
	}
}

// Nop returns instrumentation that records nothing
func Nop() *Instrumentation {
	return &Instrumentation{
		Tracing: NewTracingHelper(nil),
	}
}
