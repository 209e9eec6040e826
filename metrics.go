package ogimage

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// appMetrics keeps collectors on a per-App registry so several Apps (tests,
// embedded use) can coexist in one process.
type appMetrics struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	excluded    prometheus.Counter
}

func newAppMetrics() *appMetrics {
	m := &appMetrics{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ogimage",
			Name:      "resolutions_total",
			Help:      "og:image resolutions by winning rule.",
		}, []string{"source"}),
		excluded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ogimage",
			Name:      "resolutions_excluded_total",
			Help:      "Pages that skipped og:image resolution.",
		}),
	}
	m.registry.MustRegister(
		m.resolutions,
		m.excluded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// middleware records request counts and latencies per route.
func (m *appMetrics) middleware() echo.MiddlewareFunc {
	return echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Namespace:  "ogimage",
		Subsystem:  "http",
		Registerer: m.registry,
		Skipper: func(c echo.Context) bool {
			return requestClass(c) == classMetrics
		},
	})
}

func (m *appMetrics) handler() echo.HandlerFunc {
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: m.registry})
}
