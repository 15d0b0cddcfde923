package handlers

import (
	"fmt"
	"net/http"

	"media-deriver/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves the default registry, with OpenMetrics negotiation
// and scrape errors logged instead of failing the whole response.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
		ErrorLog:          metricsErrorLog{},
	})
}

// metricsErrorLog adapts promhttp's Logger to the service log.
type metricsErrorLog struct{}

func (metricsErrorLog) Println(v ...interface{}) {
	logging.Warn("metrics: %s", fmt.Sprint(v...))
}
