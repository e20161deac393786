package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsHandler serves Prometheus metrics, refreshing the connection gauge
// on every scrape.
func (h *Handlers) MetricsHandler() http.Handler {
	next := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.db.UpdateDBMetrics()
		next.ServeHTTP(w, r)
	})
}
