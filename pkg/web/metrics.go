package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "janus_console",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by method and status.",
	}, []string{"method", "status"})

	metricExportJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "janus_console",
		Name:      "export_jobs_total",
		Help:      "Bulk export runs, by outcome.",
	}, []string{"outcome"})

	metricExportRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "janus_console",
		Name:      "export_rows_total",
		Help:      "Rows written by bulk exports.",
	})

	metricUploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "janus_console",
		Name:      "upload_bytes_total",
		Help:      "Bytes accepted for upload to the platform object store.",
	})
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
