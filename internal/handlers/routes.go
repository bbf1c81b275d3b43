package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Lllllllleong/formsummary/internal/observability"
)

// RouterOptions wires the router to the application.
type RouterOptions struct {
	Intake       SubmissionAcceptor
	Lookup       ResultResolver
	PollInterval time.Duration
}

// NewRouter returns the full HTTP surface of the service.
func NewRouter(opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", WebhookHandler(opts.Intake))
	mux.HandleFunc("GET /results/{"+SubmissionIDParam+"}", ResultsHandler(opts.Lookup, opts.PollInterval))
	mux.HandleFunc("GET /results", ResultsHandler(opts.Lookup, opts.PollInterval))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Form summary service is running."})
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	return instrument(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument logs each request and records it by matched route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		observability.RecordHTTPRequest(route, rec.code, elapsed)
		slog.Debug("Handled request.",
			"method", r.Method,
			"path", r.URL.Path,
			"route", route,
			"status", rec.code,
			"duration", elapsed,
		)
	})
}
