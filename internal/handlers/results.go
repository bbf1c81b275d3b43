package handlers

import (
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// SubmissionIDParam names both the path wildcard and the query parameter.
const SubmissionIDParam = "submission_id"

var resultPage = template.Must(template.New("results").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Resultado del formulario</title>
</head>
<body>
<main data-state="{{.State}}">
{{- if eq .State "success"}}
<h1>Tu resumen</h1>
<pre>{{.Result}}</pre>
{{- else if eq .State "processing"}}
<h1>Procesando tu respuesta…</h1>
<p>Esta página se actualizará automáticamente.</p>
{{- else if eq .State "error"}}
<h1>No pudimos generar el resumen</h1>
<p>{{.ErrorMessage}}</p>
{{- else if eq .State "critical_error"}}
<h1>Servicio no disponible</h1>
<p>{{.ErrorMessage}}</p>
{{- else}}
<h1>Resultado no encontrado</h1>
{{- end}}
<p><small>ID: {{.SubmissionID}}</small></p>
</main>
</body>
</html>
`))

// statusFor maps a presentational state to the HTTP status of the page.
func statusFor(state models.ResultState) int {
	switch state {
	case models.ResultNotFound:
		return http.StatusNotFound
	case models.ResultCriticalError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusOK
	}
}

func wantsJSON(r *http.Request) bool {
	if r.URL.Query().Get("format") == "json" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

// ResultsHandler serves the result page for one submission. The id comes
// from the path wildcard or, for the legacy front end, the query string.
func ResultsHandler(lookup ResultResolver, pollInterval time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue(SubmissionIDParam)
		if id == "" {
			id = r.URL.Query().Get(SubmissionIDParam)
		}

		view := lookup.Resolve(r.Context(), id)
		code := statusFor(view.State)
		w.Header().Set("Cache-Control", "no-store")
		if view.State == models.ResultProcessing && pollInterval > 0 {
			w.Header().Set("Refresh", strconv.Itoa(max(1, int(pollInterval.Seconds()))))
		}

		if wantsJSON(r) {
			writeJSON(w, code, view)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(code)
		if err := resultPage.Execute(w, view); err != nil {
			slog.Error("Failed to render result page.", "submissionId", id, "error", err)
		}
	}
}
