// Package handlers exposes the submission intake and result lookup over HTTP
// and CloudEvents.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// SubmissionAcceptor accepts one webhook delivery.
type SubmissionAcceptor interface {
	Accept(ctx context.Context, payload *models.TallyWebhookPayload) (models.AckResponse, error)
}

// ResultResolver answers result-page queries.
type ResultResolver interface {
	Resolve(ctx context.Context, id string) models.ResultView
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response.", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, errorResponse{Status: "error", Message: message})
}
