package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// MaxBodyBytes bounds the webhook body.
const MaxBodyBytes = 1 << 20

// DecodePayload parses a webhook body holding exactly one JSON object.
// Unknown fields are ignored.
func DecodePayload(r io.Reader) (*models.TallyWebhookPayload, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var payload models.TallyWebhookPayload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: could not parse JSON: %v", models.ErrInvalidPayload, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: could not parse JSON: trailing data after the payload", models.ErrInvalidPayload)
	}
	return &payload, nil
}

// WebhookHandler receives form submissions and acknowledges them before any
// generation happens.
func WebhookHandler(intake SubmissionAcceptor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := DecodePayload(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
		if err != nil {
			slog.Warn("Could not decode webhook body.", "error", err)
			writeError(w, http.StatusBadRequest, "Bad Request: could not parse JSON")
			return
		}

		ack, err := intake.Accept(r.Context(), payload)
		switch {
		case errors.Is(err, models.ErrInvalidPayload):
			writeError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			// The specific error is already logged inside Accept.
			writeError(w, http.StatusInternalServerError, "Internal Server Error: could not record submission")
			return
		}

		writeJSON(w, http.StatusOK, ack)
	}
}
