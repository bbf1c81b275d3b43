package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/formsummary/internal/models"
	"github.com/Lllllllleong/formsummary/internal/observability"
	"github.com/Lllllllleong/formsummary/internal/store"
)

// Intake accepts webhook deliveries and hands generation off to the
// dispatcher without waiting for it.
type Intake struct {
	store      store.Store
	dispatcher Dispatcher
	header     string
}

// NewIntake creates an Intake. An empty header selects DefaultPromptHeader.
func NewIntake(st store.Store, dispatcher Dispatcher, header string) *Intake {
	if header == "" {
		header = DefaultPromptHeader
	}
	return &Intake{store: st, dispatcher: dispatcher, header: header}
}

// Accept validates the payload before touching the store, then starts work
// for ids seen for the first time. Duplicate deliveries are acknowledged the
// same way and start nothing.
func (i *Intake) Accept(ctx context.Context, payload *models.TallyWebhookPayload) (models.AckResponse, error) {
	if err := payload.Validate(); err != nil {
		observability.RecordSubmission("invalid")
		return models.AckResponse{}, err
	}

	id := payload.EventID
	logCtx := slog.With("submissionId", id, "eventType", payload.EventType)
	logCtx.Info("Webhook received.")

	started, err := i.store.TryBeginProcessing(ctx, id)
	if err != nil {
		observability.RecordSubmission("store_error")
		logCtx.Error("Failed to record submission.", "error", err)
		return models.AckResponse{}, fmt.Errorf("failed to record submission: %w", err)
	}
	if !started {
		observability.RecordSubmission("duplicate")
		logCtx.Warn("Already processed or in progress. Ignoring.")
		return models.AckResponse{Status: models.AckStatusOK, Message: models.AckMessageDuplicate}, nil
	}

	prompt := BuildPrompt(i.header, payload.Data.Fields)
	logCtx.Debug("Prompt built.", "prompt", truncate(prompt, 200))

	i.dispatcher.Dispatch(ctx, id, prompt)
	observability.RecordSubmission("accepted")
	logCtx.Info("Generation started in background. Acknowledging.")
	return models.AckResponse{Status: models.AckStatusOK, Message: models.AckMessageStarted}, nil
}
