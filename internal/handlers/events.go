package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// PubSubMessagePublished is the CloudEvent type Pub/Sub triggers deliver.
const PubSubMessagePublished = "google.cloud.pubsub.topic.v1.messagePublished"

// pubSubEnvelope is the data of a messagePublished event.
type pubSubEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// PayloadFromEvent extracts the webhook payload carried by an event. Pub/Sub
// events are unwrapped; any other type is read as the raw webhook body.
func PayloadFromEvent(e cloudevents.Event) (*models.TallyWebhookPayload, error) {
	data := e.Data()
	if e.Type() == PubSubMessagePublished {
		var env pubSubEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("%w: bad Pub/Sub envelope: %v", models.ErrInvalidPayload, err)
		}
		data = env.Message.Data
	}
	return DecodePayload(bytes.NewReader(data))
}

// SubmissionEventHandler accepts submissions relayed as CloudEvents.
//
// Malformed events are dropped rather than returned as errors, since a
// redelivery can never succeed. Store failures are returned so the trigger
// retries; nothing was recorded in that case.
func SubmissionEventHandler(intake SubmissionAcceptor) func(ctx context.Context, e cloudevents.Event) error {
	return func(ctx context.Context, e cloudevents.Event) error {
		logCtx := slog.With("eventId", e.ID(), "eventType", e.Type())

		payload, err := PayloadFromEvent(e)
		if err != nil {
			logCtx.Warn("Dropping undecodable submission event.", "error", err)
			return nil
		}

		ack, err := intake.Accept(ctx, payload)
		if errors.Is(err, models.ErrInvalidPayload) {
			logCtx.Warn("Dropping invalid submission event.", "error", err)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to accept submission event %s: %w", e.ID(), err)
		}

		logCtx.Info("Submission event accepted.", "submissionId", payload.EventID, "message", ack.Message)
		return nil
	}
}
