package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// These structs define the JSON payloads exchanged with the form provider and
// with the browser polling the result page.

// ErrInvalidPayload marks a webhook body that cannot be accepted.
var ErrInvalidPayload = errors.New("invalid webhook payload")

// TallyWebhookPayload is the body Tally posts on every form submission.
type TallyWebhookPayload struct {
	EventID   string             `json:"eventId"`
	EventType string             `json:"eventType"`
	CreatedAt string             `json:"createdAt,omitempty"`
	Data      *TallyResponseData `json:"data"`
}

// TallyResponseData carries the answered fields of one form response.
type TallyResponseData struct {
	ResponseID   string       `json:"responseId,omitempty"`
	SubmissionID string       `json:"submissionId,omitempty"`
	FormID       string       `json:"formId,omitempty"`
	FormName     string       `json:"formName,omitempty"`
	Fields       []TallyField `json:"fields"`
}

// TallyField is one question and its answer. Value is kept raw because Tally
// sends strings, numbers, booleans or lists depending on the input type.
type TallyField struct {
	Key     string          `json:"key"`
	Label   string          `json:"label"`
	Type    string          `json:"type"`
	Value   json.RawMessage `json:"value"`
	Options []TallyOption   `json:"options,omitempty"`
}

// TallyOption maps a choice id to the text the respondent saw.
type TallyOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Validate checks the payload before anything is recorded for it. Every
// field needs a label, since the label is the question shown in the prompt.
func (p *TallyWebhookPayload) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: empty body", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.EventID) == "" {
		return fmt.Errorf("%w: eventId is required", ErrInvalidPayload)
	}
	if p.Data == nil {
		return fmt.Errorf("%w: data is required", ErrInvalidPayload)
	}
	if p.Data.Fields == nil {
		return fmt.Errorf("%w: data.fields is required", ErrInvalidPayload)
	}
	for i, field := range p.Data.Fields {
		if strings.TrimSpace(field.Label) == "" {
			return fmt.Errorf("%w: data.fields[%d].label is required", ErrInvalidPayload, i)
		}
	}
	return nil
}

// AckResponse is returned to the form provider for every accepted delivery.
type AckResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

const (
	AckStatusOK = "ok"

	AckMessageStarted   = "Processing started"
	AckMessageDuplicate = "Already processed or in progress"
)

// ResultState is the presentational state of the result page. The names are
// consumed by the front end and must not change.
type ResultState string

const (
	ResultSuccess       ResultState = "success"
	ResultProcessing    ResultState = "processing"
	ResultError         ResultState = "error"
	ResultCriticalError ResultState = "critical_error"
	ResultNotFound      ResultState = "not_found"
)

// ResultView is what the result page renders for one submission.
type ResultView struct {
	State        ResultState `json:"status"`
	SubmissionID string      `json:"submission_id"`
	Result       string      `json:"result,omitempty"`
	ErrorMessage string      `json:"error_message,omitempty"`
}
