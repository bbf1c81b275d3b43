package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyWebhookPayload_Validate(t *testing.T) {
	withFields := func(fields ...TallyField) *TallyWebhookPayload {
		return &TallyWebhookPayload{EventID: "evt-1", Data: &TallyResponseData{Fields: fields}}
	}

	tests := []struct {
		name    string
		payload *TallyWebhookPayload
		wantErr string
	}{
		{name: "valid", payload: withFields(TallyField{Label: "Color"})},
		{name: "no fields", payload: withFields()},
		{name: "nil payload", payload: nil, wantErr: "empty body"},
		{name: "blank event id", payload: &TallyWebhookPayload{EventID: "  ", Data: &TallyResponseData{Fields: []TallyField{}}}, wantErr: "eventId is required"},
		{name: "missing data", payload: &TallyWebhookPayload{EventID: "evt-1"}, wantErr: "data is required"},
		{name: "missing fields", payload: &TallyWebhookPayload{EventID: "evt-1", Data: &TallyResponseData{}}, wantErr: "data.fields is required"},
		{name: "field without label", payload: withFields(TallyField{Label: "Color"}, TallyField{Key: "q2"}), wantErr: "data.fields[1].label is required"},
		{name: "blank label", payload: withFields(TallyField{Label: " "}), wantErr: "data.fields[0].label is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.payload.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidPayload)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
