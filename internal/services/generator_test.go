package services

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubModel struct {
	resp   *genai.GenerateContentResponse
	err    error
	prompt string
}

func (m *stubModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	if len(parts) > 0 {
		if txt, ok := parts[0].(genai.Text); ok {
			m.prompt = string(txt)
		}
	}
	return m.resp, m.err
}

func responseWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: parts}}},
	}
}

func TestVertexGenerator_Generate(t *testing.T) {
	model := &stubModel{resp: responseWith(genai.Text("Sum"), genai.Text("mary"))}
	g := &VertexGenerator{model: model}

	got, err := g.Generate(context.Background(), "prompt text")
	require.NoError(t, err)
	assert.Equal(t, "Summary", got)
	assert.Equal(t, "prompt text", model.prompt)
}

func TestVertexGenerator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		model   *stubModel
		wantErr error
	}{
		{"nil response", &stubModel{}, ErrEmptyResponse},
		{"no candidates", &stubModel{resp: &genai.GenerateContentResponse{}}, ErrEmptyResponse},
		{"whitespace only", &stubModel{resp: responseWith(genai.Text("  \n"))}, ErrEmptyResponse},
		{"non-text parts", &stubModel{resp: responseWith(genai.Blob{MIMEType: "image/png"})}, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &VertexGenerator{model: tt.model}
			_, err := g.Generate(context.Background(), "p")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestVertexGenerator_ProviderError(t *testing.T) {
	providerErr := errors.New("quota exceeded")
	g := &VertexGenerator{model: &stubModel{err: providerErr}}

	_, err := g.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, providerErr)
	assert.Contains(t, err.Error(), "gemini")
}

func TestExtractText_StripsFence(t *testing.T) {
	resp := responseWith(genai.Text("```markdown\n# Hola\n```"))
	assert.Equal(t, "# Hola", extractText(resp))

	plain := responseWith(genai.Text("```go is fine``` inline"))
	assert.Equal(t, "```go is fine``` inline", extractText(plain))
}
