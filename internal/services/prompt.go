package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Lllllllleong/formsummary/internal/models"
)

// DefaultPromptHeader opens every prompt built from a form response.
const DefaultPromptHeader = "Analiza la siguiente respuesta de encuesta y proporciona un resumen o conclusión:\n\n"

// BuildPrompt concatenates one question/answer block per answered field, in
// the order the fields were supplied. Unanswered fields are skipped.
func BuildPrompt(header string, fields []models.TallyField) string {
	var b strings.Builder
	b.WriteString(header)
	for _, field := range fields {
		answer, ok := renderValue(field)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "Pregunta: %s\nRespuesta: %s\n---\n", field.Label, answer)
	}
	return b.String()
}

// renderValue turns a raw answer into prompt text. It reports false for
// answers that carry nothing: null, blank strings and empty lists.
//
// Emptiness is judged per JSON value rather than by truthiness: 0 and false
// are real answers to numeric and checkbox questions and are kept, booleans
// render as JSON literals, and blank items inside a list are dropped.
func renderValue(field models.TallyField) (string, bool) {
	raw := bytes.TrimSpace(field.Value)
	if len(raw) == 0 {
		return "", false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		// Not JSON we understand; pass it through verbatim.
		return string(raw), true
	}

	switch v := value.(type) {
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := scalarText(item, field.Options); ok {
				items = append(items, s)
			}
		}
		if len(items) == 0 {
			return "", false
		}
		return strings.Join(items, ", "), true
	default:
		return scalarText(v, field.Options)
	}
}

func scalarText(value any, options []models.TallyOption) (string, bool) {
	switch v := value.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return optionText(v, options), true
	case json.Number:
		return v.String(), true
	case bool:
		if v {
			return "true", true
		}
		return "false", true
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(encoded), true
	}
}

// optionText resolves a choice id to its label. Tally sends ids for
// dropdown, checkbox and multiple choice answers.
func optionText(value string, options []models.TallyOption) string {
	for _, opt := range options {
		if opt.ID == value {
			return opt.Text
		}
	}
	return value
}
