package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Summary Model Prompts ---
const SummarySystemPrompt = "Eres un analista que resume respuestas de formularios. Responde en español, en formato Markdown, de forma breve y útil para quien completó el formulario."

// CFOSystemPrompt produces the client-facing follow-up summary for a CFO diagnostic form.
const CFOSystemPrompt = `Actúas como un(a) Estratega Financiero(a) Sénior. Analiza las respuestas de un formulario de diagnóstico completado por un(a) CFO y genera un resumen personalizado y conciso en formato Markdown que:

1. Reconozca su contribución y demuestre que hemos comprendido sus problemas clave.
2. Presente sus desafíos como oportunidades solucionables y estratégicas.
3. Posicione sutilmente a nuestro equipo como el socio experto que puede guiarles.
4. Concluya con una llamada a la acción para que se pongan en contacto con nosotros.

Usa un tono profesional, seguro y servicial. Estructura el resultado en las secciones "Gracias: Un Análisis Rápido de tu Situación", "Desafíos Clave que Hemos Identificado", "Cómo Podemos Ayudar: Tu Camino a Seguir" y "Hablemos de tu Estrategia", separadas por ---. No añadas preámbulos.`

// ConsultingSystemPrompt produces an internal sales briefing from the same answers.
const ConsultingSystemPrompt = `Actúas como un(a) Analista Estratégico de Cuentas de un equipo de consultoría tecnológica. Analiza las respuestas del formulario de un(a) CFO y genera un briefing interno en formato Markdown que prepare al equipo para la primera llamada: perfil del prospecto, puntos de dolor priorizados, ganchos de venta, soluciones a proponer y estrategia de aproximación. Sé directo(a) y accionable. No añadas preámbulos.`

// Prompt profiles select the system instruction of the summary model.
const (
	ProfileSummary    = "summary"
	ProfileCFO        = "cfo"
	ProfileConsulting = "consulting"
)

// SystemPromptFor returns the system instruction for a profile.
func SystemPromptFor(profile string) (string, error) {
	switch profile {
	case "", ProfileSummary:
		return SummarySystemPrompt, nil
	case ProfileCFO:
		return CFOSystemPrompt, nil
	case ProfileConsulting:
		return ConsultingSystemPrompt, nil
	default:
		return "", fmt.Errorf("unknown prompt profile %q", profile)
	}
}

// VertexClient holds the pre-configured generative model used for summaries.
type VertexClient struct {
	SummaryModel *genai.GenerativeModel
	ModelName    string
	baseClient   *genai.Client
}

// NewVertexClient creates a new client holding the summary model.
func NewVertexClient(ctx context.Context, projectID, region, modelName, profile string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	systemPrompt, err := SystemPromptFor(profile)
	if err != nil {
		return nil, fmt.Errorf("NewVertexClient: %w", err)
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summaryModel := baseClient.GenerativeModel(modelName)
	summaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	summaryModel.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: genai.Ptr[int32](2048),
	}

	return &VertexClient{
		SummaryModel: summaryModel,
		ModelName:    modelName,
		baseClient:   baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
