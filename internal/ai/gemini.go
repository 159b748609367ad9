package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultEndpoint = "https://generativelanguage.googleapis.com"

// GeminiClient implements Classifier and Completer against the Gemini
// generateContent REST API. The flash model handles classification, the pro
// model handles long-form completions.
type GeminiClient struct {
	endpoint string
	apiKey   string
	model    string
	proModel string
	client   *http.Client
}

func NewGeminiClient(endpoint, apiKey, model, proModel string) *GeminiClient {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &GeminiClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		model:    model,
		proModel: proModel,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const classifyPrompt = `Eres Nubi, un asistente ambiental conectado a estaciones meteorologicas.
Debes clasificar la intencion de la pregunta del usuario.

Responde SIEMPRE en formato JSON con:
{"accion": "saludo" | "listar" | "estado_actual" | "serie" | "concepto" | "general", "estacion": "nombre o vacio", "variable": "nombre o vacio", "dias": 0}

Ejemplos:
- "hola" -> {"accion":"saludo"}
- "ver estaciones" -> {"accion":"listar"}
- "Halley UIS" -> {"accion":"estado_actual","estacion":"Halley UIS"}
- "PM2.5 de Halley" -> {"accion":"serie","estacion":"Halley","variable":"PM2.5","dias":7}
- "que es PM2.5" -> {"accion":"concepto","variable":"PM2.5"}
- "cuantas estaciones hay" -> {"accion":"general"}

Pregunta: %q`

// Classify asks the flash model for a structured intent. The model is
// instructed to answer with bare JSON; code fences are tolerated anyway.
func (g *GeminiClient) Classify(ctx context.Context, message string) (*ClassifiedIntent, error) {
	raw, err := g.generate(ctx, g.model, fmt.Sprintf(classifyPrompt, message), &generationConfig{
		Temperature:      0.1,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var intent ClassifiedIntent
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &intent); err != nil {
		return nil, fmt.Errorf("parse intent %q: %w", raw, err)
	}
	return &intent, nil
}

// Complete asks the pro model for a free-form answer.
func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, g.proModel, prompt, &generationConfig{Temperature: 0.4})
}

func (g *GeminiClient) generate(ctx context.Context, model, prompt string, cfg *generationConfig) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("invalid API key")
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return "", fmt.Errorf("rate limited")
	}
	if resp.StatusCode != http.StatusOK {
		var errResp geminiResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != nil {
			return "", fmt.Errorf("gemini error (HTTP %d): %s", resp.StatusCode, errResp.Error.Message)
		}
		return "", fmt.Errorf("gemini error HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	slog.Debug("gemini call", "model", model, "duration_ms", time.Since(start).Milliseconds())
	return result.Candidates[0].Content.Parts[0].Text, nil
}

// stripCodeFence unwraps ```json ... ``` blocks some models emit even when
// asked for bare JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
