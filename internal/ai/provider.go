// Package ai talks to the Gemini generateContent API. The rest of the
// application only sees the two narrow interfaces below, so tests can swap in
// fakes and the server can run with no AI configured at all.
package ai

import "context"

// ClassifiedIntent is the structured interpretation of a free-form user
// message. Field names follow the JSON contract of the classification prompt.
type ClassifiedIntent struct {
	Action   string `json:"accion"`
	Station  string `json:"estacion"`
	Variable string `json:"variable"`
	Days     int    `json:"dias"`
}

// Classifier maps a raw user message to a structured intent.
type Classifier interface {
	Classify(ctx context.Context, message string) (*ClassifiedIntent, error)
}

// Completer generates a free-form answer for a fully assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
