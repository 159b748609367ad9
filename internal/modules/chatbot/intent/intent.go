// Package intent turns a free-form chat message into a structured action.
// Cheap deterministic rules run first, in a fixed order; only messages that
// survive every rule reach the AI classifier. Resolution is stateless except
// for the caller-provided menu, which disambiguates "a" and "b" given right
// after the greeting options.
package intent

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"nimbus-server/internal/ai"
	"nimbus-server/internal/session"
	"nimbus-server/internal/strutil"
)

// Actions the composer knows how to render.
const (
	ActionGreeting        = "greeting"
	ActionListStations    = "list_stations"
	ActionShowConcept     = "show_concept"
	ActionConceptByLetter = "concept_by_letter"
	ActionStationStatus   = "station_status"
	ActionGeneralInfo     = "general_info"
	ActionTimeSeries      = "time_series"
	ActionOpenQuestion    = "open_question"
)

// Intent is one resolved action plus whatever parameters the rules or the
// classifier extracted. HasNumber distinguishes "the user typed 0" from "no
// number present".
type Intent struct {
	Action        string
	StationName   string
	StationNumber int
	HasNumber     bool
	Letter        string
	Variable      string
	Days          int
	RawText       string
}

// Words that signal a comparative or statistical question no template can
// answer. Checked before any station guessing so "cual estacion es mejor"
// never resolves to a station lookup.
var analysisTriggers = []string{
	"cual", "mejor", "peor", "mayor", "menor", "mas alto", "mas bajo",
	"comparar", "compara", "diferencia", "ranking", "maximo", "minimo",
	"promedio", "estadistica",
}

var greetingWords = []string{"hola", "hello", "buenas", "buenos"}

type Resolver struct {
	classifier ai.Classifier
}

// NewResolver builds a resolver. classifier may be nil; resolution then stops
// at the deterministic rules and guesses a station lookup for leftover text.
func NewResolver(classifier ai.Classifier) *Resolver {
	return &Resolver{classifier: classifier}
}

// IsGreeting reports whether the message is a salutation.
func IsGreeting(text string) bool {
	n := normalize(text)
	if n == "hi" {
		return true
	}
	for _, w := range greetingWords {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

// Resolve maps a message to an Intent. menu is the session's last shown menu
// (session.MenuNone when no menu is pending).
func (r *Resolver) Resolve(ctx context.Context, text, menu string) Intent {
	n := normalize(text)

	if IsGreeting(n) {
		return Intent{Action: ActionGreeting, RawText: text}
	}

	// "a" and "b" answer the greeting options, but only when no other menu
	// is pending.
	if menu == session.MenuNone {
		switch n {
		case "a":
			return Intent{Action: ActionListStations, RawText: text}
		case "b":
			return Intent{Action: ActionShowConcept, RawText: text}
		}
	}

	if rest, ok := strings.CutPrefix(n, "que es "); ok {
		return Intent{Action: ActionShowConcept, Variable: strings.TrimSpace(rest), RawText: text}
	}

	for _, trigger := range analysisTriggers {
		if strings.Contains(n, trigger) {
			return Intent{Action: ActionOpenQuestion, RawText: text}
		}
	}

	if strings.Contains(n, "cuantas estaciones") {
		return Intent{Action: ActionGeneralInfo, RawText: text}
	}

	// Bare letters and integers resolve deterministically with or without a
	// pending menu; they never reach the classifier.
	if len(n) == 1 && n >= "a" && n <= "f" {
		return Intent{Action: ActionConceptByLetter, Letter: n, RawText: text}
	}

	if number, err := strconv.Atoi(n); err == nil {
		return Intent{Action: ActionStationStatus, StationNumber: number, HasNumber: true, RawText: text}
	}

	if r.classifier == nil {
		return Intent{Action: ActionStationStatus, StationName: text, RawText: text}
	}

	classified, err := r.classifier.Classify(ctx, text)
	if err != nil {
		slog.Warn("intent classification failed", "error", err)
		return Intent{Action: ActionOpenQuestion, RawText: text}
	}
	return fromClassified(classified, text)
}

func fromClassified(c *ai.ClassifiedIntent, text string) Intent {
	switch c.Action {
	case "saludo":
		return Intent{Action: ActionGreeting, RawText: text}
	case "listar":
		return Intent{Action: ActionListStations, RawText: text}
	case "estado_actual":
		return Intent{Action: ActionStationStatus, StationName: c.Station, RawText: text}
	case "serie":
		return Intent{Action: ActionTimeSeries, StationName: c.Station, Variable: c.Variable, Days: c.Days, RawText: text}
	case "concepto":
		return Intent{Action: ActionShowConcept, Variable: c.Variable, RawText: text}
	case "general":
		return Intent{Action: ActionGeneralInfo, RawText: text}
	default:
		return Intent{Action: ActionOpenQuestion, RawText: text}
	}
}

func normalize(text string) string {
	return strings.Trim(strutil.Normalize(text), "¿?¡!. ")
}
