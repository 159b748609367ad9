// Package compose renders resolved intents into assistant replies. Every
// render returns the menu the session should remember, so short follow-ups
// ("a", "2") can be interpreted against what the user was last shown.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"nimbus-server/internal/ai"
	"nimbus-server/internal/modules/chatbot/intent"
	"nimbus-server/internal/session"
	"nimbus-server/internal/stats"
	"nimbus-server/internal/store"
	"nimbus-server/internal/strutil"
)

type Composer struct {
	store     *store.Store
	completer ai.Completer
}

// NewComposer builds a composer. completer may be nil; open questions then
// fall back to canned keyword answers and ExplainForced reports an error.
func NewComposer(st *store.Store, completer ai.Completer) *Composer {
	return &Composer{store: st, completer: completer}
}

var greetings = []string{
	"¡Hola! Soy Nubi ☁️, tu asistente de clima y calidad del aire.",
	"¡Hola, qué gusto verte! Soy Nubi ☁️.",
	"¡Buenas! Aquí Nubi ☁️, lista para hablar de clima.",
}

const greetingOptions = "¿Qué quieres hacer?\n\n🅰️ Ver las estaciones disponibles\n🅱️ Aprender sobre las variables que medimos\n\nTambién puedes escribirme cualquier pregunta sobre el clima."

// conceptLetters maps the options of the concepts menu to variable names.
var conceptLetters = map[string]string{
	"a": "pm2.5",
	"b": "humedad",
	"c": "presion",
	"d": "ica",
	"e": "precipitacion",
	"f": "viento",
}

// conceptExplanations is keyed on folded, lowercased variable names.
var conceptExplanations = map[string]string{
	"pm2.5":         "PM2.5 son partículas finas de 2.5 micrómetros o menos. Son peligrosas porque pueden penetrar profundamente en los pulmones y el torrente sanguíneo. 🫁",
	"pm1":           "PM1.0 son partículas ultrafinas de 1 micrómetro o menos, las más pequeñas que medimos. 🌫️",
	"pm10":          "PM10 son partículas de hasta 10 micrómetros, como polvo y polen. Irritan nariz y garganta. 🌫️",
	"humedad":       "La humedad relativa es el porcentaje de vapor de agua en el aire comparado con el máximo que puede contener a esa temperatura. 💧",
	"temperatura":   "La temperatura del aire medida a la sombra, en grados Celsius. 🌡️",
	"presion":       "La presión atmosférica es el peso de la columna de aire sobre nosotros, en hectopascales. Sus cambios anticipan el clima. 📊",
	"ica":           "El ICA (Índice de Calidad del Aire) mide qué tan limpio o contaminado está el aire. Valores: 0-50 Bueno 🟢, 51-100 Moderado 🟡, 101-150 Dañino para grupos sensibles 🟠, 151+ Dañino 🔴",
	"precipitacion": "La precipitación es la cantidad de lluvia acumulada, medida en milímetros. Un milímetro equivale a un litro por metro cuadrado. ☔",
	"viento":        "Medimos la velocidad del viento en km/h y su dirección en grados. 💨",
}

// variableAliases maps user spellings (folded) to canonical dataset keys.
var variableAliases = map[string]string{
	"temp":             store.VarTemp,
	"temperatura":      store.VarTemp,
	"humedad":          store.VarHumidity,
	"presion":          store.VarPressure,
	"viento":           store.VarWindSpeed,
	"pm1":              store.VarPM1,
	"pm1.0":            store.VarPM1,
	"pm2.5":            store.VarPM25,
	"pm 2.5":           store.VarPM25,
	"pm_2_5":           store.VarPM25,
	"pm10":             store.VarPM10,
	"ica":              store.VarICA,
	"calidad del aire": store.VarICA,
	"lluvia":           store.VarPrecipitation,
	"precipitacion":    store.VarPrecipitation,
}

// Render produces the reply for an intent plus the menu to persist for the
// session. Out-of-range selections keep the current menu so the user can
// retry without navigating again.
func (c *Composer) Render(ctx context.Context, in intent.Intent, menu string) (string, string) {
	switch in.Action {
	case intent.ActionGreeting:
		return c.renderGreeting(), session.MenuNone
	case intent.ActionListStations:
		return c.renderStationList(), session.MenuStations
	case intent.ActionGeneralInfo:
		return c.renderGeneralInfo(), menu
	case intent.ActionShowConcept:
		return c.renderConcept(in.Variable, menu)
	case intent.ActionConceptByLetter:
		return c.renderConceptByLetter(in.Letter, menu)
	case intent.ActionStationStatus:
		return c.renderStationStatus(in, menu)
	case intent.ActionTimeSeries:
		return c.renderTimeSeries(in), menu
	case intent.ActionOpenQuestion:
		return c.renderOpenQuestion(ctx, in.RawText), menu
	default:
		return "No entendí muy bien tu pregunta. 🤔 Escribe \"hola\" para ver las opciones disponibles.", menu
	}
}

func (c *Composer) renderGreeting() string {
	return greetings[rand.Intn(len(greetings))] + "\n\n" + greetingOptions
}

// canonicalStations returns one row per station id, sorted by id, preferring
// the equipment type with the best priority when the id repeats.
func (c *Composer) canonicalStations() []store.StationInfo {
	best := make(map[int]store.StationInfo)
	for _, info := range c.store.Stations() {
		current, ok := best[info.StationID]
		if !ok || store.EquipmentPriority(info.EquipmentType) < store.EquipmentPriority(current.EquipmentType) {
			best[info.StationID] = info
		}
	}
	out := make([]store.StationInfo, 0, len(best))
	for _, info := range best {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StationID < out[j].StationID })
	return out
}

func (c *Composer) renderStationList() string {
	stations := c.canonicalStations()
	var b strings.Builder
	b.WriteString("📡 Estas son las estaciones disponibles:\n\n")
	for i, info := range stations {
		fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, info.StationName, info.EquipmentType)
	}
	fmt.Fprintf(&b, "\nEscribe el número de la estación (1 al %d) para ver su estado actual.", len(stations))
	return b.String()
}

func (c *Composer) renderGeneralInfo() string {
	stations := c.canonicalStations()
	readings := c.store.Readings()
	var b strings.Builder
	fmt.Fprintf(&b, "🌐 Monitoreamos %d estaciones con %d registros de mediciones.\n\n", len(stations), len(readings))
	b.WriteString("Medimos temperatura, humedad, presión, viento, partículas PM y el índice de calidad del aire (ICA).\n\n")
	b.WriteString("Escribe \"hola\" para ver el menú o pregúntame directamente.")
	return b.String()
}

func (c *Composer) renderConcept(variable, menu string) (string, string) {
	if variable == "" {
		var b strings.Builder
		b.WriteString("📚 ¿Sobre qué variable quieres aprender?\n\n")
		b.WriteString("🅰️ PM2.5\n🅱️ Humedad\n🅲 Presión\n🅳 ICA\n🅴 Precipitación\n🅵 Viento\n\n")
		b.WriteString("Escribe la letra de tu elección.")
		return b.String(), session.MenuConcepts
	}
	key := strings.Trim(strutil.Normalize(variable), "¿?¡! ")
	key = strings.TrimPrefix(key, "el ")
	key = strings.TrimPrefix(key, "la ")
	if explanation, ok := conceptExplanations[key]; ok {
		return explanation, session.MenuNone
	}
	return fmt.Sprintf("No tengo una explicación para %q. Prueba con PM2.5, humedad, presión, ICA, precipitación o viento.", variable), menu
}

func (c *Composer) renderConceptByLetter(letter, menu string) (string, string) {
	name, ok := conceptLetters[letter]
	if !ok {
		return "Esa opción no está en el menú. Escribe una letra de la A a la F.", menu
	}
	return conceptExplanations[name], session.MenuNone
}

func (c *Composer) renderStationStatus(in intent.Intent, menu string) (string, string) {
	stations := c.canonicalStations()

	if in.HasNumber {
		if in.StationNumber < 1 || in.StationNumber > len(stations) {
			return fmt.Sprintf("Número fuera de rango. Escribe un número del 1 al %d.", len(stations)), menu
		}
		return c.stationCard(stations[in.StationNumber-1]), session.MenuNone
	}

	info, ok := c.findStationByName(in.StationName, stations)
	if !ok {
		return fmt.Sprintf("No encontré una estación llamada %q. Escribe \"a\" para ver la lista completa.", in.StationName), menu
	}
	return c.stationCard(info), session.MenuNone
}

// findStationByName tries a folded substring match first, then tolerates up
// to two typos against the full name.
func (c *Composer) findStationByName(name string, stations []store.StationInfo) (store.StationInfo, bool) {
	needle := strutil.Normalize(name)
	if needle == "" {
		return store.StationInfo{}, false
	}
	for _, info := range stations {
		folded := strutil.Normalize(info.StationName)
		if strings.Contains(folded, needle) || strings.Contains(needle, folded) {
			return info, true
		}
	}
	for _, info := range stations {
		if levenshtein.ComputeDistance(needle, strutil.Normalize(info.StationName)) <= 2 {
			return info, true
		}
	}
	return store.StationInfo{}, false
}

func (c *Composer) stationCard(info store.StationInfo) string {
	rows := c.store.FilterByStation(info.StationID)
	if len(rows) == 0 {
		return fmt.Sprintf("La estación %s no tiene mediciones todavía.", info.StationName)
	}
	latest := rows[0]
	for _, rec := range rows[1:] {
		if rec.Timestamp.After(latest.Timestamp) {
			latest = rec
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📍 **%s** (%s)\n\n", info.StationName, info.EquipmentType)
	writeMeasurement(&b, "🌡️ Temperatura", latest.Temp, "°C")
	writeMeasurement(&b, "💧 Humedad", latest.Humidity, "%")
	writeMeasurement(&b, "🌫️ PM2.5", latest.PM25, " µg/m³")
	writeMeasurement(&b, "🌬️ ICA", latest.ICA, "")
	writeMeasurement(&b, "📊 Presión", latest.Pressure, " hPa")
	fmt.Fprintf(&b, "⏰ Última medición: %s\n", latest.Timestamp.Format("02/01/2006 15:04"))
	if verdict := interpretAirQuality(latest.ICA, latest.PM25); verdict != "" {
		b.WriteString("\n" + verdict)
	}
	return b.String()
}

func writeMeasurement(b *strings.Builder, label string, v *float64, unit string) {
	if v == nil {
		fmt.Fprintf(b, "%s: sin dato\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %.1f%s\n", label, *v, unit)
}

// interpretAirQuality turns ICA and PM2.5 readings into a verdict sentence.
// ICA takes precedence when both are present.
func interpretAirQuality(ica, pm25 *float64) string {
	if ica != nil {
		switch v := *ica; {
		case v <= 50:
			return "✅ La calidad del aire es excelente."
		case v <= 100:
			return "🙂 La calidad del aire es buena."
		case v <= 150:
			return "😐 La calidad del aire es moderada. Grupos sensibles deben tener precaución."
		case v <= 200:
			return "😷 La calidad del aire no es saludable. Limita las actividades al aire libre."
		case v <= 300:
			return "⚠️ La calidad del aire es muy poco saludable. Evita salir."
		default:
			return "🚨 La calidad del aire es peligrosa. Quédate en interiores."
		}
	}
	if pm25 != nil {
		switch v := *pm25; {
		case v <= 12:
			return "✅ El nivel de PM2.5 es excelente."
		case v <= 35:
			return "🙂 El nivel de PM2.5 es aceptable."
		case v <= 55:
			return "😐 El nivel de PM2.5 es moderado. Grupos sensibles deben tener precaución."
		case v <= 150:
			return "😷 El nivel de PM2.5 no es saludable."
		default:
			return "🚨 El nivel de PM2.5 es peligroso."
		}
	}
	return ""
}

func (c *Composer) renderTimeSeries(in intent.Intent) string {
	stations := c.canonicalStations()
	info, ok := c.findStationByName(in.StationName, stations)
	if !ok {
		return fmt.Sprintf("No encontré la estación %q para esa serie. Escribe \"a\" para ver la lista.", in.StationName)
	}
	variable, ok := variableAliases[strings.Trim(strutil.Normalize(in.Variable), "¿?¡! ")]
	if !ok {
		return fmt.Sprintf("No reconozco la variable %q. Prueba con temperatura, humedad, PM2.5 o ICA.", in.Variable)
	}

	days := in.Days
	if days <= 0 {
		days = 7
	}

	rows := c.store.FilterByStation(info.StationID)
	var values []float64
	var last store.Reading
	for _, rec := range rows {
		if rec.Timestamp.After(last.Timestamp) {
			last = rec
		}
	}
	cutoff := last.Timestamp.AddDate(0, 0, -days)
	for _, rec := range rows {
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		if v := rec.Value(variable); v != nil {
			values = append(values, *v)
		}
	}
	if len(values) == 0 {
		return fmt.Sprintf("No hay mediciones de esa variable para %s en los últimos %d días.", info.StationName, days)
	}

	descriptor, _ := store.LookupVariable(variable)
	return fmt.Sprintf("📈 **%s en %s** (últimos %d días)\n\nPromedio: %.1f %s\nMínimo: %.1f %s\nMáximo: %.1f %s\nMediciones: %d",
		descriptor.Description, info.StationName, days,
		stats.Mean(values), descriptor.Unit,
		stats.Min(values), descriptor.Unit,
		stats.Max(values), descriptor.Unit,
		len(values))
}

// Climate vocabulary that marks a question as in scope for the assistant.
var relevantKeywords = []string{
	"clima", "tiempo", "temperatura", "calor", "frio", "humedad", "lluvia",
	"llover", "precipitacion", "aire", "contaminacion", "pm", "ica",
	"particula", "estacion", "viento", "presion", "calidad", "ambiente",
	"meteorolog", "sensor", "medicion", "dato", "registro",
}

var irrelevantKeywords = []string{
	"futbol", "deporte", "musica", "cancion", "politica", "receta", "cocina",
	"pelicula", "serie de tv", "videojuego", "chiste", "horoscopo",
}

func inScope(text string) bool {
	n := strutil.Normalize(text)
	for _, w := range irrelevantKeywords {
		if strings.Contains(n, w) {
			return false
		}
	}
	for _, w := range relevantKeywords {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

const outOfScopeReply = "Esa pregunta está fuera de mi área. ☁️ Yo sé de clima, calidad del aire y nuestras estaciones meteorológicas. ¿Te ayudo con algo de eso?"

func (c *Composer) renderOpenQuestion(ctx context.Context, question string) string {
	if !inScope(question) {
		return outOfScopeReply
	}
	if c.completer == nil {
		return c.cannedAnswer(question)
	}

	prompt := fmt.Sprintf(`Eres Nubi ☁️, una asistente amable experta en clima y calidad del aire.
Responde en español, de forma breve y concreta, usando SOLO los datos del contexto.

Contexto de datos:
%s

Pregunta: %s`, c.dataContext(), question)

	answer, err := c.completer.Complete(ctx, prompt)
	if err != nil || strings.TrimSpace(answer) == "" {
		slog.Warn("open question completion failed", "error", err)
		return c.cannedAnswer(question)
	}
	return strings.TrimSpace(answer)
}

// cannedAnswer routes a question to a precomputed reply when the AI backend
// is unavailable.
func (c *Composer) cannedAnswer(question string) string {
	n := strutil.Normalize(question)
	stations := c.canonicalStations()

	switch {
	case strings.Contains(n, "cuant") || strings.Contains(n, "registro"):
		return fmt.Sprintf("Tenemos %d estaciones y %d registros de mediciones.", len(stations), len(c.store.Readings()))
	case strings.Contains(n, "aire") || strings.Contains(n, "ica") || strings.Contains(n, "pm"):
		values := c.columnValues(store.VarICA)
		if len(values) == 0 {
			return "No tengo mediciones de calidad del aire en este momento."
		}
		return fmt.Sprintf("El ICA promedio de la red es %.0f. %s", stats.Mean(values), interpretAirQuality(ptr(stats.Mean(values)), nil))
	case strings.Contains(n, "temperatura") || strings.Contains(n, "clima") || strings.Contains(n, "calor") || strings.Contains(n, "frio"):
		values := c.columnValues(store.VarTemp)
		if len(values) == 0 {
			return "No tengo mediciones de temperatura en este momento."
		}
		return fmt.Sprintf("La temperatura promedio registrada es %.1f°C, entre %.1f°C y %.1f°C.",
			stats.Mean(values), stats.Min(values), stats.Max(values))
	case strings.Contains(n, "donde") || strings.Contains(n, "ubicacion") || strings.Contains(n, "estacion"):
		return c.renderStationList()
	default:
		return "No pude responder esa pregunta con los datos que tengo. Escribe \"hola\" para ver qué puedo hacer."
	}
}

// dataContext summarizes the dataset for AI prompts.
func (c *Composer) dataContext() string {
	stations := c.canonicalStations()
	readings := c.store.Readings()

	var b strings.Builder
	fmt.Fprintf(&b, "- %d estaciones, %d registros.\n", len(stations), len(readings))
	if len(readings) > 0 {
		minTS, maxTS := readings[0].Timestamp, readings[0].Timestamp
		for _, rec := range readings[1:] {
			if rec.Timestamp.Before(minTS) {
				minTS = rec.Timestamp
			}
			if rec.Timestamp.After(maxTS) {
				maxTS = rec.Timestamp
			}
		}
		fmt.Fprintf(&b, "- Datos desde %s hasta %s.\n", minTS.Format("2006-01-02"), maxTS.Format("2006-01-02"))
	}
	b.WriteString("- Estaciones: ")
	names := make([]string, len(stations))
	for i, info := range stations {
		names[i] = info.StationName
	}
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n")

	for _, descriptor := range store.Variables {
		values := c.columnValues(descriptor.Key)
		if len(values) == 0 {
			continue
		}
		fmt.Fprintf(&b, "- %s: promedio %.1f %s (min %.1f, max %.1f, n=%d)\n",
			descriptor.Description, stats.Mean(values), descriptor.Unit,
			stats.Min(values), stats.Max(values), len(values))
	}
	return b.String()
}

// ErrNoCompleter marks explanation requests made without an AI backend.
var ErrNoCompleter = fmt.Errorf("no AI backend configured")

// ExplainForced always goes through the AI backend with an expert persona,
// skipping heuristics and intent resolution entirely.
func (c *Composer) ExplainForced(ctx context.Context, question string) (string, error) {
	if c.completer == nil {
		return "", ErrNoCompleter
	}

	prompt := fmt.Sprintf(`Eres una meteoróloga experta que explica fenómenos del clima y la calidad del aire.
Responde en español con rigor técnico pero lenguaje claro, citando los datos del contexto cuando apliquen.

Contexto de datos:
%s

Explica: %s`, c.dataContext(), question)

	answer, err := c.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("explain: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "No pude generar una explicación en este momento. Intenta de nuevo.", nil
	}
	return strings.TrimSpace(answer), nil
}

func (c *Composer) columnValues(variable string) []float64 {
	var out []float64
	for _, rec := range c.store.Readings() {
		if v := rec.Value(variable); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func ptr(v float64) *float64 { return &v }
