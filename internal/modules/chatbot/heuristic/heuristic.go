// Package heuristic answers common chat questions without touching the AI
// backend. Matching runs on normalized text (lowercased, trimmed, diacritics
// folded), so accented and unaccented spellings share one entry.
package heuristic

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"nimbus-server/internal/stats"
	"nimbus-server/internal/store"
	"nimbus-server/internal/strutil"
)

type Responder struct {
	store *store.Store
}

func NewResponder(st *store.Store) *Responder {
	return &Responder{store: st}
}

// pattern handlers run in declaration order; the first match answers.
type patternHandler struct {
	re      *regexp.Regexp
	handler func(r *Responder, match []string) string
}

var patterns = []patternHandler{
	{regexp.MustCompile(`estacion.*?(\d+)`), (*Responder).answerStationByNumber},
	{regexp.MustCompile(`temperatura.*promedio|promedio.*temperatura`), (*Responder).answerAverageTemperature},
	{regexp.MustCompile(`humedad.*promedio|promedio.*humedad`), (*Responder).answerAverageHumidity},
	{regexp.MustCompile(`calidad.*aire`), (*Responder).answerAirQuality},
	{regexp.MustCompile(`pm.*alto`), (*Responder).answerHighestPM},
	{regexp.MustCompile(`mejor.*aire`), (*Responder).answerBestAir},
	{regexp.MustCompile(`peor.*aire`), (*Responder).answerWorstAir},
}

// TryAnswer attempts a heuristic reply. ok=false means nothing matched and
// the caller should continue with intent resolution.
func (r *Responder) TryAnswer(question string) (string, bool) {
	q := strings.Trim(strutil.Normalize(question), "¿?¡! ")

	if answer, ok := r.exactAnswer(q); ok {
		slog.Info("heuristic exact match", "question", question)
		return answer, true
	}

	for _, p := range patterns {
		if match := p.re.FindStringSubmatch(q); match != nil {
			slog.Info("heuristic pattern match", "question", question, "pattern", p.re.String())
			return p.handler(r, match), true
		}
	}
	return "", false
}

func (r *Responder) exactAnswer(q string) (string, bool) {
	switch q {
	case "hola":
		return "¡Hola! 👋 Soy tu asistente de datos climáticos. ¿En qué puedo ayudarte?", true
	case "buenos dias":
		return "¡Buenos días! ☀️ ¿Qué información climática necesitas hoy?", true
	case "buenas tardes":
		return "¡Buenas tardes! 🌤️ ¿Cómo puedo ayudarte con los datos meteorológicos?", true

	case "cuantas estaciones hay":
		return fmt.Sprintf("Tenemos %d estaciones meteorológicas monitoreando la región.", len(r.store.StationIDs())), true
	case "que variables miden":
		return "Las estaciones miden: temperatura 🌡️, humedad 💧, presión atmosférica 📊, viento 💨, partículas PM (1.0, 2.5, 10) 🌫️, índice de calidad del aire (ICA) 🌬️ y precipitación ☔", true

	case "que es pm2.5":
		return "PM2.5 son partículas finas de 2.5 micrómetros o menos. Son peligrosas porque pueden penetrar profundamente en los pulmones y el torrente sanguíneo. 🫁", true
	case "que es ica":
		return "El ICA (Índice de Calidad del Aire) mide qué tan limpio o contaminado está el aire. Valores: 0-50 Bueno 🟢, 51-100 Moderado 🟡, 101-150 Dañino para grupos sensibles 🟠, 151+ Dañino 🔴", true
	case "que es humedad":
		return "La humedad relativa es el porcentaje de vapor de agua en el aire comparado con el máximo que puede contener a esa temperatura. 💧", true

	case "cuantos registros hay":
		return fmt.Sprintf("Tenemos %s registros de mediciones en total.", humanize.Comma(int64(len(r.store.Readings())))), true
	case "desde cuando hay datos":
		readings := r.store.Readings()
		if len(readings) == 0 {
			return "Todavía no hay datos cargados.", true
		}
		minTS, maxTS := readings[0].Timestamp, readings[0].Timestamp
		for _, rec := range readings[1:] {
			if rec.Timestamp.Before(minTS) {
				minTS = rec.Timestamp
			}
			if rec.Timestamp.After(maxTS) {
				maxTS = rec.Timestamp
			}
		}
		return fmt.Sprintf("Los datos van desde %s hasta %s.",
			minTS.Format("02/01/2006"), maxTS.Format("02/01/2006")), true
	}
	return "", false
}

func (r *Responder) answerStationByNumber(match []string) string {
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return "No pude obtener información de esa estación."
	}
	ids := r.store.StationIDs()
	if number < 1 || number > len(ids) {
		return fmt.Sprintf("Solo tenemos %d estaciones. Intenta con un número del 1 al %d.", len(ids), len(ids))
	}

	stationID := ids[number-1]
	rows := r.store.FilterByStation(stationID)
	latest := rows[0]
	for _, rec := range rows[1:] {
		if rec.Timestamp.After(latest.Timestamp) {
			latest = rec
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📍 **Estación %d: %s**\n\n", number, latest.StationName)
	fmt.Fprintf(&b, "🌡️ Temperatura: %s°C\n", formatValue(latest.Temp))
	fmt.Fprintf(&b, "💧 Humedad: %s%%\n", formatValue(latest.Humidity))
	fmt.Fprintf(&b, "🌫️ PM2.5: %s µg/m³\n", formatValue(latest.PM25))
	fmt.Fprintf(&b, "🌬️ ICA: %s\n", formatValue(latest.ICA))
	fmt.Fprintf(&b, "📊 Presión: %s hPa\n", formatValue(latest.Pressure))
	fmt.Fprintf(&b, "⏰ Última medición: %s", latest.Timestamp.Format("02/01/2006 15:04"))
	return b.String()
}

func (r *Responder) answerAverageTemperature(match []string) string {
	values := r.columnValues(store.VarTemp)
	if len(values) == 0 {
		return "No hay mediciones de temperatura disponibles."
	}
	return fmt.Sprintf("🌡️ **Temperatura promedio**: %.1f°C\n📊 Rango: %.1f°C a %.1f°C",
		stats.Mean(values), stats.Min(values), stats.Max(values))
}

func (r *Responder) answerAverageHumidity(match []string) string {
	values := r.columnValues(store.VarHumidity)
	if len(values) == 0 {
		return "No hay mediciones de humedad disponibles."
	}
	return fmt.Sprintf("💧 **Humedad promedio**: %.1f%%", stats.Mean(values))
}

func (r *Responder) answerAirQuality(match []string) string {
	values := r.columnValues(store.VarICA)
	if len(values) == 0 {
		return "No hay mediciones de calidad del aire disponibles."
	}
	avg := stats.Mean(values)

	var estado string
	switch {
	case avg <= 50:
		estado = "Buena 🟢"
	case avg <= 100:
		estado = "Moderada 🟡"
	case avg <= 150:
		estado = "Dañina para grupos sensibles 🟠"
	default:
		estado = "Dañina 🔴"
	}
	return fmt.Sprintf("🌬️ **Calidad del aire promedio**: ICA %.0f - %s", avg, estado)
}

func (r *Responder) answerHighestPM(match []string) string {
	var best *store.Reading
	for i, rec := range r.store.Readings() {
		if rec.PM25 == nil {
			continue
		}
		if best == nil || *rec.PM25 > *best.PM25 {
			best = &r.store.Readings()[i]
		}
	}
	if best == nil {
		return "No hay mediciones de PM2.5 disponibles."
	}
	return fmt.Sprintf("🌫️ **PM2.5 más alto**: %.1f µg/m³ en la estación %s", *best.PM25, best.StationName)
}

func (r *Responder) answerBestAir(match []string) string {
	name, value, ok := r.extremeICAByStation(false)
	if !ok {
		return "No hay mediciones de calidad del aire disponibles."
	}
	return fmt.Sprintf("🌬️ **Mejor calidad del aire**: %s con ICA promedio de %.0f", name, value)
}

func (r *Responder) answerWorstAir(match []string) string {
	name, value, ok := r.extremeICAByStation(true)
	if !ok {
		return "No hay mediciones de calidad del aire disponibles."
	}
	return fmt.Sprintf("🌬️ **Peor calidad del aire**: %s con ICA promedio de %.0f", name, value)
}

// extremeICAByStation returns the station name with the lowest (or highest)
// mean ICA. Ties resolve to the alphabetically first name.
func (r *Responder) extremeICAByStation(worst bool) (string, float64, bool) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, rec := range r.store.Readings() {
		if rec.ICA != nil {
			sums[rec.StationName] += *rec.ICA
			counts[rec.StationName]++
		}
	}
	if len(sums) == 0 {
		return "", 0, false
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	bestName := names[0]
	bestValue := sums[bestName] / float64(counts[bestName])
	for _, name := range names[1:] {
		value := sums[name] / float64(counts[name])
		if (worst && value > bestValue) || (!worst && value < bestValue) {
			bestName, bestValue = name, value
		}
	}
	return bestName, bestValue, true
}

func (r *Responder) columnValues(variable string) []float64 {
	var out []float64
	for _, rec := range r.store.Readings() {
		if v := rec.Value(variable); v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func formatValue(v *float64) string {
	if v == nil {
		return "—"
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
