// Package summary computes the structured dataset profile the conversational
// layer and the RAG endpoints feed on. Everything is recomputed per call; the
// underlying store never changes after load.
package summary

import (
	"fmt"
	"sort"
	"time"

	"nimbus-server/internal/modules/chatbot/types"
	"nimbus-server/internal/stats"
	"nimbus-server/internal/store"
)

const (
	systemName        = "Weather Stations API"
	systemDescription = "Sistema de monitoreo de estaciones meteorológicas"
	systemVersion     = "1.0.0"
)

// LatestMeasurementVariables is the subset reported in a station's latest
// snapshot.
var LatestMeasurementVariables = []string{
	store.VarTemp, store.VarHumidity, store.VarPressure, store.VarWindSpeed,
	store.VarPM25, store.VarICA, store.VarPrecipitation,
}

// completenessVariables mirrors the global completeness block.
var completenessVariables = []string{
	store.VarTemp, store.VarHumidity, store.VarPressure,
	store.VarPM25, store.VarICA, store.VarPrecipitation,
}

type Summarizer struct {
	store *store.Store
}

func NewSummarizer(st *store.Store) *Summarizer {
	return &Summarizer{store: st}
}

// CompleteData assembles the full dataset profile.
func (s *Summarizer) CompleteData() types.CompleteData {
	readings := s.store.Readings()
	return types.CompleteData{
		SystemInfo: types.SystemInfo{
			Name:         systemName,
			Description:  systemDescription,
			Version:      systemVersion,
			TotalRecords: len(readings),
			LastUpdated:  time.Now().UTC().Format(time.RFC3339),
			DataSource:   "CSV processed data",
		},
		Stations:           s.StationSummaries(),
		Variables:          s.VariablesInfo(),
		GlobalStats:        s.globalStats(),
		TemporalCoverage:   s.temporalCoverage(),
		GeographicCoverage: s.geographicCoverage(),
		ContextInfo:        s.ContextInfo(),
	}
}

// StationSummaries profiles every station, ordered by station id.
func (s *Summarizer) StationSummaries() []types.StationSummary {
	groups := store.GroupByStation(s.store.Readings())
	ids := s.store.StationIDs()

	out := make([]types.StationSummary, 0, len(ids))
	for _, id := range ids {
		rows := groups[id]
		if len(rows) == 0 {
			continue
		}
		first := rows[0]

		minTS, maxTS := rows[0].Timestamp, rows[0].Timestamp
		for _, r := range rows[1:] {
			if r.Timestamp.Before(minTS) {
				minTS = r.Timestamp
			}
			if r.Timestamp.After(maxTS) {
				maxTS = r.Timestamp
			}
		}

		varStats := make(map[string]*types.VariableStats, len(store.Variables))
		for _, v := range store.Variables {
			varStats[v.Key] = variableStats(rows, v.Key)
		}

		out = append(out, types.StationSummary{
			StationID:   id,
			StationName: first.StationName,
			TipoEquipo:  first.EquipmentType,
			Location: types.Location{
				Latitude:  first.Lat,
				Longitude: first.Lon,
			},
			TotalRecords: len(rows),
			DateRange: types.DateRange{
				Start: minTS.Format(time.RFC3339),
				End:   maxTS.Format(time.RFC3339),
			},
			VariableStats:      varStats,
			DataQuality:        dataQuality(rows),
			LatestMeasurements: latestMeasurements(rows),
		})
	}
	return out
}

func variableStats(rows []store.Reading, variable string) *types.VariableStats {
	var values []float64
	for _, r := range rows {
		if v := r.Value(variable); v != nil {
			values = append(values, *v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	missing := len(rows) - len(values)
	return &types.VariableStats{
		Count:             len(values),
		Mean:              stats.Mean(values),
		Median:            stats.Median(values),
		Std:               stats.Std(values),
		Min:               stats.Min(values),
		Max:               stats.Max(values),
		Percentile25:      stats.Quantile(values, 0.25),
		Percentile75:      stats.Quantile(values, 0.75),
		MissingCount:      missing,
		MissingPercentage: float64(missing) / float64(len(rows)) * 100,
	}
}

func dataQuality(rows []store.Reading) types.DataQuality {
	imputed := make(map[string]types.ImputedInfo)
	for _, v := range store.Variables {
		if !v.HasImputed {
			continue
		}
		count := 0
		for _, r := range rows {
			if r.Imputed(v.Key) {
				count++
			}
		}
		imputed[v.Key] = types.ImputedInfo{
			ImputedCount:      count,
			ImputedPercentage: float64(count) / float64(len(rows)) * 100,
		}
	}
	return types.DataQuality{TotalRecords: len(rows), ImputedData: imputed}
}

// latestMeasurements reports the newest row's non-absent values.
func latestMeasurements(rows []store.Reading) types.LatestMeasurements {
	latest := rows[0]
	for _, r := range rows[1:] {
		if r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	measurements := make(map[string]float64)
	for _, key := range LatestMeasurementVariables {
		if v := latest.Value(key); v != nil {
			measurements[key] = *v
		}
	}
	return types.LatestMeasurements{
		Timestamp:    latest.Timestamp.Format(time.RFC3339),
		Measurements: measurements,
	}
}

// VariablesInfo reports static metadata plus dataset-wide quality per variable.
func (s *Summarizer) VariablesInfo() []types.VariableInfo {
	readings := s.store.Readings()
	out := make([]types.VariableInfo, 0, len(store.Variables))
	for _, v := range store.Variables {
		present := 0
		stationsWith := make(map[int]bool)
		for _, r := range readings {
			if r.Value(v.Key) != nil {
				present++
				stationsWith[r.StationID] = true
			}
		}
		missing := len(readings) - present
		vr := types.ValidRange{Min: v.ValidRange.Min, Max: v.ValidRange.Max}
		out = append(out, types.VariableInfo{
			Name:              v.Key,
			Description:       v.Description,
			Unit:              v.Unit,
			DataType:          v.DataType,
			ValidRange:        &vr,
			StationsWithData:  len(stationsWith),
			TotalMeasurements: present,
			QualityIndicators: types.QualityIndicators{
				TotalRecords:      len(readings),
				MissingRecords:    missing,
				MissingPercentage: pct(missing, len(readings)),
				HasImputedFlag:    v.HasImputed,
			},
		})
	}
	return out
}

func (s *Summarizer) globalStats() types.GlobalStats {
	readings := s.store.Readings()
	equipment := make(map[string]int)
	for _, r := range readings {
		equipment[r.EquipmentType]++
	}

	out := types.GlobalStats{
		TotalStations:    len(s.store.StationIDs()),
		TotalRecords:     len(readings),
		EquipmentTypes:   equipment,
		DataCompleteness: make(map[string]float64),
	}
	if len(readings) > 0 {
		minTS, maxTS := timeBounds(readings)
		out.DateRange = types.GlobalDateRange{
			Start:       minTS.Format(time.RFC3339),
			End:         maxTS.Format(time.RFC3339),
			DaysCovered: int(maxTS.Sub(minTS).Hours() / 24),
		}
	}
	for _, key := range completenessVariables {
		present := 0
		for _, r := range readings {
			if r.Value(key) != nil {
				present++
			}
		}
		out.DataCompleteness[key] = pct(present, len(readings))
	}
	return out
}

func (s *Summarizer) temporalCoverage() types.TemporalCoverage {
	perDay := make(map[string]int)
	hourly := make(map[int]int)
	for _, r := range s.store.Readings() {
		perDay[r.Timestamp.Format("2006-01-02")]++
		hourly[r.Timestamp.Hour()]++
	}

	out := types.TemporalCoverage{
		TotalDays:          len(perDay),
		HourlyDistribution: hourly,
	}
	if len(perDay) > 0 {
		counts := make([]int, 0, len(perDay))
		for _, n := range perDay {
			counts = append(counts, n)
		}
		sort.Ints(counts)
		total := 0
		for _, n := range counts {
			total += n
		}
		out.MeasurementsPerDay = types.MeasurementsPerDay{
			Mean: float64(total) / float64(len(counts)),
			Min:  counts[0],
			Max:  counts[len(counts)-1],
		}
	}
	return out
}

func (s *Summarizer) geographicCoverage() types.GeographicCoverage {
	stations := s.uniqueStationPositions()
	out := types.GeographicCoverage{TotalStations: len(stations)}
	if len(stations) == 0 {
		return out
	}

	bb := types.BoundingBox{
		North: stations[0].Lat, South: stations[0].Lat,
		East: stations[0].Lon, West: stations[0].Lon,
	}
	var sumLat, sumLon float64
	for _, st := range stations {
		if st.Lat > bb.North {
			bb.North = st.Lat
		}
		if st.Lat < bb.South {
			bb.South = st.Lat
		}
		if st.Lon > bb.East {
			bb.East = st.Lon
		}
		if st.Lon < bb.West {
			bb.West = st.Lon
		}
		sumLat += st.Lat
		sumLon += st.Lon
	}
	out.BoundingBox = bb
	out.CenterPoint = types.Location{
		Latitude:  sumLat / float64(len(stations)),
		Longitude: sumLon / float64(len(stations)),
	}
	return out
}

// uniqueStationPositions keeps one (lat, lon) per station id, first seen.
func (s *Summarizer) uniqueStationPositions() []store.StationInfo {
	seen := make(map[int]bool)
	var out []store.StationInfo
	for _, info := range s.store.Stations() {
		if !seen[info.StationID] {
			seen[info.StationID] = true
			out = append(out, info)
		}
	}
	return out
}

// ContextInfo describes the dataset in prose for prompt building and for the
// context endpoint.
func (s *Summarizer) ContextInfo() map[string]string {
	readings := s.store.Readings()
	temporal := "Sin datos cargados"
	if len(readings) > 0 {
		minTS, maxTS := timeBounds(readings)
		temporal = "Datos desde " + minTS.Format("2006-01-02") + " hasta " + maxTS.Format("2006-01-02")
	}
	return map[string]string{
		"purpose":          "Este sistema monitorea estaciones meteorológicas con datos de calidad del aire y clima",
		"data_types":       "Incluye temperatura, humedad, presión, viento, partículas PM, índice de calidad del aire y precipitación",
		"geographic_scope": "Red de estaciones distribuidas geográficamente",
		"temporal_scope":   temporal,
		"data_quality":     "Datos procesados con imputación de valores faltantes y limpieza de outliers",
		"usage_notes":      "Los datos pueden tener valores imputados marcados con flags específicos",
	}
}

// FilteredData answers a filtered query. Unparseable date bounds are the
// client's error, not an open bound. When the filtered set exceeds MaxRecords
// the head of the set is kept, so repeated queries return the same slice.
func (s *Summarizer) FilteredData(q types.ChatQuery) (types.FilteredData, error) {
	wanted := make(map[int]bool, len(q.Stations))
	for _, id := range q.Stations {
		wanted[id] = true
	}

	var from, to time.Time
	if raw, ok := q.DateRange["start"]; ok {
		t, err := parseFlexibleTime(raw)
		if err != nil {
			return types.FilteredData{}, fmt.Errorf("invalid date_range start %q: %w", raw, err)
		}
		from = t
	}
	if raw, ok := q.DateRange["end"]; ok {
		t, err := parseFlexibleTime(raw)
		if err != nil {
			return types.FilteredData{}, fmt.Errorf("invalid date_range end %q: %w", raw, err)
		}
		to = t
	}

	var filtered []store.Reading
	for _, r := range s.store.FilterByDateRange(from, to) {
		if len(wanted) > 0 && !wanted[r.StationID] {
			continue
		}
		filtered = append(filtered, r)
	}

	maxRecords := q.MaxRecords
	if maxRecords <= 0 {
		maxRecords = 1000
	}
	if len(filtered) > maxRecords {
		filtered = filtered[:maxRecords]
	}

	out := types.FilteredData{TotalRecords: len(filtered)}
	stations := make(map[int]bool)
	for _, r := range filtered {
		stations[r.StationID] = true
	}
	out.StationsCount = len(stations)

	if len(filtered) > 0 {
		minTS, maxTS := timeBounds(filtered)
		out.DateRange = types.DateRange{
			Start: minTS.Format(time.RFC3339),
			End:   maxTS.Format(time.RFC3339),
		}
	}

	if q.IncludeRawData {
		out.Data = make([]map[string]any, 0, len(filtered))
		for _, r := range filtered {
			row := map[string]any{
				"timestamp":    r.Timestamp.Format(time.RFC3339),
				"station_id":   r.StationID,
				"station_name": r.StationName,
				"lat":          r.Lat,
				"lon":          r.Lon,
			}
			keys := q.Variables
			if len(keys) == 0 {
				for _, v := range store.Variables {
					keys = append(keys, v.Key)
				}
			}
			for _, key := range keys {
				if _, ok := store.LookupVariable(key); ok {
					row[key] = r.Value(key)
				}
			}
			out.Data = append(out.Data, row)
		}
	}
	return out, nil
}

func parseFlexibleTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	return t.UTC(), err
}

func timeBounds(readings []store.Reading) (time.Time, time.Time) {
	minTS, maxTS := readings[0].Timestamp, readings[0].Timestamp
	for _, r := range readings[1:] {
		if r.Timestamp.Before(minTS) {
			minTS = r.Timestamp
		}
		if r.Timestamp.After(maxTS) {
			maxTS = r.Timestamp
		}
	}
	return minTS, maxTS
}

func pct(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
