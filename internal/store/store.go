// Package store loads the station readings CSV into memory once and exposes
// read-only filter and column access over it. The dataset is immutable after
// load; there is no write path.
package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Timestamp layouts accepted in the source file, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Store holds the loaded dataset. Load is guarded by sync.Once so concurrent
// first requests cannot trigger duplicate loads; after a successful load the
// data is read-only and safe for concurrent readers.
type Store struct {
	path string

	once     sync.Once
	loadErr  error
	readings []Reading
}

func New(path string) *Store {
	return &Store{path: path}
}

// Load parses the CSV at most once. A load failure is fatal for the store:
// every subsequent call returns the same error.
func (s *Store) Load() error {
	s.once.Do(func() {
		start := time.Now()
		readings, err := readCSV(s.path)
		if err != nil {
			s.loadErr = fmt.Errorf("load readings from %s: %w", s.path, err)
			return
		}
		s.readings = readings
		slog.Info("readings loaded",
			"path", s.path,
			"records", len(readings),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
	return s.loadErr
}

// Readings returns the full dataset. Callers must not mutate the slice.
func (s *Store) Readings() []Reading {
	return s.readings
}

// FilterByStation returns the readings for one station id.
func (s *Store) FilterByStation(stationID int) []Reading {
	var out []Reading
	for _, r := range s.readings {
		if r.StationID == stationID {
			out = append(out, r)
		}
	}
	return out
}

// FilterByDateRange returns readings with from <= timestamp <= to. A zero
// bound is open.
func (s *Store) FilterByDateRange(from, to time.Time) []Reading {
	var out []Reading
	for _, r := range s.readings {
		if !from.IsZero() && r.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && r.Timestamp.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Stations returns the unique (id, name, equipment, lat, lon) rows in
// first-seen order, mirroring the raw station list of the source data.
func (s *Store) Stations() []StationInfo {
	seen := make(map[StationInfo]bool)
	var out []StationInfo
	for _, r := range s.readings {
		info := StationInfo{
			StationID:     r.StationID,
			StationName:   r.StationName,
			EquipmentType: r.EquipmentType,
			Lat:           r.Lat,
			Lon:           r.Lon,
		}
		if !seen[info] {
			seen[info] = true
			out = append(out, info)
		}
	}
	return out
}

// StationIDs returns the distinct station ids in ascending order.
func (s *Store) StationIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range s.readings {
		if !seen[r.StationID] {
			seen[r.StationID] = true
			ids = append(ids, r.StationID)
		}
	}
	sort.Ints(ids)
	return ids
}

// GroupByStation partitions the given readings by station id.
func GroupByStation(readings []Reading) map[int][]Reading {
	groups := make(map[int][]Reading)
	for _, r := range readings {
		groups[r.StationID] = append(groups[r.StationID], r)
	}
	return groups
}

// DayWindow returns the inclusive UTC bounds of a calendar date.
func DayWindow(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

func readCSV(path string) ([]Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Error("close readings file", "error", closeErr)
		}
	}()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"timestamp", "station_id", "station_name", "tipo_equipo", "lat", "lon"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}

	var readings []Reading
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		r, err := parseRow(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func parseRow(record []string, cols map[string]int) (Reading, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	ts, err := parseTimestamp(field("timestamp"))
	if err != nil {
		return Reading{}, err
	}
	stationID, err := strconv.Atoi(field("station_id"))
	if err != nil {
		return Reading{}, fmt.Errorf("station_id %q: %w", field("station_id"), err)
	}
	lat, err := strconv.ParseFloat(field("lat"), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("lat %q: %w", field("lat"), err)
	}
	lon, err := strconv.ParseFloat(field("lon"), 64)
	if err != nil {
		return Reading{}, fmt.Errorf("lon %q: %w", field("lon"), err)
	}

	return Reading{
		Timestamp:     ts,
		StationID:     stationID,
		StationName:   field("station_name"),
		EquipmentType: field("tipo_equipo"),
		Lat:           lat,
		Lon:           lon,

		Temp:          parseOptionalFloat(field(VarTemp)),
		Humidity:      parseOptionalFloat(field(VarHumidity)),
		Pressure:      parseOptionalFloat(field(VarPressure)),
		WindSpeed:     parseOptionalFloat(field(VarWindSpeed)),
		WindDir:       parseOptionalFloat(field(VarWindDir)),
		PM1:           parseOptionalFloat(field(VarPM1)),
		PM25:          parseOptionalFloat(field(VarPM25)),
		PM10:          parseOptionalFloat(field(VarPM10)),
		ICA:           parseOptionalFloat(field(VarICA)),
		Precipitation: parseOptionalFloat(field(VarPrecipitation)),

		TempImputed:          parseImputed(field("temp_imputed")),
		HumidityImputed:      parseImputed(field("humedad_imputed")),
		PressureImputed:      parseImputed(field("presion_imputed")),
		WindSpeedImputed:     parseImputed(field("viento_vel_imputed")),
		WindDirImputed:       parseImputed(field("viento_dir_imputed")),
		ICAImputed:           parseImputed(field("ica_imputed")),
		PrecipitationImputed: parseImputed(field("precipitacion_imputed")),
	}, nil
}

func parseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", value)
}

// parseOptionalFloat maps "NA", empty and NaN to an explicit absence (nil),
// never a sentinel value.
func parseOptionalFloat(value string) *float64 {
	if value == "" || strings.EqualFold(value, "NA") {
		return nil
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseImputed treats anything that is not an affirmative token as false,
// including absent and unparsable values.
func parseImputed(value string) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
