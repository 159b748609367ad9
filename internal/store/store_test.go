package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

const testCSV = `timestamp,station_id,station_name,tipo_equipo,lat,lon,temp,humedad,presion,viento_vel,viento_dir,pm_1,pm_2_5,pm_10,ica,precipitacion,temp_imputed,humedad_imputed,presion_imputed,viento_vel_imputed,viento_dir_imputed,ica_imputed,precipitacion_imputed
2025-11-01T10:00:00Z,1,Centro,VUE+AIR,7.12,-73.12,24.5,80,1010,4.2,180,5,12.5,20,45,0,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-01T11:00:00Z,1,Centro,VUE+AIR,7.12,-73.12,NA,82,1009,NA,NA,6,14,22,50,0,TRUE,FALSE,FALSE,,,garbage,FALSE
2025-11-01T10:30:00Z,2,Norte,AIR,7.20,-73.10,,75,,,,4,10,18,40,,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-02T09:00:00Z,2,Norte,AIR,7.20,-73.10,22.1,70,1011,3.0,90,3,9,15,38,1.2,FALSE,TRUE,FALSE,FALSE,FALSE,FALSE,FALSE
`

func writeTestCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test csv: %v", err)
	}
	return path
}

func loadTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(writeTestCSV(t, testCSV))
	if err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestLoadParsesRows(t *testing.T) {
	s := loadTestStore(t)
	readings := s.Readings()
	if len(readings) != 4 {
		t.Fatalf("got %d readings, want 4", len(readings))
	}

	first := readings[0]
	if first.StationID != 1 || first.StationName != "Centro" || first.EquipmentType != "VUE+AIR" {
		t.Errorf("unexpected first row: %+v", first)
	}
	if first.Temp == nil || *first.Temp != 24.5 {
		t.Errorf("temp = %v; want 24.5", first.Temp)
	}
	want := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	if !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v; want %v", first.Timestamp, want)
	}
}

func TestLoadNormalizesAbsentValues(t *testing.T) {
	s := loadTestStore(t)
	second := s.Readings()[1]

	// "NA" and empty become nil, never a sentinel.
	if second.Temp != nil {
		t.Errorf("temp = %v; want nil for NA", *second.Temp)
	}
	if second.WindSpeed != nil || second.WindDir != nil {
		t.Error("wind values should be nil")
	}
	// Unparsable imputed flags default to false; "TRUE" parses.
	if !second.TempImputed {
		t.Error("temp_imputed should be true")
	}
	if second.ICAImputed {
		t.Error("garbage ica_imputed should default to false")
	}
	if second.WindSpeedImputed || second.WindDirImputed {
		t.Error("empty imputed flags should default to false")
	}
}

func TestLoadFailsOnMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "missing.csv"))
	if err := s.Load(); err == nil {
		t.Fatal("expected error for missing file")
	}
	// The failure is sticky.
	if err := s.Load(); err == nil {
		t.Fatal("expected the same error on repeat Load")
	}
}

func TestLoadFailsOnMissingColumn(t *testing.T) {
	path := writeTestCSV(t, "timestamp,station_id\n2025-11-01T10:00:00Z,1\n")
	s := New(path)
	if err := s.Load(); err == nil {
		t.Fatal("expected error for missing required column")
	}
}

func TestFilterByDateRange(t *testing.T) {
	s := loadTestStore(t)
	from, to := DayWindow(time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	got := s.FilterByDateRange(from, to)
	if len(got) != 3 {
		t.Fatalf("got %d readings for 2025-11-01, want 3", len(got))
	}
	for _, r := range got {
		if r.Timestamp.Before(from) || r.Timestamp.After(to) {
			t.Errorf("reading %v outside window", r.Timestamp)
		}
	}
}

func TestStationsAndIDs(t *testing.T) {
	s := loadTestStore(t)
	stations := s.Stations()
	if len(stations) != 2 {
		t.Fatalf("got %d unique stations, want 2", len(stations))
	}
	if !reflect.DeepEqual(s.StationIDs(), []int{1, 2}) {
		t.Errorf("StationIDs = %v; want [1 2]", s.StationIDs())
	}
}

func TestGroupByStation(t *testing.T) {
	s := loadTestStore(t)
	groups := GroupByStation(s.Readings())
	if len(groups[1]) != 2 || len(groups[2]) != 2 {
		t.Errorf("unexpected group sizes: %d and %d", len(groups[1]), len(groups[2]))
	}
}

// Loading the same source twice must yield identical data.
func TestLoadRoundTrip(t *testing.T) {
	path := writeTestCSV(t, testCSV)
	a := New(path)
	b := New(path)
	if err := a.Load(); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if err := b.Load(); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if !reflect.DeepEqual(a.Readings(), b.Readings()) {
		t.Error("two loads of the same source differ")
	}
}

func TestReadingValueAccessor(t *testing.T) {
	s := loadTestStore(t)
	r := s.Readings()[0]
	if v := r.Value(VarPM25); v == nil || *v != 12.5 {
		t.Errorf("Value(pm_2_5) = %v; want 12.5", v)
	}
	if r.Value("nope") != nil {
		t.Error("unknown variable should return nil")
	}
	if !s.Readings()[1].Imputed(VarTemp) {
		t.Error("Imputed(temp) should be true for row 2")
	}
}
