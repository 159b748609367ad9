package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"nimbus-server/internal/modules/stations/types"
	"nimbus-server/internal/store"
)

const fixtureCSV = `timestamp,station_id,station_name,tipo_equipo,lat,lon,temp,humedad,presion,viento_vel,viento_dir,pm_1,pm_2_5,pm_10,ica,precipitacion,temp_imputed,humedad_imputed,presion_imputed,viento_vel_imputed,viento_dir_imputed,ica_imputed,precipitacion_imputed
2025-11-01T10:00:00Z,1,Centro,AIR,7.12,-73.12,24.0,80,1010,4.2,180,5,12.0,20,40,0,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-01T11:00:00Z,1,Centro,VUE+AIR,7.12,-73.12,26.0,82,1009,NA,NA,6,14.0,22,50,0,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-01T10:30:00Z,2,Norte,AIR,7.20,-73.10,NA,75,NA,NA,NA,4,10.0,18,30,NA,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-01T12:00:00Z,2,Norte,AIR,7.20,-73.10,NA,77,NA,NA,NA,4,11.0,19,34,NA,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE,FALSE
2025-11-02T09:00:00Z,3,Sur,PRO,7.05,-73.15,22.1,70,1011,3.0,90,NA,NA,NA,NA,1.2,FALSE,TRUE,FALSE,FALSE,FALSE,FALSE,FALSE
`

func newTestService(t *testing.T) StationsService {
	t.Helper()
	path := filepath.Join(t.TempDir(), "readings.csv")
	if err := os.WriteFile(path, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	st := store.New(path)
	if err := st.Load(); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return NewStationsService(st)
}

func TestStationsSummaryDeduplicatesByPriority(t *testing.T) {
	svc := newTestService(t)
	summary := svc.StationsSummary()
	if summary.TotalStations != 3 {
		t.Fatalf("total = %d; want 3", summary.TotalStations)
	}
	// Station 1 appears as both AIR and VUE+AIR; the summary keeps VUE+AIR.
	if summary.Stations[0].StationID != 1 || summary.Stations[0].TipoEquipo != store.EquipmentVueAir {
		t.Errorf("station 1 = %+v; want VUE+AIR", summary.Stations[0])
	}
	if summary.Stations[1].TipoEquipo != store.EquipmentAir || summary.Stations[2].TipoEquipo != store.EquipmentPro {
		t.Errorf("unexpected ordering or types: %+v", summary.Stations)
	}
}

func TestAirlinkExcludesStationsWithVueRows(t *testing.T) {
	svc := newTestService(t)
	airlink := svc.AirlinkStationsSummary()
	if airlink.TotalStations != 1 {
		t.Fatalf("total = %d; want 1", airlink.TotalStations)
	}
	// Station 1 has a VUE+AIR row so only station 2 qualifies.
	if airlink.Stations[0].StationID != 2 {
		t.Errorf("airlink station = %d; want 2", airlink.Stations[0].StationID)
	}
}

func TestAveragesForDate(t *testing.T) {
	svc := newTestService(t)
	date := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	got := svc.AveragesForDate(date, nil)

	if got.Date != "2025-11-01" || got.StationsWithData != 2 {
		t.Fatalf("unexpected result: date=%s stations=%d", got.Date, got.StationsWithData)
	}

	centro := got.Stations[0]
	if centro.StationID != 1 || centro.RecordCount != 2 {
		t.Fatalf("centro = %+v", centro)
	}
	if st := centro.RawAverages[store.VarTemp]; st == nil || st.Average != 25.0 || st.Min != 24.0 || st.Max != 26.0 || st.Count != 2 {
		t.Errorf("temp stats = %+v", st)
	}
	if centro.Data.Temp == nil || *centro.Data.Temp != 25.0 {
		t.Errorf("formatted temp = %v", centro.Data.Temp)
	}

	norte := got.Stations[1]
	// Norte has only NA temps on that day.
	if norte.RawAverages[store.VarTemp] != nil {
		t.Errorf("norte temp should be unavailable, got %+v", norte.RawAverages[store.VarTemp])
	}
	if norte.Data.Temp != nil {
		t.Error("formatted norte temp should be nil")
	}
}

func TestAveragesForEmptyDateIsNotAnError(t *testing.T) {
	svc := newTestService(t)
	got := svc.AveragesForDate(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	if got.TotalStations != 0 || got.StationsWithData != 0 || len(got.Stations) != 0 {
		t.Errorf("empty date should yield empty result, got %+v", got)
	}
}

func TestStationAverages(t *testing.T) {
	svc := newTestService(t)
	date := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		got := svc.StationAverages(1, date, nil)
		if got.RecordCount != 2 || got.Data == nil || got.Message != "" {
			t.Errorf("got %+v", got)
		}
	})
	t.Run("missing", func(t *testing.T) {
		got := svc.StationAverages(99, date, nil)
		if got.RecordCount != 0 || got.Data != nil || got.Message == "" {
			t.Errorf("got %+v", got)
		}
	})
}

func TestStationDetailedDataSortedMilliseconds(t *testing.T) {
	svc := newTestService(t)
	got := svc.StationDetailedData(1, time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC))
	if !got.Success || got.Data.TotalMeasurements != 2 {
		t.Fatalf("got %+v", got)
	}
	m := got.Data.Measurements
	if m[0].Timestamp >= m[1].Timestamp {
		t.Error("measurements not sorted by time")
	}
	wantMs := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	if m[0].Timestamp != wantMs {
		t.Errorf("timestamp = %d; want %d", m[0].Timestamp, wantMs)
	}
	if m[0].Temperature == nil || *m[0].Temperature != 24.0 {
		t.Errorf("temperatura = %v", m[0].Temperature)
	}

	empty := svc.StationDetailedData(1, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if !empty.Success || len(empty.Data.Measurements) != 0 {
		t.Errorf("empty day should succeed with no measurements: %+v", empty)
	}
}

func TestMapSnapshotPicksClosestWithinTolerance(t *testing.T) {
	svc := newTestService(t)
	ts := time.Date(2025, 11, 1, 10, 40, 0, 0, time.UTC)
	got := svc.MapSnapshot(ts, 45)

	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	// Station 1: 11:00 (20m away) beats 10:00 (40m away).
	if !got[0].Timestamp.Equal(time.Date(2025, 11, 1, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("station 1 closest = %v", got[0].Timestamp)
	}
	// Station 2's 12:00 row is outside the tolerance.
	if !got[1].Timestamp.Equal(time.Date(2025, 11, 1, 10, 30, 0, 0, time.UTC)) {
		t.Errorf("station 2 closest = %v", got[1].Timestamp)
	}

	if none := svc.MapSnapshot(time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), 30); len(none) != 0 {
		t.Errorf("expected no points, got %d", len(none))
	}
}

func TestTimeSeriesFilters(t *testing.T) {
	svc := newTestService(t)
	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 11, 1, 23, 59, 59, 0, time.UTC)
	got := svc.TimeSeries(types.TimeSeriesQuery{
		StationIDs: []int{2},
		StartDate:  &start,
		EndDate:    &end,
		Variables:  []string{store.VarPM25, "bogus"},
	})
	if got.TotalRecords != 2 {
		t.Fatalf("records = %d; want 2", got.TotalRecords)
	}
	rec := got.Data[0]
	if rec.StationID != 2 || rec.Values[store.VarPM25] == nil {
		t.Errorf("record = %+v", rec)
	}
	if _, ok := rec.Values["bogus"]; ok {
		t.Error("unknown variable should be dropped")
	}
}

func TestAnimationDataBucketsDeterministically(t *testing.T) {
	svc := newTestService(t)
	got, err := svc.AnimationData(types.AnimationQuery{
		Variable:     store.VarPM25,
		TimeInterval: "1h",
	})
	if err != nil {
		t.Fatalf("AnimationData: %v", err)
	}
	if len(got.Timestamps) == 0 {
		t.Fatal("no frames")
	}
	// The 10:00 bucket holds station 1 (12.0) and station 2 (10.0).
	frame := got.Frames["2025-11-01T10:00:00Z"]
	if len(frame) != 2 {
		t.Fatalf("10:00 frame = %+v", frame)
	}
	if frame[0].StationID != 1 || *frame[0].Value != 12.0 || frame[1].StationID != 2 || *frame[1].Value != 10.0 {
		t.Errorf("frame contents = %+v", frame)
	}
	for i := 1; i < len(got.Timestamps); i++ {
		if got.Timestamps[i-1] >= got.Timestamps[i] {
			t.Error("timestamps not sorted")
		}
	}

	if _, err := svc.AnimationData(types.AnimationQuery{Variable: "bogus", TimeInterval: "1h"}); err == nil {
		t.Error("expected error for unknown variable")
	}
	if _, err := svc.AnimationData(types.AnimationQuery{Variable: store.VarICA, TimeInterval: "whenever"}); err == nil {
		t.Error("expected error for bad interval")
	}
}

func TestDataSummary(t *testing.T) {
	svc := newTestService(t)
	got := svc.DataSummary()
	if got.TotalRecords != 5 || got.StationsCount != 3 {
		t.Fatalf("summary = %+v", got)
	}
	if got.DateRange.Start != "2025-11-01T10:00:00Z" || got.DateRange.End != "2025-11-02T09:00:00Z" {
		t.Errorf("date range = %+v", got.DateRange)
	}
	temp := got.Variables["temperature"]
	if temp.Available != 3 || temp.Min == nil || *temp.Min != 22.1 || *temp.Max != 26.0 {
		t.Errorf("temperature summary = %+v", temp)
	}
}
