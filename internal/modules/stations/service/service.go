// Package service implements the aggregation operations behind the stations
// endpoints. All computation happens over the immutable in-memory dataset.
package service

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"nimbus-server/internal/modules/stations/types"
	"nimbus-server/internal/stats"
	"nimbus-server/internal/store"
)

type StationsService interface {
	Stations() []store.StationInfo
	StationsSummary() types.StationsSummary
	AirlinkStationsSummary() types.StationsSummary
	AveragesForDate(date time.Time, variables []string) types.DailyAverages
	StationAverages(stationID int, date time.Time, variables []string) types.SingleStationAverages
	StationDetailedData(stationID int, date time.Time) types.DetailedData
	StationData(stationID int, from, to time.Time) []store.Reading
	TimeSeries(q types.TimeSeriesQuery) types.TimeSeriesResult
	MapSnapshot(ts time.Time, toleranceMinutes int) []types.MapDataPoint
	AnimationData(q types.AnimationQuery) (types.AnimationResult, error)
	DataSummary() types.DataSummary
}

type stationsServiceImpl struct {
	store *store.Store
}

func NewStationsService(st *store.Store) StationsService {
	return &stationsServiceImpl{store: st}
}

func (s *stationsServiceImpl) Stations() []store.StationInfo {
	return s.store.Stations()
}

// StationsSummary deduplicates stations by id, keeping the row with the
// highest equipment priority. Output is sorted by station id so repeated
// calls are byte-identical.
func (s *stationsServiceImpl) StationsSummary() types.StationsSummary {
	best := make(map[int]store.StationInfo)
	for _, info := range s.store.Stations() {
		current, ok := best[info.StationID]
		if !ok || store.EquipmentPriority(info.EquipmentType) < store.EquipmentPriority(current.EquipmentType) {
			best[info.StationID] = info
		}
	}
	return summaryOf(best)
}

// AirlinkStationsSummary keeps only stations that report exclusively through
// AIR equipment. One VUE+AIR row anywhere disqualifies the whole station.
func (s *stationsServiceImpl) AirlinkStationsSummary() types.StationsSummary {
	withVue := make(map[int]bool)
	for _, r := range s.store.Readings() {
		if r.EquipmentType == store.EquipmentVueAir {
			withVue[r.StationID] = true
		}
	}

	pure := make(map[int]store.StationInfo)
	for _, info := range s.store.Stations() {
		if info.EquipmentType == store.EquipmentAir && !withVue[info.StationID] {
			if _, ok := pure[info.StationID]; !ok {
				pure[info.StationID] = info
			}
		}
	}
	return summaryOf(pure)
}

func summaryOf(byID map[int]store.StationInfo) types.StationsSummary {
	ids := make([]int, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := types.StationsSummary{Stations: []types.StationSummary{}}
	for _, id := range ids {
		info := byID[id]
		out.Stations = append(out.Stations, types.StationSummary{
			StationID:   info.StationID,
			StationName: info.StationName,
			Lat:         info.Lat,
			Lon:         info.Lon,
			TipoEquipo:  info.EquipmentType,
		})
	}
	out.TotalStations = len(out.Stations)
	return out
}

func (s *stationsServiceImpl) AveragesForDate(date time.Time, variables []string) types.DailyAverages {
	if len(variables) == 0 {
		variables = store.DefaultAverageVariables
	}
	dateStr := date.Format("2006-01-02")

	from, to := store.DayWindow(date)
	daily := s.store.FilterByDateRange(from, to)
	if len(daily) == 0 {
		slog.Warn("no readings for date", "date", dateStr)
		return types.DailyAverages{
			Date:     dateStr,
			Stations: []types.StationAverages{},
		}
	}

	groups := store.GroupByStation(daily)
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := types.DailyAverages{
		Date:      dateStr,
		Variables: variables,
		Stations:  []types.StationAverages{},
	}
	for _, id := range ids {
		rows := groups[id]
		raw := make(map[string]*types.VariableStats, len(variables))
		for _, variable := range variables {
			raw[variable] = aggregate(rows, variable)
		}
		first := rows[0]
		out.Stations = append(out.Stations, types.StationAverages{
			StationID:   id,
			StationName: first.StationName,
			Lat:         first.Lat,
			Lon:         first.Lon,
			TipoEquipo:  first.EquipmentType,
			RecordCount: len(rows),
			RawAverages: raw,
			Data:        formatAverages(raw),
		})
	}
	out.TotalStations = len(ids)
	out.StationsWithData = len(out.Stations)
	return out
}

func (s *stationsServiceImpl) StationAverages(stationID int, date time.Time, variables []string) types.SingleStationAverages {
	all := s.AveragesForDate(date, variables)
	for _, station := range all.Stations {
		if station.StationID == stationID {
			data := station.Data
			return types.SingleStationAverages{
				StationID:         stationID,
				Date:              all.Date,
				RecordCount:       station.RecordCount,
				RawAverages:       station.RawAverages,
				FormattedAverages: &data,
				Data:              &data,
			}
		}
	}
	return types.SingleStationAverages{
		StationID: stationID,
		Date:      all.Date,
		Message:   "No hay datos disponibles para esta estación en la fecha especificada",
	}
}

// aggregate computes {average,count,min,max} for one variable over the given
// rows. Nil means the variable is unavailable for the whole group.
func aggregate(rows []store.Reading, variable string) *types.VariableStats {
	var values []float64
	for _, r := range rows {
		if v := r.Value(variable); v != nil {
			values = append(values, *v)
		}
	}
	if len(values) == 0 {
		return nil
	}
	return &types.VariableStats{
		Average: stats.Round2(stats.Mean(values)),
		Count:   len(values),
		Min:     stats.Round2(stats.Min(values)),
		Max:     stats.Round2(stats.Max(values)),
	}
}

func formatAverages(raw map[string]*types.VariableStats) types.FormattedAverages {
	pick := func(key string) *float64 {
		if st := raw[key]; st != nil {
			v := st.Average
			return &v
		}
		return nil
	}
	return types.FormattedAverages{
		Temp:          pick(store.VarTemp),
		Hum:           pick(store.VarHumidity),
		PM1p0:         pick(store.VarPM1),
		PM2p5:         pick(store.VarPM25),
		PM10p0:        pick(store.VarPM10),
		ICA:           pick(store.VarICA),
		Precipitation: pick(store.VarPrecipitation),
	}
}

func (s *stationsServiceImpl) StationDetailedData(stationID int, date time.Time) types.DetailedData {
	dateStr := date.Format("2006-01-02")
	from, to := store.DayWindow(date)

	var rows []store.Reading
	for _, r := range s.store.FilterByStation(stationID) {
		if !r.Timestamp.Before(from) && !r.Timestamp.After(to) {
			rows = append(rows, r)
		}
	}
	if len(rows) == 0 {
		return types.DetailedData{
			Success: true,
			Data: types.DetailedPayload{
				StationID:    stationID,
				Date:         dateStr,
				Measurements: []types.Measurement{},
			},
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })

	measurements := make([]types.Measurement, 0, len(rows))
	for _, r := range rows {
		measurements = append(measurements, types.Measurement{
			Timestamp:     r.Timestamp.UnixMilli(),
			PM1:           round2p(r.PM1),
			PM25:          round2p(r.PM25),
			PM10:          round2p(r.PM10),
			Humidity:      round2p(r.Humidity),
			ICA:           round2p(r.ICA),
			Temperature:   round2p(r.Temp),
			Pressure:      round2p(r.Pressure),
			WindSpeed:     round2p(r.WindSpeed),
			WindDir:       round2p(r.WindDir),
			Precipitation: round2p(r.Precipitation),
		})
	}

	return types.DetailedData{
		Success: true,
		Data: types.DetailedPayload{
			StationID:         stationID,
			StationName:       rows[0].StationName,
			Date:              dateStr,
			TotalMeasurements: len(measurements),
			Measurements:      measurements,
		},
	}
}

func round2p(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := stats.Round2(*v)
	return &r
}

func (s *stationsServiceImpl) StationData(stationID int, from, to time.Time) []store.Reading {
	var out []store.Reading
	for _, r := range s.store.FilterByStation(stationID) {
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

func (s *stationsServiceImpl) TimeSeries(q types.TimeSeriesQuery) types.TimeSeriesResult {
	wanted := make(map[int]bool, len(q.StationIDs))
	for _, id := range q.StationIDs {
		wanted[id] = true
	}

	var from, to time.Time
	if q.StartDate != nil {
		from = *q.StartDate
	}
	if q.EndDate != nil {
		to = *q.EndDate
	}

	out := types.TimeSeriesResult{
		Data:      []types.TimeSeriesRecord{},
		Variables: q.Variables,
	}
	for _, r := range s.store.FilterByDateRange(from, to) {
		if len(wanted) > 0 && !wanted[r.StationID] {
			continue
		}
		values := make(map[string]*float64, len(q.Variables))
		for _, variable := range q.Variables {
			if _, ok := store.LookupVariable(variable); ok {
				values[variable] = r.Value(variable)
			}
		}
		out.Data = append(out.Data, types.TimeSeriesRecord{
			Timestamp:   r.Timestamp,
			StationID:   r.StationID,
			StationName: r.StationName,
			Values:      values,
		})
	}
	out.TotalRecords = len(out.Data)
	return out
}

// MapSnapshot returns, per station, the reading closest to ts within the
// tolerance window. Stations with no reading in the window are omitted.
func (s *stationsServiceImpl) MapSnapshot(ts time.Time, toleranceMinutes int) []types.MapDataPoint {
	tolerance := time.Duration(toleranceMinutes) * time.Minute
	window := s.store.FilterByDateRange(ts.Add(-tolerance), ts.Add(tolerance))

	closest := make(map[int]store.Reading)
	for _, r := range window {
		current, ok := closest[r.StationID]
		if !ok || absDuration(r.Timestamp.Sub(ts)) < absDuration(current.Timestamp.Sub(ts)) {
			closest[r.StationID] = r
		}
	}

	ids := make([]int, 0, len(closest))
	for id := range closest {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	out := make([]types.MapDataPoint, 0, len(ids))
	for _, id := range ids {
		r := closest[id]
		out = append(out, types.MapDataPoint{
			StationID:     r.StationID,
			StationName:   r.StationName,
			Lat:           r.Lat,
			Lon:           r.Lon,
			Timestamp:     r.Timestamp,
			Temp:          r.Temp,
			Humidity:      r.Humidity,
			Pressure:      r.Pressure,
			PM25:          r.PM25,
			ICA:           r.ICA,
			Precipitation: r.Precipitation,
		})
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

var animationIntervals = map[string]time.Duration{
	"15m":   15 * time.Minute,
	"15min": 15 * time.Minute,
	"30m":   30 * time.Minute,
	"30min": 30 * time.Minute,
	"1h":    time.Hour,
	"1H":    time.Hour,
	"3h":    3 * time.Hour,
	"6h":    6 * time.Hour,
	"12h":   12 * time.Hour,
	"1d":    24 * time.Hour,
	"1D":    24 * time.Hour,
}

// AnimationData buckets readings by time interval and averages the chosen
// variable per station per bucket. Frames are keyed by the bucket's RFC3339
// timestamp.
func (s *stationsServiceImpl) AnimationData(q types.AnimationQuery) (types.AnimationResult, error) {
	if _, ok := store.LookupVariable(q.Variable); !ok {
		return types.AnimationResult{}, fmt.Errorf("unknown variable %q", q.Variable)
	}
	interval, ok := animationIntervals[q.TimeInterval]
	if !ok {
		parsed, err := time.ParseDuration(q.TimeInterval)
		if err != nil || parsed <= 0 {
			return types.AnimationResult{}, fmt.Errorf("invalid time_interval %q", q.TimeInterval)
		}
		interval = parsed
	}

	var from, to time.Time
	if q.StartDate != nil {
		from = *q.StartDate
	}
	if q.EndDate != nil {
		to = *q.EndDate
	}

	type bucketKey struct {
		ts        time.Time
		stationID int
	}
	type bucketAgg struct {
		name     string
		lat, lon float64
		sum      float64
		count    int
	}
	buckets := make(map[bucketKey]*bucketAgg)
	for _, r := range s.store.FilterByDateRange(from, to) {
		key := bucketKey{ts: r.Timestamp.Truncate(interval), stationID: r.StationID}
		agg, ok := buckets[key]
		if !ok {
			agg = &bucketAgg{name: r.StationName, lat: r.Lat, lon: r.Lon}
			buckets[key] = agg
		}
		if v := r.Value(q.Variable); v != nil {
			agg.sum += *v
			agg.count++
		}
	}

	frames := make(map[string][]types.AnimationPoint)
	for key, agg := range buckets {
		var value *float64
		if agg.count > 0 {
			v := stats.Round2(agg.sum / float64(agg.count))
			value = &v
		}
		iso := key.ts.Format(time.RFC3339)
		frames[iso] = append(frames[iso], types.AnimationPoint{
			StationID:   key.stationID,
			StationName: agg.name,
			Lat:         agg.lat,
			Lon:         agg.lon,
			Value:       value,
		})
	}
	timestamps := make([]string, 0, len(frames))
	for iso := range frames {
		timestamps = append(timestamps, iso)
		points := frames[iso]
		sort.Slice(points, func(i, j int) bool { return points[i].StationID < points[j].StationID })
	}
	sort.Strings(timestamps)

	return types.AnimationResult{
		Variable:     q.Variable,
		TimeInterval: q.TimeInterval,
		Frames:       frames,
		Timestamps:   timestamps,
	}, nil
}

func (s *stationsServiceImpl) DataSummary() types.DataSummary {
	readings := s.store.Readings()
	out := types.DataSummary{
		TotalRecords:  len(readings),
		StationsCount: len(s.store.StationIDs()),
		Variables:     make(map[string]types.VariableSummary),
	}
	if len(readings) > 0 {
		minTS, maxTS := readings[0].Timestamp, readings[0].Timestamp
		for _, r := range readings[1:] {
			if r.Timestamp.Before(minTS) {
				minTS = r.Timestamp
			}
			if r.Timestamp.After(maxTS) {
				maxTS = r.Timestamp
			}
		}
		out.DateRange = types.DateRange{
			Start: minTS.Format(time.RFC3339),
			End:   maxTS.Format(time.RFC3339),
		}
	}

	summaryKeys := map[string]string{
		"temperature":       store.VarTemp,
		"humidity":          store.VarHumidity,
		"pressure":          store.VarPressure,
		"air_quality_index": store.VarICA,
		"precipitation":     store.VarPrecipitation,
	}
	for name, variable := range summaryKeys {
		var values []float64
		for _, r := range readings {
			if v := r.Value(variable); v != nil {
				values = append(values, *v)
			}
		}
		vs := types.VariableSummary{Available: len(values)}
		if len(values) > 0 {
			mn := stats.Round2(stats.Min(values))
			mx := stats.Round2(stats.Max(values))
			mean := stats.Round2(stats.Mean(values))
			vs.Min, vs.Max, vs.Mean = &mn, &mx, &mean
		}
		out.Variables[name] = vs
	}
	return out
}
