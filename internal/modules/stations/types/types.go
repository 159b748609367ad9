// Package types holds the JSON shapes served by the stations endpoints. Field
// names stay aligned with the frontend map and chart components.
package types

import "time"

// VariableStats is the per-variable aggregate over one station-day.
type VariableStats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// FormattedAverages is the flattened block the map component consumes.
type FormattedAverages struct {
	Temp          *float64 `json:"temp"`
	Hum           *float64 `json:"hum"`
	PM1p0         *float64 `json:"pm_1p0"`
	PM2p5         *float64 `json:"pm_2p5"`
	PM10p0        *float64 `json:"pm_10p0"`
	ICA           *float64 `json:"ica"`
	Precipitation *float64 `json:"precipitacion"`
	TS            *int64   `json:"ts"`
}

type StationAverages struct {
	StationID   int                       `json:"station_id"`
	StationName string                    `json:"station_name"`
	Lat         float64                   `json:"lat"`
	Lon         float64                   `json:"lon"`
	TipoEquipo  string                    `json:"tipo_equipo"`
	RecordCount int                       `json:"record_count"`
	RawAverages map[string]*VariableStats `json:"raw_averages"`
	Data        FormattedAverages         `json:"data"`
}

type DailyAverages struct {
	Date             string            `json:"date"`
	TotalStations    int               `json:"total_stations"`
	StationsWithData int               `json:"stations_with_data"`
	Variables        []string          `json:"variables,omitempty"`
	Stations         []StationAverages `json:"stations"`
}

// SingleStationAverages is the per-station convenience shape. Message is set
// only when the station has no rows on the requested date.
type SingleStationAverages struct {
	StationID         int                       `json:"station_id"`
	Date              string                    `json:"date"`
	Message           string                    `json:"message,omitempty"`
	RecordCount       int                       `json:"record_count"`
	RawAverages       map[string]*VariableStats `json:"raw_averages,omitempty"`
	FormattedAverages *FormattedAverages        `json:"formatted_averages,omitempty"`
	Data              *FormattedAverages        `json:"data"`
}

type StationSummary struct {
	StationID   int     `json:"station_id"`
	StationName string  `json:"station_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	TipoEquipo  string  `json:"tipo_equipo"`
}

type StationsSummary struct {
	TotalStations int              `json:"total_stations"`
	Stations      []StationSummary `json:"stations"`
}

// Measurement is one chart sample; Timestamp is epoch milliseconds.
type Measurement struct {
	Timestamp     int64    `json:"timestamp"`
	PM1           *float64 `json:"pm_1"`
	PM25          *float64 `json:"pm_2_5"`
	PM10          *float64 `json:"pm_10"`
	Humidity      *float64 `json:"humedad"`
	ICA           *float64 `json:"ica"`
	Temperature   *float64 `json:"temperatura"`
	Pressure      *float64 `json:"presion"`
	WindSpeed     *float64 `json:"vel_viento"`
	WindDir       *float64 `json:"dir_viento"`
	Precipitation *float64 `json:"precipitacion"`
}

type DetailedPayload struct {
	StationID         int           `json:"station_id"`
	StationName       string        `json:"station_name,omitempty"`
	Date              string        `json:"date"`
	TotalMeasurements int           `json:"total_measurements"`
	Measurements      []Measurement `json:"measurements"`
}

type DetailedData struct {
	Success bool            `json:"success"`
	Data    DetailedPayload `json:"data"`
}

type MapDataPoint struct {
	StationID     int       `json:"station_id"`
	StationName   string    `json:"station_name"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`
	Timestamp     time.Time `json:"timestamp"`
	Temp          *float64  `json:"temp"`
	Humidity      *float64  `json:"humedad"`
	Pressure      *float64  `json:"presion"`
	PM25          *float64  `json:"pm_2_5"`
	ICA           *float64  `json:"ica"`
	Precipitation *float64  `json:"precipitacion"`
}

type TimeSeriesQuery struct {
	StationIDs []int      `json:"station_ids,omitempty"`
	StartDate  *time.Time `json:"start_date,omitempty"`
	EndDate    *time.Time `json:"end_date,omitempty"`
	Variables  []string   `json:"variables"`
}

type TimeSeriesRecord struct {
	Timestamp   time.Time           `json:"timestamp"`
	StationID   int                 `json:"station_id"`
	StationName string              `json:"station_name"`
	Values      map[string]*float64 `json:"values"`
}

type TimeSeriesResult struct {
	Data         []TimeSeriesRecord `json:"data"`
	Variables    []string           `json:"variables"`
	TotalRecords int                `json:"total_records"`
}

type AnimationQuery struct {
	Variable     string     `json:"variable"`
	TimeInterval string     `json:"time_interval"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

type AnimationPoint struct {
	StationID   int      `json:"station_id"`
	StationName string   `json:"station_name"`
	Lat         float64  `json:"lat"`
	Lon         float64  `json:"lon"`
	Value       *float64 `json:"value"`
}

type AnimationResult struct {
	Variable     string                      `json:"variable"`
	TimeInterval string                      `json:"time_interval"`
	Frames       map[string][]AnimationPoint `json:"frames"`
	Timestamps   []string                    `json:"timestamps"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type VariableSummary struct {
	Available int      `json:"available"`
	Min       *float64 `json:"min"`
	Max       *float64 `json:"max"`
	Mean      *float64 `json:"mean"`
}

type DataSummary struct {
	TotalRecords  int                        `json:"total_records"`
	StationsCount int                        `json:"stations_count"`
	DateRange     DateRange                  `json:"date_range"`
	Variables     map[string]VariableSummary `json:"variables"`
}
