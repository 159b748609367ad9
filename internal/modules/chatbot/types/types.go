// Package types holds the JSON shapes served by the chatbot endpoints.
package types

// SystemInfo describes the dataset behind the assistant.
type SystemInfo struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Version      string `json:"version"`
	TotalRecords int    `json:"total_records"`
	LastUpdated  string `json:"last_updated"`
	DataSource   string `json:"data_source"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// VariableStats is the descriptive profile of one variable at one station.
type VariableStats struct {
	Count             int     `json:"count"`
	Mean              float64 `json:"mean"`
	Median            float64 `json:"median"`
	Std               float64 `json:"std"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	Percentile25      float64 `json:"percentile_25"`
	Percentile75      float64 `json:"percentile_75"`
	MissingCount      int     `json:"missing_count"`
	MissingPercentage float64 `json:"missing_percentage"`
}

type ImputedInfo struct {
	ImputedCount      int     `json:"imputed_count"`
	ImputedPercentage float64 `json:"imputed_percentage"`
}

type DataQuality struct {
	TotalRecords int                    `json:"total_records"`
	ImputedData  map[string]ImputedInfo `json:"imputed_data"`
}

// LatestMeasurements carries the most recent non-absent values of a station.
type LatestMeasurements struct {
	Timestamp    string             `json:"timestamp"`
	Measurements map[string]float64 `json:"measurements"`
}

type StationSummary struct {
	StationID          int                       `json:"station_id"`
	StationName        string                    `json:"station_name"`
	TipoEquipo         string                    `json:"tipo_equipo"`
	Location           Location                  `json:"location"`
	TotalRecords       int                       `json:"total_records"`
	DateRange          DateRange                 `json:"date_range"`
	VariableStats      map[string]*VariableStats `json:"variable_stats"`
	DataQuality        DataQuality               `json:"data_quality"`
	LatestMeasurements LatestMeasurements        `json:"latest_measurements"`
}

type ValidRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type QualityIndicators struct {
	TotalRecords      int     `json:"total_records"`
	MissingRecords    int     `json:"missing_records"`
	MissingPercentage float64 `json:"missing_percentage"`
	HasImputedFlag    bool    `json:"has_imputed_flag"`
}

type VariableInfo struct {
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Unit              string            `json:"unit"`
	DataType          string            `json:"data_type"`
	ValidRange        *ValidRange       `json:"valid_range,omitempty"`
	StationsWithData  int               `json:"stations_with_data"`
	TotalMeasurements int               `json:"total_measurements"`
	QualityIndicators QualityIndicators `json:"quality_indicators"`
}

type GlobalDateRange struct {
	Start       string `json:"start"`
	End         string `json:"end"`
	DaysCovered int    `json:"days_covered"`
}

type GlobalStats struct {
	TotalStations    int                `json:"total_stations"`
	TotalRecords     int                `json:"total_records"`
	EquipmentTypes   map[string]int     `json:"equipment_types"`
	DateRange        GlobalDateRange    `json:"date_range"`
	DataCompleteness map[string]float64 `json:"data_completeness"`
}

type MeasurementsPerDay struct {
	Mean float64 `json:"mean"`
	Min  int     `json:"min"`
	Max  int     `json:"max"`
}

type TemporalCoverage struct {
	TotalDays          int                `json:"total_days"`
	MeasurementsPerDay MeasurementsPerDay `json:"measurements_per_day"`
	HourlyDistribution map[int]int        `json:"hourly_distribution"`
}

type BoundingBox struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

type GeographicCoverage struct {
	BoundingBox   BoundingBox `json:"bounding_box"`
	CenterPoint   Location    `json:"center_point"`
	TotalStations int         `json:"total_stations"`
}

// CompleteData is the full structured dump consumed by RAG-style clients.
type CompleteData struct {
	SystemInfo         SystemInfo         `json:"system_info"`
	Stations           []StationSummary   `json:"stations"`
	Variables          []VariableInfo     `json:"variables"`
	GlobalStats        GlobalStats        `json:"global_stats"`
	TemporalCoverage   TemporalCoverage   `json:"temporal_coverage"`
	GeographicCoverage GeographicCoverage `json:"geographic_coverage"`
	ContextInfo        map[string]string  `json:"context_info"`
}

// ChatQuery filters the dataset for a data-oriented chatbot consumer.
type ChatQuery struct {
	Stations       []int             `json:"stations,omitempty"`
	Variables      []string          `json:"variables,omitempty"`
	DateRange      map[string]string `json:"date_range,omitempty"`
	IncludeRawData bool              `json:"include_raw_data,omitempty"`
	MaxRecords     int               `json:"max_records,omitempty"`
}

type FilteredData struct {
	TotalRecords  int              `json:"total_records"`
	StationsCount int              `json:"stations_count"`
	DateRange     DateRange        `json:"date_range"`
	Data          []map[string]any `json:"data,omitempty"`
}

// ChatMessage is one inbound conversational turn.
type ChatMessage struct {
	Message string `json:"message"`
	UserID  string `json:"userId,omitempty"`
}

type ChatResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}
