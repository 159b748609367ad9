package store

import "time"

// Equipment types observed in the dataset. A station can appear under more
// than one type; Priority defines the canonical one when deduplicating.
const (
	EquipmentVueAir = "VUE+AIR"
	EquipmentPro    = "PRO"
	EquipmentAir    = "AIR"
)

// EquipmentPriority ranks equipment types for station deduplication.
// Lower is better: VUE+AIR beats PRO beats AIR beats anything else.
func EquipmentPriority(equipment string) int {
	switch equipment {
	case EquipmentVueAir:
		return 1
	case EquipmentPro:
		return 2
	case EquipmentAir:
		return 3
	default:
		return 999
	}
}

// Reading is one timestamped measurement row for one station. Measurements are
// pointers: nil means the value was absent in the source ("NA", empty or NaN).
// Imputed flags default to false when the source value is absent or unparsable.
type Reading struct {
	Timestamp     time.Time `json:"timestamp"`
	StationID     int       `json:"station_id"`
	StationName   string    `json:"station_name"`
	EquipmentType string    `json:"tipo_equipo"`
	Lat           float64   `json:"lat"`
	Lon           float64   `json:"lon"`

	Temp          *float64 `json:"temp"`
	Humidity      *float64 `json:"humedad"`
	Pressure      *float64 `json:"presion"`
	WindSpeed     *float64 `json:"viento_vel"`
	WindDir       *float64 `json:"viento_dir"`
	PM1           *float64 `json:"pm_1"`
	PM25          *float64 `json:"pm_2_5"`
	PM10          *float64 `json:"pm_10"`
	ICA           *float64 `json:"ica"`
	Precipitation *float64 `json:"precipitacion"`

	TempImputed          bool `json:"temp_imputed"`
	HumidityImputed      bool `json:"humedad_imputed"`
	PressureImputed      bool `json:"presion_imputed"`
	WindSpeedImputed     bool `json:"viento_vel_imputed"`
	WindDirImputed       bool `json:"viento_dir_imputed"`
	ICAImputed           bool `json:"ica_imputed"`
	PrecipitationImputed bool `json:"precipitacion_imputed"`
}

// Value returns the measurement for a canonical variable key, nil when absent
// or when the key is unknown.
func (r *Reading) Value(variable string) *float64 {
	switch variable {
	case VarTemp:
		return r.Temp
	case VarHumidity:
		return r.Humidity
	case VarPressure:
		return r.Pressure
	case VarWindSpeed:
		return r.WindSpeed
	case VarWindDir:
		return r.WindDir
	case VarPM1:
		return r.PM1
	case VarPM25:
		return r.PM25
	case VarPM10:
		return r.PM10
	case VarICA:
		return r.ICA
	case VarPrecipitation:
		return r.Precipitation
	default:
		return nil
	}
}

// Imputed reports whether the value for the given variable was statistically
// filled in rather than directly sensed. Variables without an imputation flag
// in the source (the PM fractions) always report false.
func (r *Reading) Imputed(variable string) bool {
	switch variable {
	case VarTemp:
		return r.TempImputed
	case VarHumidity:
		return r.HumidityImputed
	case VarPressure:
		return r.PressureImputed
	case VarWindSpeed:
		return r.WindSpeedImputed
	case VarWindDir:
		return r.WindDirImputed
	case VarICA:
		return r.ICAImputed
	case VarPrecipitation:
		return r.PrecipitationImputed
	default:
		return false
	}
}

// StationInfo is one unique station row as it appears in the source data.
// The same station id may occur under several equipment types.
type StationInfo struct {
	StationID     int     `json:"station_id"`
	StationName   string  `json:"station_name"`
	EquipmentType string  `json:"tipo_equipo"`
	Lat           float64 `json:"lat"`
	Lon           float64 `json:"lon"`
}
