package store

// Canonical variable keys, matching the source CSV column names.
const (
	VarTemp          = "temp"
	VarHumidity      = "humedad"
	VarPressure      = "presion"
	VarWindSpeed     = "viento_vel"
	VarWindDir       = "viento_dir"
	VarPM1           = "pm_1"
	VarPM25          = "pm_2_5"
	VarPM10          = "pm_10"
	VarICA           = "ica"
	VarPrecipitation = "precipitacion"
)

// Range is the expected valid range for a variable.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// VariableDescriptor is static metadata for one measurement kind. Config data,
// not derived from readings.
type VariableDescriptor struct {
	Key         string
	Description string
	Unit        string
	DataType    string
	ValidRange  Range
	HasImputed  bool
}

// Variables lists every tracked variable in canonical order. Ordering matters:
// it drives the column order of summaries and the default aggregation set.
var Variables = []VariableDescriptor{
	{Key: VarTemp, Description: "Temperatura exterior", Unit: "°C", DataType: "float", ValidRange: Range{-10, 50}, HasImputed: true},
	{Key: VarHumidity, Description: "Humedad relativa", Unit: "%", DataType: "float", ValidRange: Range{0, 100}, HasImputed: true},
	{Key: VarPressure, Description: "Presión atmosférica a nivel del mar", Unit: "hPa", DataType: "float", ValidRange: Range{900, 1100}, HasImputed: true},
	{Key: VarWindSpeed, Description: "Velocidad media del viento", Unit: "km/h", DataType: "float", ValidRange: Range{0, 60}, HasImputed: true},
	{Key: VarWindDir, Description: "Dirección media del viento", Unit: "grados", DataType: "float", ValidRange: Range{0, 360}, HasImputed: true},
	{Key: VarPM1, Description: "Partículas PM1.0", Unit: "µg/m³", DataType: "float", ValidRange: Range{0, 500}},
	{Key: VarPM25, Description: "Partículas PM2.5", Unit: "µg/m³", DataType: "float", ValidRange: Range{0, 500}},
	{Key: VarPM10, Description: "Partículas PM10", Unit: "µg/m³", DataType: "float", ValidRange: Range{0, 500}},
	{Key: VarICA, Description: "Índice de Calidad del Aire (AQI)", Unit: "índice", DataType: "float", ValidRange: Range{0, 500}, HasImputed: true},
	{Key: VarPrecipitation, Description: "Precipitación acumulada", Unit: "mm", DataType: "float", ValidRange: Range{0, 200}, HasImputed: true},
}

// DefaultAverageVariables is the variable set used by the averages endpoints
// when the caller does not specify one.
var DefaultAverageVariables = []string{VarICA, VarHumidity, VarPM1, VarPM25, VarPM10, VarTemp, VarPrecipitation}

// LookupVariable returns the descriptor for a canonical key.
func LookupVariable(key string) (VariableDescriptor, bool) {
	for _, v := range Variables {
		if v.Key == key {
			return v, true
		}
	}
	return VariableDescriptor{}, false
}
