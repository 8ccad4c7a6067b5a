package telemetry

import (
	"errors"
	"fmt"
)

// Kind identifies a telemetry stream and its backing table.
type Kind string

// Telemetry kinds. Each maps to a {kind}_data table.
const (
	KindTemperature  Kind = "temperature"
	KindWaterHeater  Kind = "water_heater"
	KindLightControl Kind = "light_control"
	KindFPS          Kind = "fps"
	KindCamera       Kind = "surveillance_camera"
	KindAircon       Kind = "aircon"
)

// Kinds returns all telemetry kinds.
func Kinds() []Kind {
	return []Kind{KindTemperature, KindWaterHeater, KindLightControl, KindFPS, KindCamera, KindAircon}
}

// Errors returned by the store.
var (
	// ErrUnknownKind is returned for a kind with no backing table.
	ErrUnknownKind = errors.New("telemetry: unknown kind")

	// ErrNoData is returned by Latest when a table has no rows yet.
	ErrNoData = errors.New("telemetry: no data")
)

// ParseKind validates a kind string from a URL path or topic suffix.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindTemperature, KindWaterHeater, KindLightControl, KindFPS, KindCamera, KindAircon:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// DefaultHistoryLimit bounds history queries. Requests never receive more
// rows than this, whatever limit they ask for.
const DefaultHistoryLimit = 100

// TemperatureSample is one ambient temperature reading.
type TemperatureSample struct {
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"temperature"`
}

// WaterHeaterSample is one water heater reading.
type WaterHeaterSample struct {
	Timestamp   string  `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Status      string  `json:"status"`
}

// LightControlSample is one lighting intensity reading.
type LightControlSample struct {
	Timestamp string  `json:"timestamp"`
	Intensity float64 `json:"intensity"`
	Status    string  `json:"status"`
}

// FPSSample is one video pipeline frame rate reading.
type FPSSample struct {
	Timestamp string  `json:"timestamp"`
	FPS       float64 `json:"fps"`
}

// CameraSample is one surveillance camera activity reading.
type CameraSample struct {
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// AirconSample is one air conditioner reading.
type AirconSample struct {
	Timestamp           string  `json:"timestamp"`
	Temperature         float64 `json:"temperature"`
	Humidity            float64 `json:"humidity"`
	CoolingStatus       string  `json:"cooling_status"`
	DehumidifyingStatus string  `json:"dehumidifying_status"`
}
