package device

import (
	"strings"
	"time"
)

// Fleet device identifiers. The fleet is fixed; devices are seeded at
// startup and never created or deleted at runtime.
const (
	WaterHeater = "water_heater"
	Lighting    = "lighting"
	Camera      = "camera"
	Aircon      = "aircon"
)

// All returns the fleet device identifiers in seed order.
func All() []string {
	return []string{WaterHeater, Lighting, Camera, Aircon}
}

// IsKnown reports whether id names a fleet device.
func IsKnown(id string) bool {
	switch id {
	case WaterHeater, Lighting, Camera, Aircon:
		return true
	}
	return false
}

// Operating modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Manual override flag values.
const (
	OverrideOn  = "on"
	OverrideOff = "off"
)

// TimeLayout is the timestamp format stored in last_updated and telemetry
// rows. Kept in the dashboard's expected format rather than RFC 3339.
const TimeLayout = "2006-01-02 15:04:05"

// Now returns the current time formatted for storage.
func Now() string {
	return time.Now().Format(TimeLayout)
}

// Record is one row of the device_control table: the authoritative state
// for a single device.
type Record struct {
	ID             int64  `json:"-"`
	Device         string `json:"device"`
	Mode           string `json:"mode"`
	Status         string `json:"status"`
	ManualOverride string `json:"manual_override"`
	LastUpdated    string `json:"last_updated"`
}

// controlActions is the fixed control vocabulary and the status each
// action maps to. Anything else is rejected with ErrInvalidAction.
var controlActions = map[string]string{
	"brighter": "BRIGHTER",
	"dimmer":   "DIMMER",
	"off":      "OFF",
	"on":       "ON",
}

// StatusForAction maps a control action to its stored status value.
//
// Returns:
//   - string: The uppercase status for a known action
//   - bool: false when the action is outside the vocabulary
func StatusForAction(action string) (string, bool) {
	status, ok := controlActions[action]
	return status, ok
}

// IsMode reports whether s is a valid operating mode.
func IsMode(s string) bool {
	return s == ModeAuto || s == ModeManual
}

// IsOverride reports whether s is a valid manual_override value.
func IsOverride(s string) bool {
	return s == OverrideOn || s == OverrideOff
}

// NormalizeStatus uppercases a status for storage, matching the convention
// used by the control vocabulary.
func NormalizeStatus(s string) string {
	return strings.ToUpper(s)
}
