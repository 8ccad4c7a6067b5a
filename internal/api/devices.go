package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/homesync/internal/device"
)

// handleControl applies a control or mode action to a device.
//
// POST /api/device/{device}/{action}
//
// Actions on/off/brighter/dimmer change status (and set manual_override);
// manual/auto change the operating mode. Anything else is rejected.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")
	action := chi.URLParam(r, "action")

	switch action {
	case "manual", "auto":
		if err := s.devices.SetMode(r.Context(), id, action); err != nil {
			s.writeDeviceError(w, id, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": fmt.Sprintf("%s mode set to %s", id, action),
		})

	default:
		status, err := s.devices.Control(r.Context(), id, action)
		if err != nil {
			if errors.Is(err, device.ErrInvalidAction) {
				writeError(w, http.StatusBadRequest, ErrCodeInvalidAction, "invalid action")
				return
			}
			s.writeDeviceError(w, id, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "success",
			"action": status,
		})
	}
}

// saveStateRequest is the body for POST /api/device/{device}/save-state.
type saveStateRequest struct {
	Status string `json:"status"`
	Mode   string `json:"mode"`
}

// handleSaveState stores a dashboard-supplied status and mode snapshot.
func (s *Server) handleSaveState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")

	var req saveStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if req.Status == "" || req.Mode == "" {
		writeError(w, http.StatusBadRequest, ErrCodeMissingField, "missing status or mode")
		return
	}

	if err := s.devices.SaveState(r.Context(), id, req.Status, req.Mode); err != nil {
		s.writeDeviceError(w, id, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("%s state saved successfully", id),
	})
}

// handleDeviceStatus returns a device's mode and status.
//
// Unknown devices get a sentinel body so dashboards can render a default
// view instead of breaking.
func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")

	rec, err := s.devices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"mode":   "unknown",
				"status": "unknown",
			})
			return
		}
		writeInternalError(w, "failed to read device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"mode":   rec.Mode,
		"status": rec.Status,
	})
}

// handleDeviceMode returns a device's manual_override flag under the "mode"
// key. Historical dashboard contract: this endpoint reads the override
// flag, not the operating mode.
func (s *Server) handleDeviceMode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")

	rec, err := s.devices.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("no device found with name %s", id))
			return
		}
		writeInternalError(w, "failed to read device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"mode": rec.ManualOverride})
}

// handleCurrentStatus returns a device's status and manual_mode, with a
// render-friendly sentinel for unknown devices.
func (s *Server) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")

	status, override, err := s.devices.CurrentStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"status":      "N/A",
				"manual_mode": "off",
			})
			return
		}
		writeInternalError(w, "failed to read device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      status,
		"manual_mode": override,
	})
}

// handleManualState returns a device's status and manual_override flag.
func (s *Server) handleManualState(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")

	status, override, err := s.devices.CurrentStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"status":          "unknown",
				"manual_override": "off",
			})
			return
		}
		writeInternalError(w, "failed to read device state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":          status,
		"manual_override": override,
	})
}

// handleAllDeviceStatus returns every device record except aircon, which
// the dashboard renders from telemetry instead.
func (s *Server) handleAllDeviceStatus(w http.ResponseWriter, r *http.Request) {
	records, err := s.devices.List(r.Context())
	if err != nil {
		writeInternalError(w, "failed to list devices")
		return
	}

	response := make([]map[string]string, 0, len(records))
	for _, rec := range records {
		if rec.Device == device.Aircon {
			continue
		}
		response = append(response, map[string]string{
			"device": rec.Device,
			"mode":   rec.Mode,
			"status": rec.Status,
		})
	}

	writeJSON(w, http.StatusOK, response)
}

// toggleModeRequest is the body for POST /api/device/toggle-mode.
type toggleModeRequest struct {
	ManualMode string `json:"manual_mode"`
}

// handleToggleMode sets manual_override for the whole fleet. Any value
// other than "on" switches the override off.
func (s *Server) handleToggleMode(w http.ResponseWriter, r *http.Request) {
	var req toggleModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	override := device.OverrideOff
	if req.ManualMode == "on" {
		override = device.OverrideOn
	}

	if err := s.devices.SetOverrideAll(r.Context(), override); err != nil {
		writeInternalError(w, "failed to toggle mode")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Device mode set to %s", override),
	})
}

// writeDeviceError maps store errors to HTTP responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("device '%s' not found", id))
	case errors.Is(err, device.ErrInvalidMode):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidMode, "invalid mode")
	default:
		s.logger.Error("device operation failed", "device", id, "error", err)
		writeInternalError(w, "device operation failed")
	}
}
