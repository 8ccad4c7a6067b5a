package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kestrelhq/homesync/internal/telemetry"
)

// normalizeType maps URL aliases onto telemetry kind names.
// The dashboard historically used a hyphen for the lighting stream.
func normalizeType(t string) string {
	if t == "light-control" {
		return "light_control"
	}
	return t
}

// handleRealtime returns the newest cached bus message for a telemetry
// topic, or a no-data sentinel when nothing has arrived yet.
//
// GET /api/realtime/{type}
func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	kind, err := telemetry.ParseKind(normalizeType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown telemetry type")
		return
	}

	entry, ok := s.cache.Latest("device/" + string(kind))
	if !ok {
		writeJSON(w, http.StatusOK, map[string]string{
			"timestamp": "",
			"message":   "No data",
		})
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// handleRealtimeDB returns the newest persisted sample for a telemetry kind.
//
// GET /api/realtime-db/{type}
func (s *Server) handleRealtimeDB(w http.ResponseWriter, r *http.Request) {
	kind, err := telemetry.ParseKind(normalizeType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown telemetry type")
		return
	}

	latest, err := s.telemetry.Latest(r.Context(), kind)
	if err != nil {
		if errors.Is(err, telemetry.ErrNoData) {
			writeJSON(w, http.StatusOK, map[string]string{
				"timestamp": "",
				"message":   "No data available",
			})
			return
		}
		writeInternalError(w, "failed to read telemetry")
		return
	}

	writeJSON(w, http.StatusOK, latest)
}

// viewDataKinds maps a device to the telemetry stream its view-data
// endpoint reads. Only these three devices have a dashboard detail view.
var viewDataKinds = map[string]telemetry.Kind{
	"water_heater": telemetry.KindWaterHeater,
	"lighting":     telemetry.KindLightControl,
	"aircon":       telemetry.KindAircon,
}

// handleViewData returns the newest persisted sample for a device's detail
// view, with the per-device body shapes the dashboard renders.
//
// GET /api/device/{device}/view-data
func (s *Server) handleViewData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "device")
	kind, ok := viewDataKinds[id]
	if !ok {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no view data for device")
		return
	}

	latest, err := s.telemetry.Latest(r.Context(), kind)
	if err != nil && !errors.Is(err, telemetry.ErrNoData) {
		writeInternalError(w, "failed to read telemetry")
		return
	}

	switch smp := latest.(type) {
	case telemetry.WaterHeaterSample:
		writeJSON(w, http.StatusOK, map[string]any{
			"temperature": smp.Temperature,
			"status":      smp.Status,
			"timestamp":   smp.Timestamp,
			"message":     "Data fetched successfully",
		})
	case telemetry.LightControlSample:
		writeJSON(w, http.StatusOK, map[string]any{
			"intensity": smp.Intensity,
			"status":    smp.Status,
			"timestamp": smp.Timestamp,
			"message":   "Data fetched successfully",
		})
	case telemetry.AirconSample:
		writeJSON(w, http.StatusOK, smp)
	default:
		writeJSON(w, http.StatusOK, viewDataSentinel(kind))
	}
}

// viewDataSentinel is the render-friendly body for an empty stream.
func viewDataSentinel(kind telemetry.Kind) map[string]any {
	switch kind {
	case telemetry.KindAircon:
		return map[string]any{
			"temperature":          nil,
			"humidity":             nil,
			"cooling_status":       "N/A",
			"dehumidifying_status": "N/A",
			"timestamp":            "",
		}
	case telemetry.KindLightControl:
		return map[string]any{
			"intensity": nil,
			"status":    nil,
			"timestamp": "",
			"message":   "No data available",
		}
	default:
		return map[string]any{
			"temperature": nil,
			"status":      nil,
			"timestamp":   "",
			"message":     "No data available",
		}
	}
}

// handleHistory returns the most recent persisted samples, newest first.
//
// GET /api/history/{type}
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	kind, err := telemetry.ParseKind(normalizeType(chi.URLParam(r, "type")))
	if err != nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "unknown telemetry type")
		return
	}

	history, err := s.telemetry.History(r.Context(), kind, telemetry.DefaultHistoryLimit)
	if err != nil {
		writeInternalError(w, "failed to read telemetry history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
