package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelhq/homesync/internal/device"
	"github.com/kestrelhq/homesync/internal/infrastructure/config"
	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
	"github.com/kestrelhq/homesync/internal/router"
	"github.com/kestrelhq/homesync/internal/telemetry"
)

// testEnv bundles the API handler with the stores behind it.
type testEnv struct {
	handler   http.Handler
	devices   *device.Store
	telemetry *telemetry.Store
	cache     *router.Cache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	schema := []string{
		`CREATE TABLE device_control (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device TEXT NOT NULL UNIQUE,
			mode TEXT NOT NULL DEFAULT 'auto',
			status TEXT NOT NULL DEFAULT 'off',
			manual_override TEXT NOT NULL DEFAULT 'off',
			last_updated TEXT NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%S', 'now'))
		)`,
		`CREATE TABLE temperature_data (id INTEGER PRIMARY KEY AUTOINCREMENT, value REAL NOT NULL, timestamp TEXT NOT NULL)`,
		`CREATE TABLE water_heater_data (id INTEGER PRIMARY KEY AUTOINCREMENT, temperature REAL NOT NULL, status TEXT NOT NULL, timestamp TEXT NOT NULL)`,
		`CREATE TABLE light_control_data (id INTEGER PRIMARY KEY AUTOINCREMENT, intensity REAL NOT NULL, status TEXT NOT NULL, timestamp TEXT NOT NULL)`,
		`CREATE TABLE fps_data (id INTEGER PRIMARY KEY AUTOINCREMENT, fps REAL NOT NULL, timestamp TEXT NOT NULL)`,
		`CREATE TABLE surveillance_camera_data (id INTEGER PRIMARY KEY AUTOINCREMENT, status TEXT NOT NULL, timestamp TEXT NOT NULL)`,
		`CREATE TABLE aircon_data (id INTEGER PRIMARY KEY AUTOINCREMENT, temperature REAL NOT NULL, humidity REAL NOT NULL, cooling_status TEXT, dehumidifying_status TEXT, timestamp TEXT NOT NULL)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}

	repo := device.NewSQLiteRepository(db)
	if err := repo.Seed(context.Background()); err != nil {
		t.Fatalf("seeding fleet: %v", err)
	}

	devices := device.NewStore(device.StoreDeps{Repo: repo})
	samples := telemetry.NewStore(db, nil)
	cache := router.NewCache(100)

	srv, err := New(Deps{
		Config:    config.Default().API,
		Logger:    logging.Default(),
		Devices:   devices,
		Telemetry: samples,
		Cache:     cache,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	return &testEnv{
		handler:   srv.buildRouter(),
		devices:   devices,
		telemetry: samples,
		cache:     cache,
	}
}

// do runs a request against the handler and decodes the JSON response.
func (e *testEnv) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code, decoded
}

func TestControl_WaterHeaterOnThenCurrentStatus(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/device/water_heater/on", "")
	if code != http.StatusOK {
		t.Fatalf("POST on: status = %d, body = %v", code, body)
	}
	if body["status"] != "success" || body["action"] != "ON" {
		t.Errorf("response = %v, want success/ON", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/device/water_heater/current-status", "")
	if code != http.StatusOK {
		t.Fatalf("GET current-status: status = %d", code)
	}
	if body["status"] != "ON" {
		t.Errorf("status = %v, want ON", body["status"])
	}
	if body["manual_mode"] != "on" {
		t.Errorf("manual_mode = %v, want on (control sets the override)", body["manual_mode"])
	}
}

func TestControl_InvalidAction(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/device/lighting/blink", "")
	if code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", code)
	}
	if body["code"] != ErrCodeInvalidAction {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeInvalidAction)
	}
}

func TestControl_UnknownDevice(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/device/toaster/on", "")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if body["code"] != ErrCodeNotFound {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeNotFound)
	}
}

func TestControl_ModeActions(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/device/camera/manual", "")
	if code != http.StatusOK {
		t.Fatalf("POST manual: status = %d", code)
	}

	code, body := env.do(t, http.MethodGet, "/api/device/camera/status", "")
	if code != http.StatusOK {
		t.Fatalf("GET status: status = %d", code)
	}
	if body["mode"] != "manual" {
		t.Errorf("mode = %v, want manual", body["mode"])
	}

	code, _ = env.do(t, http.MethodPost, "/api/device/camera/auto", "")
	if code != http.StatusOK {
		t.Fatalf("POST auto: status = %d", code)
	}
	_, body = env.do(t, http.MethodGet, "/api/device/camera/status", "")
	if body["mode"] != "auto" {
		t.Errorf("mode = %v, want auto", body["mode"])
	}
}

func TestSaveState(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/api/device/lighting/save-state", `{"status":"dimmer"}`)
	if code != http.StatusBadRequest {
		t.Fatalf("missing mode: status = %d", code)
	}
	if body["code"] != ErrCodeMissingField {
		t.Errorf("code = %v, want %s", body["code"], ErrCodeMissingField)
	}

	code, _ = env.do(t, http.MethodPost, "/api/device/lighting/save-state", `{"status":"dimmer","mode":"manual"}`)
	if code != http.StatusOK {
		t.Fatalf("save-state: status = %d", code)
	}

	_, body = env.do(t, http.MethodGet, "/api/device/lighting/manual-state", "")
	if body["status"] != "DIMMER" {
		t.Errorf("status = %v, want uppercased DIMMER", body["status"])
	}
	if body["manual_override"] != "manual" {
		t.Errorf("manual_override = %v, want manual", body["manual_override"])
	}

	code, _ = env.do(t, http.MethodPost, "/api/device/toaster/save-state", `{"status":"on","mode":"auto"}`)
	if code != http.StatusNotFound {
		t.Errorf("unknown device: status = %d, want 404", code)
	}
}

func TestDeviceStatus_UnknownDeviceSentinel(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/device/toaster/status", "")
	if code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", code)
	}
	if body["mode"] != "unknown" || body["status"] != "unknown" {
		t.Errorf("body = %v, want unknown/unknown sentinel", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/device/toaster/current-status", "")
	if code != http.StatusNotFound {
		t.Fatalf("current-status: status = %d, want 404", code)
	}
	if body["status"] != "N/A" || body["manual_mode"] != "off" {
		t.Errorf("body = %v, want N/A sentinel", body)
	}

	code, body = env.do(t, http.MethodGet, "/api/device/toaster/manual-state", "")
	if code != http.StatusNotFound {
		t.Fatalf("manual-state: status = %d, want 404", code)
	}
	if body["status"] != "unknown" || body["manual_override"] != "off" {
		t.Errorf("body = %v, want unknown sentinel", body)
	}
}

func TestAllDeviceStatus_ExcludesAircon(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/device/status", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var records []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (aircon excluded)", len(records))
	}
	for _, rec := range records {
		if rec["device"] == device.Aircon {
			t.Error("aircon present in fleet status response")
		}
	}
}

func TestToggleMode_Fleet(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPost, "/api/device/toggle-mode", `{"manual_mode":"on"}`)
	if code != http.StatusOK {
		t.Fatalf("toggle on: status = %d", code)
	}

	records, err := env.devices.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	for _, rec := range records {
		if rec.ManualOverride != device.OverrideOn {
			t.Errorf("device %s override = %q, want on", rec.Device, rec.ManualOverride)
		}
	}

	code, _ = env.do(t, http.MethodPost, "/api/device/toggle-mode", `{"manual_mode":"off"}`)
	if code != http.StatusOK {
		t.Fatalf("toggle off: status = %d", code)
	}
	records, _ = env.devices.List(context.Background())
	for _, rec := range records {
		if rec.ManualOverride != device.OverrideOff {
			t.Errorf("device %s override = %q, want off", rec.Device, rec.ManualOverride)
		}
	}
}

func TestRealtime(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/realtime/fps", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["message"] != "No data" {
		t.Errorf("body = %v, want no-data sentinel", body)
	}

	env.cache.Append("device/fps", router.Entry{"fps": 42.5, "timestamp": "2026-09-01 10:00:00"})

	_, body = env.do(t, http.MethodGet, "/api/realtime/fps", "")
	if body["fps"] != 42.5 {
		t.Errorf("fps = %v, want 42.5", body["fps"])
	}

	// The hyphenated dashboard alias maps onto light_control.
	env.cache.Append("device/light_control", router.Entry{"intensity": 350.0, "status": "off"})
	_, body = env.do(t, http.MethodGet, "/api/realtime/light-control", "")
	if body["intensity"] != 350.0 {
		t.Errorf("intensity = %v, want 350", body["intensity"])
	}

	code, _ = env.do(t, http.MethodGet, "/api/realtime/toaster", "")
	if code != http.StatusNotFound {
		t.Errorf("unknown type: status = %d, want 404", code)
	}
}

func TestHistory_LimitAndOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		ts := fmt.Sprintf("2026-09-01 10:00:%02d", i%60)
		if err := env.telemetry.AppendFPS(ctx, float64(i), ts); err != nil {
			t.Fatalf("AppendFPS() error = %v", err)
		}
	}

	code, body := env.do(t, http.MethodGet, "/api/history/fps", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}

	history, ok := body["history"].([]any)
	if !ok {
		t.Fatalf("history missing from response: %v", body)
	}
	if len(history) != telemetry.DefaultHistoryLimit {
		t.Fatalf("history length = %d, want %d", len(history), telemetry.DefaultHistoryLimit)
	}

	first := history[0].(map[string]any)
	if first["fps"] != 149.0 {
		t.Errorf("first entry fps = %v, want 149 (newest first)", first["fps"])
	}
}

func TestRealtimeDB(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, body := env.do(t, http.MethodGet, "/api/realtime-db/aircon", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["message"] != "No data available" {
		t.Errorf("body = %v, want no-data sentinel", body)
	}

	if err := env.telemetry.AppendAircon(ctx, 29.5, 70.0, "ON", "ON", "2026-09-01 10:00:00"); err != nil {
		t.Fatalf("AppendAircon() error = %v", err)
	}

	_, body = env.do(t, http.MethodGet, "/api/realtime-db/aircon", "")
	if body["temperature"] != 29.5 {
		t.Errorf("temperature = %v, want 29.5", body["temperature"])
	}
	if body["cooling_status"] != "ON" {
		t.Errorf("cooling_status = %v, want ON", body["cooling_status"])
	}
}

func TestViewData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	code, body := env.do(t, http.MethodGet, "/api/device/water_heater/view-data", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["message"] != "No data available" {
		t.Errorf("body = %v, want no-data sentinel", body)
	}
	if body["temperature"] != nil {
		t.Errorf("temperature = %v, want null before any sample", body["temperature"])
	}

	if err := env.telemetry.AppendWaterHeater(ctx, 48.2, "running", "2026-09-01 10:00:00"); err != nil {
		t.Fatalf("AppendWaterHeater() error = %v", err)
	}

	_, body = env.do(t, http.MethodGet, "/api/device/water_heater/view-data", "")
	if body["temperature"] != 48.2 || body["status"] != "running" {
		t.Errorf("body = %v, want latest water heater sample", body)
	}
	if body["message"] != "Data fetched successfully" {
		t.Errorf("message = %v", body["message"])
	}

	// The aircon view has no message field and reports N/A while empty.
	_, body = env.do(t, http.MethodGet, "/api/device/aircon/view-data", "")
	if body["cooling_status"] != "N/A" {
		t.Errorf("cooling_status = %v, want N/A sentinel", body["cooling_status"])
	}

	if err := env.telemetry.AppendAircon(ctx, 30.1, 72.0, "ON", "ON", "2026-09-01 10:00:00"); err != nil {
		t.Fatalf("AppendAircon() error = %v", err)
	}
	_, body = env.do(t, http.MethodGet, "/api/device/aircon/view-data", "")
	if body["humidity"] != 72.0 {
		t.Errorf("humidity = %v, want 72", body["humidity"])
	}
	if _, present := body["message"]; present {
		t.Error("aircon view data carries a message field")
	}

	code, _ = env.do(t, http.MethodGet, "/api/device/camera/view-data", "")
	if code != http.StatusNotFound {
		t.Errorf("camera view-data status = %d, want 404", code)
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/api/health", "")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body["status"] != "healthy" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
}
