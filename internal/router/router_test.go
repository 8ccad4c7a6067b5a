package router

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/kestrelhq/homesync/internal/device"
	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
	"github.com/kestrelhq/homesync/internal/telemetry"
)

func newTestRouter(t *testing.T) (*Router, *device.Store, *telemetry.Store, *Cache) {
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
	cache := NewCache(100)

	r := New(Deps{
		Devices:   devices,
		Telemetry: samples,
		Cache:     cache,
	})
	return r, devices, samples, cache
}

func TestHandleMessage_MalformedThenWellFormed(t *testing.T) {
	r, devices, _, cache := newTestRouter(t)
	ctx := context.Background()

	if err := r.HandleMessage("device/water_heater", []byte(`{not json`)); err == nil {
		t.Error("HandleMessage() = nil for malformed payload, want error")
	}
	if _, ok := cache.Latest("device/water_heater"); ok {
		t.Error("malformed payload was cached")
	}

	status, _, err := devices.CurrentStatus(ctx, device.WaterHeater)
	if err != nil {
		t.Fatalf("CurrentStatus() error = %v", err)
	}
	if status != "off" {
		t.Errorf("status = %q after malformed payload, want unchanged %q", status, "off")
	}

	// The next well-formed message processes normally.
	if err := r.HandleMessage("device/water_heater", []byte(`{"command":"ON"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	status, _, err = devices.CurrentStatus(ctx, device.WaterHeater)
	if err != nil {
		t.Fatalf("CurrentStatus() error = %v", err)
	}
	if status != "on" {
		t.Errorf("status = %q, want %q", status, "on")
	}
	if _, ok := cache.Latest("device/water_heater"); !ok {
		t.Error("well-formed payload not cached")
	}
}

// countingHandler counts emitted log records.
type countingHandler struct {
	records atomic.Int64
}

func (h *countingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *countingHandler) Handle(context.Context, slog.Record) error {
	h.records.Add(1)
	return nil
}
func (h *countingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *countingHandler) WithGroup(string) slog.Handler      { return h }

func TestHandleMessage_MalformedLoggedByCallerOnly(t *testing.T) {
	counter := &countingHandler{}
	r, _, _, _ := newTestRouter(t)
	r.logger = &logging.Logger{Logger: slog.New(counter)}

	if err := r.HandleMessage("device/water_heater", []byte(`{not json`)); err == nil {
		t.Fatal("HandleMessage() = nil for malformed payload, want error")
	}

	// The error return is the signal; the subscribing client logs it once.
	if got := counter.records.Load(); got != 0 {
		t.Errorf("router emitted %d log records for malformed payload, want 0", got)
	}
}

func TestHandleMessage_LightingCommands(t *testing.T) {
	tests := []struct {
		command    string
		wantStatus string
	}{
		{"BRIGHTER", "on"},
		{"DIMMER", "on"},
		{"OFF", "off"},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			r, devices, _, _ := newTestRouter(t)

			payload := []byte(`{"command":"` + tt.command + `"}`)
			if err := r.HandleMessage("device/lighting", payload); err != nil {
				t.Fatalf("HandleMessage() error = %v", err)
			}

			status, _, err := devices.CurrentStatus(context.Background(), device.Lighting)
			if err != nil {
				t.Fatalf("CurrentStatus() error = %v", err)
			}
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
		})
	}
}

func TestHandleMessage_UnknownCommandIgnored(t *testing.T) {
	r, devices, _, _ := newTestRouter(t)

	if err := r.HandleMessage("device/camera", []byte(`{"command":"SPIN"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	status, _, err := devices.CurrentStatus(context.Background(), device.Camera)
	if err != nil {
		t.Fatalf("CurrentStatus() error = %v", err)
	}
	if status != "off" {
		t.Errorf("status = %q, want unchanged %q", status, "off")
	}
}

func TestHandleMessage_StampsTimestamp(t *testing.T) {
	r, _, _, cache := newTestRouter(t)

	if err := r.HandleMessage("device/temperature", []byte(`{"temperature":23.4}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	entry, ok := cache.Latest("device/temperature")
	if !ok {
		t.Fatal("entry not cached")
	}
	ts, ok := entry["timestamp"].(string)
	if !ok || ts == "" {
		t.Errorf("timestamp = %v, want stamped string", entry["timestamp"])
	}
}

func TestHandleMessage_PreservesProducerTimestamp(t *testing.T) {
	r, _, _, cache := newTestRouter(t)

	payload := []byte(`{"temperature":23.4,"timestamp":"2026-09-01 10:00:00"}`)
	if err := r.HandleMessage("device/temperature", payload); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	entry, _ := cache.Latest("device/temperature")
	if entry["timestamp"] != "2026-09-01 10:00:00" {
		t.Errorf("timestamp = %v, want producer's value", entry["timestamp"])
	}
}

func TestHandleMessage_FPSPersisted(t *testing.T) {
	r, _, samples, _ := newTestRouter(t)

	if err := r.HandleMessage("device/fps", []byte(`{"fps":42.5,"timestamp":"2026-09-01 10:00:00"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	latest, err := samples.Latest(context.Background(), telemetry.KindFPS)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	smp := latest.(telemetry.FPSSample)
	if smp.FPS != 42.5 {
		t.Errorf("fps = %v, want 42.5", smp.FPS)
	}
}

func TestHandleMessage_CameraPersisted(t *testing.T) {
	r, _, samples, _ := newTestRouter(t)

	if err := r.HandleMessage("device/surveillance_camera", []byte(`{"status":"recording"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	latest, err := samples.Latest(context.Background(), telemetry.KindCamera)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if latest.(telemetry.CameraSample).Status != "recording" {
		t.Errorf("status = %v, want recording", latest)
	}
}

func TestHandleMessage_AirconRequiresBothReadings(t *testing.T) {
	r, _, samples, cache := newTestRouter(t)
	ctx := context.Background()

	// Humidity missing: cached for realtime reads but not persisted.
	if err := r.HandleMessage("device/aircon", []byte(`{"temperature":29.5}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if _, err := samples.Latest(ctx, telemetry.KindAircon); !errors.Is(err, telemetry.ErrNoData) {
		t.Errorf("Latest() error = %v, want ErrNoData for partial sample", err)
	}
	if _, ok := cache.Latest("device/aircon"); !ok {
		t.Error("partial aircon sample not cached")
	}

	// Complete sample persists.
	payload := []byte(`{"temperature":29.5,"humidity":70.0,"cooling_status":"ON","dehumidifying_status":"ON"}`)
	if err := r.HandleMessage("device/aircon", payload); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	latest, err := samples.Latest(ctx, telemetry.KindAircon)
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	smp := latest.(telemetry.AirconSample)
	if smp.Temperature != 29.5 || smp.Humidity != 70.0 {
		t.Errorf("sample = %+v, want the published readings", smp)
	}
}

func TestHandleMessage_CacheOnlyTopics(t *testing.T) {
	r, _, samples, cache := newTestRouter(t)
	ctx := context.Background()

	if err := r.HandleMessage("device/light_control", []byte(`{"intensity":350.0,"status":"off"}`)); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	if _, ok := cache.Latest("device/light_control"); !ok {
		t.Error("light_control entry not cached")
	}
	// The producer persists its own samples; receipt must not double-write.
	if _, err := samples.Latest(ctx, telemetry.KindLightControl); !errors.Is(err, telemetry.ErrNoData) {
		t.Errorf("Latest() error = %v, want ErrNoData", err)
	}
}
