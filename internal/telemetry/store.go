package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kestrelhq/homesync/internal/device"
)

// Mirror receives a copy of every appended sample. Satisfied by the
// influxdb client; nil disables mirroring.
type Mirror interface {
	WriteSampleWithTime(kind string, device string, fields map[string]interface{}, ts time.Time)
}

// Store persists telemetry samples to their per-kind SQLite tables.
//
// Appends are independent single-row inserts, safe under concurrent
// writers. History reads return newest-first by insertion id.
type Store struct {
	db     *sql.DB
	mirror Mirror
}

// NewStore creates a telemetry store. mirror may be nil.
func NewStore(db *sql.DB, mirror Mirror) *Store {
	return &Store{db: db, mirror: mirror}
}

// AppendTemperature stores one ambient temperature sample.
func (s *Store) AppendTemperature(ctx context.Context, value float64, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO temperature_data (value, timestamp) VALUES (?, ?)`, value, ts)
	if err != nil {
		return fmt.Errorf("appending temperature sample: %w", err)
	}
	s.mirrorSample(KindTemperature, map[string]interface{}{"value": value}, ts)
	return nil
}

// AppendWaterHeater stores one water heater sample.
func (s *Store) AppendWaterHeater(ctx context.Context, temperature float64, status, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO water_heater_data (temperature, status, timestamp) VALUES (?, ?, ?)`,
		temperature, status, ts)
	if err != nil {
		return fmt.Errorf("appending water heater sample: %w", err)
	}
	s.mirrorSample(KindWaterHeater, map[string]interface{}{"temperature": temperature, "status": status}, ts)
	return nil
}

// AppendLightControl stores one lighting intensity sample.
func (s *Store) AppendLightControl(ctx context.Context, intensity float64, status, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO light_control_data (intensity, status, timestamp) VALUES (?, ?, ?)`,
		intensity, status, ts)
	if err != nil {
		return fmt.Errorf("appending light control sample: %w", err)
	}
	s.mirrorSample(KindLightControl, map[string]interface{}{"intensity": intensity, "status": status}, ts)
	return nil
}

// AppendFPS stores one frame rate sample.
func (s *Store) AppendFPS(ctx context.Context, fps float64, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO fps_data (fps, timestamp) VALUES (?, ?)`, fps, ts)
	if err != nil {
		return fmt.Errorf("appending fps sample: %w", err)
	}
	s.mirrorSample(KindFPS, map[string]interface{}{"fps": fps}, ts)
	return nil
}

// AppendCamera stores one surveillance camera activity sample.
func (s *Store) AppendCamera(ctx context.Context, status, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO surveillance_camera_data (status, timestamp) VALUES (?, ?)`, status, ts)
	if err != nil {
		return fmt.Errorf("appending camera sample: %w", err)
	}
	s.mirrorSample(KindCamera, map[string]interface{}{"status": status}, ts)
	return nil
}

// AppendAircon stores one air conditioner sample.
func (s *Store) AppendAircon(ctx context.Context, temperature, humidity float64, cooling, dehumidifying, ts string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO aircon_data (temperature, humidity, cooling_status, dehumidifying_status, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		temperature, humidity, cooling, dehumidifying, ts)
	if err != nil {
		return fmt.Errorf("appending aircon sample: %w", err)
	}
	s.mirrorSample(KindAircon, map[string]interface{}{
		"temperature":          temperature,
		"humidity":             humidity,
		"cooling_status":       cooling,
		"dehumidifying_status": dehumidifying,
	}, ts)
	return nil
}

// RecordLightingTransition stores a lighting sample for a confirmed control
// transition. The dashboard has no intensity reading of its own, so a
// synthetic one in the simulator's range stands in.
func (s *Store) RecordLightingTransition(ctx context.Context, status string) error {
	return s.AppendLightControl(ctx, round2(uniform(100, 800)), status, device.Now())
}

// History returns the most recent samples of a kind, newest first by
// insertion order. The limit is clamped to DefaultHistoryLimit; zero or
// negative means the default.
//
// The return value is the kind's typed sample slice
// (e.g. []TemperatureSample for KindTemperature).
func (s *Store) History(ctx context.Context, kind Kind, limit int) (any, error) {
	if limit <= 0 || limit > DefaultHistoryLimit {
		limit = DefaultHistoryLimit
	}

	switch kind {
	case KindTemperature:
		return s.temperatureRows(ctx, limit)
	case KindWaterHeater:
		return s.waterHeaterRows(ctx, limit)
	case KindLightControl:
		return s.lightControlRows(ctx, limit)
	case KindFPS:
		return s.fpsRows(ctx, limit)
	case KindCamera:
		return s.cameraRows(ctx, limit)
	case KindAircon:
		return s.airconRows(ctx, limit)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Latest returns the most recently inserted sample of a kind, or ErrNoData.
func (s *Store) Latest(ctx context.Context, kind Kind) (any, error) {
	rows, err := s.History(ctx, kind, 1)
	if err != nil {
		return nil, err
	}

	switch v := rows.(type) {
	case []TemperatureSample:
		if len(v) > 0 {
			return v[0], nil
		}
	case []WaterHeaterSample:
		if len(v) > 0 {
			return v[0], nil
		}
	case []LightControlSample:
		if len(v) > 0 {
			return v[0], nil
		}
	case []FPSSample:
		if len(v) > 0 {
			return v[0], nil
		}
	case []CameraSample:
		if len(v) > 0 {
			return v[0], nil
		}
	case []AirconSample:
		if len(v) > 0 {
			return v[0], nil
		}
	}
	return nil, ErrNoData
}

func (s *Store) temperatureRows(ctx context.Context, limit int) ([]TemperatureSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, value FROM temperature_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying temperature history: %w", err)
	}
	defer rows.Close()

	samples := []TemperatureSample{}
	for rows.Next() {
		var smp TemperatureSample
		if err := rows.Scan(&smp.Timestamp, &smp.Value); err != nil {
			return nil, fmt.Errorf("scanning temperature row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) waterHeaterRows(ctx context.Context, limit int) ([]WaterHeaterSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, temperature, status FROM water_heater_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying water heater history: %w", err)
	}
	defer rows.Close()

	samples := []WaterHeaterSample{}
	for rows.Next() {
		var smp WaterHeaterSample
		if err := rows.Scan(&smp.Timestamp, &smp.Temperature, &smp.Status); err != nil {
			return nil, fmt.Errorf("scanning water heater row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) lightControlRows(ctx context.Context, limit int) ([]LightControlSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, intensity, status FROM light_control_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying light control history: %w", err)
	}
	defer rows.Close()

	samples := []LightControlSample{}
	for rows.Next() {
		var smp LightControlSample
		if err := rows.Scan(&smp.Timestamp, &smp.Intensity, &smp.Status); err != nil {
			return nil, fmt.Errorf("scanning light control row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) fpsRows(ctx context.Context, limit int) ([]FPSSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, fps FROM fps_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying fps history: %w", err)
	}
	defer rows.Close()

	samples := []FPSSample{}
	for rows.Next() {
		var smp FPSSample
		if err := rows.Scan(&smp.Timestamp, &smp.FPS); err != nil {
			return nil, fmt.Errorf("scanning fps row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) cameraRows(ctx context.Context, limit int) ([]CameraSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, status FROM surveillance_camera_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying camera history: %w", err)
	}
	defer rows.Close()

	samples := []CameraSample{}
	for rows.Next() {
		var smp CameraSample
		if err := rows.Scan(&smp.Timestamp, &smp.Status); err != nil {
			return nil, fmt.Errorf("scanning camera row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

func (s *Store) airconRows(ctx context.Context, limit int) ([]AirconSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT timestamp, temperature, humidity, cooling_status, dehumidifying_status
		 FROM aircon_data ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying aircon history: %w", err)
	}
	defer rows.Close()

	samples := []AirconSample{}
	for rows.Next() {
		var smp AirconSample
		if err := rows.Scan(&smp.Timestamp, &smp.Temperature, &smp.Humidity, &smp.CoolingStatus, &smp.DehumidifyingStatus); err != nil {
			return nil, fmt.Errorf("scanning aircon row: %w", err)
		}
		samples = append(samples, smp)
	}
	return samples, rows.Err()
}

// mirrorSample forwards a sample to the InfluxDB mirror when configured.
func (s *Store) mirrorSample(kind Kind, fields map[string]interface{}, ts string) {
	if s.mirror == nil {
		return
	}

	when, err := time.ParseInLocation(device.TimeLayout, ts, time.Local)
	if err != nil {
		when = time.Now()
	}
	s.mirror.WriteSampleWithTime(string(kind), string(kind), fields, when)
}
