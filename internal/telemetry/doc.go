// Package telemetry implements the append-only telemetry store and the
// synthetic producers that feed it.
//
// Each telemetry kind (temperature, water_heater, light_control, fps,
// surveillance_camera, aircon) has its own SQLite table; rows are only ever
// inserted and queried newest-first for dashboard history views. When the
// InfluxDB mirror is enabled every appended sample is also written there.
//
// The simulator fleet runs one goroutine per kind, all sharing a single
// bus publisher, and stops cleanly on context cancellation.
package telemetry
