// Package influxdb provides an optional time-series mirror for telemetry.
//
// Every sample persisted to SQLite can additionally be written to InfluxDB
// for long-range retention and dashboard queries. The mirror is disabled by
// default; when disabled the engine runs on SQLite alone.
//
// Writes are non-blocking and batched. A failed write never affects the
// SQLite persistence path.
package influxdb
