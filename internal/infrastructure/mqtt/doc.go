// Package mqtt wraps paho.mqtt.golang for HomeSync Core.
//
// It provides connection management with automatic reconnection, publish
// and subscribe operations that fail fast when the broker is unreachable,
// and builders for the device/... topic hierarchy.
//
// A failed initial connection is not fatal: Connect returns the client in a
// degraded state together with ErrConnectionFailed, the background retry
// loop keeps trying, and publish attempts surface ErrNotConnected until the
// broker comes back.
package mqtt
