// Package device implements the authoritative device state store.
//
// Each device in the fixed fleet (water_heater, lighting, camera, aircon)
// has one row in the device_control table carrying mode, status and the
// manual_override flag. All mutations flow through Store, which serializes
// writers per device and re-publishes confirmed status transitions to the
// device/{id}/status topic for dashboard subscribers.
package device
