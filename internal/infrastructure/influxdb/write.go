package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSample mirrors a telemetry sample to InfluxDB.
//
// The write is non-blocking; data is batched and sent asynchronously.
// Each telemetry kind becomes a measurement, keyed by the device tag.
//
// Parameters:
//   - kind: Telemetry kind (e.g., "temperature", "water_heater")
//   - device: Device identifier the sample belongs to
//   - fields: Numeric and string values of the sample
//
// Example:
//
//	client.WriteSample("temperature", "aircon", map[string]interface{}{"value": 24.7})
func (c *Client) WriteSample(kind string, device string, fields map[string]interface{}) {
	c.WriteSampleWithTime(kind, device, fields, time.Now())
}

// WriteSampleWithTime mirrors a telemetry sample with an explicit timestamp.
//
// Use this when the sample carries its own observation time (the usual case:
// the timestamp stamped on bus arrival, not the time of the mirror write).
func (c *Client) WriteSampleWithTime(kind string, device string, fields map[string]interface{}, ts time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		kind,
		map[string]string{
			"device": device,
		},
		fields,
		ts,
	)

	c.writeAPI.WritePoint(point)
}

// WriteStatusTransition records a confirmed device status change.
//
// Status strings are low cardinality so they go in a tag for filtering;
// the field carries a constant so the point is queryable.
func (c *Client) WriteStatusTransition(device string, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"status_transition",
		map[string]string{
			"device": device,
			"status": status,
		},
		map[string]interface{}{
			"count": 1,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
