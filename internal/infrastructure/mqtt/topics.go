package mqtt

import "fmt"

// Topic layout shared with the dashboard and the device simulators.
//
// Inbound (subscribed):
//
//	device/{device}                 control commands and raw telemetry
//	device/temperature              synthetic temperature samples
//	device/fps                      video pipeline frame rate
//	device/light_control            lighting intensity samples
//	device/surveillance_camera      camera activity samples
//	device/aircon                   air conditioner samples
//
// Outbound (published):
//
//	device/{device}/status          confirmed status transitions
//	device/{device}/control         raw control commands to hardware
//	homesync/system/status          online/offline lifecycle (retained, LWT)
const (
	// TopicPrefixDevice is the base for all device topics.
	TopicPrefixDevice = "device"

	// TopicSystemStatus carries the service's online/offline status.
	TopicSystemStatus = "homesync/system/status"
)

// Topics provides builders for HomeSync MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// DeviceCommand returns the inbound command/telemetry topic for a device.
//
// Example: device/lighting
func (Topics) DeviceCommand(device string) string {
	return fmt.Sprintf("%s/%s", TopicPrefixDevice, device)
}

// DeviceStatus returns the topic confirmed status transitions are published on.
// Dashboard subscribers watch this topic to stay in sync.
//
// Example: device/lighting/status
func (Topics) DeviceStatus(device string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixDevice, device)
}

// DeviceControl returns the topic raw control commands are forwarded on.
//
// Example: device/water_heater/control
func (Topics) DeviceControl(device string) string {
	return fmt.Sprintf("%s/%s/control", TopicPrefixDevice, device)
}
