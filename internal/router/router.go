package router

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kestrelhq/homesync/internal/device"
	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
	"github.com/kestrelhq/homesync/internal/infrastructure/mqtt"
	"github.com/kestrelhq/homesync/internal/telemetry"
)

// Subscriber registers message handlers with the bus. Satisfied by the
// mqtt client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Router decodes inbound bus messages and routes them to the device state
// store and the telemetry store.
type Router struct {
	devices   *device.Store
	telemetry *telemetry.Store
	cache     *Cache
	logger    *logging.Logger
}

// Deps carries the dependencies for New.
type Deps struct {
	Devices   *device.Store
	Telemetry *telemetry.Store
	Cache     *Cache
	Logger    *logging.Logger // nil means logging.Default()
}

// New creates a Router.
func New(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Router{
		devices:   deps.Devices,
		telemetry: deps.Telemetry,
		cache:     deps.Cache,
		logger:    logger.With("component", "router"),
	}
}

// inboundTopics are the device topics the router listens on.
var inboundTopics = []string{
	"device/lighting",
	"device/water_heater",
	"device/camera",
	"device/temperature",
	"device/fps",
	"device/light_control",
	"device/surveillance_camera",
	"device/aircon",
}

// Bind subscribes the router's handler to every inbound topic.
// Subscribing while the broker is unreachable is fine; the subscriptions
// are established on connect.
func (r *Router) Bind(sub Subscriber, qos byte) error {
	for _, topic := range inboundTopics {
		if err := sub.Subscribe(topic, qos, r.HandleMessage); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}
	r.logger.Info("bus subscriptions registered", "topics", len(inboundTopics))
	return nil
}

// HandleMessage processes one inbound bus message. It satisfies
// mqtt.MessageHandler; returned errors are logged once by the client
// wrapper and never interrupt message delivery, so malformed payloads are
// not logged here as well.
func (r *Router) HandleMessage(topic string, payload []byte) error {
	var entry Entry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return fmt.Errorf("decoding payload on %s: %w", topic, err)
	}
	if entry == nil {
		return fmt.Errorf("null payload on %s", topic)
	}

	// Producers usually stamp their own timestamps; stamp arrival time for
	// the ones that don't so realtime and history views stay sortable.
	if _, ok := entry["timestamp"]; !ok {
		entry["timestamp"] = device.Now()
	}

	r.cache.Append(topic, entry)

	ctx := context.Background()
	switch topic {
	case "device/lighting":
		return r.handleCommand(ctx, device.Lighting, entry, map[string]string{
			"BRIGHTER": "on",
			"DIMMER":   "on",
			"OFF":      "off",
		})
	case "device/water_heater":
		return r.handleCommand(ctx, device.WaterHeater, entry, map[string]string{
			"ON":  "on",
			"OFF": "off",
		})
	case "device/camera":
		return r.handleCommand(ctx, device.Camera, entry, map[string]string{
			"ON":  "on",
			"OFF": "off",
		})
	case "device/fps":
		return r.handleFPS(ctx, entry)
	case "device/surveillance_camera":
		return r.handleCamera(ctx, entry)
	case "device/aircon":
		return r.handleAircon(ctx, entry)
	}

	// device/temperature and device/light_control are cached only; their
	// producers persist the samples themselves.
	return nil
}

// handleCommand applies a command-topic message to the device state store.
// Commands outside the topic's vocabulary are ignored.
func (r *Router) handleCommand(ctx context.Context, id string, entry Entry, commands map[string]string) error {
	command, ok := stringField(entry, "command")
	if !ok {
		return nil
	}
	status, ok := commands[command]
	if !ok {
		r.logger.Debug("unrecognised command ignored", "device", id, "command", command)
		return nil
	}

	if err := r.devices.ApplyBusCommand(ctx, id, status); err != nil {
		return fmt.Errorf("applying %s command %s: %w", id, command, err)
	}
	r.logger.Info("bus command applied", "device", id, "command", command, "status", status)
	return nil
}

func (r *Router) handleFPS(ctx context.Context, entry Entry) error {
	fps, ok := numberField(entry, "fps")
	if !ok {
		r.logger.Warn("fps sample missing value, not persisted")
		return nil
	}
	return r.telemetry.AppendFPS(ctx, fps, timestampField(entry))
}

func (r *Router) handleCamera(ctx context.Context, entry Entry) error {
	status, _ := stringField(entry, "status")
	return r.telemetry.AppendCamera(ctx, status, timestampField(entry))
}

// handleAircon persists an aircon sample only when both temperature and
// humidity are present; partial samples are cached but not stored.
func (r *Router) handleAircon(ctx context.Context, entry Entry) error {
	temperature, okT := numberField(entry, "temperature")
	humidity, okH := numberField(entry, "humidity")
	if !okT || !okH {
		r.logger.Warn("aircon sample incomplete, not persisted",
			"has_temperature", okT,
			"has_humidity", okH,
		)
		return nil
	}

	cooling, _ := stringField(entry, "cooling_status")
	dehumidifying, _ := stringField(entry, "dehumidifying_status")
	return r.telemetry.AppendAircon(ctx, temperature, humidity, cooling, dehumidifying, timestampField(entry))
}

func stringField(entry Entry, key string) (string, bool) {
	v, ok := entry[key].(string)
	return v, ok
}

// numberField reads a JSON number; encoding/json decodes them as float64.
func numberField(entry Entry, key string) (float64, bool) {
	v, ok := entry[key].(float64)
	return v, ok
}

func timestampField(entry Entry) string {
	ts, _ := stringField(entry, "timestamp")
	return ts
}
