package telemetry

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/kestrelhq/homesync/internal/device"
	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
)

// Publisher sends a synthesized sample to the bus. Satisfied by a thin
// adapter over the MQTT client; all producers share one publisher rather
// than opening a connection each.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// Fleet runs the synthetic telemetry producers, one goroutine per kind.
//
// Each producer loops: synthesize a sample, publish it to device/{kind},
// persist it, sleep the configured interval. Producers are independent; a
// publish failure while the broker is down is logged and the loop carries
// on so samples keep landing in SQLite.
type Fleet struct {
	pub      Publisher
	store    *Store
	logger   *logging.Logger
	interval time.Duration

	wg sync.WaitGroup
}

// NewFleet creates the producer fleet.
func NewFleet(pub Publisher, store *Store, interval time.Duration, logger *logging.Logger) *Fleet {
	if logger == nil {
		logger = logging.Default()
	}
	return &Fleet{
		pub:      pub,
		store:    store,
		logger:   logger.With("component", "simulators"),
		interval: interval,
	}
}

// Start launches all producers. They stop when ctx is cancelled.
func (f *Fleet) Start(ctx context.Context) {
	producers := []func(context.Context){
		f.runTemperature,
		f.runWaterHeater,
		f.runLightControl,
		f.runFPS,
		f.runCamera,
		f.runAircon,
	}

	for _, producer := range producers {
		f.wg.Add(1)
		go func(run func(context.Context)) {
			defer f.wg.Done()
			run(ctx)
		}(producer)
	}

	f.logger.Info("telemetry producers started", "count", len(producers), "interval", f.interval)
}

// Wait blocks until every producer has exited.
func (f *Fleet) Wait() {
	f.wg.Wait()
}

// loop runs produce once per interval until ctx is cancelled.
func (f *Fleet) loop(ctx context.Context, produce func(context.Context)) {
	for {
		produce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(f.interval):
		}
	}
}

func (f *Fleet) runTemperature(ctx context.Context) {
	f.loop(ctx, func(ctx context.Context) {
		smp := TemperatureSample{
			Timestamp: device.Now(),
			Value:     round2(uniform(20.0, 30.0)),
		}
		f.publish(KindTemperature, smp)
		if err := f.store.AppendTemperature(ctx, smp.Value, smp.Timestamp); err != nil {
			f.logger.Error("temperature append failed", "error", err)
		}
	})
}

func (f *Fleet) runWaterHeater(ctx context.Context) {
	f.loop(ctx, func(ctx context.Context) {
		smp := WaterHeaterSample{
			Timestamp:   device.Now(),
			Temperature: round2(uniform(30.0, 60.0)),
			Status:      choice("running", "stopped"),
		}
		f.publish(KindWaterHeater, smp)
		if err := f.store.AppendWaterHeater(ctx, smp.Temperature, smp.Status, smp.Timestamp); err != nil {
			f.logger.Error("water heater append failed", "error", err)
		}
	})
}

func (f *Fleet) runLightControl(ctx context.Context) {
	f.loop(ctx, func(ctx context.Context) {
		intensity := round2(uniform(100.0, 800.0))
		smp := LightControlSample{
			Timestamp: device.Now(),
			Intensity: intensity,
			Status:    lightingStatus(intensity),
		}
		f.publish(KindLightControl, smp)
		if err := f.store.AppendLightControl(ctx, smp.Intensity, smp.Status, smp.Timestamp); err != nil {
			f.logger.Error("light control append failed", "error", err)
		}
	})
}

func (f *Fleet) runFPS(ctx context.Context) {
	f.loop(ctx, func(ctx context.Context) {
		smp := FPSSample{
			Timestamp: device.Now(),
			FPS:       round2(uniform(20.0, 60.0)),
		}
		f.publish(KindFPS, smp)
		if err := f.store.AppendFPS(ctx, smp.FPS, smp.Timestamp); err != nil {
			f.logger.Error("fps append failed", "error", err)
		}
	})
}

// runCamera publishes only; the router persists camera samples on receipt,
// so appending here as well would double every row.
func (f *Fleet) runCamera(ctx context.Context) {
	f.loop(ctx, func(_ context.Context) {
		smp := CameraSample{
			Timestamp: device.Now(),
			Status:    choice("recording", "idle"),
		}
		f.publish(KindCamera, smp)
	})
}

func (f *Fleet) runAircon(ctx context.Context) {
	f.loop(ctx, func(ctx context.Context) {
		temperature := round1(uniform(22.0, 35.0))
		humidity := round1(uniform(40.0, 80.0))
		smp := AirconSample{
			Timestamp:           device.Now(),
			Temperature:         temperature,
			Humidity:            humidity,
			CoolingStatus:       coolingStatus(temperature),
			DehumidifyingStatus: dehumidifyingStatus(humidity),
		}
		f.publish(KindAircon, smp)
		if err := f.store.AppendAircon(ctx, smp.Temperature, smp.Humidity, smp.CoolingStatus, smp.DehumidifyingStatus, smp.Timestamp); err != nil {
			f.logger.Error("aircon append failed", "error", err)
		}
	})
}

// publish marshals a sample and sends it to the kind's topic.
func (f *Fleet) publish(kind Kind, sample any) {
	payload, err := json.Marshal(sample)
	if err != nil {
		f.logger.Error("sample marshal failed", "kind", kind, "error", err)
		return
	}
	if err := f.pub.Publish(topicFor(kind), payload); err != nil {
		f.logger.Warn("sample publish failed", "kind", kind, "error", err)
	}
}

// topicFor returns the bus topic a kind publishes on.
func topicFor(kind Kind) string {
	return "device/" + string(kind)
}

// Synthesis rules. Fixed thresholds; dashboards rely on these exact laws.

// lightingStatus reports "on" for intensities outside the 200..600 band.
func lightingStatus(intensity float64) string {
	if intensity < 200.0 || intensity > 600.0 {
		return "on"
	}
	return "off"
}

// coolingStatus turns cooling on above 28 degrees.
func coolingStatus(temperature float64) string {
	if temperature > 28.0 {
		return "ON"
	}
	return "OFF"
}

// dehumidifyingStatus turns dehumidification on above 65 percent.
func dehumidifyingStatus(humidity float64) string {
	if humidity > 65.0 {
		return "ON"
	}
	return "OFF"
}

func uniform(low, high float64) float64 {
	return low + rand.Float64()*(high-low)
}

func choice(a, b string) string {
	if rand.Intn(2) == 0 {
		return a
	}
	return b
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
