// HomeSync Core - Device State Synchronization Engine
//
// This is the main entry point for the HomeSync Core service. It reconciles
// device state changes arriving over HTTP and the MQTT bus into a single
// SQLite-backed store, runs the synthetic telemetry producers, and
// re-publishes confirmed status transitions for dashboard subscribers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/kestrelhq/homesync/migrations"

	"github.com/kestrelhq/homesync/internal/api"
	"github.com/kestrelhq/homesync/internal/device"
	"github.com/kestrelhq/homesync/internal/infrastructure/config"
	"github.com/kestrelhq/homesync/internal/infrastructure/database"
	"github.com/kestrelhq/homesync/internal/infrastructure/influxdb"
	"github.com/kestrelhq/homesync/internal/infrastructure/logging"
	"github.com/kestrelhq/homesync/internal/infrastructure/mqtt"
	"github.com/kestrelhq/homesync/internal/router"
	"github.com/kestrelhq/homesync/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting HomeSync Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database and bootstrap the schema
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Seed the device fleet. Existing rows are left untouched.
	deviceRepo := device.NewSQLiteRepository(db.DB)
	if seedErr := deviceRepo.Seed(ctx); seedErr != nil {
		return fmt.Errorf("seeding device fleet: %w", seedErr)
	}
	log.Info("device fleet ready", "devices", len(device.All()))

	// Connect to the MQTT broker. A broker that is down at startup is not
	// fatal; the client keeps retrying in the background and the HTTP
	// surface stays available meanwhile.
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		if !errors.Is(err, mqtt.ErrConnectionFailed) {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Warn("MQTT broker unreachable, starting degraded", "error", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT client ready",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"connected", mqttClient.IsConnected(),
	)

	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional telemetry mirror)
	var mirror telemetry.Mirror
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		var influxErr error
		influxClient, influxErr = influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB mirror connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		mirror = influxClient
	} else {
		log.Info("InfluxDB mirror disabled")
	}

	// Telemetry store, then the device state store wired to re-publish
	// confirmed transitions and record lighting control samples.
	samples := telemetry.NewStore(db.DB, mirror)

	devices := device.NewStore(device.StoreDeps{
		Repo:      deviceRepo,
		Publisher: &statusPublisher{client: mqttClient, qos: byte(cfg.MQTT.QoS), mirror: influxClient},
		Logger:    log,
		OnLightingStatus: func(ctx context.Context, status string) {
			if err := samples.RecordLightingTransition(ctx, status); err != nil {
				log.Warn("recording lighting transition failed", "status", status, "error", err)
			}
		},
	})

	// Message router: cache every inbound bus message and dispatch commands
	// and telemetry. Subscriptions registered while degraded are established
	// when the broker comes back.
	cache := router.NewCache(cfg.Cache.Capacity)
	busRouter := router.New(router.Deps{
		Devices:   devices,
		Telemetry: samples,
		Cache:     cache,
		Logger:    log,
	})
	if bindErr := busRouter.Bind(mqttClient, byte(cfg.MQTT.QoS)); bindErr != nil {
		return fmt.Errorf("binding bus router: %w", bindErr)
	}
	log.Info("bus router bound")

	// Synthetic telemetry producers
	if cfg.Simulators.Enabled {
		fleet := telemetry.NewFleet(
			&busPublisher{client: mqttClient, qos: byte(cfg.MQTT.QoS)},
			samples,
			cfg.SimulatorInterval(),
			log,
		)
		fleet.Start(ctx)
		defer func() {
			log.Info("waiting for simulators to stop")
			fleet.Wait()
		}()
		log.Info("simulators started", "interval", cfg.SimulatorInterval())
	} else {
		log.Info("simulators disabled")
	}

	// HTTP API
	apiServer, err := api.New(api.Deps{
		Config:    cfg.API,
		Logger:    log,
		Devices:   devices,
		Telemetry: samples,
		Cache:     cache,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Simulators
	// 3. InfluxDB (if enabled)
	// 4. MQTT
	// 5. Database

	log.Info("HomeSync Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMESYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMESYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// statusPublisher adapts the MQTT client to the device store's
// StatusPublisher interface. Confirmed transitions go out as the bare
// status string on device/{device}/status and, when the mirror is
// enabled, land in InfluxDB as status_transition points. Control commands
// are forwarded as-is on device/{device}/control.
type statusPublisher struct {
	client *mqtt.Client
	qos    byte
	topics mqtt.Topics
	mirror *influxdb.Client
}

func (p *statusPublisher) PublishStatus(device, status string) error {
	if p.mirror != nil {
		p.mirror.WriteStatusTransition(device, status)
	}
	return p.client.PublishString(p.topics.DeviceStatus(device), status, p.qos, false)
}

func (p *statusPublisher) PublishCommand(device, command string) error {
	return p.client.PublishString(p.topics.DeviceControl(device), command, p.qos, false)
}

// busPublisher adapts the MQTT client to the telemetry fleet's Publisher
// interface.
type busPublisher struct {
	client *mqtt.Client
	qos    byte
}

func (p *busPublisher) Publish(topic string, payload []byte) error {
	return p.client.Publish(topic, payload, p.qos, false)
}
