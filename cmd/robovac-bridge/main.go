// robovac-bridge mirrors Roborock vacuum state onto an MQTT broker.
//
// Device state lives in an in-memory tree that is persisted between runs.
// Confirmed values are published as <root>/<device>/<section>/<field>;
// messages on the command topics are decoded back into the tree and handed
// to the application layer.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/robovac-bridge/migrations"

	"github.com/nerrad567/robovac-bridge/internal/api"
	"github.com/nerrad567/robovac-bridge/internal/bridge"
	"github.com/nerrad567/robovac-bridge/internal/capability"
	"github.com/nerrad567/robovac-bridge/internal/device"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/config"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/database"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/robovac-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/robovac-bridge/internal/state"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when neither -config nor ROBOVAC_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	// persistTimeout bounds the final state flush.
	persistTimeout = 10 * time.Second
)

func main() {
	configFlag := flag.String("config", "", "path to config.yaml (default $ROBOVAC_CONFIG or "+defaultConfigPath+")")
	exportModel := flag.String("export-model", "", "print the merged capability schema of a model as JSON and exit")
	flag.Parse()

	if *exportModel != "" {
		if err := exportSchema(os.Stdout, *exportModel); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, getConfigPath(*configFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Cancelled on shutdown signals
//   - configPath: YAML configuration file
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting robovac-bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"devices", len(cfg.Devices),
	)

	// State store
	storage, closeStorage, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStorage()

	store := state.NewStore(storage)
	store.SetLogger(log)
	if err := store.Restore(ctx); err != nil {
		return fmt.Errorf("restoring state: %w", err)
	}

	// Capability models
	caps, err := capability.LoadRegistry(log)
	if err != nil {
		return fmt.Errorf("loading capability models: %w", err)
	}

	// Telemetry (optional)
	var telemetry bridge.Telemetry
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
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
		telemetry = influxClient
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	// MQTT client (not yet dialled)
	mqttClient := mqtt.New(cfg.MQTT, mqtt.Topics{Root: cfg.Bridge.Topic})
	mqttClient.SetLogger(log)
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	devices := device.NewRegistry()
	devices.SetLogger(log)

	// The hub exists before the bridge so the change handler can relay to it.
	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
	}

	b, err := bridge.New(bridge.Options{
		Config:       cfg.Bridge,
		QoS:          cfg.QoSByte(),
		MQTTClient:   &mqttBridgeAdapter{client: mqttClient},
		Store:        store,
		Capabilities: caps,
		Devices:      devices,
		Telemetry:    telemetry,
		OnChange: func(id string, entry state.Entry) {
			log.Trace("state change", "id", id, "val", entry.Val, "ack", entry.Ack)
			if hub != nil {
				hub.Broadcast(api.ChannelStateChanged, api.NewStateEvent(id, entry))
			}
		},
		Logger: log,
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	// Register devices before dialling: subscriptions are recorded now and
	// issued by the connect callback.
	for _, dc := range cfg.Devices {
		d := device.Device{DUID: dc.DUID, Name: dc.Name, Model: dc.Model}
		if err := b.RegisterDevice(d); err != nil {
			return fmt.Errorf("registering device %s: %w", dc.DUID, err)
		}
	}

	clientID := cfg.MQTT.Broker.ClientID
	mqttClient.SetOnConnect(func() {
		b.Resubscribe()
		if influxClient != nil {
			influxClient.WriteConnectionEvent(clientID, "connected")
		}
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
		if influxClient != nil {
			influxClient.WriteConnectionEvent(clientID, "disconnected")
		}
	})

	if err := mqttClient.Connect(ctx); err != nil {
		if !errors.Is(err, mqtt.ErrTimeout) {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		log.Warn("MQTT broker not reachable yet, retrying in background", "error", err)
	}

	// HTTP API (optional)
	if cfg.API.Enabled {
		apiServer, apiErr := api.New(api.Deps{
			Config:       cfg.API,
			WS:           cfg.WebSocket,
			Logger:       log,
			Bridge:       b,
			Capabilities: caps,
			MQTT:         mqttClient,
			ExternalHub:  hub,
			Version:      version,
		})
		if apiErr != nil {
			return fmt.Errorf("creating API server: %w", apiErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("HTTP API disabled")
	}

	log.Info("initialisation complete, waiting for shutdown signal",
		"devices", devices.Len(),
		"subscriptions", len(b.Subscriptions()),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, persisting state")

	// ctx is already cancelled; the flush gets its own deadline.
	persistCtx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := b.Persist(persistCtx); err != nil {
		log.Error("persisting state failed", "error", err)
	}

	log.Info("robovac-bridge stopped")
	return nil
}

// openStorage returns the configured state storage and a function that
// releases it.
func openStorage(ctx context.Context, cfg *config.Config, log *logging.Logger) (state.Storage, func(), error) {
	if cfg.State.Backend != config.StateBackendSQLite {
		log.Info("state file", "path", cfg.State.File)
		return state.NewFileStorage(cfg.State.File), func() {}, nil
	}

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("state database ready", "path", cfg.Database.Path)

	closeDB := func() {
		log.Info("closing database")
		if err := db.Close(); err != nil {
			log.Error("error closing database", "error", err)
		}
	}
	return state.NewSQLiteStorage(db), closeDB, nil
}

// exportSchema writes the merged capability schema of a model as JSON.
func exportSchema(w io.Writer, modelID string) error {
	caps, err := capability.LoadRegistry(nil)
	if err != nil {
		return fmt.Errorf("loading capability models: %w", err)
	}
	schema, err := caps.Schema(modelID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(schema.Export())
}

// getConfigPath returns the configuration file path: the -config flag,
// then ROBOVAC_CONFIG, then the default.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("ROBOVAC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. Two differences:
//   - Publish is fire-and-forget, so it maps to PublishAsync
//   - bridge handlers return nothing; mqtt handlers return an error
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.PublishAsync(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}
