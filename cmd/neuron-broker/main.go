// Command neuron-broker is the broker's single binary: it loads and
// validates configuration, opens the persistence facade, constructs the
// metrics registry and reactor, wires the manager, registers the in-tree
// reference plugins, starts the ops HTTP surface, and blocks on signal
// handling. The HTTP/REST control surface, JWT auth, concrete
// device-protocol plugins, the OpenTelemetry exporter, the CID/SCL
// parser and daemonization are external collaborators and are not
// started here.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/google/gops/agent"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/config"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/manager"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/opsapi"
	"github.com/neuron-io/broker/internal/persistence/sqlitestore"
	"github.com/neuron-io/broker/internal/plugin/mockapp"
	"github.com/neuron-io/broker/internal/plugin/mockdriver"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
	"github.com/neuron-io/broker/pkg/nats"
)

func main() {
	var flagConfigFile, flagEnvFile, flagLogLevel string
	var flagGops bool
	flag.StringVar(&flagConfigFile, "config", "./config.json", "path to the process configuration file")
	flag.StringVar(&flagEnvFile, "env", "./.env", "path to an optional .env file of overrides")
	flag.StringVar(&flagLogLevel, "loglevel", "", "override the configured log level (debug, info, warn, error)")
	flag.BoolVar(&flagGops, "gops", false, "listen via github.com/google/gops/agent regardless of config")
	flag.Parse()

	if err := godotenv.Load(flagEnvFile); err != nil && !os.IsNotExist(err) {
		cclog.Fatalf("loading %s failed: %v", flagEnvFile, err)
	}

	cfg, err := config.Load(flagConfigFile)
	if err != nil {
		cclog.Fatal(err)
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	cclog.Init(cfg.LogLevel, true)

	if cfg.GopsEnabled || flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %v", err)
		}
	}

	store, err := sqlitestore.Open(cfg.PersistenceDSN)
	if err != nil {
		cclog.Fatalf("opening persistence store: %v", err)
	}
	defer store.Close()

	registry := metrics.NewRegistry()
	sysgauges := metrics.NewSysGaugeCollector(registry, cfg.DiskPath, cfg.CoreDumpDir)
	gaugeTicker := time.NewTicker(5 * time.Second)
	defer gaugeTicker.Stop()
	gaugeDone := make(chan struct{})
	defer close(gaugeDone)
	go func() {
		sysgauges.Refresh()
		for {
			select {
			case <-gaugeTicker.C:
				sysgauges.Refresh()
			case <-gaugeDone:
				return
			}
		}
	}()

	rx := reactor.New()
	defer rx.Close()

	var mirror *manager.Mirror
	if cfg.NatsAddress != "" {
		client, err := nats.NewClient(&nats.NatsConfig{Address: cfg.NatsAddress})
		if err != nil {
			cclog.Warnf("[MAIN]> NATS telemetry mirror disabled: %v", err)
		} else {
			mirror = manager.NewMirror(client, cfg.NatsSubject)
		}
	}

	mgr := manager.New(manager.Config{
		Reactor:  rx,
		Registry: registry,
		Store:    store,
		Mirror:   mirror,
	})
	defer mgr.Close()

	registerBuiltinPlugins(mgr)

	collector := metrics.NewCollector(registry)
	api := opsapi.New(mgr, collector)
	r := mux.NewRouter()
	api.MountRoutes(r)

	srv := &http.Server{Addr: cfg.OpsListenAddr, Handler: r}
	go func() {
		cclog.Infof("[MAIN]> ops HTTP surface listening on %s", cfg.OpsListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cclog.Fatalf("ops HTTP surface failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	cclog.Info("[MAIN]> shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		cclog.Warnf("[MAIN]> ops HTTP surface shutdown: %v", err)
	}
}

// registerBuiltinPlugins wires the in-tree reference driver/app
// implementations (stand-ins for the external protocol plugins named
// out of scope) so the fleet has something real to ADD_NODE against: a
// factory per schema name, plus a descriptor recorded in the directory
// so GET_PLUGIN reports them.
func registerBuiltinPlugins(mgr *manager.Manager) {
	mgr.RegisterPluginFactory("mockdriver", func() (adapter.Plugin, error) {
		return mockdriver.New(), nil
	})
	mgr.RegisterPluginFactory("mockapp", func() (adapter.Plugin, error) {
		return mockapp.New(schema.MailboxCapacity), nil
	})

	descriptors := []schema.PluginDescriptor{
		{
			SchemaName:       "mockdriver",
			Kind:             schema.PluginStatic,
			Type:             schema.PluginTypeDriver,
			Version:          "0.1.0",
			ShortDescription: "in-tree reference driver (ramp-reading, stands in for a device-protocol plugin)",
		},
		{
			SchemaName:       "mockapp",
			Kind:             schema.PluginStatic,
			Type:             schema.PluginTypeApp,
			Version:          "0.1.0",
			ShortDescription: "in-tree reference app (channel sink, stands in for an MQTT publisher)",
		},
	}
	for _, desc := range descriptors {
		req := &envelope.Envelope{
			Type:     envelope.TypeAddPlugin,
			Sender:   "manager",
			Receiver: "manager",
			Body:     envelope.AddPluginRequest{Descriptor: desc},
		}
		if resp, err := mgr.Submit(req); err != nil {
			cclog.Warnf("[MAIN]> registering plugin descriptor %s: %v", desc.SchemaName, err)
		} else if resp != nil && resp.Type == envelope.TypeError {
			cclog.Warnf("[MAIN]> registering plugin descriptor %s: %v", desc.SchemaName, resp.Body)
		}
	}
}
