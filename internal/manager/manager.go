// Package manager owns the node directory: creating and destroying
// adapters, routing control and telemetry envelopes between them,
// assigning transport ports, and persisting the fleet's configuration
// across restarts. It is the one package that imports both
// internal/adapter and internal/driver, wiring the DriverExt hook onto
// every DRIVER-kind adapter it creates.
package manager

import (
	"context"
	"fmt"
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/driver"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/persistence"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

// PluginFactory builds a fresh Plugin instance for a named plugin
// schema; mockdriver/mockapp register themselves here, and a real
// deployment would register one factory per compiled-in protocol driver
// or app integration.
type PluginFactory func() (adapter.Plugin, error)

// portRangeStart/End bound the manager's port pool. In the source these
// were kernel-assigned abstract-namespace socket addresses; here they
// are bookkeeping only (no adapter ever binds one), but the pool is
// still exhausted and reclaimed exactly as the source's would be, so a
// leak in node teardown shows up the same way: AddNode eventually fails
// with PORT_POOL_EXHAUSTED.
const (
	portRangeStart = 20000
	portRangeEnd   = 29999
)

// nodeEntry is the directory's bookkeeping record for one adapter.
type nodeEntry struct {
	adapter *adapter.Adapter
	driver  *driver.Driver // nil for APP nodes
	kind    schema.NodeKind
	port    int
}

// Config bundles a Manager's construction parameters.
type Config struct {
	Reactor  *reactor.Reactor
	Registry *metrics.Registry
	Store    persistence.Store
	Mirror   *Mirror // optional cross-process telemetry mirror, nil to disable
}

// Manager is the node directory, router and plugin registry.
type Manager struct {
	reactor  *reactor.Reactor
	registry *metrics.Registry
	store    persistence.Store
	mirror   *Mirror

	mu    sync.RWMutex
	nodes map[string]*nodeEntry

	portMu   sync.Mutex
	nextPort int
	freed    []int

	pluginMu sync.RWMutex
	plugins  map[string]schema.PluginDescriptor
	factory  map[string]PluginFactory
}

// New constructs an empty Manager. Persisted state is restored per node:
// AddNode reloads a node's setting and, for drivers, its groups, tags and
// subscriptions from the store.
func New(cfg Config) *Manager {
	return &Manager{
		reactor:  cfg.Reactor,
		registry: cfg.Registry,
		store:    cfg.Store,
		mirror:   cfg.Mirror,
		nodes:    make(map[string]*nodeEntry),
		nextPort: portRangeStart,
		plugins:  make(map[string]schema.PluginDescriptor),
		factory:  make(map[string]PluginFactory),
	}
}

// RegisterPluginFactory makes a plugin schema name available to ADD_NODE;
// it does not itself register a PluginDescriptor (ADD_PLUGIN does that).
func (m *Manager) RegisterPluginFactory(schemaName string, f PluginFactory) {
	m.pluginMu.Lock()
	defer m.pluginMu.Unlock()
	m.factory[schemaName] = f
}

func (m *Manager) allocPort() (int, error) {
	m.portMu.Lock()
	defer m.portMu.Unlock()
	if n := len(m.freed); n > 0 {
		p := m.freed[n-1]
		m.freed = m.freed[:n-1]
		return p, nil
	}
	if m.nextPort > portRangeEnd {
		return 0, fmt.Errorf("PORT_POOL_EXHAUSTED")
	}
	p := m.nextPort
	m.nextPort++
	return p, nil
}

func (m *Manager) freePort(p int) {
	m.portMu.Lock()
	m.freed = append(m.freed, p)
	m.portMu.Unlock()
}

// Close stops and closes every node in the directory.
func (m *Manager) Close() {
	m.mu.Lock()
	names := make([]string, 0, len(m.nodes))
	for name := range m.nodes {
		names = append(names, name)
	}
	m.mu.Unlock()
	for _, name := range names {
		_ = m.teardownNode(name)
	}
	if m.mirror != nil {
		m.mirror.Close()
	}
}

func (m *Manager) teardownNode(name string) error {
	m.mu.Lock()
	ent, ok := m.nodes[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("NODE_NOT_FOUND")
	}
	delete(m.nodes, name)
	m.mu.Unlock()

	if ent.adapter.State() == schema.StateRunning {
		if err := ent.adapter.Stop(); err != nil {
			cclog.Warnf("[MANAGER]> %s: stop during teardown: %v", name, err)
		}
	}
	if ent.driver != nil {
		ent.driver.Close()
	}
	if err := ent.adapter.Close(); err != nil {
		cclog.Warnf("[MANAGER]> %s: close during teardown: %v", name, err)
	}
	m.freePort(ent.port)
	return nil
}

func (m *Manager) lookup(name string) (*nodeEntry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ent, ok := m.nodes[name]
	return ent, ok
}

// NodeCount returns the number of nodes currently registered in the
// directory, for ops surfaces that report fleet size without walking
// the full node list.
func (m *Manager) NodeCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

var bgCtx = context.Background()
