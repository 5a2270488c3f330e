// Package metrics implements the process-wide metrics substrate: a
// registry of ref-counted entries shared across nodes, per-node metric
// sets, a rolling counter over the 5s window for each ROLLING_COUNTER
// entry (the longer windows are not maintained), and the
// system-level gauges refreshed by a visitor callback. Registration
// failures never prevent a node from functioning — they degrade to a
// nil *NodeMetrics, after which updates are a no-op that reports failure.
package metrics

import (
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/schema"
)

// StandardWindows lists the data model's rolling-counter spans. Only the
// first (5s) is instantiated: NodeMetrics.Update gives each
// ROLLING_COUNTER entry one counter over StandardWindows[0], and the
// other spans are not maintained.
var StandardWindows = []int64{5_000, 30_000, 60_000, 600_000, 1_800_000}

// Registry is the process-wide metric entry table. register_entry is
// ref-counted: multiple registrants may share name; it is freed when the
// last reference is released. This shared-value form is for singleton,
// process-wide entries with exactly one registrant (e.g. the system
// gauges in sysgauges.go) — per-node entries go through RegisterNode
// instead, which keeps the ref-count's liveness tracking but gives each
// node an independent value cell.
type Registry struct {
	mu          sync.RWMutex
	entries     map[string]*schema.MetricEntry
	nodeEntries map[string]map[string]*schema.MetricEntry // node -> name -> value cell
}

// NewRegistry constructs an empty process-wide registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:     make(map[string]*schema.MetricEntry),
		nodeEntries: make(map[string]map[string]*schema.MetricEntry),
	}
}

// Register adds a reference to name, creating the entry on first
// registration. Returns the shared entry. Callers with more than one
// registrant of the same name who need independent values (every
// NodeMetrics) must use RegisterNode instead.
func (r *Registry) Register(name, help string, typ schema.MetricType, init float64) *schema.MetricEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &schema.MetricEntry{Name: name, Help: help, Type: typ, Init: init, Current: init}
		r.entries[name] = e
	}
	e.refs++
	return e
}

// Release drops one reference to name, freeing the entry when the last
// reference is released.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(r.entries, name)
	}
}

// Get returns the named entry, or nil if not registered.
func (r *Registry) Get(name string) *schema.MetricEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name]
}

// Walk visits every (name, entry) pair in the registry. Global traversal
// for exposition (e.g. the Prometheus collector) uses this.
func (r *Registry) Walk(f func(name string, e *schema.MetricEntry)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name, e := range r.entries {
		f(name, e)
	}
}

// RegisterNode gives node its own independent value cell for name,
// hashed by name the way the data model describes node_metrics, while
// still bumping a process-wide ref-count under name so Release-style
// liveness tracking (and a future rename migration) has something to
// track. Unlike Register, the returned entry's Current/Rolling are never
// shared with another node's registration of the same name.
func (r *Registry) RegisterNode(node, name, help string, typ schema.MetricType, init float64) *schema.MetricEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		e = &schema.MetricEntry{Name: name, Help: help, Type: typ, Init: init}
		r.entries[name] = e
	}
	e.refs++

	nm, ok := r.nodeEntries[node]
	if !ok {
		nm = make(map[string]*schema.MetricEntry)
		r.nodeEntries[node] = nm
	}
	local := &schema.MetricEntry{Name: name, Help: help, Type: typ, Init: init, Current: init}
	nm[name] = local
	return local
}

// ReleaseNode drops node's reference to name, releasing both the
// process-wide liveness ref-count and node's own value cell.
func (r *Registry) ReleaseNode(node, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		e.refs--
		if e.refs <= 0 {
			delete(r.entries, name)
		}
	}
	if nm, ok := r.nodeEntries[node]; ok {
		delete(nm, name)
		if len(nm) == 0 {
			delete(r.nodeEntries, node)
		}
	}
}

// RenameNode migrates node's registered entries to newNode, e.g. so
// Prometheus exposition and any future per-node lookup reflect a node's
// new name immediately after a rename.
func (r *Registry) RenameNode(node, newNode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nm, ok := r.nodeEntries[node]
	if !ok {
		return
	}
	delete(r.nodeEntries, node)
	r.nodeEntries[newNode] = nm
}

// WalkNodes visits every (node, name, entry) triple across every node's
// independent metric set. Exposition (the Prometheus collector) uses
// this to report each node's counters separately instead of summing them.
func (r *Registry) WalkNodes(f func(node, name string, e *schema.MetricEntry)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for node, nm := range r.nodeEntries {
		for name, e := range nm {
			f(node, name, e)
		}
	}
}

// NodeMetrics is a per-node set of metric entries, hashed by name like
// the registry itself. A nil *NodeMetrics is a valid (failed-registration)
// state: Update silently reports failure rather than panicking.
type NodeMetrics struct {
	mu       sync.Mutex
	registry *Registry
	node     string
	entries  map[string]*schema.MetricEntry
}

// NewNodeMetrics registers a node's local metric set against the shared
// registry. On any registration error the caller should proceed with a
// nil *NodeMetrics rather than aborting node construction.
func NewNodeMetrics(registry *Registry, node string) *NodeMetrics {
	if registry == nil {
		cclog.Warnf("[METRICS]> %s: no registry, metrics disabled", node)
		return nil
	}
	return &NodeMetrics{registry: registry, node: node, entries: make(map[string]*schema.MetricEntry)}
}

// Add registers name under this node. Each node gets its own value cell
// for name — two nodes both registering "tags_read" keep independent
// counters rather than summing into one shared Current.
func (m *NodeMetrics) Add(name, help string, typ schema.MetricType, init float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = m.registry.RegisterNode(m.node, name, help, typ, init)
}

// Update applies a value according to the entry's type: COUNTER/COUNTER_SET
// add, GAUGE sets, ROLLING_COUNTER records into the window. Returns -1 if
// metrics are disabled or the entry is unknown, matching the "update_metric
// returns -1 thereafter" failure semantics.
func (m *NodeMetrics) Update(name string, nowMS int64, value float64) int {
	if m == nil {
		return -1
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return -1
	}
	switch e.Type {
	case schema.MetricGauge:
		e.Current = value
	case schema.MetricCounter, schema.MetricCounterSet:
		e.Current += value
	case schema.MetricRollingCounter:
		if e.Rolling == nil {
			rc, err := schema.NewRollingCounter(nowMS, StandardWindows[0])
			if err != nil {
				cclog.Warnf("[METRICS]> %s: rolling counter init failed: %v", m.node, err)
				return -1
			}
			e.Rolling = rc
		}
		e.Rolling.Record(nowMS, int32(value))
		e.Current = float64(e.Rolling.Sum())
	}
	return 0
}

// Value returns the current value of a local entry, or (0, false) if
// metrics are disabled or the entry is unknown.
func (m *NodeMetrics) Value(name string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return 0, false
	}
	return e.Current, true
}

// Reset restores every local entry to its Init value, unless flagged
// FlagNoReset. Invoked on node stop.
func (m *NodeMetrics) Reset() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if !e.NoReset() {
			e.Current = e.Init
		}
	}
}

// Close releases every local entry's reference on the shared registry,
// called during node teardown.
func (m *NodeMetrics) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	m.mu.Unlock()
	for _, name := range names {
		m.registry.ReleaseNode(m.node, name)
	}
}

// Rename updates the node name this metric set is registered under, so
// WalkNodes-based exposition (and any later lookup by node name) reflects
// the node's current name immediately.
func (m *NodeMetrics) Rename(newNode string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.node == newNode {
		return
	}
	m.registry.RenameNode(m.node, newNode)
	m.node = newNode
}
