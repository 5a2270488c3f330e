package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/neuron-io/broker/internal/schema"
)

// Collector exposes the process-wide Registry through the standard
// prometheus.Collector interface, so a /metrics HTTP handler
// (internal/opsapi) can scrape the same rolling-counter/gauge/counter
// state the core uses internally. The registry itself stays
// test-observable plain Go structures so its exact rolling-counter
// bucket math can be asserted directly, with this type as a thin
// read-only adapter over it.
type Collector struct {
	registry *Registry
}

// NewCollector wraps registry for Prometheus exposition.
func NewCollector(registry *Registry) *Collector {
	return &Collector{registry: registry}
}

// Describe emits no fixed descriptors: entry names are dynamic (one per
// registered metric, shared across nodes), so Collect sends descriptors
// inline per the "unchecked" collector pattern.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {}

// Collect walks the registry and emits one sample per entry. Entry names
// are taken as-is for the Prometheus metric name; this assumes callers
// register names that are already valid Prometheus identifiers, which
// holds for every entry this broker registers (snake_case literals).
// Process-wide entries (e.g. system gauges) carry no labels; per-node
// entries carry a "node" label so two nodes registering the same name
// are reported as distinct series instead of being summed together.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.registry.Walk(func(name string, e *schema.MetricEntry) {
		desc := prometheus.NewDesc(name, e.Help, nil, nil)
		m, err := prometheus.NewConstMetric(desc, valueType(e.Type), e.Current)
		if err != nil {
			return
		}
		ch <- m
	})
	c.registry.WalkNodes(func(node, name string, e *schema.MetricEntry) {
		desc := prometheus.NewDesc(name, e.Help, []string{"node"}, nil)
		m, err := prometheus.NewConstMetric(desc, valueType(e.Type), e.Current, node)
		if err != nil {
			return
		}
		ch <- m
	})
}

func valueType(t schema.MetricType) prometheus.ValueType {
	if t == schema.MetricCounter || t == schema.MetricCounterSet {
		return prometheus.CounterValue
	}
	return prometheus.GaugeValue
}
