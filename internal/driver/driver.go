// Package driver implements the DRIVER-kind additions to internal/adapter:
// the group registry, the group-polling scheduler, the per-tag value
// cache, the subscriber registry and the write queue, per spec §4.6. A
// *Driver satisfies adapter.DriverExt and is installed onto its owning
// *adapter.Adapter via SetDriverExt.
package driver

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
	"github.com/go-co-op/gocron/v2"
	"golang.org/x/time/rate"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

// Router is the manager's fan-out entry point for telemetry: it looks
// up the receiver's adapter and pushes the envelope onto its telemetry
// channel, mirroring the source's trans_data socket.
type Router interface {
	RouteTelemetry(e *envelope.Envelope)
}

// Config bundles a Driver's construction parameters.
type Config struct {
	Name     string
	Plugin   adapter.DriverPlugin
	Metrics  *metrics.NodeMetrics
	Reactor  *reactor.Reactor
	Router   Router
	BaseTick time.Duration // default 100ms, the reactor's poll granularity
}

// Driver owns a node's groups, subscribers, tag cache and write queue.
type Driver struct {
	name    string
	plugin  adapter.DriverPlugin
	metrics *metrics.NodeMetrics
	router  Router
	reactor *reactor.Reactor

	mu             sync.RWMutex
	groups         map[string]*schema.Group
	nextFireMicros map[string]int64
	lastSeenChange map[string]int64

	// subMu is the adapter-wide rwlock on the subscriber list (spec §5).
	subMu sync.RWMutex
	subs  map[string]map[schema.SubscriptionKey]schema.Subscription

	cache *TagCache

	pollHandle reactor.Handle
	paused     int32

	writeQueue chan writeJob
	limiter    *rate.Limiter
	stopWriter chan struct{}
	writerDone chan struct{}

	housekeeping gocron.Scheduler
}

// New constructs a Driver and starts its polling timer and write-queue
// drain goroutine. Call Close to stop both.
func New(cfg Config) *Driver {
	tick := cfg.BaseTick
	if tick <= 0 {
		tick = 100 * time.Millisecond
	}
	d := &Driver{
		name:           cfg.Name,
		plugin:         cfg.Plugin,
		metrics:        cfg.Metrics,
		router:         cfg.Router,
		reactor:        cfg.Reactor,
		groups:         make(map[string]*schema.Group),
		nextFireMicros: make(map[string]int64),
		lastSeenChange: make(map[string]int64),
		subs:           make(map[string]map[schema.SubscriptionKey]schema.Subscription),
		cache:          NewTagCache(cfg.Plugin.CachePolicy()),
		writeQueue:     make(chan writeJob, 256),
		limiter:        rate.NewLimiter(rate.Limit(200), 50),
		stopWriter:     make(chan struct{}),
		writerDone:     make(chan struct{}),
	}
	d.metricsInit()

	h, err := d.reactor.AddTimer(tick, reactor.NonBlock, func(any) { d.tick() }, nil)
	if err != nil {
		cclog.Warnf("[DRIVER]> %s: could not register poll timer: %v", d.name, err)
	}
	d.pollHandle = h

	go d.drainWrites()
	d.housekeeping = d.startHousekeeping()
	return d
}

func (d *Driver) metricsInit() {
	d.metrics.Add("tags_read", "tag values read from the device", schema.MetricCounter, 0)
	d.metrics.Add("poll_ticks", "group poll cycles executed", schema.MetricCounter, 0)
	d.metrics.Add("writes_ok", "successful tag writes", schema.MetricCounter, 0)
	d.metrics.Add("writes_failed", "failed tag writes", schema.MetricCounter, 0)
}

// Close stops the poll timer, the write-queue drain goroutine and the
// housekeeping scheduler.
func (d *Driver) Close() {
	d.reactor.DelTimer(d.pollHandle)
	close(d.stopWriter)
	<-d.writerDone
	if d.housekeeping != nil {
		_ = d.housekeeping.Shutdown()
	}
}

// PauseGroupPolling/ResumeGroupPolling bracket a node rename so no tick
// fires against a half-renamed node (spec §4.5).
func (d *Driver) PauseGroupPolling() { atomic.StoreInt32(&d.paused, 1) }
func (d *Driver) ResumeGroupPolling() { atomic.StoreInt32(&d.paused, 0) }

// Rename updates the driver's own name, used as the Driver field of
// every group/tag/subscription record from this point on. The caller
// (adapter.Rename) brackets this with PauseGroupPolling/ResumeGroupPolling
// so no in-flight tick reads d.name mid-update.
func (d *Driver) Rename(newName string) {
	d.mu.Lock()
	d.name = newName
	d.mu.Unlock()
}

// AddGroup creates a new polling group, enforcing the 512-groups-per-node
// limit.
func (d *Driver) AddGroup(name string, intervalMS int64, context string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.groups[name]; exists {
		return fmt.Errorf("GROUP_ALREADY_EXISTS")
	}
	if len(d.groups) >= schema.MaxGroupsPerNode {
		return fmt.Errorf("GROUP_MAX_GROUPS")
	}
	g, err := schema.NewGroup(d.name, name, intervalMS)
	if err != nil {
		return err
	}
	g.Context = context
	d.groups[name] = g
	d.nextFireMicros[name] = nowMicros() + intervalMS*1000
	return nil
}

// DelGroup removes a group and every subscription registered against it.
func (d *Driver) DelGroup(name string) error {
	d.mu.Lock()
	if _, ok := d.groups[name]; !ok {
		d.mu.Unlock()
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	delete(d.groups, name)
	delete(d.nextFireMicros, name)
	delete(d.lastSeenChange, name)
	d.mu.Unlock()

	d.subMu.Lock()
	delete(d.subs, name)
	d.subMu.Unlock()
	return nil
}

// UpdateGroup renames a group and/or changes its interval. Renaming
// preserves tags and subscribers: the subscriber map and group object
// are re-indexed under the new name, never recreated.
func (d *Driver) UpdateGroup(name, newName string, intervalMS int64) error {
	d.mu.Lock()
	g, ok := d.groups[name]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	if newName != name {
		if _, clash := d.groups[newName]; clash {
			d.mu.Unlock()
			return fmt.Errorf("GROUP_ALREADY_EXISTS")
		}
	}
	if intervalMS > 0 && intervalMS != g.IntervalMS {
		if err := g.SetInterval(intervalMS); err != nil {
			d.mu.Unlock()
			return err
		}
		// The next fire time was scheduled under the old interval; an
		// interval change must be honored starting now, not at whatever
		// time the old interval had already queued up, per the
		// "next poll fires >= the new interval after the last one" rule.
		d.nextFireMicros[name] = nowMicros() + intervalMS*1000
	}
	if newName != name {
		if err := g.Rename(newName); err != nil {
			d.mu.Unlock()
			return err
		}
		delete(d.groups, name)
		d.groups[newName] = g
		d.nextFireMicros[newName] = d.nextFireMicros[name]
		delete(d.nextFireMicros, name)
		d.lastSeenChange[newName] = d.lastSeenChange[name]
		delete(d.lastSeenChange, name)
	}
	d.mu.Unlock()

	if newName != name {
		d.subMu.Lock()
		if s, ok := d.subs[name]; ok {
			d.subs[newName] = s
			delete(d.subs, name)
		}
		d.subMu.Unlock()
	}
	return nil
}

// GetGroup returns a group by name.
func (d *Driver) GetGroup(name string) (*schema.Group, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.groups[name]
	return g, ok
}

// ListGroups returns every group's persistence-facing record.
func (d *Driver) ListGroups() []schema.GroupRecord {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]schema.GroupRecord, 0, len(d.groups))
	for _, g := range d.groups {
		out = append(out, schema.GroupRecord{Driver: d.name, Name: g.Name, IntervalMS: g.IntervalMS, Context: g.Context})
	}
	return out
}

// AddTag adds a tag to an existing group.
func (d *Driver) AddTag(group string, t *schema.Tag) error {
	g, ok := d.GetGroup(group)
	if !ok {
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	t.Driver, t.Group = d.name, group
	return g.AddTag(t)
}

// DelTag removes a tag from a group.
func (d *Driver) DelTag(group, tag string) error {
	g, ok := d.GetGroup(group)
	if !ok {
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	return g.DelTag(tag)
}

// UpdateTag mutates a tag descriptor in place.
func (d *Driver) UpdateTag(group, tag string, mutate func(*schema.Tag) (bool, error)) error {
	g, ok := d.GetGroup(group)
	if !ok {
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	return g.UpdateTag(tag, mutate)
}

// GetTag returns a single tag descriptor.
func (d *Driver) GetTag(group, tag string) (*schema.Tag, bool) {
	g, ok := d.GetGroup(group)
	if !ok {
		return nil, false
	}
	return g.Get(tag)
}

func nowMicros() int64 { return time.Now().UnixMicro() }
func nowMillis() int64 { return time.Now().UnixMilli() }
