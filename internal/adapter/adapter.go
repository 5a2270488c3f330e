// Package adapter implements the per-node runtime: the INIT → READY →
// RUNNING → STOPPED lifecycle, control-plane dispatch, and (for APP
// nodes) the mailbox consumer loop. internal/driver builds the DRIVER-
// specific group/tag/polling machinery on top of this package via the
// DriverExt hook rather than the reverse, so this package stays free of
// a dependency on internal/driver.
package adapter

import (
	"fmt"
	"sync"
	"sync/atomic"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/mailbox"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

// DriverExt is the hook internal/driver.Driver implements to supply
// group/tag/subscription machinery to a DRIVER-kind Adapter's dispatch
// switch, keeping that machinery out of this package.
type DriverExt interface {
	AddGroup(name string, intervalMS int64, context string) error
	DelGroup(name string) error
	UpdateGroup(name, newName string, intervalMS int64) error
	GetGroup(name string) (*schema.Group, bool)
	ListGroups() []schema.GroupRecord

	AddTag(group string, t *schema.Tag) error
	DelTag(group, tag string) error
	UpdateTag(group, tag string, mutate func(*schema.Tag) (bool, error)) error
	GetTag(group, tag string) (*schema.Tag, bool)

	ReadGroup(group string, req envelope.ReadGroupRequest) ([]schema.TagValue, error)
	WriteTags(group string, values []envelope.TagValuePair) error
	ScanTags(group string) ([]schema.Tag, error)
	TestRead(group string, tag schema.Tag) (schema.TagValue, error)

	Subscribe(sub schema.Subscription) error
	Unsubscribe(key schema.SubscriptionKey) error
	UpdateSubscribe(key schema.SubscriptionKey, newParams, newStaticTags *string) error
	ListSubscriptions(group string) []schema.Subscription

	// PauseGroupPolling/ResumeGroupPolling bracket a rename so no poll
	// fires against a half-renamed node.
	PauseGroupPolling()
	ResumeGroupPolling()

	// Rename updates the driver's own notion of its name, used as the
	// Driver field of every persisted group/tag/subscription record.
	Rename(newName string)
}

// Sender abstracts the manager's routing function so adapters don't
// depend on internal/manager directly.
type Sender interface {
	Route(e *envelope.Envelope)
}

// Adapter is one running node instance: its control-plane dispatch,
// lifecycle state, metrics, and (for APP nodes) mailbox consumer.
type Adapter struct {
	mu      sync.RWMutex
	name    string
	kind    schema.NodeKind
	plugin  Plugin
	setting string

	state int32 // schema.RunState, atomic
	link  int32 // schema.LinkState, atomic

	reactor   *reactor.Reactor
	ctlHandle reactor.Handle
	telHandle reactor.Handle
	ctlCh     chan *envelope.Envelope // actual control queue
	ctlWake   chan reactor.EventKind  // wakes the reactor's ctl pump
	telCh     chan *envelope.Envelope // actual telemetry queue
	telWake   chan reactor.EventKind  // wakes the reactor's telemetry pump
	mailbox   *mailbox.Mailbox        // APP only
	metrics   *metrics.NodeMetrics
	sender    Sender
	driverExt DriverExt // DRIVER only

	stopConsume chan struct{}
	consumeDone chan struct{}
}

// Config bundles construction parameters, one per the adapter's
// construction sequence.
type Config struct {
	Name     string
	Kind     schema.NodeKind
	Plugin   Plugin
	Reactor  *reactor.Reactor
	Registry *metrics.Registry
	Sender   Sender
}

// New runs the construction sequence: open sockets (here, channels),
// register metrics, register reactor handlers, open/init the plugin,
// and apply a persisted setting if one is supplied via ApplySetting
// after construction. It does not send NODE_INIT; the manager does that
// once the adapter is registered in its directory.
func New(cfg Config) (*Adapter, error) {
	if err := schema.ValidateNodeName(cfg.Name); err != nil {
		return nil, err
	}

	a := &Adapter{
		name:    cfg.Name,
		kind:    cfg.Kind,
		plugin:  cfg.Plugin,
		reactor: cfg.Reactor,
		ctlCh:   make(chan *envelope.Envelope, 64),
		ctlWake: make(chan reactor.EventKind, 1),
		sender:  cfg.Sender,
	}
	atomic.StoreInt32(&a.state, int32(schema.StateInit))
	atomic.StoreInt32(&a.link, int32(schema.LinkDisconnected))

	a.metrics = metrics.NewNodeMetrics(cfg.Registry, cfg.Name)
	a.registerStandardMetrics()

	h, err := a.reactor.AddIO(a.ctlWake, a.onCtlEvent, nil)
	if err != nil {
		return nil, fmt.Errorf("register control handler: %w", err)
	}
	a.ctlHandle = h

	if cfg.Kind == schema.KindApp {
		a.telCh = make(chan *envelope.Envelope, 64)
		a.telWake = make(chan reactor.EventKind, 1)
		a.mailbox = mailbox.New(cfg.Name)
		th, err := a.reactor.AddIO(a.telWake, a.onTelEvent, nil)
		if err != nil {
			a.reactor.DelIO(a.ctlHandle)
			return nil, fmt.Errorf("register telemetry handler: %w", err)
		}
		a.telHandle = th
		a.stopConsume = make(chan struct{})
		a.consumeDone = make(chan struct{})
		go a.runConsumer()
	}

	if err := a.plugin.Open(); err != nil {
		return nil, fmt.Errorf("plugin open: %w", err)
	}
	if err := a.plugin.Init(""); err != nil {
		return nil, fmt.Errorf("plugin init: %w", err)
	}

	return a, nil
}

func (a *Adapter) registerStandardMetrics() {
	a.metrics.Add("msgs_received", "control messages received", schema.MetricCounter, 0)
	a.metrics.Add("msgs_dropped", "mailbox drops", schema.MetricCounter, 0)
}

// onCtlEvent drains every envelope currently queued on ctlCh. The wake
// channel only coalesces "something is waiting" notifications — ctlCh
// itself is the FIFO of record, so a single wake-up is enough to fully
// empty whatever has accumulated since the last one.
func (a *Adapter) onCtlEvent(kind reactor.EventKind, _ any) {
	if kind != reactor.EventRead {
		return
	}
	for {
		select {
		case e := <-a.ctlCh:
			resp := a.Dispatch(e)
			if resp != nil && a.sender != nil {
				a.sender.Route(resp)
			}
		default:
			return
		}
	}
}

func (a *Adapter) onTelEvent(kind reactor.EventKind, _ any) {
	if kind != reactor.EventRead {
		return
	}
	for {
		select {
		case e := <-a.telCh:
			a.handleTelemetry(e)
		default:
			return
		}
	}
}

// Deliver enqueues an incoming control envelope and wakes the reactor's
// control pump; this is the in-process stand-in for a readable control
// socket becoming ready.
func (a *Adapter) Deliver(e *envelope.Envelope) {
	select {
	case a.ctlCh <- e:
	default:
		cclog.Warnf("[ADAPTER]> %s: control channel full, dropping %s", a.name, e.Type)
		return
	}
	select {
	case a.ctlWake <- reactor.EventRead:
	default:
	}
}

// DeliverTelemetry enqueues an incoming telemetry-socket envelope
// (TRANS_DATA or ERROR) and wakes the reactor's telemetry pump. Only
// valid for APP nodes.
func (a *Adapter) DeliverTelemetry(e *envelope.Envelope) {
	select {
	case a.telCh <- e:
	default:
		cclog.Warnf("[ADAPTER]> %s: telemetry channel full, dropping %s", a.name, e.Type)
		return
	}
	select {
	case a.telWake <- reactor.EventRead:
	default:
	}
}

// Name, Kind, State, Link are read-only snapshots safe from any goroutine.
func (a *Adapter) Name() string          { return a.name }
func (a *Adapter) Kind() schema.NodeKind { return a.kind }
func (a *Adapter) State() schema.RunState {
	return schema.RunState(atomic.LoadInt32(&a.state))
}
func (a *Adapter) Link() schema.LinkState { return schema.LinkState(atomic.LoadInt32(&a.link)) }

func (a *Adapter) setState(s schema.RunState) { atomic.StoreInt32(&a.state, int32(s)) }

// ApplySetting validates and applies a setting blob, transitioning
// INIT → READY on first acceptance.
func (a *Adapter) ApplySetting(setting string) error {
	if err := a.plugin.Setting(setting); err != nil {
		return err
	}
	a.mu.Lock()
	a.setting = setting
	a.mu.Unlock()
	if a.State() == schema.StateInit {
		a.setState(schema.StateReady)
	}
	return nil
}

// CurrentSetting returns the last setting blob accepted by ApplySetting,
// or "" if none has ever been accepted.
func (a *Adapter) CurrentSetting() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.setting
}

// Start transitions READY → RUNNING.
func (a *Adapter) Start() error {
	switch a.State() {
	case schema.StateInit:
		return ErrNodeNotReady
	case schema.StateRunning:
		return ErrNodeIsRunning
	}
	if err := a.plugin.Start(); err != nil {
		return err
	}
	a.setState(schema.StateRunning)
	atomic.StoreInt32(&a.link, int32(schema.LinkConnected))
	return nil
}

// Stop transitions RUNNING → STOPPED.
func (a *Adapter) Stop() error {
	switch a.State() {
	case schema.StateInit, schema.StateReady:
		return ErrNodeNotRunning
	case schema.StateStopped:
		return ErrNodeIsStopped
	}
	if err := a.plugin.Stop(); err != nil {
		return err
	}
	a.setState(schema.StateStopped)
	atomic.StoreInt32(&a.link, int32(schema.LinkDisconnected))
	a.metrics.Reset()
	return nil
}

// SetDriverExt installs the DRIVER-specific extension hook; called once
// by internal/driver right after New for DRIVER-kind adapters.
func (a *Adapter) SetDriverExt(ext DriverExt) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.driverExt = ext
}

func (a *Adapter) driver() DriverExt {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.driverExt
}

// Rename updates the adapter's name, its metrics registration and log
// category, pausing and resuming group polling around the change for
// DRIVER nodes so no tick fires against a half-renamed node. Log lines
// read a.name live, so updating it covers the log category; the metrics
// registry needs an explicit migration since it is hashed by name.
func (a *Adapter) Rename(newName string) error {
	if err := schema.ValidateNodeName(newName); err != nil {
		return err
	}
	if ext := a.driver(); ext != nil {
		ext.PauseGroupPolling()
		defer ext.ResumeGroupPolling()
		ext.Rename(newName)
	}
	a.mu.Lock()
	a.name = newName
	a.mu.Unlock()
	a.metrics.Rename(newName)
	return nil
}

// Mailbox exposes the APP telemetry mailbox (nil for DRIVER nodes).
func (a *Adapter) Mailbox() *mailbox.Mailbox { return a.mailbox }

// Metrics exposes the node's metric set.
func (a *Adapter) Metrics() *metrics.NodeMetrics { return a.metrics }

// Close tears down the adapter: stops the consumer, drains the mailbox,
// deregisters reactor handles, and calls plugin.Uninit. Only valid from
// STOPPED or INIT.
func (a *Adapter) Close() error {
	if a.State() != schema.StateStopped && a.State() != schema.StateInit {
		return fmt.Errorf("cannot close adapter %s in state %s", a.name, a.State())
	}
	a.reactor.DelIO(a.ctlHandle)
	close(a.ctlCh)
	close(a.ctlWake)

	if a.kind == schema.KindApp {
		// Free unblocks a consumer parked in mailbox.Pop (ok=false) and
		// drains anything still queued, so runConsumer always observes
		// termination through the mailbox rather than a side channel.
		// Queued envelopes had their refcount decremented when
		// handleTelemetry pushed them, so draining them decrements nothing.
		a.mailbox.Free(nil)
		<-a.consumeDone
		a.reactor.DelIO(a.telHandle)
		close(a.telCh)
		close(a.telWake)
	}

	a.plugin.Uninit()
	a.metrics.Close()
	return nil
}
