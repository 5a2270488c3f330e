package driver

import (
	"sync/atomic"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
	"github.com/neuron-io/broker/internal/tagmodel"
)

// tick runs one 100ms reactor inspection: every group whose next-fire-at
// is due gets polled at most once, coalescing any ticks it missed while
// the reactor was busy (spec §4.6 "a group fires at most once per
// inspection").
func (d *Driver) tick() {
	if atomic.LoadInt32(&d.paused) == 1 {
		return
	}
	now := nowMicros()

	d.mu.RLock()
	due := make([]*schema.Group, 0, len(d.groups))
	for name, g := range d.groups {
		if d.nextFireMicros[name] <= now {
			due = append(due, g)
		}
	}
	d.mu.RUnlock()

	for _, g := range due {
		d.pollGroup(g, now)
	}
}

func (d *Driver) pollGroup(g *schema.Group, now int64) {
	d.mu.Lock()
	d.nextFireMicros[g.Name] = now + g.IntervalMS*1000
	d.mu.Unlock()

	// The readable tag set is read from the group on every poll: when the
	// change timestamp has moved it goes through QueryReadable and the new
	// timestamp is recorded, otherwise GetAll is filtered by Readable. No
	// snapshot is kept between polls.
	changeTS := g.ChangeTimestamp()
	d.mu.RLock()
	lastSeen := d.lastSeenChange[g.Name]
	d.mu.RUnlock()

	var readable []*schema.Tag
	if changeTS != lastSeen {
		readable, _ = tagmodel.QueryReadable(g, "", "", nil)
		d.mu.Lock()
		d.lastSeenChange[g.Name] = changeTS
		d.mu.Unlock()
	} else {
		readable = tagmodel.GetAll(g)
		filtered := readable[:0:0]
		for _, t := range readable {
			if t.Attrs.Readable() {
				filtered = append(filtered, t)
			}
		}
		readable = filtered
	}

	if len(readable) == 0 {
		d.metrics.Update("poll_ticks", nowMillis(), 1)
		return
	}

	values, err := d.plugin.ReadGroup(d.name, g.Name, readable)
	if err != nil {
		cclog.Warnf("[DRIVER]> %s/%s: poll failed: %v", d.name, g.Name, err)
		return
	}
	values = schema.NormalizeTagValues(values)
	for i := range values {
		values[i].Timestamp = now
		d.cache.Put(g.Name, values[i].Tag, values[i])
	}
	d.metrics.Update("tags_read", nowMillis(), float64(len(values)))
	d.metrics.Update("poll_ticks", nowMillis(), 1)

	d.fanOut(g.Name, values)
}

// fanOut builds one TRANS_DATA envelope per subscribing app, all sharing
// a single refcount seeded at the subscriber count, and hands each to
// the router. Subscriptions are re-read here (not cached across ticks)
// so a subscribe or unsubscribe is reflected in the very next fan-out's
// refcount width. Subscription changes do not touch the group's
// change-timestamp.
func (d *Driver) fanOut(group string, values []schema.TagValue) {
	d.subMu.RLock()
	subs := d.subs[group]
	apps := make([]string, 0, len(subs))
	for k := range subs {
		apps = append(apps, k.App)
	}
	d.subMu.RUnlock()

	if len(apps) == 0 {
		return
	}

	rc := envelope.NewRefcount(len(apps), nil)
	for _, app := range apps {
		e := &envelope.Envelope{
			Type:     envelope.TypeTransData,
			Sender:   d.name,
			Receiver: app,
			Body:     envelope.NewTransDataBodyShared(d.name, group, values, rc),
		}
		d.router.RouteTelemetry(e)
	}
}
