package manager

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

// persistRouted snoops on a node's successful response envelopes as they
// pass back through Route, persisting the group/tag/subscription mutation
// they confirm. Control-plane responses are emitted only after the side
// effect they describe completes (spec §5), so seeing one here is always
// safe to treat as "committed, persist it now."
func (m *Manager) persistRouted(e *envelope.Envelope) {
	if e.Type == envelope.TypeError {
		return
	}
	switch body := e.Body.(type) {
	case envelope.AddGroupRequest:
		m.persistGroup(body.Driver, body.Group)
	case envelope.UpdateGroupRequest:
		name := body.Group
		if body.NewName != "" {
			name = body.NewName
		}
		m.persistGroup(body.Driver, name)
	case envelope.DelGroupRequest:
		if err := m.store.DeleteGroup(bgCtx, body.Driver, body.Group); err != nil {
			cclog.Warnf("[MANAGER]> %s/%s: delete group persist: %v", body.Driver, body.Group, err)
		}
	case envelope.AddTagRequest:
		m.persistTag(body.Driver, body.Group, body.Tag.Name)
	case envelope.UpdateTagRequest:
		m.persistTag(body.Driver, body.Group, body.Tag)
	case envelope.DelTagRequest:
		if err := m.store.DeleteTag(bgCtx, body.Driver, body.Group, body.Tag); err != nil {
			cclog.Warnf("[MANAGER]> %s/%s/%s: delete tag persist: %v", body.Driver, body.Group, body.Tag, err)
		}
	case envelope.AddGTagRequest:
		for _, g := range body.Groups {
			for _, t := range g.Tags {
				m.persistTag(body.Driver, g.Group, t.Name)
			}
		}
	case envelope.SubscribeGroupRequest:
		m.persistSubscription(body.App, body.Driver, body.Group, body.Port, body.Params, body.StaticTags)
	case envelope.SubscribeGroupsRequest:
		for _, g := range body.Groups {
			m.persistSubscription(body.App, g.Driver, g.Group, g.Port, g.Params, g.StaticTags)
		}
	case envelope.UnsubscribeGroupRequest:
		if err := m.store.DeleteSubscription(bgCtx, body.App, body.Driver, body.Group); err != nil {
			cclog.Warnf("[MANAGER]> %s/%s/%s: delete subscription persist: %v", body.App, body.Driver, body.Group, err)
		}
	}
}

func (m *Manager) persistGroup(driverName, group string) {
	ent, ok := m.lookup(driverName)
	if !ok || ent.driver == nil {
		return
	}
	g, ok := ent.driver.GetGroup(group)
	if !ok {
		return
	}
	if err := m.store.UpsertGroup(bgCtx, schema.GroupRecord{Driver: driverName, Name: g.Name, IntervalMS: g.IntervalMS, Context: g.Context}); err != nil {
		cclog.Warnf("[MANAGER]> %s/%s: persist group: %v", driverName, group, err)
	}
}

func (m *Manager) persistTag(driverName, group, tag string) {
	ent, ok := m.lookup(driverName)
	if !ok || ent.driver == nil {
		return
	}
	t, ok := ent.driver.GetTag(group, tag)
	if !ok {
		return
	}
	if err := m.store.UpsertTag(bgCtx, tagToRecord(driverName, group, t)); err != nil {
		cclog.Warnf("[MANAGER]> %s/%s/%s: persist tag: %v", driverName, group, tag, err)
	}
}

func (m *Manager) persistSubscription(app, driverName, group string, port int, params, staticTags string) {
	if err := m.store.UpsertSubscription(bgCtx, schema.SubscriptionRecord{
		App: app, Driver: driverName, Group: group, Port: port, Params: params, StaticTags: staticTags,
	}); err != nil {
		cclog.Warnf("[MANAGER]> %s/%s/%s: persist subscription: %v", app, driverName, group, err)
	}
}
