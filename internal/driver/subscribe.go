package driver

import (
	"fmt"

	"github.com/neuron-io/broker/internal/schema"
)

// Subscribe registers an app's interest in a group. The group must
// already exist; re-subscribing the same (app, driver, group) key
// overwrites the prior params/static_tags rather than erroring, matching
// the idempotent-resubscribe behavior exercised by spec §8's scenarios.
func (d *Driver) Subscribe(sub schema.Subscription) error {
	if _, ok := d.GetGroup(sub.Group); !ok {
		return fmt.Errorf("GROUP_NOT_FOUND")
	}
	d.subMu.Lock()
	defer d.subMu.Unlock()
	m, ok := d.subs[sub.Group]
	if !ok {
		m = make(map[schema.SubscriptionKey]schema.Subscription)
		d.subs[sub.Group] = m
	}
	m[sub.Key()] = sub
	return nil
}

// Unsubscribe removes a subscription. Unsubscribing a key that doesn't
// exist is not an error: the end state the caller wants (no subscription)
// already holds.
func (d *Driver) Unsubscribe(key schema.SubscriptionKey) error {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	if m, ok := d.subs[key.Group]; ok {
		delete(m, key)
	}
	return nil
}

// UpdateSubscribe mutates only params/static_tags on an existing
// subscription (Open Question 1, DESIGN.md): the driver/group a
// subscription targets is immutable once created — retargeting is
// modeled as unsubscribe+subscribe, not an update.
func (d *Driver) UpdateSubscribe(key schema.SubscriptionKey, newParams, newStaticTags *string) error {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	m, ok := d.subs[key.Group]
	if !ok {
		return fmt.Errorf("SUBSCRIPTION_NOT_FOUND")
	}
	sub, ok := m[key]
	if !ok {
		return fmt.Errorf("SUBSCRIPTION_NOT_FOUND")
	}
	if newParams != nil {
		sub.Params = *newParams
	}
	if newStaticTags != nil {
		sub.StaticTags = *newStaticTags
	}
	m[key] = sub
	return nil
}

// ListSubscriptions returns every subscription currently registered
// against group.
func (d *Driver) ListSubscriptions(group string) []schema.Subscription {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	m := d.subs[group]
	out := make([]schema.Subscription, 0, len(m))
	for _, s := range m {
		out = append(out, s)
	}
	return out
}
