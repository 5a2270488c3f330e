package schema

import (
	"fmt"
	"sync"
	"time"
)

// Group is a named bag of tags with a polling interval, owned by a
// driver node. change_timestamp is bumped on any tag add/update/delete or
// interval change and is strictly monotone per group — drivers compare
// their cached value against it to detect and resync after configuration
// drift.
type Group struct {
	Driver     string
	Name       string
	IntervalMS int64
	Context    string // opaque driver-specific context, e.g. the CID descriptor

	mu               sync.Mutex
	tags             map[string]*Tag
	changeTimestamp  int64
	nextFireAtMicros int64
}

// NewGroup constructs a group, validating its interval.
func NewGroup(driver, name string, intervalMS int64) (*Group, error) {
	if len(name) == 0 || len(name) > MaxGroupNameLen {
		return nil, fmt.Errorf("GROUP_NAME_TOO_LONG")
	}
	if intervalMS < MinGroupIntervalMS {
		return nil, fmt.Errorf("GROUP_PARAMETER_INVALID")
	}
	g := &Group{
		Driver:     driver,
		Name:       name,
		IntervalMS: intervalMS,
		tags:       make(map[string]*Tag),
	}
	g.bump()
	return g, nil
}

func nowMicros() int64 { return time.Now().UnixMicro() }

// bump must hold the caller's mu lock. Two mutations issued back to back
// can land within the same wall-clock microsecond, so a plain
// time.Now().UnixMicro() would tie rather than strictly increase;
// clamping to changeTimestamp+1 when the clock hasn't visibly advanced
// preserves the "strictly monotone per group" invariant.
func (g *Group) bump() {
	now := nowMicros()
	if now <= g.changeTimestamp {
		now = g.changeTimestamp + 1
	}
	g.changeTimestamp = now
}

// ChangeTimestamp returns the group's current change-timestamp.
func (g *Group) ChangeTimestamp() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.changeTimestamp
}

// SetInterval updates the polling interval; the change-timestamp is
// bumped only if the interval actually changed.
func (g *Group) SetInterval(intervalMS int64) error {
	if intervalMS < MinGroupIntervalMS {
		return fmt.Errorf("GROUP_PARAMETER_INVALID")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.IntervalMS != intervalMS {
		g.IntervalMS = intervalMS
		g.bump()
	}
	return nil
}

// Rename updates the group's name in place, preserving its tags and
// subscribers' view (the caller re-indexes the owning driver's registry).
func (g *Group) Rename(name string) error {
	if len(name) == 0 || len(name) > MaxGroupNameLen {
		return fmt.Errorf("GROUP_NAME_TOO_LONG")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Name != name {
		g.Name = name
		g.bump()
	}
	return nil
}

// AddTag inserts a new tag; duplicate names are rejected.
func (g *Group) AddTag(t *Tag) error {
	if err := t.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.tags[t.Name]; exists {
		return fmt.Errorf("DUPLICATE_TAG_NAME")
	}
	g.tags[t.Name] = t
	g.bump()
	return nil
}

// UpdateTag applies mutate to an existing tag's descriptor. mutate
// reports whether it actually changed anything; change_timestamp is
// bumped only when it did.
func (g *Group) UpdateTag(name string, mutate func(*Tag) (bool, error)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tags[name]
	if !ok {
		return fmt.Errorf("TAG_NOT_FOUND")
	}
	changed, err := mutate(t)
	if err != nil {
		return err
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if changed {
		g.bump()
	}
	return nil
}

// DelTag removes a tag by name.
func (g *Group) DelTag(name string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.tags[name]; !ok {
		return fmt.Errorf("TAG_NOT_FOUND")
	}
	delete(g.tags, name)
	g.bump()
	return nil
}

// GetAll returns every tag in the group.
func (g *Group) GetAll() []*Tag {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Tag, 0, len(g.tags))
	for _, t := range g.tags {
		out = append(out, t)
	}
	return out
}

// Get returns a single tag by name.
func (g *Group) Get(name string) (*Tag, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.tags[name]
	return t, ok
}

// Count returns the number of tags currently in the group.
func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tags)
}

// TagComparable is a value-equal snapshot of a Tag used to implement the
// round-trip property: add_tag(t); del_tag(t.name) returns the group to
// its prior tag-set.
type TagComparable struct {
	Name, Address string
	Type          TagType
	Attrs         TagAttr
}

// Snapshot returns a comparable view of the tag set, order-independent.
func (g *Group) Snapshot() map[string]TagComparable {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make(map[string]TagComparable, len(g.tags))
	for name, t := range g.tags {
		out[name] = TagComparable{Name: t.Name, Address: t.Address, Type: t.Type, Attrs: t.Attrs}
	}
	return out
}
