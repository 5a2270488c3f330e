package driver

import (
	"fmt"

	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
	"github.com/neuron-io/broker/internal/tagmodel"
)

// ReadGroup services an ad hoc READ_GROUP request (distinct from the
// periodic poll in poll.go): req.Sync bypasses the tag cache entirely
// and reads the device directly; otherwise each tag is served from
// cache, falling back to a live read on a miss or expiry and
// repopulating the cache with the fresh value.
func (d *Driver) ReadGroup(group string, req envelope.ReadGroupRequest) ([]schema.TagValue, error) {
	g, ok := d.GetGroup(group)
	if !ok {
		return nil, fmt.Errorf("GROUP_NOT_FOUND")
	}
	tags, err := tagmodel.QueryReadable(g, req.NameSubstr, req.DescSubstr, req.TagNames)
	if err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return []schema.TagValue{}, nil
	}

	if req.Sync {
		values, err := d.plugin.ReadGroup(d.name, group, tags)
		if err != nil {
			return nil, err
		}
		values = schema.NormalizeTagValues(values)
		for i := range values {
			d.cache.Put(group, values[i].Tag, values[i])
		}
		return values, nil
	}

	out := make([]schema.TagValue, 0, len(tags))
	var misses []*schema.Tag
	for _, t := range tags {
		if tv, ok := d.cache.Get(group, t.Name); ok {
			out = append(out, tv)
		} else {
			misses = append(misses, t)
		}
	}
	if len(misses) > 0 {
		values, err := d.plugin.ReadGroup(d.name, group, misses)
		if err != nil {
			return nil, err
		}
		values = schema.NormalizeTagValues(values)
		for i := range values {
			d.cache.Put(group, values[i].Tag, values[i])
			out = append(out, values[i])
		}
	}
	return out, nil
}

// ScanTags discovers the device's current tag set for group, bypassing
// the cache entirely, per spec §4.6's online-discovery flow.
func (d *Driver) ScanTags(group string) ([]schema.Tag, error) {
	if _, ok := d.GetGroup(group); !ok {
		return nil, fmt.Errorf("GROUP_NOT_FOUND")
	}
	return d.plugin.ScanTags(d.name, group)
}

// TestRead performs a one-shot bypass-cache read of a single tag,
// without requiring the tag to already be registered in the group.
func (d *Driver) TestRead(group string, tag schema.Tag) (schema.TagValue, error) {
	if _, ok := d.GetGroup(group); !ok {
		return schema.TagValue{}, fmt.Errorf("GROUP_NOT_FOUND")
	}
	tv, err := d.plugin.TestRead(d.name, group, tag)
	if err != nil {
		return tv, err
	}
	return schema.NormalizeTagValue(tv), nil
}
