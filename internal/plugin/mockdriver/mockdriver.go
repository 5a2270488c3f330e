// Package mockdriver is the in-tree reference DriverPlugin: it stands in
// for a real device-protocol implementation (Modbus, OPC UA, ...) named
// out of scope, so the adapter/driver stack has something concrete to
// poll end to end in tests. Every tag reads back a repeating ramp
// 1, 2, 3, ... advancing once per ReadGroup call, keyed independently
// per driver/group/tag so unrelated groups don't perturb each other's
// sequence.
package mockdriver

import (
	"fmt"
	"sync"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/schema"
)

var _ adapter.DriverPlugin = (*Driver)(nil)

// Driver is the mock device backend. RampMax bounds the cycle (spec §8
// scenario 1 uses a ramp of [1, 2, 3]); zero selects the default of 3.
type Driver struct {
	RampMax int

	mu      sync.Mutex
	setting string
	ramp    map[string]int64 // driver/group/tag -> next value to emit
	written map[string]any   // driver/group/tag -> last written value, for TestRead-after-write
}

// New constructs a mock driver plugin with the default ramp length.
func New() *Driver {
	return &Driver{RampMax: 3, ramp: make(map[string]int64), written: make(map[string]any)}
}

func (d *Driver) Open() error { return nil }

func (d *Driver) Init(setting string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setting = setting
	return nil
}

func (d *Driver) Uninit() {}

func (d *Driver) Setting(setting string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setting = setting
	return nil
}

func (d *Driver) Start() error { return nil }

func (d *Driver) Stop() error { return nil }

func (d *Driver) Request(req *envelope.Envelope) *envelope.Envelope {
	if req.Type != envelope.TypeDriverAction {
		return envelope.NewError(req, "UNSUPPORTED_REQUEST")
	}
	return envelope.Exchange(req, req.Type, req.Body)
}

func (d *Driver) CachePolicy() adapter.CachePolicy { return adapter.CacheInterval }

func (d *Driver) key(driver, group, tag string) string {
	return driver + "/" + group + "/" + tag
}

// next advances and returns the ramp value for a tag, wrapping back to 1
// after RampMax.
func (d *Driver) next(key string) int64 {
	max := int64(d.RampMax)
	if max <= 0 {
		max = 3
	}
	v := d.ramp[key] + 1
	if v > max {
		v = 1
	}
	d.ramp[key] = v
	return v
}

// ReadGroup returns the next ramp value for each requested tag, coerced
// to the tag's declared type.
func (d *Driver) ReadGroup(driverName, group string, tags []*schema.Tag) ([]schema.TagValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]schema.TagValue, len(tags))
	for i, t := range tags {
		key := d.key(driverName, group, t.Name)
		v := d.next(key)
		out[i] = schema.TagValue{
			Tag:   t.Name,
			Type:  t.Type,
			Value: coerce(t.Type, v),
		}
	}
	return out, nil
}

// WriteGroup records the written values so a subsequent TestRead can
// observe them; the mock has no real device state to mutate.
func (d *Driver) WriteGroup(driverName, group string, values []envelope.TagValuePair) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, pair := range values {
		d.written[d.key(driverName, group, pair.Tag)] = pair.Value
	}
	return nil
}

// TestRead returns the last written value for tag if one exists,
// otherwise the next ramp value — a bypass-cache one-shot read.
func (d *Driver) TestRead(driverName, group string, tag schema.Tag) (schema.TagValue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := d.key(driverName, group, tag.Name)
	if v, ok := d.written[key]; ok {
		return schema.TagValue{Tag: tag.Name, Type: tag.Type, Value: v}, nil
	}
	v := d.next(key)
	return schema.TagValue{Tag: tag.Name, Type: tag.Type, Value: coerce(tag.Type, v)}, nil
}

// ScanTags reports a fixed synthetic discovery set: three INT16 tags
// named ramp_1..ramp_3, matching the ramp scenario's device shape.
func (d *Driver) ScanTags(driverName, group string) ([]schema.Tag, error) {
	out := make([]schema.Tag, 0, 3)
	for i := 1; i <= 3; i++ {
		out = append(out, schema.Tag{
			Driver:  driverName,
			Group:   group,
			Name:    fmt.Sprintf("ramp_%d", i),
			Address: fmt.Sprintf("%d", i*2),
			Type:    schema.TagTypeInt16,
			Attrs:   schema.AttrRead | schema.AttrSubscribe,
		})
	}
	return out, nil
}

// coerce narrows the int64 ramp counter to the Go type a tag's declared
// TagType would naturally decode to.
func coerce(t schema.TagType, v int64) any {
	switch t {
	case schema.TagTypeBool:
		return v != 0
	case schema.TagTypeInt8, schema.TagTypeInt16, schema.TagTypeInt32, schema.TagTypeInt64:
		return v
	case schema.TagTypeUint8, schema.TagTypeUint16, schema.TagTypeUint32, schema.TagTypeUint64:
		return uint64(v)
	case schema.TagTypeFloat, schema.TagTypeDouble:
		return float64(v)
	case schema.TagTypeString:
		return fmt.Sprintf("%d", v)
	default:
		return v
	}
}
