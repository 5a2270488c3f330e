package adapter_test

import (
	"testing"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/driver"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/plugin/mockdriver"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

func newTestDriverAdapter(t *testing.T) (*adapter.Adapter, *driver.Driver, *reactor.Reactor) {
	t.Helper()
	r := reactor.New()
	reg := metrics.NewRegistry()
	plug := mockdriver.New()
	a, err := adapter.New(adapter.Config{
		Name: "drv1", Kind: schema.KindDriver, Plugin: plug, Reactor: r, Registry: reg, Sender: noopSender{},
	})
	if err != nil {
		t.Fatalf("adapter.New: %v", err)
	}
	d := driver.New(driver.Config{Name: "drv1", Plugin: plug, Metrics: a.Metrics(), Reactor: r, Router: nopTelemetryRouter{}})
	a.SetDriverExt(d)
	return a, d, r
}

type nopTelemetryRouter struct{}

func (nopTelemetryRouter) RouteTelemetry(*envelope.Envelope) {}

func fourTags(prefix string) []schema.Tag {
	return []schema.Tag{
		{Name: prefix + "_t1", Type: schema.TagTypeInt16, Attrs: schema.AttrRead},
		{Name: prefix + "_t2", Type: schema.TagTypeInt16, Attrs: schema.AttrRead},
		{Name: prefix + "_t3", Type: schema.TagTypeInt16, Attrs: schema.AttrRead},
		{Name: prefix + "_t4", Type: schema.TagTypeInt16, Attrs: schema.AttrRead},
	}
}

// TestAddGTagAtomicRollbackOnMidBatchFailure is spec scenario 5: add_gtag
// across 3 groups of 4 tags each must be atomic. Group 2's 3rd tag is a
// duplicate of a tag already present in that group, so the batch fails
// partway through committing (after group 1's 4 tags already landed) —
// every group's tags, including group 1's, must be reverted.
func TestAddGTagAtomicRollbackOnMidBatchFailure(t *testing.T) {
	a, d, r := newTestDriverAdapter(t)
	defer r.Close()
	defer func() { _ = a.Close() }()

	for _, name := range []string{"G1", "G2", "G3"} {
		if err := d.AddGroup(name, 1000, ""); err != nil {
			t.Fatalf("AddGroup %s: %v", name, err)
		}
	}
	// Pre-seed G2 with a tag that the batch will collide with.
	if err := d.AddTag("G2", &schema.Tag{Name: "g2_t3", Type: schema.TagTypeInt16, Attrs: schema.AttrRead}); err != nil {
		t.Fatalf("seed duplicate tag: %v", err)
	}

	req := envelope.AddGTagRequest{
		Driver: "drv1",
		Groups: []envelope.GroupTags{
			{Group: "G1", Tags: fourTags("g1")},
			{Group: "G2", Tags: fourTags("g2")}, // g2_t3 collides with the pre-seeded tag
			{Group: "G3", Tags: fourTags("g3")},
		},
	}
	resp := a.Dispatch(&envelope.Envelope{Type: envelope.TypeAddGTag, Sender: "x", Receiver: "drv1", Body: req})
	if resp == nil || resp.Type != envelope.TypeError {
		t.Fatalf("expected the batch to fail on the duplicate tag, got %#v", resp)
	}
	body, ok := resp.Body.(envelope.ErrorBody)
	if !ok || body.Code != "DUPLICATE_TAG_NAME" {
		t.Fatalf("expected DUPLICATE_TAG_NAME, got %#v", resp.Body)
	}

	for _, gt := range req.Groups {
		for _, want := range fourTags(map[string]string{"G1": "g1", "G2": "g2", "G3": "g3"}[gt.Group]) {
			if _, ok := d.GetTag(gt.Group, want.Name); ok && want.Name != "g2_t3" {
				t.Fatalf("expected %s/%s to have been rolled back, but it is present", gt.Group, want.Name)
			}
		}
	}
	// The pre-seeded tag (not part of the batch) must survive untouched.
	if _, ok := d.GetTag("G2", "g2_t3"); !ok {
		t.Fatalf("expected the pre-existing g2_t3 tag to survive the rollback")
	}
	// No orphan timer: the failed batch must not have disturbed any
	// group's polling schedule.
	for _, name := range []string{"G1", "G2", "G3"} {
		if _, ok := d.GetGroup(name); !ok {
			t.Fatalf("expected group %s to still exist after the rolled-back batch", name)
		}
	}
}
