package manager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/envelope"
	"github.com/neuron-io/broker/internal/metrics"
	"github.com/neuron-io/broker/internal/plugin/mockapp"
	"github.com/neuron-io/broker/internal/plugin/mockdriver"
	"github.com/neuron-io/broker/internal/reactor"
	"github.com/neuron-io/broker/internal/schema"
)

// memStore is a minimal in-memory persistence.Store for tests; the real
// deployment uses internal/persistence/sqlitestore.
type memStore struct {
	mu       sync.Mutex
	settings map[string]string
	groups   map[string][]schema.GroupRecord
	tags     map[string][]schema.TagRecord
	subs     map[string][]schema.SubscriptionRecord
}

func newMemStore() *memStore {
	return &memStore{
		settings: make(map[string]string),
		groups:   make(map[string][]schema.GroupRecord),
		tags:     make(map[string][]schema.TagRecord),
		subs:     make(map[string][]schema.SubscriptionRecord),
	}
}

func (s *memStore) UpsertNodeSetting(_ context.Context, node, setting string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[node] = setting
	return nil
}
func (s *memStore) GetNodeSetting(_ context.Context, node string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings[node], nil
}
func (s *memStore) DeleteNode(_ context.Context, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.settings, node)
	delete(s.groups, node)
	return nil
}
func (s *memStore) UpsertGroup(_ context.Context, g schema.GroupRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.Driver] = append(s.groups[g.Driver], g)
	return nil
}
func (s *memStore) DeleteGroup(_ context.Context, driver, group string) error { return nil }
func (s *memStore) ListGroups(_ context.Context, driver string) ([]schema.GroupRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.groups[driver], nil
}
func (s *memStore) UpsertTag(_ context.Context, t schema.TagRecord) error { return nil }
func (s *memStore) DeleteTag(_ context.Context, driver, group, tag string) error { return nil }
func (s *memStore) ListTags(_ context.Context, driver, group string) ([]schema.TagRecord, error) {
	return nil, nil
}
func (s *memStore) UpsertSubscription(_ context.Context, sub schema.SubscriptionRecord) error {
	return nil
}
func (s *memStore) DeleteSubscription(_ context.Context, app, driver, group string) error {
	return nil
}
func (s *memStore) ListSubscriptions(_ context.Context, driver, group string) ([]schema.SubscriptionRecord, error) {
	return nil, nil
}
func (s *memStore) Close() error { return nil }

func newTestManager(t *testing.T) (*Manager, *reactor.Reactor) {
	t.Helper()
	r := reactor.New()
	m := New(Config{Reactor: r, Registry: metrics.NewRegistry(), Store: newMemStore()})
	return m, r
}

// TestTwoAppsSubscribeToRampGroup is spec scenario 1: two apps subscribe
// to the same driver/group at a 1000ms interval; the driver's three
// INT16 tags read a ramp. After enough time for 3 ticks, both apps have
// received 3 TRANS_DATA envelopes, and app1's carry the ramp values 1, 2,
// 3 in order.
func TestTwoAppsSubscribeToRampGroup(t *testing.T) {
	m, r := newTestManager(t)
	defer r.Close()
	defer m.Close()

	m.RegisterPluginFactory("mockdriver", func() (adapter.Plugin, error) { return mockdriver.New(), nil })
	app1 := mockapp.New(16)
	app2 := mockapp.New(16)
	m.RegisterPluginFactory("mockapp1", func() (adapter.Plugin, error) { return app1, nil })
	m.RegisterPluginFactory("mockapp2", func() (adapter.Plugin, error) { return app2, nil })

	if err := m.AddNode("driverA", schema.KindDriver, "mockdriver", "cfg"); err != nil {
		t.Fatalf("AddNode driverA: %v", err)
	}
	if err := m.AddNode("app1", schema.KindApp, "mockapp1", "cfg"); err != nil {
		t.Fatalf("AddNode app1: %v", err)
	}
	if err := m.AddNode("app2", schema.KindApp, "mockapp2", "cfg"); err != nil {
		t.Fatalf("AddNode app2: %v", err)
	}

	ent, ok := m.lookup("driverA")
	if !ok {
		t.Fatalf("driverA not found in directory")
	}
	drv := ent.driver
	if err := drv.AddGroup("G1", 1000, ""); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	for i := 1; i <= 3; i++ {
		tag := &schema.Tag{Name: tagName(i), Type: schema.TagTypeInt16, Attrs: schema.AttrRead | schema.AttrSubscribe}
		if err := drv.AddTag("G1", tag); err != nil {
			t.Fatalf("AddTag %s: %v", tag.Name, err)
		}
	}
	if err := drv.Subscribe(schema.Subscription{App: "app1", Driver: "driverA", Group: "G1"}); err != nil {
		t.Fatalf("Subscribe app1: %v", err)
	}
	if err := drv.Subscribe(schema.Subscription{App: "app2", Driver: "driverA", Group: "G1"}); err != nil {
		t.Fatalf("Subscribe app2: %v", err)
	}

	time.Sleep(3200 * time.Millisecond)

	n1 := len(app1.Received)
	n2 := len(app2.Received)
	if n1 != 3 {
		t.Fatalf("expected app1 to receive 3 TRANS_DATA envelopes, got %d", n1)
	}
	if n2 != 3 {
		t.Fatalf("expected app2 to receive 3 TRANS_DATA envelopes, got %d", n2)
	}

	// Order and ramp content: tag values should be 1, 2, 3 in sequence.
	for want := int64(1); want <= 3; want++ {
		body := <-app1.Received
		if len(body.Tags) != 3 {
			t.Fatalf("expected 3 tag values per envelope, got %d", len(body.Tags))
		}
		got, ok := body.Tags[0].Value.(int64)
		if !ok || got != want {
			t.Fatalf("expected ramp value %d, got %v", want, body.Tags[0].Value)
		}
	}
}

func tagName(i int) string {
	return [...]string{"", "t1", "t2", "t3"}[i]
}

// TestGroupContextSurvivesRestart is spec scenario 6: a group created
// with an IEC-61850-style context descriptor (ied/ldevice/ln-class/
// report-id/dataset) must present the same descriptor after the node
// is torn down and rebuilt against the same store, i.e. a restart.
func TestGroupContextSurvivesRestart(t *testing.T) {
	store := newMemStore()
	const cid = "IED1/LDevice1/LLN0/RP01/DataSet1"

	m1, r1 := newTestManagerWithStore(t, store)
	m1.RegisterPluginFactory("mockdriver", func() (adapter.Plugin, error) { return mockdriver.New(), nil })
	if err := m1.AddNode("driverA", schema.KindDriver, "mockdriver", "cfg"); err != nil {
		t.Fatalf("AddNode driverA: %v", err)
	}
	if _, err := m1.Submit(&envelope.Envelope{
		Type: envelope.TypeAddGroup, Sender: "ctl", Receiver: "driverA",
		Body: envelope.AddGroupRequest{Driver: "driverA", Group: "G1", IntervalMS: 1000, Context: cid},
	}); err != nil {
		t.Fatalf("Submit AddGroup: %v", err)
	}
	time.Sleep(200 * time.Millisecond) // async control-queue processing + persist

	ent, ok := m1.lookup("driverA")
	if !ok {
		t.Fatalf("driverA not found before restart")
	}
	if g, ok := ent.driver.GetGroup("G1"); !ok || g.Context != cid {
		t.Fatalf("expected G1 to carry context %q before restart, got %+v", cid, g)
	}
	r1.Close()
	m1.Close()

	m2, r2 := newTestManagerWithStore(t, store)
	defer r2.Close()
	defer m2.Close()
	m2.RegisterPluginFactory("mockdriver", func() (adapter.Plugin, error) { return mockdriver.New(), nil })
	if err := m2.AddNode("driverA", schema.KindDriver, "mockdriver", "cfg"); err != nil {
		t.Fatalf("AddNode driverA after restart: %v", err)
	}

	ent2, ok := m2.lookup("driverA")
	if !ok {
		t.Fatalf("driverA not found after restart")
	}
	g, ok := ent2.driver.GetGroup("G1")
	if !ok {
		t.Fatalf("expected G1 to be restored after restart")
	}
	if g.Context != cid {
		t.Fatalf("expected restored context %q, got %q", cid, g.Context)
	}
	if g.IntervalMS != 1000 {
		t.Fatalf("expected restored interval 1000, got %d", g.IntervalMS)
	}
}

func newTestManagerWithStore(t *testing.T, store *memStore) (*Manager, *reactor.Reactor) {
	t.Helper()
	r := reactor.New()
	m := New(Config{Reactor: r, Registry: metrics.NewRegistry(), Store: store})
	return m, r
}

func TestNodeRenamePreservesSubscribersAndPendingPolls(t *testing.T) {
	m, r := newTestManager(t)
	defer r.Close()
	defer m.Close()

	m.RegisterPluginFactory("mockdriver", func() (adapter.Plugin, error) { return mockdriver.New(), nil })
	app := mockapp.New(16)
	m.RegisterPluginFactory("mockapp", func() (adapter.Plugin, error) { return app, nil })

	if err := m.AddNode("driverA", schema.KindDriver, "mockdriver", "cfg"); err != nil {
		t.Fatalf("AddNode driverA: %v", err)
	}
	if err := m.AddNode("app1", schema.KindApp, "mockapp", "cfg"); err != nil {
		t.Fatalf("AddNode app1: %v", err)
	}

	ent, _ := m.lookup("driverA")
	drv := ent.driver
	if err := drv.AddGroup("G1", 200, ""); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}
	if err := drv.AddTag("G1", &schema.Tag{Name: "t1", Type: schema.TagTypeInt16, Attrs: schema.AttrRead}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := drv.Subscribe(schema.Subscription{App: "app1", Driver: "driverA", Group: "G1"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := m.RenameNode("driverA", "driverB"); err != nil {
		t.Fatalf("RenameNode: %v", err)
	}

	if _, ok := m.lookup("driverA"); ok {
		t.Fatalf("expected driverA to no longer be found in the directory")
	}
	renamed, ok := m.lookup("driverB")
	if !ok {
		t.Fatalf("expected driverB to be found in the directory after rename")
	}
	if renamed.adapter.Name() != "driverB" {
		t.Fatalf("expected the adapter's own name to be driverB, got %s", renamed.adapter.Name())
	}

	time.Sleep(500 * time.Millisecond)

	if len(app.Received) == 0 {
		t.Fatalf("expected subscriber to keep receiving telemetry across rename")
	}
	if got := drv.ListSubscriptions("G1"); len(got) != 1 {
		t.Fatalf("expected subscription to survive rename, got %v", got)
	}

	groups := drv.ListGroups()
	if len(groups) != 1 || groups[0].Driver != "driverB" {
		t.Fatalf("expected the group's persisted Driver field to migrate to driverB, got %+v", groups)
	}

	if _, ok := renamed.adapter.Metrics().Value("poll_ticks"); !ok {
		t.Fatalf("expected poll_ticks metric to reappear under the new node name")
	}
	seenUnder := map[string]bool{}
	m.registry.WalkNodes(func(node, name string, _ *schema.MetricEntry) {
		if name == "poll_ticks" {
			seenUnder[node] = true
		}
	})
	if seenUnder["driverA"] {
		t.Fatalf("expected no poll_ticks entry left registered under the old node name driverA")
	}
	if !seenUnder["driverB"] {
		t.Fatalf("expected poll_ticks entry registered under the new node name driverB")
	}
}
