package metrics

import (
	"testing"

	"github.com/neuron-io/broker/internal/schema"
)

// TestRegisterRefCountedSingleton covers Register's intended use: a
// singleton process-wide entry (e.g. a system gauge) registered more than
// once shares one value cell and is freed only once every registrant
// releases it.
func TestRegisterRefCountedSingleton(t *testing.T) {
	r := NewRegistry()
	e1 := r.Register("shared_counter", "help", schema.MetricCounter, 0)
	e2 := r.Register("shared_counter", "help", schema.MetricCounter, 0)
	if e1 != e2 {
		t.Fatalf("expected the same entry returned for repeated registration of the same name")
	}

	r.Release("shared_counter")
	if r.Get("shared_counter") == nil {
		t.Fatalf("expected entry to survive after releasing 1 of 2 references")
	}
	r.Release("shared_counter")
	if r.Get("shared_counter") != nil {
		t.Fatalf("expected entry freed after releasing the last reference")
	}
}

// TestRegisterNodeIsIndependentPerNode guards against two nodes that
// register an identically-named metric (e.g. every driver's "tags_read")
// silently summing into one shared counter instead of each keeping its
// own value.
func TestRegisterNodeIsIndependentPerNode(t *testing.T) {
	r := NewRegistry()
	nm1 := NewNodeMetrics(r, "driver1")
	nm2 := NewNodeMetrics(r, "driver2")
	nm1.Add("tags_read", "help", schema.MetricCounter, 0)
	nm2.Add("tags_read", "help", schema.MetricCounter, 0)

	nm1.Update("tags_read", 0, 9)
	nm2.Update("tags_read", 0, 4)

	v1, _ := nm1.Value("tags_read")
	v2, _ := nm2.Value("tags_read")
	if v1 != 9 {
		t.Fatalf("expected driver1's tags_read to be 9, got %v", v1)
	}
	if v2 != 4 {
		t.Fatalf("expected driver2's tags_read to be 4 (not summed with driver1's), got %v", v2)
	}
}

func TestRenameNodeMigratesWalkNodesEntries(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "old_name")
	nm.Add("poll_ticks", "help", schema.MetricCounter, 0)
	nm.Update("poll_ticks", 0, 3)
	nm.Rename("new_name")

	seen := map[string]float64{}
	r.WalkNodes(func(node, name string, e *schema.MetricEntry) {
		if name == "poll_ticks" {
			seen[node] = e.Current
		}
	})
	if _, ok := seen["old_name"]; ok {
		t.Fatalf("expected no entry left under the old node name")
	}
	if seen["new_name"] != 3 {
		t.Fatalf("expected entry migrated to the new node name with value 3, got %v", seen["new_name"])
	}
}

func TestNodeMetricsUpdateSemantics(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "node1")
	nm.Add("c", "help", schema.MetricCounter, 0)
	nm.Add("g", "help", schema.MetricGauge, 5)

	nm.Update("c", 0, 3)
	nm.Update("c", 0, 4)
	if v, _ := nm.Value("c"); v != 7 {
		t.Fatalf("expected counter to accumulate to 7, got %v", v)
	}

	nm.Update("g", 0, 42)
	if v, _ := nm.Value("g"); v != 42 {
		t.Fatalf("expected gauge to be set to 42, got %v", v)
	}
}

func TestNilNodeMetricsUpdateReturnsFailure(t *testing.T) {
	var nm *NodeMetrics
	if got := nm.Update("anything", 0, 1); got != -1 {
		t.Fatalf("expected -1 from a nil NodeMetrics, got %d", got)
	}
	if _, ok := nm.Value("anything"); ok {
		t.Fatalf("expected nil NodeMetrics Value to report not-ok")
	}
	nm.Add("x", "help", schema.MetricCounter, 0) // must not panic
	nm.Reset()                                   // must not panic
	nm.Close()                                   // must not panic
}

func TestResetRestoresInitUnlessNoReset(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "node1")
	nm.Add("resettable", "help", schema.MetricCounter, 10)
	nm.Update("resettable", 0, 5)

	nm.mu.Lock()
	e := nm.entries["resettable"]
	e.Flags = 0
	nm.mu.Unlock()

	nm.Reset()
	if v, _ := nm.Value("resettable"); v != 10 {
		t.Fatalf("expected reset to restore init value 10, got %v", v)
	}
}

func TestResetSkipsNoResetEntries(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "node1")
	nm.Add("sticky", "help", schema.MetricCounter, 10)
	nm.Update("sticky", 0, 5)

	nm.mu.Lock()
	nm.entries["sticky"].Flags = schema.FlagNoReset
	nm.mu.Unlock()

	nm.Reset()
	if v, _ := nm.Value("sticky"); v != 15 {
		t.Fatalf("expected NO_RESET entry to keep its accumulated value 15, got %v", v)
	}
}

func TestRollingCounterMetricUpdatesWindowSum(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "node1")
	nm.Add("rc", "help", schema.MetricRollingCounter, 0)

	nm.Update("rc", 0, 1)
	nm.Update("rc", 1000, 2)
	nm.Update("rc", 2000, 3)
	if v, _ := nm.Value("rc"); v != 6 {
		t.Fatalf("expected rolling counter sum 6, got %v", v)
	}
}

func TestCloseReleasesRegistryReferences(t *testing.T) {
	r := NewRegistry()
	nm := NewNodeMetrics(r, "node1")
	nm.Add("tmp", "help", schema.MetricCounter, 0)
	if r.Get("tmp") == nil {
		t.Fatalf("expected entry registered")
	}
	nm.Close()
	if r.Get("tmp") != nil {
		t.Fatalf("expected entry released after Close")
	}
}
