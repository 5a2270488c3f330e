package schema

import "testing"

func TestNewGroupValidatesInterval(t *testing.T) {
	if _, err := NewGroup("d1", "g1", 99); err == nil {
		t.Fatalf("expected error for interval 99")
	}
	if _, err := NewGroup("d1", "g1", 100); err != nil {
		t.Fatalf("unexpected error for interval 100: %v", err)
	}
}

func TestNewGroupValidatesNameLength(t *testing.T) {
	long := make([]byte, MaxGroupNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if _, err := NewGroup("d1", string(long), 100); err == nil {
		t.Fatalf("expected error for name length %d", len(long))
	}
	exact := long[:MaxGroupNameLen]
	if _, err := NewGroup("d1", string(exact), 100); err != nil {
		t.Fatalf("unexpected error for name length %d: %v", len(exact), err)
	}
}

func TestChangeTimestampStrictlyMonotone(t *testing.T) {
	g, err := NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	ts0 := g.ChangeTimestamp()

	if err := g.AddTag(&Tag{Name: "t1", Attrs: AttrRead}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	ts1 := g.ChangeTimestamp()
	if ts1 <= ts0 {
		t.Fatalf("expected change-timestamp to strictly increase after AddTag: %d -> %d", ts0, ts1)
	}

	if err := g.UpdateTag("t1", func(tg *Tag) (bool, error) {
		tg.Description = "updated"
		return true, nil
	}); err != nil {
		t.Fatalf("UpdateTag: %v", err)
	}
	ts2 := g.ChangeTimestamp()
	if ts2 <= ts1 {
		t.Fatalf("expected change-timestamp to strictly increase after UpdateTag: %d -> %d", ts1, ts2)
	}

	if err := g.DelTag("t1"); err != nil {
		t.Fatalf("DelTag: %v", err)
	}
	ts3 := g.ChangeTimestamp()
	if ts3 <= ts2 {
		t.Fatalf("expected change-timestamp to strictly increase after DelTag: %d -> %d", ts2, ts3)
	}
}

func TestChangeTimestampUnchangedOnNoOpUpdate(t *testing.T) {
	g, err := NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	if err := g.AddTag(&Tag{Name: "t1", Attrs: AttrRead}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	ts1 := g.ChangeTimestamp()

	// SetInterval to the same value must not bump the change-timestamp.
	if err := g.SetInterval(g.IntervalMS); err != nil {
		t.Fatalf("SetInterval: %v", err)
	}
	ts2 := g.ChangeTimestamp()
	if ts2 != ts1 {
		t.Fatalf("expected change-timestamp unchanged on no-op SetInterval: %d -> %d", ts1, ts2)
	}
}

func TestAddTagDelTagRoundTrip(t *testing.T) {
	g, err := NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	before := g.Snapshot()

	tg := &Tag{Name: "t1", Address: "1", Type: TagTypeInt16, Attrs: AttrRead}
	if err := g.AddTag(tg); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := g.DelTag("t1"); err != nil {
		t.Fatalf("DelTag: %v", err)
	}

	after := g.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("expected tag-set to return to prior state, before=%v after=%v", before, after)
	}
}

func TestAddTagDuplicateRejected(t *testing.T) {
	g, err := NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	if err := g.AddTag(&Tag{Name: "t1", Attrs: AttrRead}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if err := g.AddTag(&Tag{Name: "t1", Attrs: AttrRead}); err == nil {
		t.Fatalf("expected duplicate tag name to be rejected")
	}
}

func TestRenameIdempotentRoundTrip(t *testing.T) {
	g, err := NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	if err := g.AddTag(&Tag{Name: "t1", Attrs: AttrRead}); err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	before := g.Snapshot()

	if err := g.Rename("g1"); err != nil {
		t.Fatalf("Rename (noop): %v", err)
	}
	if err := g.Rename("g2"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if err := g.Rename("g1"); err != nil {
		t.Fatalf("Rename back: %v", err)
	}

	after := g.Snapshot()
	if len(before) != len(after) {
		t.Fatalf("rename round-trip changed tag set: before=%v after=%v", before, after)
	}
	if g.Name != "g1" {
		t.Fatalf("expected group name restored to g1, got %s", g.Name)
	}
}
