package driver

import (
	"testing"
	"time"
)

// TestUpdateGroupIntervalChangeReschedulesNextFire is spec scenario 2:
// add G1@interval=100, then raise the interval to 500 (no tag is added
// and the node is not started; the schedule is inspected directly and
// advanced with a manual tick). The group's change-timestamp must strictly increase,
// and the next poll must fire >= 500ms after the change, not at
// whatever point the old 100ms schedule had already queued up.
func TestUpdateGroupIntervalChangeReschedulesNextFire(t *testing.T) {
	d, r := newTestDriver(t)
	defer r.Close()
	defer d.Close()

	if err := d.AddGroup("G1", 100, ""); err != nil {
		t.Fatalf("AddGroup: %v", err)
	}

	g, ok := d.GetGroup("G1")
	if !ok {
		t.Fatalf("GetGroup: not found")
	}
	tsBefore := g.ChangeTimestamp()

	before := nowMicros()
	if err := d.UpdateGroup("G1", "G1", 500); err != nil {
		t.Fatalf("UpdateGroup: %v", err)
	}

	if g.ChangeTimestamp() <= tsBefore {
		t.Fatalf("expected change-timestamp to strictly increase, got %d <= %d", g.ChangeTimestamp(), tsBefore)
	}

	d.mu.RLock()
	nextFire := d.nextFireMicros["G1"]
	d.mu.RUnlock()

	if minDue := before + 500*1000; nextFire < minDue {
		t.Fatalf("expected next poll scheduled >= 500ms after the change, got %dus early", minDue-nextFire)
	}

	// A tick 150ms later (past the old 100ms interval, short of the new
	// 500ms one) must not have advanced the schedule.
	time.Sleep(150 * time.Millisecond)
	d.tick()
	d.mu.RLock()
	stillPending := d.nextFireMicros["G1"] == nextFire
	d.mu.RUnlock()
	if !stillPending {
		t.Fatalf("expected the group to still be waiting out its new 500ms interval")
	}
}
