package driver

import (
	"testing"
	"time"

	"github.com/neuron-io/broker/internal/adapter"
	"github.com/neuron-io/broker/internal/schema"
)

func TestTagCacheIntervalPolicyHitsThenExpires(t *testing.T) {
	c := NewTagCache(adapter.CacheInterval)
	c.expiry = 10 * time.Millisecond
	c.Put("g1", "t1", schema.TagValue{Name: "t1", Type: schema.TagTypeInt16, Value: int16(7)})

	tv, ok := c.Get("g1", "t1")
	if !ok || tv.Value != int16(7) {
		t.Fatalf("expected a fresh hit of 7, got %v ok=%v", tv.Value, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("g1", "t1"); ok {
		t.Fatalf("expected a miss once the entry aged past expiry")
	}
}

func TestTagCacheNeverPolicyAlwaysMisses(t *testing.T) {
	c := NewTagCache(adapter.CacheNever)
	c.Put("g1", "t1", schema.TagValue{Name: "t1", Type: schema.TagTypeInt16, Value: int16(7)})
	if _, ok := c.Get("g1", "t1"); ok {
		t.Fatalf("expected CacheNever to never hit")
	}
}

func TestTagCacheSweepEvictsExpiredEntries(t *testing.T) {
	c := NewTagCache(adapter.CacheInterval)
	c.expiry = 5 * time.Millisecond
	c.Put("g1", "t1", schema.TagValue{Name: "t1", Type: schema.TagTypeInt16, Value: int16(1)})
	time.Sleep(15 * time.Millisecond)

	c.Sweep()
	if len(c.entries) != 0 {
		t.Fatalf("expected Sweep to evict the expired entry, %d entries remain", len(c.entries))
	}
}

func TestTagCacheEvictsOverMemoryBudget(t *testing.T) {
	c := NewTagCache(adapter.CacheInterval)
	c.maxBytes = entrySize * 2

	c.Put("g1", "t1", schema.TagValue{Name: "t1", Type: schema.TagTypeInt16, Value: int16(1)})
	c.Put("g1", "t2", schema.TagValue{Name: "t2", Type: schema.TagTypeInt16, Value: int16(2)})
	c.Put("g1", "t3", schema.TagValue{Name: "t3", Type: schema.TagTypeInt16, Value: int16(3)})

	if _, ok := c.Get("g1", "t1"); ok {
		t.Fatalf("expected the least-recently-used entry to be evicted over budget")
	}
	if _, ok := c.Get("g1", "t3"); !ok {
		t.Fatalf("expected the most recently put entry to survive")
	}
}
