package schema

import "testing"

func TestBucketCountForBoundaries(t *testing.T) {
	cases := []struct {
		span int64
		want int
	}{
		{6000, 4},
		{6001, 8},
		{32000, 8},
		{32001, 16},
		{64000, 16},
		{64001, 32},
	}
	for _, c := range cases {
		if got := bucketCountFor(c.span); got != c.want {
			t.Errorf("bucketCountFor(%d) = %d, want %d", c.span, got, c.want)
		}
	}
}

func TestRollingCounterTotalEqualsSum(t *testing.T) {
	rc, err := NewRollingCounter(0, 5000)
	if err != nil {
		t.Fatalf("NewRollingCounter: %v", err)
	}
	now := int64(0)
	for i := 0; i < 20; i++ {
		rc.Record(now, int32(i+1))
		now += 200
		if rc.Total != rc.Sum() {
			t.Fatalf("total %d != sum %d at step %d", rc.Total, rc.Sum(), i)
		}
	}
}

func TestRollingCounterQuietIntervalReturnsToZero(t *testing.T) {
	rc, err := NewRollingCounter(0, 1000)
	if err != nil {
		t.Fatalf("NewRollingCounter: %v", err)
	}
	rc.Record(0, 42)
	if rc.Total != 42 {
		t.Fatalf("expected total 42, got %d", rc.Total)
	}
	// Advance past the full span with no further records.
	rc.Record(rc.Span()+1, 0)
	if rc.Total != 0 {
		t.Fatalf("expected total 0 after quiet interval spanning %dms, got %d", rc.Span(), rc.Total)
	}
	if rc.Sum() != 0 {
		t.Fatalf("expected sum 0 after quiet interval, got %d", rc.Sum())
	}
}

func TestRollingCounterResolutionFits21Bits(t *testing.T) {
	// A span that would require a resolution >= 2^21ms must be rejected.
	hugeSpan := int64(32) * (1 << 21) * 1000
	if _, err := NewRollingCounter(0, hugeSpan); err == nil {
		t.Fatalf("expected error for span %d exceeding 21-bit resolution", hugeSpan)
	}
}

func TestRollingCounterBucketCountMatchesSpan(t *testing.T) {
	rc, err := NewRollingCounter(0, 6000)
	if err != nil {
		t.Fatalf("NewRollingCounter: %v", err)
	}
	if rc.BucketCount() != 4 {
		t.Fatalf("expected 4 buckets, got %d", rc.BucketCount())
	}
}
