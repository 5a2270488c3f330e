package schema

import (
	"math"
	"testing"

	ccschema "github.com/ClusterCockpit/cc-lib/v2/schema"
)

func TestNormalizeTagValueRoundTripsRegularFloat(t *testing.T) {
	tv := NormalizeTagValue(TagValue{Tag: "t1", Type: TagTypeFloat, Value: float64(3.5)})
	f, ok := tv.Value.(ccschema.Float)
	if !ok {
		t.Fatalf("expected ccschema.Float, got %T", tv.Value)
	}
	if float64(f) != 3.5 {
		t.Errorf("got %v, want 3.5", f)
	}
	if tv.Error != "" {
		t.Errorf("unexpected error: %q", tv.Error)
	}
}

func TestNormalizeTagValueNaNBecomesExpired(t *testing.T) {
	tv := NormalizeTagValue(TagValue{Tag: "t1", Type: TagTypeDouble, Value: math.NaN()})
	if tv.Error != "TAG_VALUE_EXPIRED" {
		t.Fatalf("got error %q, want TAG_VALUE_EXPIRED", tv.Error)
	}
	if tv.Value != nil {
		t.Errorf("expected nil value alongside the error, got %v", tv.Value)
	}
}

func TestNormalizeTagValueArrayWithOneNaNExpiresWhole(t *testing.T) {
	tv := NormalizeTagValue(TagValue{
		Tag: "t1", Type: TagTypeArrayFloat,
		Value: []float64{1, 2, math.NaN(), 4},
	})
	if tv.Error != "TAG_VALUE_EXPIRED" {
		t.Fatalf("got error %q, want TAG_VALUE_EXPIRED", tv.Error)
	}
}

func TestNormalizeTagValueNonFloatPassesThrough(t *testing.T) {
	tv := NormalizeTagValue(TagValue{Tag: "t1", Type: TagTypeInt32, Value: int64(7)})
	if tv.Value != int64(7) {
		t.Errorf("expected value untouched, got %v", tv.Value)
	}
}
