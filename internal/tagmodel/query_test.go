package tagmodel

import (
	"testing"

	"github.com/neuron-io/broker/internal/schema"
)

func mustGroup(t *testing.T) *schema.Group {
	t.Helper()
	g, err := schema.NewGroup("d1", "g1", 100)
	if err != nil {
		t.Fatalf("NewGroup: %v", err)
	}
	return g
}

func TestQuerySubstringMatch(t *testing.T) {
	g := mustGroup(t)
	for _, name := range []string{"temp_1", "temp_2", "pressure_1"} {
		if err := g.AddTag(&schema.Tag{Name: name, Attrs: schema.AttrRead}); err != nil {
			t.Fatalf("AddTag(%s): %v", name, err)
		}
	}

	out := Query(g, "temp")
	if len(out) != 2 {
		t.Fatalf("expected 2 matches for 'temp', got %d", len(out))
	}
	if out[0].Name != "temp_1" || out[1].Name != "temp_2" {
		t.Fatalf("expected name-ordered results, got %v", out)
	}
}

func TestQueryReadableFiltersByAttribute(t *testing.T) {
	g := mustGroup(t)
	if err := g.AddTag(&schema.Tag{Name: "readable1", Description: "d", Attrs: schema.AttrRead}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddTag(&schema.Tag{Name: "subonly", Description: "d", Attrs: schema.AttrSubscribe}); err != nil {
		t.Fatal(err)
	}
	if err := g.AddTag(&schema.Tag{Name: "writeonly", Description: "d", Attrs: schema.AttrWrite}); err != nil {
		t.Fatal(err)
	}

	out, err := QueryReadable(g, "", "", nil)
	if err != nil {
		t.Fatalf("QueryReadable: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 readable tags (READ or SUBSCRIBE), got %d: %v", len(out), out)
	}
}

func TestQueryReadableExplicitNamesBypassSubstring(t *testing.T) {
	g := mustGroup(t)
	if err := g.AddTag(&schema.Tag{Name: "special", Description: "nomatch", Attrs: schema.AttrRead}); err != nil {
		t.Fatal(err)
	}

	out, err := QueryReadable(g, "zzz_never_matches", "zzz_never_matches", []string{"special"})
	if err != nil {
		t.Fatalf("QueryReadable: %v", err)
	}
	if len(out) != 1 || out[0].Name != "special" {
		t.Fatalf("expected explicit name to bypass substring filter, got %v", out)
	}
}

func TestQueryPagedReportsFullCountNotPageLength(t *testing.T) {
	g := mustGroup(t)
	for i := 0; i < 10; i++ {
		if err := g.AddTag(&schema.Tag{Name: string(rune('a' + i)), Attrs: schema.AttrRead}); err != nil {
			t.Fatal(err)
		}
	}

	page := QueryPaged(g, "", 0, 3)
	if len(page.Tags) != 3 {
		t.Fatalf("expected page of 3, got %d", len(page.Tags))
	}
	if page.Total != 10 {
		t.Fatalf("expected total count 10 (not page length), got %d", page.Total)
	}
}

func TestPageOutOfRangeReturnsEmptyNotError(t *testing.T) {
	g := mustGroup(t)
	if err := g.AddTag(&schema.Tag{Name: "only", Attrs: schema.AttrRead}); err != nil {
		t.Fatal(err)
	}
	out := Page(Query(g, ""), 5, 3)
	if len(out) != 0 {
		t.Fatalf("expected empty slice for out-of-range page, got %v", out)
	}
}
