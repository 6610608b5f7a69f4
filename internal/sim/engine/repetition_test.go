package engine

import (
	"testing"

	"agora.ai/internal/protocol"
)

func TestPenaltyFor_TripleRepeat(t *testing.T) {
	g := NewRepetitionGuard(4, 3, 0.1)
	for i := 0; i < 3; i++ {
		g.Record("A", protocol.KindSupportAgent)
	}
	if p := g.PenaltyFor("A", protocol.KindSupportAgent); p != 0.1 {
		t.Fatalf("penalty = %v want 0.1", p)
	}
	for _, kind := range protocol.ActionKinds() {
		if kind == protocol.KindSupportAgent {
			continue
		}
		if p := g.PenaltyFor("A", kind); p != 1 {
			t.Fatalf("penalty for %s = %v want 1", kind, p)
		}
	}
}

func TestPenaltyFor_ShortHistory(t *testing.T) {
	g := NewRepetitionGuard(4, 3, 0.1)
	g.Record("A", protocol.KindPass)
	g.Record("A", protocol.KindPass)
	if p := g.PenaltyFor("A", protocol.KindPass); p != 1 {
		t.Fatalf("penalty with 2 records = %v want 1", p)
	}
}

func TestPenaltyFor_BrokenRun(t *testing.T) {
	g := NewRepetitionGuard(4, 3, 0.1)
	g.Record("A", protocol.KindSupportAgent)
	g.Record("A", protocol.KindSupportAgent)
	g.Record("A", protocol.KindPass)
	g.Record("A", protocol.KindSupportAgent)
	if p := g.PenaltyFor("A", protocol.KindSupportAgent); p != 1 {
		t.Fatalf("penalty after broken run = %v want 1", p)
	}
}

func TestRecord_BoundedRing(t *testing.T) {
	g := NewRepetitionGuard(4, 3, 0.1)
	kinds := []string{"a", "b", "c", "d", "e", "f"}
	for _, k := range kinds {
		g.Record("A", k)
	}
	recent := g.Recent("A")
	if len(recent) != 4 {
		t.Fatalf("ring size = %d want 4", len(recent))
	}
	if recent[0] != "c" || recent[3] != "f" {
		t.Fatalf("ring contents = %v", recent)
	}
}

func TestRecent_IsACopy(t *testing.T) {
	g := NewRepetitionGuard(4, 3, 0.1)
	g.Record("A", protocol.KindPass)
	r := g.Recent("A")
	r[0] = "mutated"
	if g.Recent("A")[0] != protocol.KindPass {
		t.Fatalf("Recent shares backing array")
	}
}
