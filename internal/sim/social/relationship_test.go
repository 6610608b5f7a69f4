package social

import (
	"testing"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/tuning"
)

func newTestEngine() *Engine {
	return NewEngine(NewLedger(50), tuning.Defaults().Tables)
}

func TestScore_LazyBaseline(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 3; i++ {
		if s := e.Ledger().Score("A", "B"); s != 0 {
			t.Fatalf("baseline score = %d want 0", s)
		}
	}
}

func TestApplyActionDelta_SupportAndOppose(t *testing.T) {
	e := newTestEngine()
	e.ApplyActionDelta("A", "B", protocol.KindSupportAgent)
	r := e.Ledger().Get("B", "A")
	if r.Trust != 10 || r.Resentment != -5 {
		t.Fatalf("after support: %+v", r)
	}
	if e.Ledger().Score("B", "A") != 15 {
		t.Fatalf("score = %d want 15", e.Ledger().Score("B", "A"))
	}
	// The reverse direction is untouched.
	if e.Ledger().Score("A", "B") != 0 {
		t.Fatalf("actor's own view moved: %d", e.Ledger().Score("A", "B"))
	}

	e.ApplyActionDelta("B", "A", protocol.KindOpposeAgent)
	r = e.Ledger().Get("A", "B")
	if r.Trust != -10 || r.Resentment != 10 {
		t.Fatalf("after oppose: %+v", r)
	}
}

func TestApplyActionDelta_UnlistedKindNoop(t *testing.T) {
	e := newTestEngine()
	e.ApplyActionDelta("A", "B", protocol.KindPass)
	e.ApplyActionDelta("A", "B", protocol.KindImproveFood)
	if s := e.Ledger().Score("B", "A"); s != 0 {
		t.Fatalf("score moved for unlisted kind: %d", s)
	}
}

func TestApplyToneDelta(t *testing.T) {
	e := newTestEngine()
	e.ApplyToneDelta("A", "B", ToneFriendly)
	r := e.Ledger().Get("B", "A")
	if r.Trust != 5 || r.Resentment != -2 {
		t.Fatalf("after friendly: %+v", r)
	}
	e.ApplyToneDelta("A", "B", ToneHostile)
	if r.Trust != 0 || r.Resentment != 3 {
		t.Fatalf("after hostile: %+v", r)
	}
	e.ApplyToneDelta("A", "B", ToneNeutral)
	if r.Trust != 1 {
		t.Fatalf("after neutral: %+v", r)
	}
}

func TestBounds_Clamped(t *testing.T) {
	e := newTestEngine()
	for i := 0; i < 30; i++ {
		e.ApplyActionDelta("A", "B", protocol.KindOpposeAgent)
	}
	r := e.Ledger().Get("B", "A")
	if r.Trust != -50 || r.Resentment != 50 {
		t.Fatalf("bounds not enforced: %+v", r)
	}
	if r.Score() != -100 {
		t.Fatalf("score = %d want -100", r.Score())
	}
	for i := 0; i < 50; i++ {
		e.ApplyActionDelta("A", "B", protocol.KindSupportAgent)
	}
	r = e.Ledger().Get("B", "A")
	if r.Trust > 50 || r.Resentment < -50 {
		t.Fatalf("bounds not enforced after recovery: %+v", r)
	}
}

func TestView_DoesNotCreatePairs(t *testing.T) {
	e := newTestEngine()
	view := e.Ledger().View("A", []string{"B", "C"})
	if len(view) != 2 || view[0].Score() != 0 {
		t.Fatalf("view = %+v", view)
	}
	if subs := e.Ledger().Subjects("A"); len(subs) != 0 {
		t.Fatalf("View created pairs: %v", subs)
	}
}
