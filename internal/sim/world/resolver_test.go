package world

import (
	"strings"
	"testing"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/tuning"
)

var testRoster = []string{"Ambassador Chen", "Marcus", "Vera"}

func newTestResolver() *Resolver {
	return NewResolver(tuning.Defaults().Tables, nil)
}

func defaultState() *State {
	return NewState(tuning.Defaults().World)
}

func TestResolve_ImproveFoodCosts(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_food"}, testRoster)
	if !out.OK {
		t.Fatalf("outcome not ok: %+v", out)
	}
	if st.Food != 58 || st.Energy != 47 {
		t.Fatalf("food=%d energy=%d want 58/47", st.Food, st.Energy)
	}
	if out.Deltas[ResFood] != 8 || out.Deltas[ResEnergy] != -3 {
		t.Fatalf("deltas = %v", out.Deltas)
	}
}

func TestResolve_UnknownKindDowngrades(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	before := st.Snapshot()
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "summon_dragon"}, testRoster)
	if out.Kind != protocol.KindPass || out.OK || out.Code != protocol.ErrBadRequest {
		t.Fatalf("outcome = %+v", out)
	}
	after := st.Snapshot()
	for res, v := range before.Resources {
		if after.Resources[res] != v {
			t.Fatalf("resource %s changed on downgraded action", res)
		}
	}
}

func TestResolve_CannotAfford(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	st.Energy = 2 // improve_food costs 3 energy
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_food"}, testRoster)
	if out.Kind != protocol.KindPass || out.OK || out.Code != protocol.ErrUnaffordable {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.Contains(out.Text, "cannot afford") {
		t.Fatalf("narrative missing 'cannot afford': %q", out.Text)
	}
	if st.Food != 50 || st.Energy != 2 {
		t.Fatalf("resources changed on unaffordable action: food=%d energy=%d", st.Food, st.Energy)
	}
}

func TestResolve_SupportInstallsModifier(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	out := r.Resolve(st, "Ambassador Chen", protocol.ActionRequest{Kind: "support_agent", Target: "[Marcus]"}, testRoster)
	if !out.OK || out.Target != "Marcus" {
		t.Fatalf("outcome = %+v", out)
	}
	if st.Morale != 55 {
		t.Fatalf("morale = %d want 55", st.Morale)
	}
	m, ok := st.PeekModifier("Marcus")
	if !ok || m.Factor != 0.5 || m.GrantedBy != "Ambassador Chen" {
		t.Fatalf("modifier = %+v ok=%v", m, ok)
	}
}

func TestResolve_SupportedPaysHalf(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	r.Resolve(st, "Vera", protocol.ActionRequest{Kind: "support_agent", Target: "Marcus"}, testRoster)

	// improve_infrastructure: cost 4 treasury -> 2 when supported.
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_infrastructure"}, testRoster)
	if !out.OK || out.CostPaid != 2 {
		t.Fatalf("outcome = %+v", out)
	}
	if st.Treasury != 48 || st.Infrastructure != 58 {
		t.Fatalf("treasury=%d infra=%d want 48/58", st.Treasury, st.Infrastructure)
	}
	if !strings.Contains(out.Text, "SUPPORTED") {
		t.Fatalf("narrative missing SUPPORTED: %q", out.Text)
	}
	// One use only.
	if _, ok := st.PeekModifier("Marcus"); ok {
		t.Fatalf("modifier not consumed")
	}
	out2 := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_infrastructure"}, testRoster)
	if out2.CostPaid != 4 {
		t.Fatalf("second action cost = %d want 4", out2.CostPaid)
	}
}

func TestResolve_OpposedPaysMore(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	r.Resolve(st, "Vera", protocol.ActionRequest{Kind: "oppose_agent", Target: "Marcus"}, testRoster)
	if st.Morale != 47 {
		t.Fatalf("morale = %d want 47", st.Morale)
	}
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_infrastructure"}, testRoster)
	if !out.OK || out.CostPaid != 6 {
		t.Fatalf("outcome = %+v", out)
	}
	if !strings.Contains(out.Text, "OPPOSED") {
		t.Fatalf("narrative missing OPPOSED: %q", out.Text)
	}
}

func TestResolve_OpposedCannotAfford(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	st.Treasury = 5
	r.Resolve(st, "Vera", protocol.ActionRequest{Kind: "oppose_agent", Target: "Marcus"}, testRoster)
	// improve_infrastructure costs 4 -> 6 opposed; treasury is 5.
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "improve_infrastructure"}, testRoster)
	if out.Code != protocol.ErrUnaffordable {
		t.Fatalf("outcome = %+v", out)
	}
	if st.Infrastructure != 50 {
		t.Fatalf("infrastructure changed: %d", st.Infrastructure)
	}
}

func TestResolve_InvalidTarget(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	cases := []protocol.ActionRequest{
		{Kind: "support_agent", Target: "Nobody"},
		{Kind: "support_agent"},
		{Kind: "oppose_agent", Target: "Marcus"}, // self-target below
	}
	for _, req := range cases[:2] {
		out := r.Resolve(st, "Marcus", req, testRoster)
		if out.Kind != protocol.KindPass || out.Code != protocol.ErrInvalidTarget {
			t.Fatalf("req %+v -> %+v", req, out)
		}
	}
	out := r.Resolve(st, "Marcus", cases[2], testRoster)
	if out.Code != protocol.ErrInvalidTarget {
		t.Fatalf("self-target accepted: %+v", out)
	}
}

func TestResolve_SendMessageNeedsBody(t *testing.T) {
	r := newTestResolver()
	st := defaultState()
	out := r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "send_message", Target: "Vera"}, testRoster)
	if out.Kind != protocol.KindPass || out.Code != protocol.ErrBadRequest {
		t.Fatalf("outcome = %+v", out)
	}
	out = r.Resolve(st, "Marcus", protocol.ActionRequest{Kind: "send_message", Target: "Vera", Message: "hello"}, testRoster)
	if !out.OK || out.Message != "hello" || out.Target != "Vera" {
		t.Fatalf("outcome = %+v", out)
	}
}

func TestMatchAgent_FirstNameFallback(t *testing.T) {
	got, ok := MatchAgent("Ambassador", testRoster)
	if !ok || got != "Ambassador Chen" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	got, ok = MatchAgent("marcus", testRoster)
	if !ok || got != "Marcus" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if _, ok := MatchAgent("Zed", testRoster); ok {
		t.Fatalf("matched unknown agent")
	}
}

func TestMatchAgent_BlankNames(t *testing.T) {
	if _, ok := MatchAgent("", testRoster); ok {
		t.Fatalf("matched empty name")
	}
	// Whitespace-only names arrive raw from the wire; must not panic.
	for _, name := range []string{" ", "   ", "\t", " \t \n "} {
		if got, ok := MatchAgent(name, testRoster); ok {
			t.Fatalf("matched %q as %q", name, got)
		}
	}
}
