// Package social tracks how agents feel about each other and classifies the
// tone of the messages they exchange.
package social

import (
	"sort"

	"agora.ai/internal/sim/tuning"
)

// Relationship is one ordered pair's view: how observer feels about subject.
// The reverse direction is a separate record.
type Relationship struct {
	Trust      int `json:"trust"`
	Resentment int `json:"resentment"`
}

func (r Relationship) Score() int { return r.Trust - r.Resentment }

type pair struct{ observer, subject string }

// Ledger owns every ordered-pair record. Pairs are created lazily at (0,0)
// and never deleted.
type Ledger struct {
	m     map[pair]*Relationship
	bound int
}

func NewLedger(bound int) *Ledger {
	return &Ledger{m: map[pair]*Relationship{}, bound: bound}
}

// Get returns the pair's record, creating the (0,0) baseline on first use.
func (l *Ledger) Get(observer, subject string) *Relationship {
	k := pair{observer, subject}
	r, ok := l.m[k]
	if !ok {
		r = &Relationship{}
		l.m[k] = r
	}
	return r
}

// Score never errors: an unseen pair scores zero.
func (l *Ledger) Score(observer, subject string) int {
	if r, ok := l.m[pair{observer, subject}]; ok {
		return r.Score()
	}
	return 0
}

// View returns observer's relationships toward each agent in others, in the
// given order. Unseen pairs read as the baseline without being created.
func (l *Ledger) View(observer string, others []string) []Relationship {
	out := make([]Relationship, len(others))
	for i, o := range others {
		if r, ok := l.m[pair{observer, o}]; ok {
			out[i] = *r
		}
	}
	return out
}

// Subjects returns every agent the observer has a record about, sorted.
func (l *Ledger) Subjects(observer string) []string {
	var subs []string
	for k := range l.m {
		if k.observer == observer {
			subs = append(subs, k.subject)
		}
	}
	sort.Strings(subs)
	return subs
}

func (l *Ledger) apply(observer, subject string, d tuning.Delta) {
	r := l.Get(observer, subject)
	r.Trust = clamp(r.Trust+d.Trust, -l.bound, l.bound)
	r.Resentment = clamp(r.Resentment+d.Resentment, -l.bound, l.bound)
}

// Engine applies the static delta tables to the ledger. Only the
// acting/receiving pair moves per event: the target's view of the actor.
type Engine struct {
	ledger *Ledger
	tables tuning.Tables
}

func NewEngine(ledger *Ledger, tables tuning.Tables) *Engine {
	return &Engine{ledger: ledger, tables: tables}
}

func (e *Engine) Ledger() *Ledger { return e.ledger }

// ApplyActionDelta adjusts how target feels about actor after an action of
// the given kind. Kinds without a table entry are a no-op.
func (e *Engine) ApplyActionDelta(actor, target, kind string) {
	d, ok := e.tables.Relationship[kind]
	if !ok {
		return
	}
	e.ledger.apply(target, actor, d)
}

// ApplyToneDelta adjusts how recipient feels about sender based on message
// tone. Applied in addition to any action delta, not instead of it.
func (e *Engine) ApplyToneDelta(sender, recipient string, tone Tone) {
	d, ok := e.tables.Tone[string(tone)]
	if !ok {
		d = e.tables.Tone[string(ToneNeutral)]
	}
	e.ledger.apply(recipient, sender, d)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
