package engine

import "agora.ai/internal/protocol"

// RepetitionGuard tracks each agent's recent action kinds in a bounded ring
// and surfaces a near-zero advisory multiplier for over-repeated choices.
// It never blocks an action; the decision collaborator may override it.
type RepetitionGuard struct {
	size    int
	run     int
	penalty float64
	recent  map[string][]string
}

func NewRepetitionGuard(size, run int, penalty float64) *RepetitionGuard {
	if size < run {
		size = run
	}
	return &RepetitionGuard{
		size:    size,
		run:     run,
		penalty: penalty,
		recent:  map[string][]string{},
	}
}

func (g *RepetitionGuard) Record(agent, kind string) {
	r := append(g.recent[agent], kind)
	if len(r) > g.size {
		r = r[len(r)-g.size:]
	}
	g.recent[agent] = r
}

// Recent returns a copy of the agent's ring, oldest first.
func (g *RepetitionGuard) Recent(agent string) []string {
	r := g.recent[agent]
	out := make([]string, len(r))
	copy(out, r)
	return out
}

// PenaltyFor returns the advisory multiplier for choosing kind next: the
// configured penalty when the agent's last `run` actions all equal kind,
// 1.0 otherwise.
func (g *RepetitionGuard) PenaltyFor(agent, kind string) float64 {
	r := g.recent[agent]
	if len(r) < g.run {
		return 1
	}
	for _, k := range r[len(r)-g.run:] {
		if k != kind {
			return 1
		}
	}
	return g.penalty
}

// Penalties returns the multiplier for every candidate kind.
func (g *RepetitionGuard) Penalties(agent string) map[string]float64 {
	out := make(map[string]float64, 8)
	for _, k := range protocol.ActionKinds() {
		out[k] = g.PenaltyFor(agent, k)
	}
	return out
}
