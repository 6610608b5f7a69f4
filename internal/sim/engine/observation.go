package engine

import (
	"fmt"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/tuning"
	"agora.ai/internal/sim/world"
)

// buildObservation assembles the read-only snapshot one agent decides from.
// It reads committed state only: earlier agents' actions this turn are
// visible, the current agent's own pending choice is not.
func (c *Controller) buildObservation(agent string, snap world.Snapshot, inbox []Message, targeted []string) protocol.Observation {
	others := c.othersOf(agent)

	rels := make([]protocol.RelationshipObs, 0, len(others))
	var scoreSum float64
	for _, o := range others {
		r := c.social.Ledger().View(agent, []string{o})[0]
		rels = append(rels, protocol.RelationshipObs{
			Agent:      o,
			Trust:      r.Trust,
			Resentment: r.Resentment,
			Score:      r.Score(),
		})
		scoreSum += float64(r.Score())
	}
	var avg float64
	if len(others) > 0 {
		avg = scoreSum / float64(len(others))
	}

	penalties := c.guard.Penalties(agent)

	obs := protocol.Observation{
		Resources:     snap.Resources,
		CrisisLevel:   snap.CrisisLevel,
		Relationships: rels,
		RecentActions: c.guard.Recent(agent),
		Penalties:     penalties,
		Biases:        ComputeActionBiases(avg, snap, penalties),
		Triggers:      c.triggersFor(agent, snap, inbox, targeted),
		Trends:        c.trends.Trends(agent),
		Affordability: affordabilityTable(c.state, agent, c.cfg.Settings.Tables),
	}
	for _, m := range inbox {
		obs.Messages = append(obs.Messages, protocol.MessageObs{From: m.From, Text: m.Text})
	}
	if m, ok := snap.CostModifiers[agent]; ok {
		reason := fmt.Sprintf("granted by %s", m.GrantedBy)
		obs.CostModifier = &protocol.CostModifierObs{Factor: m.Factor, Reason: reason}
	}
	return obs
}

func (c *Controller) triggersFor(agent string, snap world.Snapshot, inbox []Message, targeted []string) []string {
	var out []string
	for _, by := range targeted {
		out = append(out, fmt.Sprintf("You were targeted by %s this turn.", by))
	}
	if snap.Resources[world.ResFood] < 30 {
		out = append(out, "Food supplies are dwindling.")
	}
	if snap.CrisisLevel > 60 {
		out = append(out, "The world is in crisis.")
	}
	if len(inbox) > 0 {
		out = append(out, "You have received new messages.")
	}
	return out
}

// affordabilityTable reports the effective cost of every action for the
// agent, with any active modifier applied, so affordability arithmetic stays
// on this side of the decide() boundary.
func affordabilityTable(st *world.State, agent string, tables tuning.Tables) []protocol.AffordabilityObs {
	out := make([]protocol.AffordabilityObs, 0, 8)
	for _, kind := range protocol.ActionKinds() {
		rule, ok := tables.Effects[kind]
		if !ok {
			out = append(out, protocol.AffordabilityObs{Kind: kind, Affordable: true})
			continue
		}
		cost, _ := world.EffectiveCost(st, agent, rule)
		have, _ := st.Get(rule.CostResource)
		out = append(out, protocol.AffordabilityObs{
			Kind:       kind,
			Resource:   rule.CostResource,
			Cost:       cost,
			Affordable: have >= cost,
		})
	}
	return out
}
