package world

import (
	"fmt"
	"log"
	"strings"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/tuning"
)

// Resolver validates action requests, computes modified costs and applies
// effects. Bad requests never error out of Resolve; they degrade to pass and
// the downgrade is recorded in the outcome code.
type Resolver struct {
	tables tuning.Tables
	log    *log.Logger
}

func NewResolver(tables tuning.Tables, logger *log.Logger) *Resolver {
	return &Resolver{tables: tables, log: logger}
}

// Outcome is the committed result of one agent-step. Kind is the action that
// actually executed; a downgrade leaves Kind=pass with the reason in Code.
type Outcome struct {
	Actor     string         `json:"actor"`
	Requested string         `json:"requested,omitempty"`
	Kind      string         `json:"kind"`
	Target    string         `json:"target,omitempty"`
	Message   string         `json:"message,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	OK        bool           `json:"ok"`
	Code      string         `json:"code,omitempty"`
	Text      string         `json:"text"`
	Deltas    map[string]int `json:"deltas,omitempty"`

	CostResource   string  `json:"cost_resource,omitempty"`
	CostPaid       int     `json:"cost_paid,omitempty"`
	ModifierFactor float64 `json:"modifier_factor,omitempty"`
}

// Resolve applies one request against the state. roster maps canonical agent
// names; target matching accepts a first-name fallback the same way message
// delivery does.
func (r *Resolver) Resolve(st *State, actor string, req protocol.ActionRequest, roster []string) Outcome {
	kind, known := protocol.NormalizeKind(req.Kind)
	out := Outcome{
		Actor:     actor,
		Requested: strings.TrimSpace(req.Kind),
		Kind:      kind,
		Reason:    req.Reason,
	}
	if !known {
		out.Kind = protocol.KindPass
		out.OK = false
		out.Code = protocol.ErrBadRequest
		out.Text = fmt.Sprintf("%s requested unknown action %q; treated as pass.", actor, req.Kind)
		r.logf("downgrade actor=%s code=%s kind=%q", actor, out.Code, req.Kind)
		return out
	}

	switch kind {
	case protocol.KindPass:
		out.OK = true
		out.Text = fmt.Sprintf("%s passed.", actor)
		return out

	case protocol.KindSupportAgent, protocol.KindOpposeAgent, protocol.KindSendMessage:
		return r.resolveSocial(st, actor, kind, req, roster, out)

	default:
		return r.resolveResource(st, actor, kind, out)
	}
}

func (r *Resolver) resolveSocial(st *State, actor, kind string, req protocol.ActionRequest, roster []string, out Outcome) Outcome {
	target, ok := MatchAgent(protocol.SanitizeTarget(req.Target), roster)
	if !ok || target == actor {
		out.Kind = protocol.KindPass
		out.OK = false
		out.Code = protocol.ErrInvalidTarget
		out.Text = fmt.Sprintf("%s targeted unknown agent %q; treated as pass.", actor, req.Target)
		r.logf("downgrade actor=%s code=%s target=%q", actor, out.Code, req.Target)
		return out
	}
	out.Target = target

	switch kind {
	case protocol.KindSupportAgent:
		applied := st.ApplyDelta(ResMorale, r.tables.SupportMorale)
		st.SetModifier(target, r.tables.SupportFactor, actor)
		out.OK = true
		out.Deltas = map[string]int{ResMorale: applied}
		out.Text = fmt.Sprintf("%s supported %s: %s's next resource action costs 50%% less. Morale: %d.",
			actor, target, target, st.Morale)

	case protocol.KindOpposeAgent:
		applied := st.ApplyDelta(ResMorale, r.tables.OpposeMorale)
		st.SetModifier(target, r.tables.OpposeFactor, actor)
		out.OK = true
		out.Deltas = map[string]int{ResMorale: applied}
		out.Text = fmt.Sprintf("%s opposed %s: %s's next resource action costs 50%% more. Morale: %d.",
			actor, target, target, st.Morale)

	case protocol.KindSendMessage:
		msg := strings.TrimSpace(req.Message)
		if msg == "" {
			out.Kind = protocol.KindPass
			out.OK = false
			out.Code = protocol.ErrBadRequest
			out.Text = fmt.Sprintf("%s tried to send an empty message; treated as pass.", actor)
			r.logf("downgrade actor=%s code=%s empty message", actor, out.Code)
			return out
		}
		out.OK = true
		out.Message = msg
		out.Text = fmt.Sprintf("%s sent a message to %s.", actor, target)
	}
	return out
}

func (r *Resolver) resolveResource(st *State, actor, kind string, out Outcome) Outcome {
	rule, ok := r.tables.Effects[kind]
	if !ok {
		out.Kind = protocol.KindPass
		out.OK = false
		out.Code = protocol.ErrBadRequest
		out.Text = fmt.Sprintf("%s requested %s, which has no effect rule; treated as pass.", actor, kind)
		return out
	}

	cost, factor := EffectiveCost(st, actor, rule)
	have, _ := st.Get(rule.CostResource)
	if have < cost {
		out.Kind = protocol.KindPass
		out.OK = false
		out.Code = protocol.ErrUnaffordable
		out.CostResource = rule.CostResource
		out.CostPaid = 0
		out.ModifierFactor = factor
		out.Text = fmt.Sprintf("%s cannot afford %s: needs %d %s, has %d.",
			actor, kind, cost, rule.CostResource, have)
		r.logf("unaffordable actor=%s kind=%s need=%d have=%d", actor, kind, cost, have)
		return out
	}

	paid := -st.ApplyDelta(rule.CostResource, -cost)
	gained := st.ApplyDelta(rule.GainResource, rule.Gain)
	out.OK = true
	out.Deltas = map[string]int{
		rule.CostResource: -paid,
		rule.GainResource: gained,
	}
	out.CostResource = rule.CostResource
	out.CostPaid = paid
	out.ModifierFactor = factor

	suffix := ""
	if factor != 0 && factor != 1 {
		st.ConsumeModifier(actor)
		if factor < 1 {
			suffix = " (SUPPORTED: paid 50% less)"
		} else {
			suffix = " (OPPOSED: paid 50% more)"
		}
	}
	gainVal, _ := st.Get(rule.GainResource)
	out.Text = fmt.Sprintf("%s improved %s by %d at a cost of %d %s%s; %s is now %d.",
		actor, rule.GainResource, gained, paid, rule.CostResource, suffix,
		rule.GainResource, gainVal)
	return out
}

// EffectiveCost returns the rule's cost with the actor's active modifier
// applied (truncated), plus the factor used (1 when no modifier is active).
func EffectiveCost(st *State, actor string, rule tuning.EffectRule) (cost int, factor float64) {
	factor = 1
	if m, ok := st.PeekModifier(actor); ok {
		factor = m.Factor
	}
	return int(float64(rule.Cost) * factor), factor
}

// MatchAgent resolves a possibly sloppy target name against the roster:
// exact match first, then a case-insensitive first-name fallback.
func MatchAgent(name string, roster []string) (string, bool) {
	if name == "" {
		return "", false
	}
	for _, a := range roster {
		if a == name {
			return a, true
		}
	}
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", false
	}
	first := strings.ToLower(fields[0])
	for _, a := range roster {
		f := strings.Fields(a)
		if len(f) > 0 && strings.ToLower(f[0]) == first {
			return a, true
		}
	}
	return "", false
}

func (r *Resolver) logf(format string, args ...any) {
	if r.log != nil {
		r.log.Printf(format, args...)
	}
}
