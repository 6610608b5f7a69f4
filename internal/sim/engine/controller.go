// Package engine drives the per-turn, per-agent orchestration: observation
// building, the external decide() call, effect resolution, relationship
// updates and termination checks.
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"agora.ai/internal/protocol"
	"agora.ai/internal/sim/social"
	"agora.ai/internal/sim/tuning"
	"agora.ai/internal/sim/world"
)

// Decider is the external reasoning collaborator. It is untrusted: errors,
// timeouts and malformed requests all degrade to pass, never abort the run.
type Decider interface {
	Decide(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error)
}

type DeciderFunc func(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error)

func (f DeciderFunc) Decide(ctx context.Context, obs protocol.ObsMsg) (protocol.ActionRequest, error) {
	return f(ctx, obs)
}

// Phase of the turn state machine.
type Phase int

const (
	PhaseInit Phase = iota
	PhaseTurnStart
	PhaseAgentStep
	PhaseTurnEnd
	PhaseTerminated
)

// Narrative is the structured record of one resolved agent-step. It is the
// sole event-sourcing record sinks and observers consume.
type Narrative struct {
	Turn   int            `json:"turn"`
	Seq    int            `json:"seq"`
	Actor  string         `json:"actor"`
	Kind   string         `json:"kind"`
	Target string         `json:"target,omitempty"`
	OK     bool           `json:"ok"`
	Code   string         `json:"code,omitempty"`
	Text   string         `json:"text"`
	Deltas map[string]int `json:"deltas,omitempty"`

	RelationshipDeltas []RelationshipDelta `json:"relationship_deltas,omitempty"`
}

type RelationshipDelta struct {
	Observer   string `json:"observer"`
	Subject    string `json:"subject"`
	Trust      int    `json:"trust"`
	Resentment int    `json:"resentment"`
}

// TurnSummary is emitted once per turn after derived metrics are recomputed.
type TurnSummary struct {
	Turn       int            `json:"turn"`
	Resources  map[string]int `json:"resources"`
	Crisis     int            `json:"crisis_level"`
	PassStreak int            `json:"pass_streak"`
	AllPassed  bool           `json:"all_passed"`
}

// NarrativeSink receives the run's event records. Sinks are collaborators:
// a sink error is logged, never fatal.
type NarrativeSink interface {
	WriteNarrative(n Narrative) error
	WriteTurnSummary(s TurnSummary) error
}

type Config struct {
	Settings tuning.Settings
	Personas []protocol.Persona

	// Deciders maps persona name to its reasoning collaborator. Agents
	// without one always pass.
	Deciders map[string]Decider

	Log   *log.Logger
	Sinks []NarrativeSink
}

// Result summarizes a completed run.
type Result struct {
	Turns      int            `json:"turns"`
	Reason     string         `json:"reason"`
	Final      world.Snapshot `json:"final"`
	Narratives int            `json:"narratives"`
}

// Termination reasons.
const (
	ReasonMaxTurns      = "max_turns"
	ReasonIdleConsensus = "idle_consensus"
)

// Controller owns WorldState, the relationship ledger and the repetition
// guard for one run. Agents act strictly in roster order within a turn, so
// each later agent observes the effects of all earlier ones.
type Controller struct {
	cfg    Config
	roster []string

	state    *world.State
	resolver *world.Resolver
	social   *social.Engine
	guard    *RepetitionGuard
	queue    messageQueue
	trends   *trendTracker

	phase      Phase
	passStreak int
	seq        int
	log        *log.Logger
}

// New validates the starting configuration; any error here is the fatal
// ConfigurationError case and aborts before Init completes.
func New(cfg Config) (*Controller, error) {
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	if err := tuning.ValidateRoster(cfg.Personas); err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}

	roster := make([]string, len(cfg.Personas))
	for i, p := range cfg.Personas {
		roster[i] = p.Name
	}

	t := cfg.Settings.Tables
	sim := cfg.Settings.Simulation
	c := &Controller{
		cfg:      cfg,
		roster:   roster,
		state:    world.NewState(cfg.Settings.World),
		resolver: world.NewResolver(t, cfg.Log),
		social:   social.NewEngine(social.NewLedger(t.RelationshipBound), t),
		guard:    NewRepetitionGuard(sim.RecentActions, t.RepetitionRun, t.RepetitionPenalty),
		trends:   newTrendTracker(4),
		phase:    PhaseInit,
		log:      cfg.Log,
	}
	for _, name := range roster {
		c.trends.Record(name, c.state.Snapshot())
	}
	return c, nil
}

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Roster() []string { return c.roster }

func (c *Controller) Snapshot() world.Snapshot { return c.state.Snapshot() }

func (c *Controller) Ledger() *social.Ledger { return c.social.Ledger() }

func (c *Controller) Guard() *RepetitionGuard { return c.guard }

func (c *Controller) othersOf(agent string) []string {
	out := make([]string, 0, len(c.roster)-1)
	for _, a := range c.roster {
		if a != agent {
			out = append(out, a)
		}
	}
	return out
}

// Run drives TurnStart -> AgentStep(i) -> TurnEnd until Terminated. Once the
// loop starts, only context cancellation can end it before a termination
// predicate fires.
func (c *Controller) Run(ctx context.Context) (Result, error) {
	sim := c.cfg.Settings.Simulation
	for {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		// TurnStart: only the counter moves; queued messages become pending.
		c.phase = PhaseTurnStart
		c.state.Turn++
		inboxes, dropped := c.queue.DeliverAll(c.roster)
		for _, m := range dropped {
			c.logf("message to unknown agent %q dropped", m.To)
		}

		// AgentStep(i), strictly sequential.
		c.phase = PhaseAgentStep
		allPassed := true
		targeted := map[string][]string{}
		for _, agent := range c.roster {
			out := c.agentStep(ctx, agent, inboxes[agent], targeted[agent])
			if out.Kind != protocol.KindPass {
				allPassed = false
			}
			if out.OK && out.Target != "" {
				targeted[out.Target] = append(targeted[out.Target], agent)
			}
		}

		// TurnEnd: derived metrics, modifier expiry, termination predicates.
		c.phase = PhaseTurnEnd
		c.state.RecomputeDerived()
		c.state.TickModifiers()
		for _, agent := range c.roster {
			c.trends.Record(agent, c.state.Snapshot())
		}
		if allPassed {
			c.passStreak++
		} else {
			c.passStreak = 0
		}
		c.emitTurnSummary(allPassed)

		if c.passStreak >= sim.PassStreakLimit {
			return c.terminate(ReasonIdleConsensus), nil
		}
		if c.state.Turn >= sim.MaxTurns {
			return c.terminate(ReasonMaxTurns), nil
		}
	}
}

// agentStep runs one agent through decide -> resolve -> relationship update
// -> repetition record. Effects commit when this returns; the next agent's
// observation sees them.
func (c *Controller) agentStep(ctx context.Context, agent string, inbox []Message, targetedBy []string) world.Outcome {
	obs := protocol.ObsMsg{
		Type:            protocol.TypeObs,
		ProtocolVersion: protocol.Version,
		Turn:            c.state.Turn,
		AgentID:         agent,
		Observation:     c.buildObservation(agent, c.state.Snapshot(), inbox, targetedBy),
	}

	req, err := c.decide(ctx, agent, obs)
	var out world.Outcome
	if err != nil {
		// CollaboratorFailure: no partial effects, distinct code from a
		// malformed request.
		out = world.Outcome{
			Actor: agent,
			Kind:  protocol.KindPass,
			OK:    false,
			Code:  protocol.ErrDeciderFailure,
			Text:  fmt.Sprintf("%s's decision failed (%v); treated as pass.", agent, err),
		}
		c.logf("decider failure agent=%s err=%v", agent, err)
	} else {
		out = c.resolver.Resolve(c.state, agent, req, c.roster)
	}

	n := Narrative{
		Turn:   c.state.Turn,
		Seq:    c.nextSeq(),
		Actor:  agent,
		Kind:   out.Kind,
		Target: out.Target,
		OK:     out.OK,
		Code:   out.Code,
		Text:   out.Text,
		Deltas: out.Deltas,
	}

	if out.OK && out.Target != "" {
		n.RelationshipDeltas = c.applyRelationshipDeltas(agent, out)
	}

	// Repetition history records what actually executed, so downgraded and
	// unaffordable requests land as pass.
	c.guard.Record(agent, out.Kind)

	if out.Kind == protocol.KindSendMessage && out.OK {
		c.queue.Enqueue(Message{From: agent, To: out.Target, Text: out.Message})
	}

	c.emitNarrative(n)
	return out
}

func (c *Controller) applyRelationshipDeltas(actor string, out world.Outcome) []RelationshipDelta {
	before := *c.social.Ledger().Get(out.Target, actor)
	c.social.ApplyActionDelta(actor, out.Target, out.Kind)
	if out.Kind == protocol.KindSendMessage {
		tone := social.ClassifyTone(out.Message)
		c.social.ApplyToneDelta(actor, out.Target, tone)
	}
	after := *c.social.Ledger().Get(out.Target, actor)
	d := RelationshipDelta{
		Observer:   out.Target,
		Subject:    actor,
		Trust:      after.Trust - before.Trust,
		Resentment: after.Resentment - before.Resentment,
	}
	if d.Trust == 0 && d.Resentment == 0 {
		return nil
	}
	return []RelationshipDelta{d}
}

func (c *Controller) decide(ctx context.Context, agent string, obs protocol.ObsMsg) (protocol.ActionRequest, error) {
	d := c.cfg.Deciders[agent]
	if d == nil {
		return protocol.ActionRequest{Kind: protocol.KindPass, Reason: "no decider attached"}, nil
	}
	timeout := time.Duration(c.cfg.Settings.Simulation.DecideTimeoutMs) * time.Millisecond
	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.Decide(dctx, obs)
}

func (c *Controller) terminate(reason string) Result {
	c.phase = PhaseTerminated
	c.logf("terminated turn=%d reason=%s", c.state.Turn, reason)
	return Result{
		Turns:      c.state.Turn,
		Reason:     reason,
		Final:      c.state.Snapshot(),
		Narratives: c.seq,
	}
}

func (c *Controller) nextSeq() int {
	c.seq++
	return c.seq
}

func (c *Controller) emitNarrative(n Narrative) {
	c.logf("turn=%d %s", n.Turn, n.Text)
	for _, s := range c.cfg.Sinks {
		if err := s.WriteNarrative(n); err != nil {
			c.logf("narrative sink: %v", err)
		}
	}
}

func (c *Controller) emitTurnSummary(allPassed bool) {
	snap := c.state.Snapshot()
	s := TurnSummary{
		Turn:       snap.Turn,
		Resources:  snap.Resources,
		Crisis:     snap.CrisisLevel,
		PassStreak: c.passStreak,
		AllPassed:  allPassed,
	}
	for _, sink := range c.cfg.Sinks {
		if err := sink.WriteTurnSummary(s); err != nil {
			c.logf("summary sink: %v", err)
		}
	}
}

func (c *Controller) logf(format string, args ...any) {
	if c.log != nil {
		c.log.Printf(format, args...)
	}
}
