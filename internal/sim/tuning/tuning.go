// Package tuning loads the simulation's numeric tables and roster from YAML.
// Every gain/cost/delta the engine applies lives here, not in code, so table
// revisions are a config change.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"agora.ai/internal/protocol"
)

type Settings struct {
	Simulation SimulationSettings `yaml:"simulation"`
	World      WorldSettings      `yaml:"world"`
	Tables     Tables             `yaml:"tables"`
}

type SimulationSettings struct {
	MaxTurns        int `yaml:"max_turns"`
	PassStreakLimit int `yaml:"pass_streak_limit"`
	DecideTimeoutMs int `yaml:"decide_timeout_ms"`
	HistoryDepth    int `yaml:"history_depth"`
	RecentActions   int `yaml:"recent_actions"`
}

type WorldSettings struct {
	Food           int `yaml:"food"`
	Energy         int `yaml:"energy"`
	Infrastructure int `yaml:"infrastructure"`
	Morale         int `yaml:"morale"`
	Treasury       int `yaml:"treasury"`
}

type Tables struct {
	// Effects maps resource-producing action kinds to their gain/cost pair.
	Effects map[string]EffectRule `yaml:"effects"`

	// Relationship maps action kinds to the delta applied to how the target
	// feels about the actor. Tone maps message tones the same way.
	Relationship map[string]Delta `yaml:"relationship"`
	Tone         map[string]Delta `yaml:"tone"`

	RelationshipBound int `yaml:"relationship_bound"`

	SupportFactor float64 `yaml:"support_factor"`
	OpposeFactor  float64 `yaml:"oppose_factor"`
	SupportMorale int     `yaml:"support_morale"`
	OpposeMorale  int     `yaml:"oppose_morale"`

	RepetitionRun     int     `yaml:"repetition_run"`
	RepetitionPenalty float64 `yaml:"repetition_penalty"`
}

type EffectRule struct {
	GainResource string `yaml:"gain_resource"`
	Gain         int    `yaml:"gain"`
	CostResource string `yaml:"cost_resource"`
	Cost         int    `yaml:"cost"`
}

type Delta struct {
	Trust      int `yaml:"trust"`
	Resentment int `yaml:"resentment"`
}

func Load(path string) (Settings, error) {
	s := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("settings.yaml: %w", err)
	}
	s.applyDefaults()
	return s, nil
}

// Defaults returns the canonical tables: the 8-action set with the ±50
// relationship bound. Fields where an explicit zero is a legal value (the
// world block, morale deltas, factors, the repetition penalty) are seeded
// here only; Load starts from Defaults, so a missing yaml key keeps the
// default while an explicit 0 survives.
func Defaults() Settings {
	s := Settings{
		World: WorldSettings{
			Food:           50,
			Energy:         50,
			Infrastructure: 50,
			Morale:         50,
			Treasury:       50,
		},
		Tables: Tables{
			SupportFactor:     0.5,
			OpposeFactor:      1.5,
			SupportMorale:     5,
			OpposeMorale:      -3,
			RepetitionPenalty: 0.1,
		},
	}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if s.Simulation.MaxTurns <= 0 {
		s.Simulation.MaxTurns = 10
	}
	if s.Simulation.PassStreakLimit <= 0 {
		s.Simulation.PassStreakLimit = 2
	}
	if s.Simulation.DecideTimeoutMs <= 0 {
		s.Simulation.DecideTimeoutMs = 30000
	}
	if s.Simulation.HistoryDepth <= 0 {
		s.Simulation.HistoryDepth = 2
	}
	if s.Simulation.RecentActions <= 0 {
		s.Simulation.RecentActions = 4
	}

	t := &s.Tables
	if len(t.Effects) == 0 {
		t.Effects = map[string]EffectRule{
			protocol.KindImproveFood:   {GainResource: "food", Gain: 8, CostResource: "energy", Cost: 3},
			protocol.KindImproveEnergy: {GainResource: "energy", Gain: 8, CostResource: "treasury", Cost: 3},
			protocol.KindImproveInfra:  {GainResource: "infrastructure", Gain: 8, CostResource: "treasury", Cost: 4},
			protocol.KindBoostMorale:   {GainResource: "morale", Gain: 8, CostResource: "food", Cost: 2},
		}
	}
	if len(t.Relationship) == 0 {
		t.Relationship = map[string]Delta{
			protocol.KindSupportAgent: {Trust: 10, Resentment: -5},
			protocol.KindOpposeAgent:  {Trust: -10, Resentment: 10},
		}
	}
	if len(t.Tone) == 0 {
		t.Tone = map[string]Delta{
			"friendly": {Trust: 5, Resentment: -2},
			"hostile":  {Trust: -5, Resentment: 5},
			"neutral":  {Trust: 1, Resentment: 0},
		}
	}
	if t.RelationshipBound <= 0 {
		t.RelationshipBound = 50
	}
	if t.RepetitionRun <= 0 {
		t.RepetitionRun = 3
	}
}

// Validate covers the fatal configuration cases: a run must not start from a
// state the engine cannot honor.
func (s Settings) Validate() error {
	if s.World.Food < 0 || s.World.Energy < 0 || s.World.Infrastructure < 0 ||
		s.World.Morale < 0 || s.World.Treasury < 0 {
		return fmt.Errorf("negative initial resource")
	}
	if s.Simulation.MaxTurns < 1 {
		return fmt.Errorf("max_turns must be >= 1")
	}
	if s.Tables.RelationshipBound < 1 {
		return fmt.Errorf("relationship_bound must be >= 1")
	}
	for kind, rule := range s.Tables.Effects {
		if !protocol.IsKnownKind(kind) {
			return fmt.Errorf("effects table: unknown action kind %q", kind)
		}
		if rule.Gain < 0 || rule.Cost < 0 {
			return fmt.Errorf("effects table: negative gain/cost for %q", kind)
		}
	}
	return nil
}
