// Package world holds the authoritative numeric state of the shared
// environment and the action-effect resolver that mutates it.
package world

import "agora.ai/internal/sim/tuning"

// Resource names.
const (
	ResFood           = "food"
	ResEnergy         = "energy"
	ResInfrastructure = "infrastructure"
	ResMorale         = "morale"
	ResTreasury       = "treasury"
)

// Resources returns the five core resources in a stable order.
func Resources() []string {
	return []string{ResFood, ResEnergy, ResInfrastructure, ResMorale, ResTreasury}
}

// State is owned by the turn controller for the lifetime of one run. Nothing
// outside the sim packages holds a writable reference; collaborators see
// Snapshot copies only.
type State struct {
	Turn int

	Food           int
	Energy         int
	Infrastructure int
	Morale         int
	Treasury       int

	// CrisisLevel is derived. It is recomputed at turn boundaries only, so
	// within a turn every agent-step reads the turn-start value.
	CrisisLevel int

	CostModifiers map[string]CostModifier
}

// CostModifier is a one-turn discount or surcharge on the holder's next
// resource action. It is consumed by that action, or expires when TurnsLeft
// reaches zero at a turn boundary.
type CostModifier struct {
	Factor    float64 `json:"factor"`
	GrantedBy string  `json:"granted_by"`
	TurnsLeft int     `json:"turns_left"`
}

func NewState(w tuning.WorldSettings) *State {
	s := &State{
		Food:           w.Food,
		Energy:         w.Energy,
		Infrastructure: w.Infrastructure,
		Morale:         w.Morale,
		Treasury:       w.Treasury,
		CostModifiers:  map[string]CostModifier{},
	}
	s.RecomputeDerived()
	return s
}

// Get returns the named resource value. ok is false for unknown names.
func (s *State) Get(resource string) (v int, ok bool) {
	switch resource {
	case ResFood:
		return s.Food, true
	case ResEnergy:
		return s.Energy, true
	case ResInfrastructure:
		return s.Infrastructure, true
	case ResMorale:
		return s.Morale, true
	case ResTreasury:
		return s.Treasury, true
	}
	return 0, false
}

// ApplyDelta mutates one resource by a signed amount, clamping at zero.
// It returns the delta actually applied after clamping.
func (s *State) ApplyDelta(resource string, amount int) int {
	cur, ok := s.Get(resource)
	if !ok {
		return 0
	}
	next := cur + amount
	if next < 0 {
		next = 0
	}
	switch resource {
	case ResFood:
		s.Food = next
	case ResEnergy:
		s.Energy = next
	case ResInfrastructure:
		s.Infrastructure = next
	case ResMorale:
		s.Morale = next
	case ResTreasury:
		s.Treasury = next
	}
	return next - cur
}

// RecomputeDerived recalculates crisis_level from the five core resources.
// Called once at init and once per turn boundary, never per action.
func (s *State) RecomputeDerived() {
	sum := s.Food + s.Energy + s.Infrastructure + s.Morale + s.Treasury
	s.CrisisLevel = clamp(100-sum/5, 0, 100)
}

// SetModifier installs or refreshes the target's cost modifier. TurnsLeft=2
// survives the current turn's boundary decrement, so an agent supported on
// turn T still holds the discount through turn T+1.
func (s *State) SetModifier(agent string, factor float64, grantedBy string) {
	s.CostModifiers[agent] = CostModifier{Factor: factor, GrantedBy: grantedBy, TurnsLeft: 2}
}

// PeekModifier reports the agent's active modifier without consuming it.
func (s *State) PeekModifier(agent string) (CostModifier, bool) {
	m, ok := s.CostModifiers[agent]
	return m, ok
}

// ConsumeModifier removes the agent's modifier after its one resource action.
func (s *State) ConsumeModifier(agent string) {
	delete(s.CostModifiers, agent)
}

// TickModifiers decrements modifier lifetimes at the turn boundary and drops
// the expired ones.
func (s *State) TickModifiers() {
	for agent, m := range s.CostModifiers {
		m.TurnsLeft--
		if m.TurnsLeft <= 0 {
			delete(s.CostModifiers, agent)
		} else {
			s.CostModifiers[agent] = m
		}
	}
}

// Snapshot is a read-only copy handed to observation builders and sinks.
type Snapshot struct {
	Turn          int                     `json:"turn"`
	Resources     map[string]int          `json:"resources"`
	CrisisLevel   int                     `json:"crisis_level"`
	CostModifiers map[string]CostModifier `json:"cost_modifiers,omitempty"`
}

func (s *State) Snapshot() Snapshot {
	mods := make(map[string]CostModifier, len(s.CostModifiers))
	for k, v := range s.CostModifiers {
		mods[k] = v
	}
	return Snapshot{
		Turn: s.Turn,
		Resources: map[string]int{
			ResFood:           s.Food,
			ResEnergy:         s.Energy,
			ResInfrastructure: s.Infrastructure,
			ResMorale:         s.Morale,
			ResTreasury:       s.Treasury,
		},
		CrisisLevel:   s.CrisisLevel,
		CostModifiers: mods,
	}
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
