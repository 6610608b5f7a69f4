package protocol

// OBS (sim -> reasoning client): the per-agent-step observation snapshot.
type ObsMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	Turn            int         `json:"turn"`
	AgentID         string      `json:"agent_id"`
	Observation     Observation `json:"observation"`
}

type Observation struct {
	Resources   map[string]int `json:"resources"`
	CrisisLevel int            `json:"crisis_level"`

	Relationships []RelationshipObs  `json:"relationships"`
	RecentActions []string           `json:"recent_actions"`
	Messages      []MessageObs       `json:"messages,omitempty"`
	Penalties     map[string]float64 `json:"repetition_penalties"`
	Biases        map[string]float64 `json:"action_biases,omitempty"`
	Triggers      []string           `json:"triggers,omitempty"`
	Trends        map[string]string  `json:"resource_trends,omitempty"`
	Affordability []AffordabilityObs `json:"affordability"`
	CostModifier  *CostModifierObs   `json:"cost_modifier,omitempty"`
}

type RelationshipObs struct {
	Agent      string `json:"agent"`
	Trust      int    `json:"trust"`
	Resentment int    `json:"resentment"`
	Score      int    `json:"score"`
}

type MessageObs struct {
	From string `json:"from"`
	Text string `json:"text"`
}

// AffordabilityObs reports the effective cost of one action for the observing
// agent, with any active cost modifier already applied.
type AffordabilityObs struct {
	Kind       string `json:"kind"`
	Resource   string `json:"resource,omitempty"`
	Cost       int    `json:"cost"`
	Affordable bool   `json:"affordable"`
}

type CostModifierObs struct {
	Factor float64 `json:"factor"`
	Reason string  `json:"reason,omitempty"`
}

// ACT (reasoning client -> sim)
type ActMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Turn            int           `json:"turn"`
	AgentID         string        `json:"agent_id"`
	Action          ActionRequest `json:"action"`
}

// ActionRequest is untrusted input: Kind may be unknown, Target may be
// missing, decorated, or name a nonexistent agent. The resolver normalizes
// or downgrades it; it never errors back to the client.
type ActionRequest struct {
	Kind    string `json:"kind"`
	Target  string `json:"target,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
}
