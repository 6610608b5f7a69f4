package protocol

// HELLO (reasoning client -> sim)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	AgentName       string            `json:"agent_name"`
	Capabilities    HelloCapabilities `json:"capabilities,omitempty"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (sim -> reasoning client)
type WelcomeMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	AgentID         string    `json:"agent_id"`
	Persona         Persona   `json:"persona"`
	SimParams       SimParams `json:"sim_params"`
}

// Persona is the configured identity of an agent. Prompt construction from it
// is the client's concern; the sim only carries it.
type Persona struct {
	Name           string   `json:"name" yaml:"name"`
	Description    string   `json:"description,omitempty" yaml:"description"`
	Goals          []string `json:"goals,omitempty" yaml:"goals"`
	BehaviorBiases []string `json:"behavior_biases,omitempty" yaml:"behavior_biases"`
}

type SimParams struct {
	MaxTurns        int      `json:"max_turns"`
	Agents          []string `json:"agents"`
	ActionKinds     []string `json:"action_kinds"`
	DecideTimeoutMs int      `json:"decide_timeout_ms"`
}

// BYE (sim -> reasoning client): the run reached Terminated.
type ByeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Turn            int    `json:"turn"`
	Reason          string `json:"reason"`
}
