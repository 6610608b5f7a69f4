package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeObs     = "OBS"
	TypeAct     = "ACT"
	TypeBye     = "BYE"
)

// Action kinds. This set is fixed; anything else is sanitized to KindPass.
const (
	KindImproveFood   = "improve_food"
	KindImproveEnergy = "improve_energy"
	KindImproveInfra  = "improve_infrastructure"
	KindBoostMorale   = "boost_morale"
	KindSupportAgent  = "support_agent"
	KindOpposeAgent   = "oppose_agent"
	KindSendMessage   = "send_message"
	KindPass          = "pass"
)

// ActionKinds returns the full action set in a stable order.
func ActionKinds() []string {
	return []string{
		KindImproveFood,
		KindImproveEnergy,
		KindImproveInfra,
		KindBoostMorale,
		KindSupportAgent,
		KindOpposeAgent,
		KindSendMessage,
		KindPass,
	}
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
