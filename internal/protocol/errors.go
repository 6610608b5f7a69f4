package protocol

const (
	// Transport/handshake validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Request normalization.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrInvalidTarget = "E_INVALID_TARGET"

	// Resolution outcomes.
	ErrUnaffordable = "E_UNAFFORDABLE"

	// Collaborator failures (decide() error/timeout); distinct from
	// ErrBadRequest so logs separate the two recovery paths.
	ErrDeciderFailure = "E_DECIDER_FAILURE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrInvalidTarget:   {},
	ErrUnaffordable:    {},
	ErrDeciderFailure:  {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
