package srp

import "errors"

// Error kinds surfaced by sessions and drivers. Hosts classify them with
// errors.Is to decide logging and transport behavior; none of these strings
// may be sent to the peer.
var (
	// ErrInvalidPublicValue marks an ephemeral public value that must not
	// be used: A or B congruent to 0 mod N, or a zero scrambling parameter
	// derived from them.
	ErrInvalidPublicValue = errors.New("srp: invalid public value")

	// ErrProofMismatch means the peer's proof did not match the expected
	// value. The server reports it to the host only; the peer sees a
	// generic failure.
	ErrProofMismatch = errors.New("srp: proof verification failed")

	// ErrProtocolOrder marks a message received in the wrong phase, a
	// replay, or any use of a session past its terminal state.
	ErrProtocolOrder = errors.New("srp: message violates protocol order")

	// ErrUnknownUser is returned by Lookup implementations for absent
	// users. It escapes the server session only when unknown-user
	// simulation is disabled.
	ErrUnknownUser = errors.New("srp: unknown user")

	// ErrInsufficientEntropy means the random source failed while drawing
	// ephemeral secrets or salts.
	ErrInsufficientEntropy = errors.New("srp: insufficient entropy")

	// ErrExchangeTimeout means the exchange deadline passed before a
	// verdict was reached.
	ErrExchangeTimeout = errors.New("srp: exchange timed out")

	// ErrMalformedMessage marks a payload that failed to decode or carried
	// an out-of-range value.
	ErrMalformedMessage = errors.New("srp: malformed message")
)
