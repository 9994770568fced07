package protocol

import "encoding/json"

// MessageType discriminates the frames of the authentication protocol.
type MessageType string

// Frame types. The auth.* sequence carries one SRP-6a exchange; register.*
// carries enrollment.
const (
	TypeHello     MessageType = "auth.hello"
	TypeChallenge MessageType = "auth.challenge"
	TypeProof     MessageType = "auth.proof"
	TypeConfirm   MessageType = "auth.confirm"

	TypeRegister   MessageType = "register.request"
	TypeRegistered MessageType = "register.ok"

	TypeError MessageType = "error"
)

// Envelope is one WebSocket frame: a type tag and the payload for it.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorResponse  `json:"error,omitempty"`
}

// NewEnvelope wraps a payload struct into an envelope of the given type.
func NewEnvelope(t MessageType, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: t, Payload: raw}, nil
}

// NewErrorEnvelope wraps an API error into a frame.
func NewErrorEnvelope(e *ErrorResponse) *Envelope {
	return &Envelope{Type: TypeError, Error: e}
}

// HelloPayload opens an exchange: the claimed username and the client's
// ephemeral public value.
type HelloPayload struct {
	Username string `json:"username"`
	A        string `json:"A"`
}

// ChallengePayload answers a hello with the user's salt and the server's
// ephemeral public value.
type ChallengePayload struct {
	Salt string `json:"salt"`
	B    string `json:"B"`
}

// ProofPayload carries the client proof.
type ProofPayload struct {
	M1 string `json:"M1"`
}

// ConfirmPayload carries the server proof and, on the daemon, the bearer
// token for the authenticated session.
type ConfirmPayload struct {
	M2           string `json:"M2"`
	SessionToken string `json:"session_token,omitempty"`
}

// RegisterRequest enrolls a user: the client submits the salt and verifier
// it derived locally. The password itself never travels.
type RegisterRequest struct {
	Username string `json:"username"`
	Salt     string `json:"salt"`
	Verifier string `json:"verifier"`
}

// RegisterResponse acknowledges an enrollment.
type RegisterResponse struct {
	Username string `json:"username"`
}

// SessionInfo is the body of GET /session for an authenticated bearer.
type SessionInfo struct {
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}
