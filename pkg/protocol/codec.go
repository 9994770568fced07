package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/marspr/srp-web/pkg/srp"
)

// Encoding selects how group elements travel inside JSON payloads.
type Encoding int

const (
	// Base64 carries the canonical fixed-width big-endian form of a group
	// element, base64-encoded. This is the default.
	Base64 Encoding = iota
	// Decimal carries ASCII decimal digits, for interop with deployments
	// of the original web login.
	Decimal
)

// EncodingByName maps a configuration string to an Encoding. The empty
// string selects the default.
func EncodingByName(name string) (Encoding, error) {
	switch name {
	case "", "base64":
		return Base64, nil
	case "decimal":
		return Decimal, nil
	default:
		return 0, fmt.Errorf("unknown wire encoding %q", name)
	}
}

func (e Encoding) String() string {
	if e == Decimal {
		return "decimal"
	}
	return "base64"
}

// Salt bounds on decode. The floor matches the user store: anything
// shorter than 32 bits is refused on every salt-carrying frame.
const (
	minSaltBytes = 4
	maxSaltBytes = 256
)

// Codec translates between decoded exchange messages and wire envelopes
// for one protocol configuration. Both peers must use the same group, hash
// and encoding.
type Codec struct {
	// Group is the arithmetic domain; defaults to srp.Group2048.
	Group *srp.Group
	// Hash bounds the proof sizes; defaults to srp.SHA256.
	Hash srp.Hash
	// Encoding is the group element representation.
	Encoding Encoding
}

func (c Codec) group() *srp.Group {
	if c.Group != nil {
		return c.Group
	}
	return srp.Group2048
}

// Encode wraps an exchange message into its envelope.
func (c Codec) Encode(msg srp.Message) (*Envelope, error) {
	switch m := msg.(type) {
	case *srp.ClientHello:
		return NewEnvelope(TypeHello, &HelloPayload{
			Username: m.Username,
			A:        c.encodeInt(m.A),
		})
	case *srp.ServerChallenge:
		return NewEnvelope(TypeChallenge, &ChallengePayload{
			Salt: base64.StdEncoding.EncodeToString(m.Salt),
			B:    c.encodeInt(m.B),
		})
	case *srp.ClientProof:
		return NewEnvelope(TypeProof, &ProofPayload{
			M1: base64.StdEncoding.EncodeToString(m.M1),
		})
	case *srp.ServerConfirm:
		return c.EncodeConfirm(m, "")
	default:
		return nil, fmt.Errorf("unsupported message %T", msg)
	}
}

// EncodeConfirm wraps the server confirmation, attaching the session token
// the daemon issues on success.
func (c Codec) EncodeConfirm(m *srp.ServerConfirm, sessionToken string) (*Envelope, error) {
	return NewEnvelope(TypeConfirm, &ConfirmPayload{
		M2:           base64.StdEncoding.EncodeToString(m.M2),
		SessionToken: sessionToken,
	})
}

// Decode unwraps an envelope into the exchange message it carries. All
// values are range-checked: group elements must be canonical and reduced,
// proofs must match the digest size.
func (c Codec) Decode(env *Envelope) (srp.Message, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: empty frame", srp.ErrMalformedMessage)
	}
	switch env.Type {
	case TypeHello:
		var p HelloPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		if p.Username == "" {
			return nil, fmt.Errorf("%w: hello without username", srp.ErrMalformedMessage)
		}
		a, err := c.decodeInt(p.A)
		if err != nil {
			return nil, fmt.Errorf("A: %w", err)
		}
		return &srp.ClientHello{Username: p.Username, A: a}, nil

	case TypeChallenge:
		var p ChallengePayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		salt, err := decodeBytes(p.Salt, minSaltBytes, maxSaltBytes)
		if err != nil {
			return nil, fmt.Errorf("salt: %w", err)
		}
		b, err := c.decodeInt(p.B)
		if err != nil {
			return nil, fmt.Errorf("B: %w", err)
		}
		return &srp.ServerChallenge{Salt: salt, B: b}, nil

	case TypeProof:
		var p ProofPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		m1, err := decodeBytes(p.M1, c.Hash.Size(), c.Hash.Size())
		if err != nil {
			return nil, fmt.Errorf("M1: %w", err)
		}
		return &srp.ClientProof{M1: m1}, nil

	case TypeConfirm:
		var p ConfirmPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return nil, err
		}
		m2, err := decodeBytes(p.M2, c.Hash.Size(), c.Hash.Size())
		if err != nil {
			return nil, fmt.Errorf("M2: %w", err)
		}
		return &srp.ServerConfirm{M2: m2}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected frame type %q", srp.ErrMalformedMessage, env.Type)
	}
}

// ConfirmToken extracts the session token from a confirm envelope, if any.
func ConfirmToken(env *Envelope) string {
	if env == nil || env.Type != TypeConfirm {
		return ""
	}
	var p ConfirmPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return ""
	}
	return p.SessionToken
}

// EncodeRegister builds the enrollment frame from a locally derived
// record.
func (c Codec) EncodeRegister(rec *srp.UserRecord) (*Envelope, error) {
	return NewEnvelope(TypeRegister, &RegisterRequest{
		Username: rec.Username,
		Salt:     base64.StdEncoding.EncodeToString(rec.Salt),
		Verifier: c.encodeInt(rec.Verifier),
	})
}

// DecodeRegister validates an enrollment payload into a user record.
func (c Codec) DecodeRegister(env *Envelope) (*srp.UserRecord, error) {
	if env == nil || env.Type != TypeRegister {
		return nil, fmt.Errorf("%w: not an enrollment frame", srp.ErrMalformedMessage)
	}
	var p RegisterRequest
	if err := unmarshalPayload(env.Payload, &p); err != nil {
		return nil, err
	}
	if p.Username == "" {
		return nil, fmt.Errorf("%w: enrollment without username", srp.ErrMalformedMessage)
	}
	salt, err := decodeBytes(p.Salt, minSaltBytes, maxSaltBytes)
	if err != nil {
		return nil, fmt.Errorf("salt: %w", err)
	}
	v, err := c.decodeInt(p.Verifier)
	if err != nil {
		return nil, fmt.Errorf("verifier: %w", err)
	}
	if v.Sign() == 0 {
		return nil, fmt.Errorf("%w: zero verifier", srp.ErrMalformedMessage)
	}
	return &srp.UserRecord{Username: p.Username, Salt: salt, Verifier: v}, nil
}

func (c Codec) encodeInt(x *big.Int) string {
	if c.Encoding == Decimal {
		return x.Text(10)
	}
	return base64.StdEncoding.EncodeToString(c.group().Pad(x))
}

func (c Codec) decodeInt(s string) (*big.Int, error) {
	if c.Encoding == Decimal {
		return c.decodeDecimal(s)
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", srp.ErrMalformedMessage, err)
	}
	return c.group().ParsePadded(raw)
}

func (c Codec) decodeDecimal(s string) (*big.Int, error) {
	// ~2.41 digits per byte; 3x is a generous upper bound that still
	// refuses absurd inputs before big.Int parses them.
	if s == "" || len(s) > 3*c.group().ByteLength() {
		return nil, fmt.Errorf("%w: decimal value has unreasonable length", srp.ErrMalformedMessage)
	}
	x, ok := new(big.Int).SetString(s, 10)
	if !ok || x.Sign() < 0 {
		return nil, fmt.Errorf("%w: invalid decimal value", srp.ErrMalformedMessage)
	}
	if x.Cmp(c.group().N) >= 0 {
		return nil, fmt.Errorf("%w: value not reduced mod N", srp.ErrMalformedMessage)
	}
	return x, nil
}

func decodeBytes(s string, minLen, maxLen int) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64: %v", srp.ErrMalformedMessage, err)
	}
	if len(raw) < minLen || len(raw) > maxLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d..%d", srp.ErrMalformedMessage, len(raw), minLen, maxLen)
	}
	return raw, nil
}

func unmarshalPayload(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing payload", srp.ErrMalformedMessage)
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", srp.ErrMalformedMessage, err)
	}
	return nil
}
