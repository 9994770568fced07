package srp

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
)

// Lookup resolves a username to its enrollment record. Implementations
// return ErrUnknownUser (possibly wrapped) for absent users; any other
// error aborts the exchange.
type Lookup interface {
	Lookup(username string) (*UserRecord, error)
}

type serverPhase uint8

const (
	serverInit serverPhase = iota
	serverAwaitProof
	serverDone
	serverFailed
)

func (p serverPhase) String() string {
	switch p {
	case serverInit:
		return "init"
	case serverAwaitProof:
		return "await-proof"
	case serverDone:
		return "done"
	default:
		return "failed"
	}
}

// ServerSession drives the server side of one authentication exchange.
// Single-use and not safe for concurrent use; the host runs one session
// per live exchange.
type ServerSession struct {
	cfg    *Config
	lookup Lookup
	phase  serverPhase

	username  string
	salt      []byte
	verifier  *big.Int
	simulated bool

	b    *big.Int // ephemeral private value
	pubA *big.Int // client's A
	pubB *big.Int // B = (k*v + g^b) mod N
	key  []byte
}

// NewServerSession prepares the server side of an exchange backed by the
// given record source.
func NewServerSession(cfg *Config, lookup Lookup) (*ServerSession, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if lookup == nil {
		return nil, fmt.Errorf("lookup is required")
	}
	return &ServerSession{cfg: cfg, lookup: lookup}, nil
}

// HandleHello consumes the opening message, resolves the user's record and
// produces the challenge. Unknown usernames proceed against a simulated
// record unless cfg.DisableSimulation is set, so the reply shape and cost
// match a real user.
func (s *ServerSession) HandleHello(h *ClientHello) (*ServerChallenge, error) {
	if s.phase != serverInit {
		return nil, s.orderViolation("hello")
	}
	if h == nil || h.A == nil || h.Username == "" {
		s.fail()
		return nil, fmt.Errorf("%w: hello missing username or A", ErrMalformedMessage)
	}
	g := s.cfg.group()
	if g.isDegenerate(h.A) {
		s.fail()
		return nil, fmt.Errorf("%w: A mod N <= 1", ErrInvalidPublicValue)
	}

	rec, err := s.lookup.Lookup(h.Username)
	switch {
	case err == nil:
	case errors.Is(err, ErrUnknownUser) && !s.cfg.DisableSimulation:
		rec, err = simulateRecord(s.cfg, h.Username)
		if err != nil {
			s.fail()
			return nil, err
		}
		s.simulated = true
	default:
		s.fail()
		return nil, fmt.Errorf("looking up %q: %w", h.Username, err)
	}

	s.username = h.Username
	s.salt = append([]byte(nil), rec.Salt...)
	s.verifier = new(big.Int).Set(rec.Verifier)
	s.pubA = new(big.Int).Set(h.A)

	// B = (k*v + g^b) mod N, redrawing b while B is congruent to 0
	k := s.cfg.multiplier()
	kv := new(big.Int).Mul(k, s.verifier)
	kv.Mod(kv, g.N)
	for i := 0; i < maxEphemeralDraws; i++ {
		b, err := randomExponent(s.cfg.random())
		if err != nil {
			s.fail()
			return nil, err
		}
		if b.Sign() == 0 {
			continue
		}
		gb := new(big.Int).Exp(g.G, b, g.N)
		pubB := new(big.Int).Add(kv, gb)
		pubB.Mod(pubB, g.N)
		if g.isDegenerate(pubB) {
			wipeInt(b)
			continue
		}
		s.b, s.pubB = b, pubB
		break
	}
	if s.b == nil {
		s.fail()
		return nil, fmt.Errorf("%w: no usable ephemeral value after %d draws", ErrInsufficientEntropy, maxEphemeralDraws)
	}

	s.phase = serverAwaitProof
	return &ServerChallenge{
		Salt: append([]byte(nil), s.salt...),
		B:    new(big.Int).Set(s.pubB),
	}, nil
}

// HandleProof verifies the client proof M1. On success it returns the
// confirmation M2; on mismatch it fails the session with ErrProofMismatch.
// Exchanges against a simulated record always mismatch. Hosts must answer
// any failure with the same generic close, never with the reason.
func (s *ServerSession) HandleProof(p *ClientProof) (*ServerConfirm, error) {
	if s.phase != serverAwaitProof {
		return nil, s.orderViolation("proof")
	}
	if p == nil || len(p.M1) == 0 {
		s.fail()
		return nil, fmt.Errorf("%w: proof missing M1", ErrMalformedMessage)
	}
	g := s.cfg.group()
	u := computeU(s.cfg.Hash, g, s.pubA, s.pubB)
	if u.Sign() == 0 {
		s.fail()
		return nil, fmt.Errorf("%w: scrambling parameter is zero", ErrInvalidPublicValue)
	}

	// S = (A * v^u)^b mod N
	vu := new(big.Int).Exp(s.verifier, u, g.N)
	avu := new(big.Int).Mul(s.pubA, vu)
	avu.Mod(avu, g.N)
	S := new(big.Int).Exp(avu, s.b, g.N)

	key := digest(s.cfg.Hash, S.Bytes())
	want := computeM1(s.cfg.Hash, g, s.username, s.salt, s.pubA, s.pubB, key)
	ok := constantTimeEqual(p.M1, want) && !s.simulated

	wipeInt(s.b)
	s.b = nil
	wipeInt(S)

	if !ok {
		wipe(key)
		s.fail()
		return nil, fmt.Errorf("%w: client proof M1", ErrProofMismatch)
	}

	s.key = key
	m2 := computeM2(s.cfg.Hash, s.pubA, p.M1, key)
	s.phase = serverDone
	return &ServerConfirm{M2: m2}, nil
}

// SessionKey returns a copy of the shared key K. It is available only
// after the client's proof verified.
func (s *ServerSession) SessionKey() ([]byte, error) {
	if s.phase != serverDone {
		return nil, fmt.Errorf("%w: session key requested in phase %s", ErrProtocolOrder, s.phase)
	}
	if s.key == nil {
		return nil, fmt.Errorf("%w: session closed", ErrProtocolOrder)
	}
	return append([]byte(nil), s.key...), nil
}

// Username returns the identity claimed in the hello, or "" before it.
func (s *ServerSession) Username() string { return s.username }

// Close wipes all remaining secrets. Safe to call in any phase and more
// than once.
func (s *ServerSession) Close() { s.wipe() }

func (s *ServerSession) fail() {
	s.wipe()
	s.phase = serverFailed
}

func (s *ServerSession) wipe() {
	wipeInt(s.b)
	s.b = nil
	wipeInt(s.verifier)
	s.verifier = nil
	wipe(s.key)
	s.key = nil
}

func (s *ServerSession) orderViolation(op string) error {
	err := fmt.Errorf("%w: %s in phase %s", ErrProtocolOrder, op, s.phase)
	if s.phase != serverDone && s.phase != serverFailed {
		s.fail()
	}
	return err
}

// simulateRecord derives a deterministic fake enrollment record for an
// unknown username. The salt is stable per username, so repeated probes
// see the same value a real user would, and the verifier is a pseudorandom
// group element, so the challenge computation costs the same.
func simulateRecord(cfg *Config, username string) (*UserRecord, error) {
	key, err := cfg.simulationKey()
	if err != nil {
		return nil, fmt.Errorf("%w: deriving simulation key: %v", ErrInsufficientEntropy, err)
	}
	g := cfg.group()
	salt := hmacExpand(key, "salt", username, cfg.saltLength())
	v := new(big.Int).SetBytes(hmacExpand(key, "verifier", username, g.ByteLength()))
	v.Mod(v, g.N)
	return &UserRecord{Username: username, Salt: salt, Verifier: v}, nil
}

// hmacExpand derives n bytes from HMAC-SHA256(key, label | username),
// extending with a counter byte when n exceeds one digest.
func hmacExpand(key []byte, label, username string, n int) []byte {
	out := make([]byte, 0, n)
	for counter := byte(0); len(out) < n; counter++ {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(label))
		mac.Write([]byte(username))
		mac.Write([]byte{counter})
		out = mac.Sum(out)
	}
	return out[:n]
}
