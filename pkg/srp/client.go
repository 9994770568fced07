package srp

import (
	"fmt"
	"math/big"
)

type clientPhase uint8

const (
	clientInit clientPhase = iota
	clientAwaitChallenge
	clientAwaitConfirm
	clientDone
	clientFailed
)

func (p clientPhase) String() string {
	switch p {
	case clientInit:
		return "init"
	case clientAwaitChallenge:
		return "await-challenge"
	case clientAwaitConfirm:
		return "await-confirm"
	case clientDone:
		return "done"
	default:
		return "failed"
	}
}

// ClientSession drives the client side of one authentication exchange. It
// advances strictly through hello, challenge and confirm; any out-of-phase
// message fails the session for good. Single-use and not safe for
// concurrent use.
type ClientSession struct {
	cfg      *Config
	phase    clientPhase
	username string
	password []byte

	a    *big.Int // ephemeral private value
	pubA *big.Int // ephemeral public value A = g^a mod N
	m1   []byte
	key  []byte
}

// NewClientSession prepares the client side of an exchange for the given
// credentials. The password is retained only until the challenge is
// processed.
func NewClientSession(cfg *Config, username, password string) (*ClientSession, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	return &ClientSession{
		cfg:      cfg,
		username: username,
		password: []byte(password),
	}, nil
}

// Hello opens the exchange: it draws the ephemeral secret a, computes
// A = g^a mod N and returns the opening message.
func (s *ClientSession) Hello() (*ClientHello, error) {
	if s.phase != clientInit {
		return nil, s.orderViolation("hello")
	}
	a, pubA, err := ephemeralPair(s.cfg.random(), s.cfg.group())
	if err != nil {
		s.fail()
		return nil, err
	}
	s.a, s.pubA = a, pubA
	s.phase = clientAwaitChallenge
	return &ClientHello{Username: s.username, A: new(big.Int).Set(pubA)}, nil
}

// HandleChallenge consumes the server's challenge, derives the session key
// K and produces the client proof M1. The password, x and all ephemeral
// secrets are wiped before it returns.
func (s *ClientSession) HandleChallenge(ch *ServerChallenge) (*ClientProof, error) {
	if s.phase != clientAwaitChallenge {
		return nil, s.orderViolation("challenge")
	}
	if ch == nil || ch.B == nil || len(ch.Salt) == 0 {
		s.fail()
		return nil, fmt.Errorf("%w: challenge missing salt or B", ErrMalformedMessage)
	}
	g := s.cfg.group()
	if g.isDegenerate(ch.B) {
		s.fail()
		return nil, fmt.Errorf("%w: B mod N <= 1", ErrInvalidPublicValue)
	}
	u := computeU(s.cfg.Hash, g, s.pubA, ch.B)
	if u.Sign() == 0 {
		s.fail()
		return nil, fmt.Errorf("%w: scrambling parameter is zero", ErrInvalidPublicValue)
	}

	x, err := deriveX(s.cfg.kdf(), s.password, ch.Salt)
	if err != nil {
		s.fail()
		return nil, err
	}
	wipe(s.password)
	s.password = nil

	// S = (B - k*g^x)^(a + u*x) mod N
	k := s.cfg.multiplier()
	gx := new(big.Int).Exp(g.G, x, g.N)
	kgx := new(big.Int).Mul(k, gx)
	kgx.Mod(kgx, g.N)
	base := new(big.Int).Sub(ch.B, kgx)
	base.Mod(base, g.N)
	ux := new(big.Int).Mul(u, x)
	exp := new(big.Int).Add(s.a, ux)
	S := new(big.Int).Exp(base, exp, g.N)

	s.key = digest(s.cfg.Hash, S.Bytes())
	s.m1 = computeM1(s.cfg.Hash, g, s.username, ch.Salt, s.pubA, ch.B, s.key)

	wipeInt(x)
	wipeInt(ux)
	wipeInt(exp)
	wipeInt(S)
	wipeInt(s.a)
	s.a = nil

	s.phase = clientAwaitConfirm
	return &ClientProof{M1: append([]byte(nil), s.m1...)}, nil
}

// HandleConfirm checks the server proof M2 and completes the exchange.
func (s *ClientSession) HandleConfirm(sc *ServerConfirm) error {
	if s.phase != clientAwaitConfirm {
		return s.orderViolation("confirm")
	}
	if sc == nil || len(sc.M2) == 0 {
		s.fail()
		return fmt.Errorf("%w: confirm missing M2", ErrMalformedMessage)
	}
	want := computeM2(s.cfg.Hash, s.pubA, s.m1, s.key)
	if !constantTimeEqual(sc.M2, want) {
		s.fail()
		return fmt.Errorf("%w: server proof M2", ErrProofMismatch)
	}
	s.phase = clientDone
	return nil
}

// SessionKey returns a copy of the shared key K. It is available only
// after the exchange completed successfully.
func (s *ClientSession) SessionKey() ([]byte, error) {
	if s.phase != clientDone {
		return nil, fmt.Errorf("%w: session key requested in phase %s", ErrProtocolOrder, s.phase)
	}
	if s.key == nil {
		return nil, fmt.Errorf("%w: session closed", ErrProtocolOrder)
	}
	return append([]byte(nil), s.key...), nil
}

// Username returns the identity this session authenticates.
func (s *ClientSession) Username() string { return s.username }

// Close wipes all remaining secrets. Safe to call in any phase and more
// than once.
func (s *ClientSession) Close() { s.wipe() }

func (s *ClientSession) fail() {
	s.wipe()
	s.phase = clientFailed
}

func (s *ClientSession) wipe() {
	wipe(s.password)
	s.password = nil
	wipeInt(s.a)
	s.a = nil
	wipe(s.m1)
	s.m1 = nil
	wipe(s.key)
	s.key = nil
}

func (s *ClientSession) orderViolation(op string) error {
	err := fmt.Errorf("%w: %s in phase %s", ErrProtocolOrder, op, s.phase)
	if s.phase != clientDone && s.phase != clientFailed {
		s.fail()
	}
	return err
}
