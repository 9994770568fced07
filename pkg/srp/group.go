package srp

import (
	"fmt"
	"math/big"
	"sync"
)

// MinGroupBits is the smallest modulus size accepted for authentication.
// Groups below 2048 bits are rejected.
const MinGroupBits = 2048

// Group is the modular arithmetic domain of an exchange: the safe prime N
// and the generator g. Both sides must agree on the group out of band;
// there is no negotiation on the wire.
type Group struct {
	// Name identifies the group in configuration, e.g. "rfc5054.2048".
	Name string
	// N is the group modulus.
	N *big.Int
	// G is the generator.
	G *big.Int

	nLen int

	mu sync.Mutex
	k  map[Hash]*big.Int
}

// NewGroup builds a Group from caller-supplied parameters. The modulus must
// be at least MinGroupBits bits and g must lie in [2, N-2].
func NewGroup(name string, n, g *big.Int) (*Group, error) {
	if n == nil || g == nil {
		return nil, fmt.Errorf("group %q: modulus and generator are required", name)
	}
	if n.BitLen() < MinGroupBits {
		return nil, fmt.Errorf("group %q: modulus is %d bits, need at least %d", name, n.BitLen(), MinGroupBits)
	}
	two := big.NewInt(2)
	upper := new(big.Int).Sub(n, two)
	if g.Cmp(two) < 0 || g.Cmp(upper) > 0 {
		return nil, fmt.Errorf("group %q: generator out of range", name)
	}
	return &Group{
		Name: name,
		N:    new(big.Int).Set(n),
		G:    new(big.Int).Set(g),
		nLen: (n.BitLen() + 7) / 8,
	}, nil
}

// ByteLength returns the canonical width of group elements on the wire,
// ceil(bitlen(N)/8).
func (g *Group) ByteLength() int { return g.nLen }

// Pad left-pads the big-endian bytes of x to the group's byte length.
func (g *Group) Pad(x *big.Int) []byte {
	out := make([]byte, g.nLen)
	b := x.Bytes()
	copy(out[g.nLen-len(b):], b)
	return out
}

// ParsePadded decodes a canonical fixed-width group element. The input
// must be exactly ByteLength bytes and represent a value below N.
func (g *Group) ParsePadded(b []byte) (*big.Int, error) {
	if len(b) != g.nLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrMalformedMessage, len(b), g.nLen)
	}
	x := new(big.Int).SetBytes(b)
	if x.Cmp(g.N) >= 0 {
		return nil, fmt.Errorf("%w: value not reduced mod N", ErrMalformedMessage)
	}
	return x, nil
}

// Multiplier returns the SRP-6a multiplier k = H(PAD(N) | PAD(g)) for the
// given hash. It is computed once per group and hash, never per session.
func (g *Group) Multiplier(h Hash) *big.Int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if k, ok := g.k[h]; ok {
		return k
	}
	if g.k == nil {
		g.k = make(map[Hash]*big.Int)
	}
	k := new(big.Int).SetBytes(digest(h, g.Pad(g.N), g.Pad(g.G)))
	g.k[h] = k
	return k
}

// isDegenerate reports whether x mod N is 0 or 1. Such public values pin
// the shared secret to a known constant and must be refused.
func (g *Group) isDegenerate(x *big.Int) bool {
	return new(big.Int).Mod(x, g.N).Cmp(bigOne) <= 0
}

var bigOne = big.NewInt(1)
