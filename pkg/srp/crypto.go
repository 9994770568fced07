package srp

import (
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"fmt"
	"hash"
	"io"
	"math/big"
)

// Hash selects the digest used for the multiplier k, the scrambling
// parameter u, the session key K and the proofs M1/M2. Both sides of an
// exchange must agree on it.
type Hash int

const (
	// SHA256 is the default digest.
	SHA256 Hash = iota
	// SHA512 is available for deployments standardized on it.
	SHA512
)

// HashByName maps a configuration string to a Hash. The empty string
// selects the default.
func HashByName(name string) (Hash, error) {
	switch name {
	case "", "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	default:
		return 0, fmt.Errorf("unknown hash %q", name)
	}
}

func (h Hash) String() string {
	if h == SHA512 {
		return "sha512"
	}
	return "sha256"
}

// New returns a fresh digest instance.
func (h Hash) New() hash.Hash {
	if h == SHA512 {
		return sha512.New()
	}
	return sha256.New()
}

// Size returns the digest length in bytes.
func (h Hash) Size() int {
	if h == SHA512 {
		return sha512.Size
	}
	return sha256.Size
}

// ephemeralBytes is the number of random bytes drawn for the ephemeral
// private values a and b (256 bits, the required floor).
const ephemeralBytes = 32

// maxEphemeralDraws bounds redraws when a draw yields an unusable value.
const maxEphemeralDraws = 8

// randomExponent draws one candidate ephemeral private value.
func randomExponent(r io.Reader) (*big.Int, error) {
	buf := make([]byte, ephemeralBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: reading random bytes: %v", ErrInsufficientEntropy, err)
	}
	x := new(big.Int).SetBytes(buf)
	wipe(buf)
	return x, nil
}

// ephemeralPair draws a private exponent and returns it with its public
// value g^priv mod N. Draws yielding priv == 0 or a public value congruent
// to 0 mod N are redrawn.
func ephemeralPair(r io.Reader, g *Group) (priv, pub *big.Int, err error) {
	for i := 0; i < maxEphemeralDraws; i++ {
		priv, err = randomExponent(r)
		if err != nil {
			return nil, nil, err
		}
		if priv.Sign() == 0 {
			continue
		}
		pub = new(big.Int).Exp(g.G, priv, g.N)
		if !g.isDegenerate(pub) {
			return priv, pub, nil
		}
		wipeInt(priv)
	}
	return nil, nil, fmt.Errorf("%w: no usable ephemeral value after %d draws", ErrInsufficientEntropy, maxEphemeralDraws)
}

// computeU derives the scrambling parameter u = H(PAD(A) | PAD(B)).
func computeU(h Hash, g *Group, pubA, pubB *big.Int) *big.Int {
	return new(big.Int).SetBytes(digest(h, g.Pad(pubA), g.Pad(pubB)))
}

// computeM1 builds the client proof
// M1 = H(H(N) XOR H(g) | H(I) | s | A | B | K).
func computeM1(h Hash, g *Group, username string, salt []byte, pubA, pubB *big.Int, key []byte) []byte {
	hashN := digest(h, g.N.Bytes())
	hashG := digest(h, g.G.Bytes())
	return digest(h,
		xorBytes(hashN, hashG),
		digest(h, []byte(username)),
		salt,
		pubA.Bytes(),
		pubB.Bytes(),
		key,
	)
}

// computeM2 builds the server proof M2 = H(A | M1 | K).
func computeM2(h Hash, pubA *big.Int, m1, key []byte) []byte {
	return digest(h, pubA.Bytes(), m1, key)
}

// digest hashes the concatenation of parts.
func digest(h Hash, parts ...[]byte) []byte {
	d := h.New()
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// constantTimeEqual compares two proofs without leaking the position of a
// difference. Lengths are public.
func constantTimeEqual(a, b []byte) bool {
	return len(a) == len(b) && subtle.ConstantTimeCompare(a, b) == 1
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func wipeInt(x *big.Int) {
	if x != nil {
		x.SetInt64(0)
	}
}
