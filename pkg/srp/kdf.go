package srp

import (
	"fmt"
	"math/big"

	"golang.org/x/crypto/scrypt"
)

// KDF holds the password stretching parameters used to derive the private
// key x. Each zero field falls back to its DefaultKDF value. Changing any
// parameter invalidates previously enrolled verifiers.
type KDF struct {
	// N is the scrypt CPU/memory cost, a power of two.
	N int
	// R is the scrypt block size parameter.
	R int
	// P is the scrypt parallelization parameter.
	P int
	// KeyLength is the derived key size in bytes.
	KeyLength int
}

// DefaultKDF carries interactive-login scrypt parameters.
var DefaultKDF = KDF{N: 16384, R: 8, P: 1, KeyLength: 64}

func (k KDF) withDefaults() KDF {
	if k.N == 0 {
		k.N = DefaultKDF.N
	}
	if k.R == 0 {
		k.R = DefaultKDF.R
	}
	if k.P == 0 {
		k.P = DefaultKDF.P
	}
	if k.KeyLength == 0 {
		k.KeyLength = DefaultKDF.KeyLength
	}
	return k
}

// Derive stretches the password with the salt and returns the raw key
// material.
func (k KDF) Derive(password, salt []byte) ([]byte, error) {
	k = k.withDefaults()
	key, err := scrypt.Key(password, salt, k.N, k.R, k.P, k.KeyLength)
	if err != nil {
		return nil, fmt.Errorf("scrypt: %w", err)
	}
	return key, nil
}

// deriveX computes the private key x as the big-endian integer of the
// stretched password.
func deriveX(kdf KDF, password, salt []byte) (*big.Int, error) {
	key, err := kdf.Derive(password, salt)
	if err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(key)
	wipe(key)
	return x, nil
}
