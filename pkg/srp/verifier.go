package srp

import (
	"fmt"
	"io"
	"math/big"
)

// UserRecord is the server-side enrollment state for one user: the salt
// and the password verifier v = g^x mod N. Records never contain the
// password; a stolen record does not directly enable login.
type UserRecord struct {
	Username string
	Salt     []byte
	Verifier *big.Int
}

// Enroll creates a fresh record: it draws a random salt and derives the
// verifier with the configured KDF and group.
func Enroll(cfg *Config, username, password string) (*UserRecord, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	salt := make([]byte, cfg.saltLength())
	if _, err := io.ReadFull(cfg.random(), salt); err != nil {
		return nil, fmt.Errorf("%w: drawing salt: %v", ErrInsufficientEntropy, err)
	}
	return DeriveVerifier(cfg, username, salt, password)
}

// DeriveVerifier computes the record for a known salt. The same inputs
// always yield the same verifier.
func DeriveVerifier(cfg *Config, username string, salt []byte, password string) (*UserRecord, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt is required")
	}
	g := cfg.group()
	x, err := deriveX(cfg.kdf(), []byte(password), salt)
	if err != nil {
		return nil, err
	}
	v := new(big.Int).Exp(g.G, x, g.N)
	wipeInt(x)

	return &UserRecord{
		Username: username,
		Salt:     append([]byte(nil), salt...),
		Verifier: v,
	}, nil
}
