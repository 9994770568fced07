package srp

import (
	"crypto/rand"
	"io"
	"math/big"
	"sync"
)

// DefaultSaltLength is the enrollment salt size in bytes.
const DefaultSaltLength = 32

// Config collects the protocol parameters both sides must share, plus
// server-side policy. The zero value of every field selects a default, so
// &Config{} runs SHA-256 on the RFC 5054 2048-bit group with the default
// scrypt parameters.
type Config struct {
	// Group is the arithmetic domain. Defaults to Group2048.
	Group *Group
	// Hash selects the digest for k, u, K and the proofs.
	Hash Hash
	// KDF parametrizes the password stretch for x.
	KDF KDF
	// SaltLength is the enrollment salt size in bytes.
	SaltLength int
	// Random is the entropy source for ephemeral values and salts.
	// Defaults to crypto/rand.
	Random io.Reader

	// DisableSimulation turns off unknown-user masking. By default the
	// server session answers hellos for unknown usernames with a
	// deterministic simulated record, so probing clients cannot tell an
	// absent user from a wrong password.
	DisableSimulation bool
	// SimulationKey keys the derivation of simulated records. Configure it
	// to keep simulated salts stable across restarts; when empty, a
	// process-wide random key is used.
	SimulationKey []byte
}

func (c *Config) group() *Group {
	if c.Group != nil {
		return c.Group
	}
	return Group2048
}

func (c *Config) kdf() KDF {
	return c.KDF.withDefaults()
}

func (c *Config) saltLength() int {
	if c.SaltLength > 0 {
		return c.SaltLength
	}
	return DefaultSaltLength
}

func (c *Config) random() io.Reader {
	if c.Random != nil {
		return c.Random
	}
	return rand.Reader
}

func (c *Config) multiplier() *big.Int {
	return c.group().Multiplier(c.Hash)
}

var processSimulationKey struct {
	once sync.Once
	key  []byte
	err  error
}

func (c *Config) simulationKey() ([]byte, error) {
	if len(c.SimulationKey) > 0 {
		return c.SimulationKey, nil
	}
	processSimulationKey.once.Do(func() {
		key := make([]byte, 32)
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			processSimulationKey.err = err
			return
		}
		processSimulationKey.key = key
	})
	return processSimulationKey.key, processSimulationKey.err
}
