package srp_test

import (
	"testing"

	"github.com/marspr/srp-web/pkg/srp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps scrypt cheap so exchange tests stay quick. Production
// parameter coverage lives in TestKDF_ZeroValueUsesDefaults.
func fastConfig() *srp.Config {
	return &srp.Config{
		KDF: srp.KDF{N: 256, R: 8, P: 1, KeyLength: 64},
	}
}

func TestEnroll(t *testing.T) {
	cfg := fastConfig()

	rec, err := srp.Enroll(cfg, "root", "1234")
	require.NoError(t, err)
	assert.Equal(t, "root", rec.Username)
	assert.Len(t, rec.Salt, srp.DefaultSaltLength)
	require.NotNil(t, rec.Verifier)
	assert.Positive(t, rec.Verifier.Sign())
	assert.Negative(t, rec.Verifier.Cmp(srp.Group2048.N))

	// Fresh salt every time, so verifiers differ even for the same
	// password.
	rec2, err := srp.Enroll(cfg, "root", "1234")
	require.NoError(t, err)
	assert.NotEqual(t, rec.Salt, rec2.Salt)
	assert.NotZero(t, rec.Verifier.Cmp(rec2.Verifier))
}

func TestEnroll_SaltLength(t *testing.T) {
	cfg := fastConfig()
	cfg.SaltLength = 16

	rec, err := srp.Enroll(cfg, "root", "1234")
	require.NoError(t, err)
	assert.Len(t, rec.Salt, 16)
}

func TestDeriveVerifier_Deterministic(t *testing.T) {
	cfg := fastConfig()
	salt := []byte("salt")

	rec1, err := srp.DeriveVerifier(cfg, "root", salt, "1234")
	require.NoError(t, err)
	rec2, err := srp.DeriveVerifier(cfg, "root", salt, "1234")
	require.NoError(t, err)
	assert.Zero(t, rec1.Verifier.Cmp(rec2.Verifier))

	// A different password or salt changes the verifier.
	rec3, err := srp.DeriveVerifier(cfg, "root", salt, "4321")
	require.NoError(t, err)
	assert.NotZero(t, rec1.Verifier.Cmp(rec3.Verifier))

	rec4, err := srp.DeriveVerifier(cfg, "root", []byte("pepper"), "1234")
	require.NoError(t, err)
	assert.NotZero(t, rec1.Verifier.Cmp(rec4.Verifier))
}

func TestDeriveVerifier_Validation(t *testing.T) {
	cfg := fastConfig()

	_, err := srp.DeriveVerifier(cfg, "", []byte("salt"), "1234")
	assert.Error(t, err)

	_, err = srp.DeriveVerifier(cfg, "root", nil, "1234")
	assert.Error(t, err)
}
