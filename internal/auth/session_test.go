package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marspr/srp-web/internal/auth"
)

func newTestManager(t *testing.T, max int) *auth.SessionManager {
	t.Helper()
	secret, err := auth.GenerateSecret()
	require.NoError(t, err)
	sm := auth.NewSessionManager(secret, auth.DefaultSessionTTL, max)
	t.Cleanup(sm.Stop)
	return sm
}

func TestSessionManager_CreateAndValidate(t *testing.T) {
	sm := newTestManager(t, 0)
	key := []byte("0123456789abcdef0123456789abcdef")

	session, err := sm.Create("root", key)
	require.NoError(t, err)
	assert.Contains(t, session.Token, ".")
	assert.Equal(t, "root", session.Username)
	assert.Equal(t, auth.KeyFingerprint(key), session.KeyFingerprint)

	got, err := sm.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "root", got.Username)
	assert.True(t, got.ExpiresAt.After(time.Now()))
}

func TestSessionManager_ValidateUnknownToken(t *testing.T) {
	sm := newTestManager(t, 0)

	_, err := sm.Validate("not-a-token")
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSessionManager_TamperedTokenRejected(t *testing.T) {
	sm := newTestManager(t, 0)

	session, err := sm.Create("root", []byte("key"))
	require.NoError(t, err)

	// Flip a character in the signature part. The map has no entry for
	// the altered token, so validation must fail.
	tampered := session.Token[:len(session.Token)-1]
	if strings.HasSuffix(session.Token, "A") {
		tampered += "B"
	} else {
		tampered += "A"
	}
	_, err = sm.Validate(tampered)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
}

func TestSessionManager_Invalidate(t *testing.T) {
	sm := newTestManager(t, 0)

	session, err := sm.Create("root", []byte("key"))
	require.NoError(t, err)
	assert.Equal(t, 1, sm.Count())

	require.NoError(t, sm.Invalidate(session.Token))
	assert.Equal(t, 0, sm.Count())

	_, err = sm.Validate(session.Token)
	assert.ErrorIs(t, err, auth.ErrSessionNotFound)
	assert.ErrorIs(t, sm.Invalidate(session.Token), auth.ErrSessionNotFound)
}

func TestSessionManager_Limit(t *testing.T) {
	sm := newTestManager(t, 2)

	_, err := sm.Create("a", []byte("k"))
	require.NoError(t, err)
	_, err = sm.Create("b", []byte("k"))
	require.NoError(t, err)

	_, err = sm.Create("c", []byte("k"))
	assert.ErrorIs(t, err, auth.ErrSessionLimitExceeded)
}

func TestSessionManager_TokensDiffer(t *testing.T) {
	sm := newTestManager(t, 0)

	first, err := sm.Create("root", []byte("k"))
	require.NoError(t, err)
	second, err := sm.Create("root", []byte("k"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
}

func TestKeyFingerprint(t *testing.T) {
	fp := auth.KeyFingerprint([]byte("some session key"))
	assert.NotEmpty(t, fp)
	assert.Equal(t, fp, auth.KeyFingerprint([]byte("some session key")))
	assert.NotEqual(t, fp, auth.KeyFingerprint([]byte("another key")))
}
