package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	// ErrSessionNotFound is returned for tokens with no stored session.
	ErrSessionNotFound = errors.New("session token not found")

	// ErrSessionExpired is returned for sessions past their TTL.
	ErrSessionExpired = errors.New("session token expired")

	// ErrSessionLimitExceeded is returned at the concurrent session cap.
	ErrSessionLimitExceeded = errors.New("session limit exceeded")
)

const (
	// DefaultSessionTTL is the session token lifetime when the config
	// leaves it unset.
	DefaultSessionTTL = 30 * time.Minute

	// MinSessionTTL is the shortest accepted token lifetime.
	MinSessionTTL = time.Minute

	// DefaultMaxSessions caps concurrent sessions against exhaustion.
	DefaultMaxSessions = 1024

	// tokenIDBytes is the random part of a token (256 bits).
	tokenIDBytes = 32

	// sessionSweepInterval is how often expired sessions are reaped.
	sessionSweepInterval = time.Minute
)

// Session is one authenticated login: the bearer token, the identity it
// was issued for and a fingerprint of the SRP session key it came from.
type Session struct {
	Token          string
	Username       string
	KeyFingerprint string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IsExpired reports whether the session TTL passed.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// SessionManager issues and validates HMAC-signed bearer tokens for
// completed exchanges. Tokens have the form tokenID.signature where the
// signature covers the token ID, the username and the key fingerprint, so
// a tampered or cross-wired token never validates. Safe for concurrent
// use.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	max    int

	mu       sync.RWMutex
	sessions map[string]*Session
	stopCh   chan struct{}
}

// NewSessionManager creates a manager signing with the given secret.
// TTLs below MinSessionTTL are raised to it; a non-positive max selects
// DefaultMaxSessions.
func NewSessionManager(secret []byte, ttl time.Duration, max int) *SessionManager {
	if ttl < MinSessionTTL {
		ttl = MinSessionTTL
	}
	if max <= 0 {
		max = DefaultMaxSessions
	}
	sm := &SessionManager{
		secret:   secret,
		ttl:      ttl,
		max:      max,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
	go sm.sweepLoop()
	return sm
}

// Create issues a token for a username that just completed an exchange
// with session key K. Only a short fingerprint of K is retained; the key
// itself stays with the caller.
func (sm *SessionManager) Create(username string, sessionKey []byte) (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.max {
		return nil, ErrSessionLimitExceeded
	}

	idBytes := make([]byte, tokenIDBytes)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generating token ID: %w", err)
	}
	tokenID := base64.URLEncoding.EncodeToString(idBytes)
	fingerprint := KeyFingerprint(sessionKey)

	token := tokenID + "." + sm.sign(tokenID, username, fingerprint)

	now := time.Now()
	session := &Session{
		Token:          token,
		Username:       username,
		KeyFingerprint: fingerprint,
		CreatedAt:      now,
		ExpiresAt:      now.Add(sm.ttl),
	}
	sm.sessions[token] = session
	return session, nil
}

// Validate checks a bearer token and returns its session.
func (sm *SessionManager) Validate(token string) (*Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, ok := sm.sessions[token]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}

	tokenID, sig, found := strings.Cut(token, ".")
	if !found {
		return nil, ErrSessionNotFound
	}
	want := sm.sign(tokenID, session.Username, session.KeyFingerprint)
	if !hmac.Equal([]byte(sig), []byte(want)) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Invalidate removes a session, e.g. on logout.
func (sm *SessionManager) Invalidate(token string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(sm.sessions, token)
	return nil
}

// Count returns the number of active sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Stop terminates the background sweeper.
func (sm *SessionManager) Stop() {
	close(sm.stopCh)
}

func (sm *SessionManager) sign(tokenID, username, fingerprint string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(tokenID))
	h.Write([]byte{0})
	h.Write([]byte(username))
	h.Write([]byte{0})
	h.Write([]byte(fingerprint))
	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) sweepLoop() {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sm.sweep(time.Now())
		case <-sm.stopCh:
			return
		}
	}
}

func (sm *SessionManager) sweep(now time.Time) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for token, session := range sm.sessions {
		if now.After(session.ExpiresAt) {
			delete(sm.sessions, token)
		}
	}
}

// KeyFingerprint returns a short non-secret identifier of a session key:
// the first 8 bytes of SHA-256(K), base64-encoded.
func KeyFingerprint(sessionKey []byte) string {
	sum := sha256.Sum256(sessionKey)
	return base64.URLEncoding.EncodeToString(sum[:8])
}

// GenerateSecret draws a fresh 32-byte HMAC secret at daemon startup.
// Sessions do not survive restarts.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generating session secret: %w", err)
	}
	return secret, nil
}
