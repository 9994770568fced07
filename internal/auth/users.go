// Package auth provides the server-side collaborators of the SRP exchange:
// the user record store, the live-exchange registry, the brute-force rate
// limiter and the post-authentication session manager. The SRP core in
// pkg/srp depends on none of this; it sees the store only through the
// srp.Lookup interface.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/marspr/srp-web/pkg/srp"
)

// ErrUserExists is returned when enrolling a username that already has a
// record.
var ErrUserExists = errors.New("user already enrolled")

// userFileMode restricts the store file to the daemon user. Verifiers do
// not reveal passwords, but a stolen record still enables offline guessing.
const userFileMode = 0o600

// storedRecord is the on-disk form of one enrollment.
type storedRecord struct {
	Username string `json:"username"`
	Salt     string `json:"salt"`     // base64
	Verifier string `json:"verifier"` // base64, fixed-width big-endian
}

// UserStore holds enrollment records (username, salt, verifier) in memory
// with JSON file persistence. It implements srp.Lookup. Safe for
// concurrent use.
type UserStore struct {
	path  string
	group *srp.Group

	mu      sync.RWMutex
	records map[string]*srp.UserRecord
}

// NewUserStore opens the store backed by the given file, creating an empty
// store when the file does not exist yet.
func NewUserStore(path string, group *srp.Group) (*UserStore, error) {
	if group == nil {
		group = srp.Group2048
	}
	s := &UserStore{
		path:    path,
		group:   group,
		records: make(map[string]*srp.UserRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup resolves a username to its enrollment record. Implements
// srp.Lookup; absent users yield srp.ErrUnknownUser.
func (s *UserStore) Lookup(username string) (*srp.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[username]
	if !ok {
		return nil, fmt.Errorf("%w: %q", srp.ErrUnknownUser, username)
	}
	return &srp.UserRecord{
		Username: rec.Username,
		Salt:     append([]byte(nil), rec.Salt...),
		Verifier: new(big.Int).Set(rec.Verifier),
	}, nil
}

// Add enrolls a new record and persists the store. Enrolling an existing
// username fails with ErrUserExists; use Update to rotate a verifier.
func (s *UserStore) Add(rec *srp.UserRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Username]; exists {
		return fmt.Errorf("%w: %q", ErrUserExists, rec.Username)
	}
	s.records[rec.Username] = copyRecord(rec)
	return s.save()
}

// Update replaces the record of an already-enrolled username and persists
// the store.
func (s *UserStore) Update(rec *srp.UserRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.Username]; !exists {
		return fmt.Errorf("%w: %q", srp.ErrUnknownUser, rec.Username)
	}
	s.records[rec.Username] = copyRecord(rec)
	return s.save()
}

// Remove deletes a record and persists the store.
func (s *UserStore) Remove(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[username]; !exists {
		return fmt.Errorf("%w: %q", srp.ErrUnknownUser, username)
	}
	delete(s.records, username)
	return s.save()
}

// Count returns the number of enrolled users.
func (s *UserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func validateRecord(rec *srp.UserRecord) error {
	if rec == nil || rec.Username == "" {
		return fmt.Errorf("record requires a username")
	}
	if len(rec.Salt) < 4 {
		return fmt.Errorf("record for %q: salt too short", rec.Username)
	}
	if rec.Verifier == nil || rec.Verifier.Sign() == 0 {
		return fmt.Errorf("record for %q: verifier is required", rec.Username)
	}
	return nil
}

func copyRecord(rec *srp.UserRecord) *srp.UserRecord {
	return &srp.UserRecord{
		Username: rec.Username,
		Salt:     append([]byte(nil), rec.Salt...),
		Verifier: new(big.Int).Set(rec.Verifier),
	}
}

// load reads the store file. A missing file is an empty store.
func (s *UserStore) load() error {
	data, err := os.ReadFile(filepath.Clean(s.path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading user store: %w", err)
	}

	var stored []storedRecord
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parsing user store: %w", err)
	}

	for _, sr := range stored {
		if sr.Username == "" {
			return fmt.Errorf("user store entry without username")
		}
		salt, err := base64.StdEncoding.DecodeString(sr.Salt)
		if err != nil {
			return fmt.Errorf("user %q: decoding salt: %w", sr.Username, err)
		}
		raw, err := base64.StdEncoding.DecodeString(sr.Verifier)
		if err != nil {
			return fmt.Errorf("user %q: decoding verifier: %w", sr.Username, err)
		}
		v, err := s.group.ParsePadded(raw)
		if err != nil {
			return fmt.Errorf("user %q: verifier: %w", sr.Username, err)
		}
		s.records[sr.Username] = &srp.UserRecord{
			Username: sr.Username,
			Salt:     salt,
			Verifier: v,
		}
	}
	return nil
}

// save writes the store file. Callers hold the write lock. Records are
// sorted so the file diffs cleanly.
func (s *UserStore) save() error {
	stored := make([]storedRecord, 0, len(s.records))
	for _, rec := range s.records {
		stored = append(stored, storedRecord{
			Username: rec.Username,
			Salt:     base64.StdEncoding.EncodeToString(rec.Salt),
			Verifier: base64.StdEncoding.EncodeToString(s.group.Pad(rec.Verifier)),
		})
	}
	sort.Slice(stored, func(i, j int) bool { return stored[i].Username < stored[j].Username })

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding user store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating user store directory: %w", err)
		}
	}
	if err := os.WriteFile(filepath.Clean(s.path), data, userFileMode); err != nil {
		return fmt.Errorf("writing user store: %w", err)
	}
	return nil
}
