// Package session persists bearer tokens for the srpweb CLI between
// invocations.
package session

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marspr/srp-web/internal/cli/config"
)

const tokenFileMode = 0o600

// Store manages bearer token files in the OS cache directory, one file
// per daemon address.
type Store struct {
	dir string
}

// NewStore opens the token store, creating the cache directory with 0700
// permissions when missing.
func NewStore() (*Store, error) {
	cacheDir, err := config.UserCacheDir()
	if err != nil {
		return nil, err
	}
	if err := config.EnsureDir(cacheDir); err != nil {
		return nil, err
	}
	return &Store{dir: cacheDir}, nil
}

// Save stores the token for a host and port.
func (s *Store) Save(host string, port int, token string) error {
	if err := os.WriteFile(s.tokenFilename(host, port), []byte(token), tokenFileMode); err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

// Load returns the stored token for a host and port, or "" when none
// exists.
func (s *Store) Load(host string, port int) (string, error) {
	data, err := os.ReadFile(s.tokenFilename(host, port)) // #nosec G304 - filename is derived from host:port
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Delete removes the stored token for a host and port. Deleting an
// absent token is not an error.
func (s *Store) Delete(host string, port int) error {
	if err := os.Remove(s.tokenFilename(host, port)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// tokenFilename derives the token path from a short hash of host:port,
// so addresses never leak into directory listings.
func (s *Store) tokenFilename(host string, port int) string {
	hash := sha256.Sum256(fmt.Appendf(nil, "%s:%d", host, port))
	return filepath.Join(s.dir, fmt.Sprintf("session-%x.token", hash[:8]))
}
