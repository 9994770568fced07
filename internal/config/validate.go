package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Validate performs comprehensive validation on the configuration.
func Validate(cfg *Config) error {
	if err := validateListen(cfg); err != nil {
		return fmt.Errorf("listen validation failed: %w", err)
	}

	if err := validateSRP(cfg); err != nil {
		return fmt.Errorf("srp validation failed: %w", err)
	}

	if err := validateSession(cfg); err != nil {
		return fmt.Errorf("session validation failed: %w", err)
	}

	if err := validateUsers(cfg); err != nil {
		return fmt.Errorf("user store validation failed: %w", err)
	}

	if err := validateLimits(cfg); err != nil {
		return fmt.Errorf("limits validation failed: %w", err)
	}

	if err := validateLogging(cfg); err != nil {
		return fmt.Errorf("logging validation failed: %w", err)
	}

	return nil
}

func validateListen(cfg *Config) error {
	if cfg.Listen.Port <= 0 || cfg.Listen.Port > 65535 {
		return fmt.Errorf("listen.port must be between 1 and 65535")
	}

	// Basic validation - could be IPv4, IPv6, or hostname
	if strings.Contains(cfg.Listen.Address, " ") {
		return fmt.Errorf("listen.address contains invalid characters")
	}

	// TLS is all-or-nothing: a cert without a key cannot serve.
	if (cfg.Listen.TLSCert == "") != (cfg.Listen.TLSKey == "") {
		return fmt.Errorf("listen.tls_cert and listen.tls_key must be set together")
	}

	if cfg.TLSEnabled() {
		if err := validateFileLocation("listen.tls_cert", cfg.Listen.TLSCert); err != nil {
			return err
		}

		if err := validateFileLocation("listen.tls_key", cfg.Listen.TLSKey); err != nil {
			return err
		}
	}

	return nil
}

// validateFileLocation checks that a configured file path is absolute and
// its directory exists. The file itself may be created later.
func validateFileLocation(field, path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("%s must be an absolute path", field)
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("%s directory does not exist: %s", field, dir)
	}

	return nil
}

func validateSRP(cfg *Config) error {
	// Covers unknown group, hash and wire encoding names.
	if _, err := cfg.Codec(); err != nil {
		return err
	}

	if _, err := cfg.GetExchangeTimeout(); err != nil {
		return err
	}

	kdf := cfg.SRP.KDF
	if kdf.N < 0 || kdf.R < 0 || kdf.P < 0 || kdf.KeyLength < 0 {
		return fmt.Errorf("srp.kdf parameters cannot be negative")
	}

	// scrypt requires a power-of-two cost. Zero means the built-in default.
	if kdf.N != 0 && (kdf.N < 2 || kdf.N&(kdf.N-1) != 0) {
		return fmt.Errorf("srp.kdf.n must be a power of two greater than 1")
	}

	if kdf.KeyLength != 0 && kdf.KeyLength < 16 {
		return fmt.Errorf("srp.kdf.key_length must be at least 16 bytes")
	}

	return nil
}

func validateSession(cfg *Config) error {
	if _, err := cfg.GetSessionTTL(); err != nil {
		return err
	}

	return nil
}

func validateUsers(cfg *Config) error {
	if cfg.Users.File == "" {
		return fmt.Errorf("users.file is required")
	}

	// The store creates the file on first write, but the directory has to
	// be there.
	return validateFileLocation("users.file", cfg.Users.File)
}

func validateLimits(cfg *Config) error {
	if cfg.Limits.MaxExchanges < 1 || cfg.Limits.MaxExchanges > 65536 {
		return fmt.Errorf("limits.max_exchanges must be between 1 and 65536")
	}

	return nil
}

func validateLogging(cfg *Config) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, cfg.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %s", strings.Join(validLevels, ", "))
	}

	validFormats := []string{"json", "human"}
	if !slices.Contains(validFormats, cfg.Logging.Format) {
		return fmt.Errorf("logging.format must be one of: %s", strings.Join(validFormats, ", "))
	}

	for i, key := range cfg.Logging.RedactKeys {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("logging.redact_keys[%d] is blank", i)
		}
	}

	return nil
}
