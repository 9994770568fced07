// Package config provides configuration loading and validation for the SRP
// login service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
)

// Defaults applied by Load when the file leaves a field empty.
const (
	DefaultPort            = 8443
	DefaultExchangeTimeout = "10s"
	DefaultSessionTTL      = "30m"
	DefaultMaxExchanges    = 256
)

// Config represents the service configuration.
type Config struct {
	Listen  ListenSettings  `yaml:"listen"`
	SRP     SRPSettings     `yaml:"srp"`
	Session SessionSettings `yaml:"session"`
	Users   UserSettings    `yaml:"users"`
	Limits  LimitSettings   `yaml:"limits"`
	Logging LoggingSettings `yaml:"logging"`
}

// ListenSettings contains the HTTP listener configuration. TLS is optional:
// with cert and key empty the daemon serves plain HTTP for development
// behind a terminating proxy.
type ListenSettings struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// SRPSettings contains the exchange parameters. Both peers must agree on
// group, hash, kdf and wire_encoding.
type SRPSettings struct {
	Group string      `yaml:"group"`
	Hash  string      `yaml:"hash"`
	KDF   KDFSettings `yaml:"kdf"`
	// UserEnumerationResistance masks unknown usernames behind simulated
	// challenges. Enabled unless the file says otherwise.
	UserEnumerationResistance *bool  `yaml:"user_enumeration_resistance"`
	ExchangeTimeout           string `yaml:"exchange_timeout"`
	WireEncoding              string `yaml:"wire_encoding"`
}

// KDFSettings contains the scrypt parameters for the password stretch.
// Zero fields fall back to the protocol defaults (16384/8/1/64).
type KDFSettings struct {
	N         int `yaml:"n"`
	R         int `yaml:"r"`
	P         int `yaml:"p"`
	KeyLength int `yaml:"key_length"`
}

// SessionSettings contains post-authentication session configuration.
type SessionSettings struct {
	TTL string `yaml:"ttl"`
}

// UserSettings locates the user record store.
type UserSettings struct {
	File string `yaml:"file"`
}

// LimitSettings contains abuse protection configuration.
type LimitSettings struct {
	MaxExchanges int   `yaml:"max_exchanges"`
	RateLimiting *bool `yaml:"rate_limiting"`
}

// LoggingSettings contains logging configuration. RedactKeys extends the
// built-in redaction list.
type LoggingSettings struct {
	Level      string   `yaml:"level"`
	Format     string   `yaml:"format"`
	RedactKeys []string `yaml:"redact_keys"`
}

// Load reads, parses and validates the configuration file.
//
//nolint:gosec // G304: Config path is from command-line argument
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen.Port == 0 {
		c.Listen.Port = DefaultPort
	}
	if c.SRP.ExchangeTimeout == "" {
		c.SRP.ExchangeTimeout = DefaultExchangeTimeout
	}
	if c.Session.TTL == "" {
		c.Session.TTL = DefaultSessionTTL
	}
	if c.Limits.MaxExchanges == 0 {
		c.Limits.MaxExchanges = DefaultMaxExchanges
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// GetExchangeTimeout parses and returns the exchange timeout duration.
func (c *Config) GetExchangeTimeout() (time.Duration, error) {
	duration, err := time.ParseDuration(c.SRP.ExchangeTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid exchange_timeout: %w", err)
	}

	if duration < time.Second {
		return 0, fmt.Errorf("exchange_timeout must be at least 1 second")
	}

	return duration, nil
}

// GetSessionTTL parses and returns the session TTL duration.
func (c *Config) GetSessionTTL() (time.Duration, error) {
	duration, err := time.ParseDuration(c.Session.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid session ttl: %w", err)
	}

	if duration < time.Minute {
		return 0, fmt.Errorf("session ttl must be at least 1 minute")
	}

	return duration, nil
}

// EnumerationResistance reports whether unknown-user masking is enabled.
// Absent from the file means enabled.
func (c *Config) EnumerationResistance() bool {
	return c.SRP.UserEnumerationResistance == nil || *c.SRP.UserEnumerationResistance
}

// RateLimiting reports whether the progressive delay limiter is enabled.
// Absent from the file means enabled.
func (c *Config) RateLimiting() bool {
	return c.Limits.RateLimiting == nil || *c.Limits.RateLimiting
}

// TLSEnabled reports whether the listener terminates TLS itself.
func (c *Config) TLSEnabled() bool {
	return c.Listen.TLSCert != "" && c.Listen.TLSKey != ""
}

// SRPConfig builds the exchange configuration from the srp section.
func (c *Config) SRPConfig() (*srp.Config, error) {
	group, err := srp.GroupByName(c.SRP.Group)
	if err != nil {
		return nil, fmt.Errorf("srp.group: %w", err)
	}

	hash, err := srp.HashByName(c.SRP.Hash)
	if err != nil {
		return nil, fmt.Errorf("srp.hash: %w", err)
	}

	return &srp.Config{
		Group: group,
		Hash:  hash,
		KDF: srp.KDF{
			N:         c.SRP.KDF.N,
			R:         c.SRP.KDF.R,
			P:         c.SRP.KDF.P,
			KeyLength: c.SRP.KDF.KeyLength,
		},
		DisableSimulation: !c.EnumerationResistance(),
	}, nil
}

// Codec builds the wire codec matching the srp section.
func (c *Config) Codec() (*protocol.Codec, error) {
	srpCfg, err := c.SRPConfig()
	if err != nil {
		return nil, err
	}

	encoding, err := protocol.EncodingByName(c.SRP.WireEncoding)
	if err != nil {
		return nil, fmt.Errorf("srp.wire_encoding: %w", err)
	}

	return &protocol.Codec{
		Group:    srpCfg.Group,
		Hash:     srpCfg.Hash,
		Encoding: encoding,
	}, nil
}
