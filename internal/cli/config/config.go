package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
)

const (
	defaultPort    = 8443
	configFileName = "config.yaml"
	envHost        = "SRPWEB_HOST"
	envPort        = "SRPWEB_PORT"
	envCACert      = "SRPWEB_CA_CERT"
	minPort        = 1
	maxPort        = 65535
)

// Config holds the configuration for the srpweb CLI.
type Config struct {
	Host   string `yaml:"host"`
	Port   int    `yaml:"port"`
	CACert string `yaml:"ca_cert"`
	// Insecure skips server certificate verification. Development only.
	Insecure bool `yaml:"insecure"`
	// NoTLS speaks plain HTTP/WS, for a daemon behind a terminating
	// proxy or in local development.
	NoTLS bool `yaml:"no_tls"`

	// SRP pins the exchange parameters. They must match the daemon; the
	// zero value matches the daemon's defaults.
	SRP SRPSettings `yaml:"srp"`
}

// SRPSettings mirrors the daemon's srp config section.
type SRPSettings struct {
	Group        string      `yaml:"group"`
	Hash         string      `yaml:"hash"`
	KDF          KDFSettings `yaml:"kdf"`
	WireEncoding string      `yaml:"wire_encoding"`
}

// KDFSettings holds the scrypt parameters.
type KDFSettings struct {
	N         int `yaml:"n"`
	R         int `yaml:"r"`
	P         int `yaml:"p"`
	KeyLength int `yaml:"key_length"`
}

// Load loads configuration from file and environment, applying defaults.
// Precedence, highest first: environment, config file, defaults.
// Command-line flags are applied by the commands after Load.
func Load() (*Config, error) {
	cfg := &Config{
		Port: defaultPort,
	}

	if err := cfg.loadFromFile(); err != nil {
		// The config file is optional.
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFromFile() error {
	configDir, err := UserConfigDir()
	if err != nil {
		return err
	}
	configPath := filepath.Join(configDir, configFileName)

	data, err := os.ReadFile(configPath) // #nosec G304 - path is the user config directory
	if err != nil {
		return err
	}

	var fileConfig Config
	if err := yaml.Unmarshal(data, &fileConfig); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if fileConfig.Host != "" {
		c.Host = fileConfig.Host
	}
	if fileConfig.Port != 0 {
		c.Port = fileConfig.Port
	}
	if fileConfig.CACert != "" {
		c.CACert = fileConfig.CACert
	}
	if fileConfig.Insecure {
		c.Insecure = true
	}
	if fileConfig.NoTLS {
		c.NoTLS = true
	}
	c.SRP = fileConfig.SRP

	return nil
}

func (c *Config) loadFromEnv() {
	if host := os.Getenv(envHost); host != "" {
		c.Host = host
	}
	if portStr := os.Getenv(envPort); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			c.Port = port
		}
	}
	if caCert := os.Getenv(envCACert); caCert != "" {
		c.CACert = caCert
	}
}

// ApplyFlags overlays command-line flag values, the highest-priority
// layer.
func (c *Config) ApplyFlags(host string, port int, caCert string, insecure, noTLS bool) {
	if host != "" {
		c.Host = host
	}
	if port != 0 {
		c.Port = port
	}
	if caCert != "" {
		c.CACert = caCert
	}
	if insecure {
		c.Insecure = true
	}
	if noTLS {
		c.NoTLS = true
	}
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if c.Port < minPort || c.Port > maxPort {
		return fmt.Errorf("invalid port %d: must be between %d and %d", c.Port, minPort, maxPort)
	}

	if c.CACert != "" {
		if _, err := os.Stat(c.CACert); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("CA certificate file not found: %s", c.CACert)
			}
			return fmt.Errorf("failed to access CA certificate file %s: %w", c.CACert, err)
		}
	}

	// Reject parameters the daemon would reject too, before dialing.
	if _, err := c.SRPConfig(); err != nil {
		return err
	}
	if _, err := c.Codec(); err != nil {
		return err
	}
	return nil
}

// RequireHost checks that a host is configured.
func (c *Config) RequireHost() error {
	if c.Host == "" {
		return fmt.Errorf("service host not specified\n"+
			"Use --host, the %s environment variable, or 'host:' in the config file\n"+
			"  Config file location: <UserConfigDir>/srpweb/config.yaml", envHost)
	}
	return nil
}

// Address returns the host:port the CLI connects to.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
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
