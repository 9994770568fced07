package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marspr/srp-web/internal/config"
	"github.com/marspr/srp-web/pkg/protocol"
	"github.com/marspr/srp-web/pkg/srp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes a config file into a temp dir and returns its path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	usersFile := filepath.Join(tmpDir, "users.json")

	configYAML := `
listen:
  address: "127.0.0.1"
  port: 8443

srp:
  group: "rfc5054.3072"
  hash: "sha512"
  kdf:
    n: 32768
    r: 8
    p: 1
    key_length: 64
  user_enumeration_resistance: true
  exchange_timeout: "15s"
  wire_encoding: "decimal"

session:
  ttl: "45m"

users:
  file: "` + usersFile + `"

limits:
  max_exchanges: 128

logging:
  level: "debug"
  format: "human"
  redact_keys:
    - "employee_id"
`

	cfg, err := config.Load(writeConfig(t, configYAML))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "127.0.0.1", cfg.Listen.Address)
	assert.Equal(t, 8443, cfg.Listen.Port)
	assert.False(t, cfg.TLSEnabled())
	assert.Equal(t, "rfc5054.3072", cfg.SRP.Group)
	assert.Equal(t, "sha512", cfg.SRP.Hash)
	assert.Equal(t, 32768, cfg.SRP.KDF.N)
	assert.True(t, cfg.EnumerationResistance())
	assert.Equal(t, "15s", cfg.SRP.ExchangeTimeout)
	assert.Equal(t, usersFile, cfg.Users.File)
	assert.Equal(t, 128, cfg.Limits.MaxExchanges)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"employee_id"}, cfg.Logging.RedactKeys)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	usersFile := filepath.Join(t.TempDir(), "users.json")

	cfg, err := config.Load(writeConfig(t, `
users:
  file: "`+usersFile+`"
`))
	require.NoError(t, err)

	assert.Equal(t, config.DefaultPort, cfg.Listen.Port)
	assert.Equal(t, config.DefaultExchangeTimeout, cfg.SRP.ExchangeTimeout)
	assert.Equal(t, config.DefaultSessionTTL, cfg.Session.TTL)
	assert.Equal(t, config.DefaultMaxExchanges, cfg.Limits.MaxExchanges)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.EnumerationResistance())
	assert.True(t, cfg.RateLimiting())

	timeout, err := cfg.GetExchangeTimeout()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, timeout)

	ttl, err := cfg.GetSessionTTL()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, ttl)
}

func TestLoad_InvalidYAML(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, "invalid: [yaml"))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_FileNotFound(t *testing.T) {
	cfg, err := config.Load("/nonexistent/config.yaml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestGetExchangeTimeout(t *testing.T) {
	tests := []struct {
		name        string
		timeout     string
		expectError bool
		expected    time.Duration
	}{
		{
			name:        "valid 10 seconds",
			timeout:     "10s",
			expectError: false,
			expected:    10 * time.Second,
		},
		{
			name:        "valid 2 minutes",
			timeout:     "2m",
			expectError: false,
			expected:    2 * time.Minute,
		},
		{
			name:        "minimum 1 second",
			timeout:     "1s",
			expectError: false,
			expected:    time.Second,
		},
		{
			name:        "below minimum",
			timeout:     "500ms",
			expectError: true,
		},
		{
			name:        "invalid format",
			timeout:     "invalid",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				SRP: config.SRPSettings{
					ExchangeTimeout: tt.timeout,
				},
			}

			duration, err := cfg.GetExchangeTimeout()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, duration)
			}
		})
	}
}

func TestGetSessionTTL(t *testing.T) {
	tests := []struct {
		name        string
		ttl         string
		expectError bool
		expected    time.Duration
	}{
		{
			name:        "valid 30 minutes",
			ttl:         "30m",
			expectError: false,
			expected:    30 * time.Minute,
		},
		{
			name:        "minimum 1 minute",
			ttl:         "1m",
			expectError: false,
			expected:    time.Minute,
		},
		{
			name:        "below minimum",
			ttl:         "30s",
			expectError: true,
		},
		{
			name:        "invalid format",
			ttl:         "invalid",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Session: config.SessionSettings{
					TTL: tt.ttl,
				},
			}

			duration, err := cfg.GetSessionTTL()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, duration)
			}
		})
	}
}

func TestEnumerationResistance(t *testing.T) {
	enabled := true
	disabled := false

	tests := []struct {
		name     string
		value    *bool
		expected bool
	}{
		{name: "absent means enabled", value: nil, expected: true},
		{name: "explicitly enabled", value: &enabled, expected: true},
		{name: "explicitly disabled", value: &disabled, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				SRP: config.SRPSettings{UserEnumerationResistance: tt.value},
			}
			assert.Equal(t, tt.expected, cfg.EnumerationResistance())
		})
	}
}

func TestSRPConfig(t *testing.T) {
	disabled := false
	cfg := &config.Config{
		SRP: config.SRPSettings{
			Group:                     "rfc5054.4096",
			Hash:                      "sha512",
			KDF:                       config.KDFSettings{N: 32768, R: 8, P: 1, KeyLength: 64},
			UserEnumerationResistance: &disabled,
		},
	}

	srpCfg, err := cfg.SRPConfig()
	require.NoError(t, err)
	assert.Equal(t, srp.Group4096, srpCfg.Group)
	assert.Equal(t, srp.SHA512, srpCfg.Hash)
	assert.Equal(t, 32768, srpCfg.KDF.N)
	assert.True(t, srpCfg.DisableSimulation)
}

func TestSRPConfig_Defaults(t *testing.T) {
	srpCfg, err := (&config.Config{}).SRPConfig()
	require.NoError(t, err)
	assert.Equal(t, srp.Group2048, srpCfg.Group)
	assert.Equal(t, srp.SHA256, srpCfg.Hash)
	assert.False(t, srpCfg.DisableSimulation)
}

func TestSRPConfig_UnknownGroup(t *testing.T) {
	cfg := &config.Config{SRP: config.SRPSettings{Group: "rfc5054.1024"}}

	_, err := cfg.SRPConfig()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "srp.group")
}

func TestCodec(t *testing.T) {
	cfg := &config.Config{SRP: config.SRPSettings{WireEncoding: "decimal"}}

	codec, err := cfg.Codec()
	require.NoError(t, err)
	assert.Equal(t, protocol.Decimal, codec.Encoding)
	assert.Equal(t, srp.Group2048, codec.Group)

	cfg.SRP.WireEncoding = "hex"
	_, err = cfg.Codec()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "srp.wire_encoding")
}

func TestConfig_Validate_Failures(t *testing.T) {
	usersLine := `
users:
  file: "` + filepath.Join(t.TempDir(), "users.json") + `"
`

	tests := []struct {
		name        string
		yamlContent string
		expectedErr string
	}{
		{
			name:        "missing users file",
			yamlContent: `{}`,
			expectedErr: "users.file is required",
		},
		{
			name: "relative users file",
			yamlContent: `
users:
  file: "users.json"
`,
			expectedErr: "users.file must be an absolute path",
		},
		{
			name: "invalid port",
			yamlContent: usersLine + `
listen:
  port: 99999
`,
			expectedErr: "listen.port must be between 1 and 65535",
		},
		{
			name: "tls cert without key",
			yamlContent: usersLine + `
listen:
  tls_cert: "/etc/srpweb/tls/server.crt"
`,
			expectedErr: "must be set together",
		},
		{
			name: "unknown group",
			yamlContent: usersLine + `
srp:
  group: "rfc5054.1024"
`,
			expectedErr: "unknown group",
		},
		{
			name: "unknown hash",
			yamlContent: usersLine + `
srp:
  hash: "md5"
`,
			expectedErr: "unknown hash",
		},
		{
			name: "kdf cost not a power of two",
			yamlContent: usersLine + `
srp:
  kdf:
    n: 1000
`,
			expectedErr: "power of two",
		},
		{
			name: "kdf key too short",
			yamlContent: usersLine + `
srp:
  kdf:
    key_length: 8
`,
			expectedErr: "key_length must be at least 16",
		},
		{
			name: "exchange timeout too short",
			yamlContent: usersLine + `
srp:
  exchange_timeout: "100ms"
`,
			expectedErr: "exchange_timeout must be at least 1 second",
		},
		{
			name: "negative max exchanges",
			yamlContent: usersLine + `
limits:
  max_exchanges: -1
`,
			expectedErr: "limits.max_exchanges",
		},
		{
			name: "unknown log level",
			yamlContent: usersLine + `
logging:
  level: "trace"
`,
			expectedErr: "logging.level must be one of",
		},
		{
			name: "blank redact key",
			yamlContent: usersLine + `
logging:
  redact_keys:
    - "  "
`,
			expectedErr: "redact_keys[0] is blank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load(writeConfig(t, tt.yamlContent))
			assert.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.expectedErr)
		})
	}
}
