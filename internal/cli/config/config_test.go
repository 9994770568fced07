package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marspr/srp-web/internal/cli/config"
	"github.com/marspr/srp-web/pkg/protocol"
)

// isolate points the config and env lookups at empty temp locations so
// the developer's real config never leaks into a test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("SRPWEB_HOST", "")
	t.Setenv("SRPWEB_PORT", "")
	t.Setenv("SRPWEB_CA_CERT", "")
	return home
}

func writeConfigFile(t *testing.T, home, content string) {
	t.Helper()
	dir := filepath.Join(home, "srpweb")
	require.NoError(t, os.MkdirAll(dir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600))
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.Host)
	assert.Equal(t, 8443, cfg.Port)
	assert.False(t, cfg.Insecure)
	assert.False(t, cfg.NoTLS)
}

func TestLoadFromFile(t *testing.T) {
	home := isolate(t)
	writeConfigFile(t, home, `
host: auth.example.com
port: 9000
no_tls: true
srp:
  group: rfc5054.3072
  hash: sha512
`)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "auth.example.com", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.NoTLS)
	assert.Equal(t, "rfc5054.3072", cfg.SRP.Group)
}

func TestEnvOverridesFile(t *testing.T) {
	home := isolate(t)
	writeConfigFile(t, home, "host: from-file\nport: 9000\n")
	t.Setenv("SRPWEB_HOST", "from-env")
	t.Setenv("SRPWEB_PORT", "9443")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Host)
	assert.Equal(t, 9443, cfg.Port)
}

func TestApplyFlagsHighestPriority(t *testing.T) {
	isolate(t)
	t.Setenv("SRPWEB_HOST", "from-env")

	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.ApplyFlags("from-flag", 7000, "", true, false)
	assert.Equal(t, "from-flag", cfg.Host)
	assert.Equal(t, 7000, cfg.Port)
	assert.True(t, cfg.Insecure)
}

func TestValidate(t *testing.T) {
	caCert := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caCert, []byte("not checked here"), 0o600))

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  config.Config{Host: "h", Port: 8443, CACert: caCert},
		},
		{
			name:    "port out of range",
			cfg:     config.Config{Host: "h", Port: 70000},
			wantErr: "invalid port",
		},
		{
			name:    "missing ca cert file",
			cfg:     config.Config{Host: "h", Port: 8443, CACert: "/nonexistent/ca.pem"},
			wantErr: "CA certificate file not found",
		},
		{
			name:    "unknown group",
			cfg:     config.Config{Host: "h", Port: 8443, SRP: config.SRPSettings{Group: "rfc5054.1024"}},
			wantErr: "srp.group",
		},
		{
			name:    "unknown encoding",
			cfg:     config.Config{Host: "h", Port: 8443, SRP: config.SRPSettings{WireEncoding: "hex"}},
			wantErr: "srp.wire_encoding",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRequireHost(t *testing.T) {
	cfg := config.Config{Port: 8443}
	require.Error(t, cfg.RequireHost())

	cfg.Host = "auth.example.com"
	require.NoError(t, cfg.RequireHost())
	assert.Equal(t, "auth.example.com:8443", cfg.Address())
}

func TestCodecMatchesSRPSettings(t *testing.T) {
	cfg := config.Config{
		Host: "h",
		Port: 8443,
		SRP: config.SRPSettings{
			Group:        "rfc5054.4096",
			Hash:         "sha512",
			WireEncoding: "decimal",
		},
	}

	codec, err := cfg.Codec()
	require.NoError(t, err)
	assert.Equal(t, protocol.Decimal, codec.Encoding)
	assert.Equal(t, 4096/8, codec.Group.ByteLength())
}
