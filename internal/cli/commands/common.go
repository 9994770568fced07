// Package commands implements the srpweb CLI subcommands.
package commands

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/marspr/srp-web/internal/cli/client"
	"github.com/marspr/srp-web/internal/cli/config"
)

// connectionFlags are the flags every subcommand shares.
type connectionFlags struct {
	host     *string
	port     *int
	caCert   *string
	insecure *bool
	noTLS    *bool
}

func addConnectionFlags(fs *flag.FlagSet) *connectionFlags {
	return &connectionFlags{
		host:     fs.String("host", "", "srpweb service hostname or IP"),
		port:     fs.Int("port", 0, "srpweb service port"),
		caCert:   fs.String("ca-cert", "", "path to a custom CA certificate bundle"),
		insecure: fs.Bool("insecure", false, "skip TLS certificate verification (development only)"),
		noTLS:    fs.Bool("no-tls", false, "connect over plain HTTP/WS (development only)"),
	}
}

// loadConfig layers defaults, config file, environment and flags.
func loadConfig(flags *connectionFlags) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.ApplyFlags(*flags.host, *flags.port, *flags.caCert, *flags.insecure, *flags.noTLS)
	if err := cfg.RequireHost(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createClient(cfg *config.Config) (*client.Client, error) {
	c, err := client.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

// promptUsername reads a username from stdin when not given as a flag.
func promptUsername() (string, error) {
	fmt.Fprint(os.Stderr, "Username: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read username: %w", err)
	}
	username := strings.TrimSpace(line)
	if username == "" {
		return "", fmt.Errorf("username must not be empty")
	}
	return username, nil
}

// promptPassword reads a password without echo.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return "", fmt.Errorf("password must not be empty")
	}
	return string(password), nil
}

// resolveCredentials fills in username and password from flags or
// prompts.
func resolveCredentials(username, password string) (string, string, error) {
	var err error
	if username == "" {
		if username, err = promptUsername(); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = promptPassword("Password: "); err != nil {
			return "", "", err
		}
	}
	return username, password, nil
}

// exitWithError prints an error to stderr and exits with status 1.
func exitWithError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
