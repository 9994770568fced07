package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/marspr/srp-web/internal/cli/session"
)

// LoginCommand authenticates against the daemon and stores the bearer
// token for subsequent commands.
type LoginCommand struct{}

// NewLoginCommand creates a login command instance.
func NewLoginCommand() *LoginCommand {
	return &LoginCommand{}
}

// Execute runs the login command.
func (c *LoginCommand) Execute(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "username to authenticate as (prompts if not provided)")
	password := fs.String("password", "", "password (prompts if not provided)")
	conn := addConnectionFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: srpweb login [flags]

Authenticate with the srpweb service. The password never leaves this
machine; the SRP exchange proves knowledge of it to the server. On
success the session token is stored for whoami and logout.

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Interactive
  srpweb login --host login.example.net

  # Non-interactive (for scripts)
  srpweb login --host login.example.net --username root --password secret
`)
	}

	if err := fs.Parse(args); err != nil {
		exitWithError("%v", err)
	}

	cfg, err := loadConfig(conn)
	if err != nil {
		exitWithError("%v", err)
	}
	apiClient, err := createClient(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	user, pass, err := resolveCredentials(*username, *password)
	if err != nil {
		exitWithError("%v", err)
	}

	login, err := apiClient.Authenticate(context.Background(), user, pass)
	if err != nil {
		exitWithError("login failed: %v", err)
	}

	store, err := session.NewStore()
	if err != nil {
		exitWithError("%v", err)
	}
	if err := store.Save(cfg.Host, cfg.Port, login.Token); err != nil {
		exitWithError("%v", err)
	}

	fmt.Printf("Logged in as %s\n", login.Username)
}
