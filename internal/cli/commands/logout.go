package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/marspr/srp-web/internal/cli/session"
)

// LogoutCommand invalidates the stored session on the daemon and removes
// the local token.
type LogoutCommand struct{}

// NewLogoutCommand creates a logout command instance.
func NewLogoutCommand() *LogoutCommand {
	return &LogoutCommand{}
}

// Execute runs the logout command.
func (c *LogoutCommand) Execute(args []string) {
	fs := flag.NewFlagSet("logout", flag.ExitOnError)
	conn := addConnectionFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: srpweb logout [flags]

End the current session and delete the stored token.

Flags:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		exitWithError("%v", err)
	}

	cfg, err := loadConfig(conn)
	if err != nil {
		exitWithError("%v", err)
	}

	store, err := session.NewStore()
	if err != nil {
		exitWithError("%v", err)
	}
	token, err := store.Load(cfg.Host, cfg.Port)
	if err != nil {
		exitWithError("%v", err)
	}
	if token == "" {
		fmt.Println("Not logged in")
		return
	}

	apiClient, err := createClient(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	// Invalidate server-side first; the local token is removed even if
	// the server already expired the session.
	if err := apiClient.Logout(context.Background(), token); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: server-side logout failed: %v\n", err)
	}
	if err := store.Delete(cfg.Host, cfg.Port); err != nil {
		exitWithError("%v", err)
	}

	fmt.Println("Logged out")
}
