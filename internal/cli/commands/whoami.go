package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/marspr/srp-web/internal/cli/session"
)

// WhoamiCommand prints the identity behind the stored session token.
type WhoamiCommand struct{}

// NewWhoamiCommand creates a whoami command instance.
func NewWhoamiCommand() *WhoamiCommand {
	return &WhoamiCommand{}
}

// Execute runs the whoami command.
func (c *WhoamiCommand) Execute(args []string) {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	conn := addConnectionFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: srpweb whoami [flags]

Show the username and expiry of the current session.

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
		exitWithError("not logged in to %s (run 'srpweb login')", cfg.Address())
	}

	apiClient, err := createClient(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	info, err := apiClient.Whoami(context.Background(), token)
	if err != nil {
		exitWithError("%v", err)
	}

	fmt.Printf("%s (session expires %s)\n", info.Username, info.ExpiresAt)
}
