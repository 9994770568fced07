package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/marspr/srp-web/pkg/srp"
)

// RegisterCommand enrolls a new user: it derives the salt and verifier
// locally and submits only those to the daemon.
type RegisterCommand struct{}

// NewRegisterCommand creates a register command instance.
func NewRegisterCommand() *RegisterCommand {
	return &RegisterCommand{}
}

// Execute runs the register command.
func (c *RegisterCommand) Execute(args []string) {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "username to enroll (prompts if not provided)")
	password := fs.String("password", "", "password (prompts twice if not provided)")
	conn := addConnectionFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: srpweb register [flags]

Enroll a new user with the srpweb service. The password is stretched
locally into a salted verifier; the service stores the verifier, never
the password.

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
	apiClient, err := createClient(cfg)
	if err != nil {
		exitWithError("%v", err)
	}

	user := *username
	if user == "" {
		if user, err = promptUsername(); err != nil {
			exitWithError("%v", err)
		}
	}
	pass := *password
	if pass == "" {
		pass, err = promptPassword("Password: ")
		if err != nil {
			exitWithError("%v", err)
		}
		confirm, err := promptPassword("Repeat password: ")
		if err != nil {
			exitWithError("%v", err)
		}
		if pass != confirm {
			exitWithError("passwords do not match")
		}
	}

	srpCfg, err := cfg.SRPConfig()
	if err != nil {
		exitWithError("%v", err)
	}
	rec, err := srp.Enroll(srpCfg, user, pass)
	if err != nil {
		exitWithError("deriving verifier: %v", err)
	}

	if err := apiClient.Register(context.Background(), rec); err != nil {
		exitWithError("registration failed: %v", err)
	}

	fmt.Printf("Enrolled %s\n", user)
}
