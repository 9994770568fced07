// srpweb is the CLI for the srpweb login service: it enrolls users,
// authenticates via SRP-6a and manages the resulting session.
package main

import (
	"fmt"
	"os"

	"github.com/marspr/srp-web/internal/cli/commands"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("srpweb version %s\n", version)
		os.Exit(0)
	}

	switch command {
	case "login":
		commands.NewLoginCommand().Execute(args)
	case "register":
		commands.NewRegisterCommand().Execute(args)
	case "whoami":
		commands.NewWhoamiCommand().Execute(args)
	case "logout":
		commands.NewLogoutCommand().Execute(args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command '%s'\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `srpweb - CLI for the srpweb login service

Usage:
  srpweb <command> [flags]

Available Commands:
  register     Enroll a user (derives the verifier locally)
  login        Authenticate via SRP-6a and store the session token
  whoami       Show the identity of the current session
  logout       End the current session

Global Flags:
  --help, -h        Show help information
  --version, -v     Show version information

Examples:
  # Enroll and log in
  srpweb register --host login.example.net --username root
  srpweb login --host login.example.net --username root

  # Inspect and end the session
  srpweb whoami --host login.example.net
  srpweb logout --host login.example.net
`)
}
