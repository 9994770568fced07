package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/marspr/srp-web/internal/auth"
	"github.com/marspr/srp-web/pkg/srp"
)

// enrollLocal adds a user straight to the store file, for bootstrapping
// before the daemon is reachable. The password comes from stdin so it
// never appears in the process list.
func enrollLocal(users *auth.UserStore, srpCfg *srp.Config, username string) error {
	password, err := readPassword()
	if err != nil {
		return err
	}
	rec, err := srp.Enroll(srpCfg, username, password)
	if err != nil {
		return fmt.Errorf("deriving verifier: %w", err)
	}
	if err := users.Add(rec); err != nil {
		return err
	}
	fmt.Printf("Enrolled %s\n", username)
	return nil
}

// readPassword prompts without echo on a terminal and falls back to a
// plain stdin read for piped input.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		if len(raw) == 0 {
			return "", fmt.Errorf("password must not be empty")
		}
		return string(raw), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password must not be empty")
	}
	return password, nil
}
