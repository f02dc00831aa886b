package config

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// EnsurePassword prompts for the API password when none was configured
// and stdin is a terminal. Non-interactive runs fail instead, so a
// cron'd inventory refresh never hangs on a prompt.
func (c *Config) EnsurePassword() error {
	if c.Password != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("password is required (set password in akips.yml or AKIPS_PASSWORD)")
	}
	fmt.Fprintf(os.Stderr, "AKiPS API password for %s: ", c.Host)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(pw) == 0 {
		return errors.New("empty password")
	}
	c.Password = string(pw)
	return nil
}
