package file

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/term"
)

// ErrNotTerminal is returned when a secret prompt has no terminal to read from.
var ErrNotTerminal = errors.New("input is not a terminal")

// PromptSecret asks for a secret on the terminal behind fd without echo.
func PromptSecret(fd int, out io.Writer, label string) (string, error) {
	if !term.IsTerminal(fd) {
		return "", ErrNotTerminal
	}
	fmt.Fprintf(out, "%s: ", label)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(string(secret)), nil
}

// ResolveEncryptionKey fills the encryption key from the terminal when the
// environment did not provide one.
func (c *Config) ResolveEncryptionKey(fd int, out io.Writer) error {
	if c.Secrets.EncryptionKey != "" {
		return nil
	}
	key, err := PromptSecret(fd, out, "Encryption key")
	if err != nil {
		if errors.Is(err, ErrNotTerminal) {
			return errors.New("DELEGATE_ENCRYPTION_KEY is not set")
		}
		return err
	}
	if key == "" {
		return errors.New("encryption key must not be empty")
	}
	c.Secrets.EncryptionKey = key
	return nil
}
