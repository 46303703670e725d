package util

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal abstracts the tty operations needed for password input.
type Terminal interface {
	ReadPassword(fd int) ([]byte, error)
	IsTerminal(fd int) bool
}

// StdTerminal reads from the process terminal via golang.org/x/term.
type StdTerminal struct{}

func (StdTerminal) ReadPassword(fd int) ([]byte, error) { return term.ReadPassword(fd) }

func (StdTerminal) IsTerminal(fd int) bool { return term.IsTerminal(fd) }

// GetSecureString writes prompt to w and reads a password from the terminal
// without echoing it. It refuses to read when stdin is not a terminal so a
// password prompt never hangs a non-interactive run.
func GetSecureString(prompt string, w io.Writer, t Terminal) (string, error) {
	fd := int(os.Stdin.Fd())
	if !t.IsTerminal(fd) {
		return "", fmt.Errorf("not attached to a terminal. don't know how to get input from stdin")
	}

	fmt.Fprint(w, prompt)
	defer fmt.Fprintln(w)

	pass, err := t.ReadPassword(fd)
	if err != nil {
		return "", err
	}
	if len(pass) == 0 {
		return "", fmt.Errorf("empty password is invalid")
	}

	return string(pass), nil
}
