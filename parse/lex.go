//go:build linux || darwin

package parse

import "github.com/google/shlex"

// Split tokenizes a command-line fragment using POSIX shell word splitting,
// without any expansion. Extra argument strings from profiles and console
// input pass through here before they become argv tokens.
func Split(s string) ([]string, error) {
	args, err := shlex.Split(s)
	if err != nil {
		return nil, err
	}

	return args, nil
}
