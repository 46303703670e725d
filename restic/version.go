package restic

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/napalu/restix"
)

// CommandRunner is the subset of proc.Runner this package needs.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, env map[string]string) (string, error)
}

var versionPattern = regexp.MustCompile(`restic\s+([0-9]+\.[0-9]+\.[0-9]+)`)

// Version runs `restic version` and extracts the semantic version number.
func Version(ctx context.Context, r CommandRunner) (string, error) {
	builder := restix.NewCommandBuilder(Definition())
	if err := builder.Command("version"); err != nil {
		return "", err
	}
	argv, err := builder.Build()
	if err != nil {
		return "", err
	}

	out, err := r.Run(ctx, argv, nil)
	if err != nil {
		return "", err
	}

	return parseVersion(out)
}

func parseVersion(out string) (string, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("unrecognized version output: %q", strings.TrimSpace(out))
	}

	return m[1], nil
}
