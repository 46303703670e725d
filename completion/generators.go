package completion

// Generator renders a completion script for one shell.
type Generator interface {
	Generate(programName string, data CompletionData) string
}

// GetGenerator returns the generator for the named shell. Unknown shells
// fall back to bash.
func GetGenerator(shell string) Generator {
	switch shell {
	case "zsh":
		return &ZshGenerator{}
	case "bash":
		fallthrough
	default:
		return &BashGenerator{}
	}
}
