// Package completion renders shell completion scripts for a command tree.
package completion

// CompletionValue is one completable value of a flag.
type CompletionValue struct {
	Pattern     string // The literal value or glob offered to the shell
	Description string // Human-readable description
}

// CompletionData is the flattened command tree the script generators
// consume. Command paths are space-joined ("backup files"); descriptions of
// command flags are keyed "command@--flag".
type CompletionData struct {
	Commands            []string
	Flags               []string
	CommandFlags        map[string][]string
	Descriptions        map[string]string
	CommandDescriptions map[string]string
	FlagValues          map[string][]CompletionValue
}

// CompletionPaths names where a shell's user-local completion scripts live.
type CompletionPaths struct {
	Primary  string // Preferred directory
	Fallback string // Tried when the primary cannot be used
	Comment  string // Why these locations
}
