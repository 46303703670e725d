package restix

import (
	"errors"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/napalu/restix/types/orderedmap"
)

// PrettyPrintConfig is used to print the subcommand tree in
// PrintCommandsUsing and PrintCommands
type PrettyPrintConfig struct {
	// NewCommandPrefix precedes the start of a new command
	NewCommandPrefix string
	// DefaultPrefix precedes sub-commands by default
	DefaultPrefix string
	// TerminalPrefix precedes terminal, i.e. CommandDefinition structs which don't have sub-commands
	TerminalPrefix string
	// InnerLevelBindPrefix is used for indentation. The indentation is repeated for each Level under the
	//  command root. The command root is at Level 0. Each sub-command increases root Level by 1.
	InnerLevelBindPrefix string
	// OuterLevelBindPrefix is used for indentation after InnerLevelBindPrefix has been rendered. The indentation is repeated for each Level under the
	//  command root. The command root is at Level 0. Each sub-command increases root Level by 1.
	OuterLevelBindPrefix string
}

// ConfigureParameterFunc is used when defining CommandParameter descriptors
type ConfigureParameterFunc func(parameter *CommandParameter, err *error)

// ConfigureDefinitionFunc is used when defining CommandDefinition nodes
type ConfigureDefinitionFunc func(definition *CommandDefinition)

// NameConversionFunc converts a configuration key to a command/flag/env name
type NameConversionFunc func(string) string

// Built-in conversion strategies
var (
	// ToKebabCase converts a string to kebab case "my-flag-name"
	ToKebabCase = func(s string) string {
		return strcase.ToKebab(s)
	}

	// ToSnakeCase converts a string to snake case "my_flag_name"
	ToSnakeCase = func(s string) string {
		return strcase.ToSnake(s)
	}

	// ToScreamingSnake converts a string to screaming snake case "MY_FLAG_NAME"
	ToScreamingSnake = func(s string) string {
		return strcase.ToScreamingSnake(s)
	}

	// ToLowerCase converts a string to lower case "myflagname"
	ToLowerCase = func(s string) string {
		return strings.ToLower(s)
	}

	DefaultFlagNameConverter = ToKebabCase
	DefaultEnvNameConverter  = ToScreamingSnake
)

// ParameterStyle determines how a bound parameter is rendered into argv tokens
type ParameterStyle int

const (
	// Separate renders the flag and its value as two consecutive tokens ("--flag", "value")
	Separate ParameterStyle = 0
	// Joined renders the flag and its value as a single token ("--flag=value")
	Joined ParameterStyle = 1
	// DoubleDash renders "--flag" followed by a value token only when a value is bound
	DoubleDash ParameterStyle = 2
	// SingleDash renders "-flag" followed by a value token only when a value is bound
	SingleDash ParameterStyle = 3
	// Positional renders the bare value without a preceding flag token
	Positional ParameterStyle = 4
)

var styleLabels = map[ParameterStyle]string{
	Separate:   "separate",
	Joined:     "joined",
	DoubleDash: "doubledash",
	SingleDash: "singledash",
	Positional: "positional",
}

// String returns the style's canonical lower-case label.
func (s ParameterStyle) String() string {
	if label, ok := styleLabels[s]; ok {
		return label
	}

	return "unknown"
}

// Is reports whether label names this style. Comparison is case-insensitive
// so styles read from configuration files match regardless of casing.
func (s ParameterStyle) Is(label string) bool {
	return strings.EqualFold(s.String(), label)
}

// StyleFromString resolves a configuration label to a ParameterStyle.
// Matching is case-insensitive.
func StyleFromString(label string) (ParameterStyle, bool) {
	for style, name := range styleLabels {
		if strings.EqualFold(name, label) {
			return style, true
		}
	}

	return Separate, false
}

// CommandParameter describes a single flag accepted by a command. Descriptors
// are immutable once registered on a CommandDefinition - builders only read
// them.
type CommandParameter struct {
	Name          string
	Style         ParameterStyle
	Required      bool
	ValueRequired bool
	Prefix        string
	ShortName     string
	ShortStyle    ParameterStyle
	Description   string
}

// CommandDefinition describes one node of a command tree: the parameters the
// command accepts, its subcommands, and the synopsis (positional) parameters
// appended after all flags. Parameter and subcommand maps preserve
// registration order.
type CommandDefinition struct {
	Name           string
	Description    string
	Parameters     *orderedmap.OrderedMap[string, *CommandParameter]
	Subcommands    *orderedmap.OrderedMap[string, *CommandDefinition]
	DefaultStyle   ParameterStyle
	SynopsisParams []string
}

var (
	ErrUnknownParameter         = errors.New("unknown parameter")
	ErrMissingValue             = errors.New("parameter requires a value")
	ErrUnknownSubcommand        = errors.New("unknown subcommand")
	ErrMissingSynopsisParameter = errors.New("missing required synopsis parameter")
)

const (
	FmtErrorWithString = "%w: %s"

	// DefaultPrefix is the flag prefix used when a descriptor does not
	// configure one.
	DefaultPrefix = "--"
)

// bindingValue is either a literal string or a deferred callable which is
// resolved on every Build.
type bindingValue struct {
	text     string
	deferred func() string
}

func (v bindingValue) resolve() string {
	if v.deferred != nil {
		return v.deferred()
	}

	return v.text
}

// binding records one parameter bound on a builder together with the values
// accumulated for it. Rebinding the same parameter appends to values rather
// than creating a second entry. The descriptor is deliberately not cached:
// Build resolves the name against the cursor in scope at render time.
// list distinguishes an explicit or coalesced value list from a single
// scalar, which matters only to Positional rendering.
type binding struct {
	name   string
	values []bindingValue
	list   bool
}
