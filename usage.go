package restix

import (
	"fmt"
	"io"
	"strings"
)

// Visit traverses a definition and its subcommands from top to bottom in
// registration order. Returning false from the visitor stops the traversal
// of that branch.
func (c *CommandDefinition) Visit(visitor func(definition *CommandDefinition, level int) bool, level int) {
	if visitor != nil {
		if !visitor(c, level) {
			return
		}
	}

	if c.Subcommands == nil {
		return
	}
	for kv := c.Subcommands.Front(); kv != nil; kv = kv.Next() {
		kv.Value.Visit(visitor, level+1)
	}
}

// PrintUsage pretty prints the definition's parameters and subcommand tree
// to io.Writer.
func (c *CommandDefinition) PrintUsage(writer io.Writer) {
	_, _ = writer.Write([]byte(fmt.Sprintf("usage: %s", c.usageLine())))
	c.PrintParameters(writer)
	if c.hasSubcommands() {
		_, _ = writer.Write([]byte("\ncommands:\n"))
		c.PrintCommands(writer)
	}
}

// PrintUsageWithGroups pretty prints the definition's own parameters and
// shows command-specific parameters grouped by subcommand.
func (c *CommandDefinition) PrintUsageWithGroups(writer io.Writer) {
	_, _ = writer.Write([]byte(fmt.Sprintf("usage: %s\n", c.usageLine())))

	c.PrintGlobalParameters(writer)

	if c.hasSubcommands() {
		_, _ = writer.Write([]byte("\nCommands:\n"))
		c.PrintCommandsWithParameters(writer, &PrettyPrintConfig{
			NewCommandPrefix:     " +  ",
			DefaultPrefix:        " │─ ",
			TerminalPrefix:       " └─ ",
			InnerLevelBindPrefix: " ** ",
			OuterLevelBindPrefix: " |  ",
		})
	}
}

// PrintGlobalParameters prints the definition's own (command-independent)
// parameters.
func (c *CommandDefinition) PrintGlobalParameters(writer io.Writer) {
	_, _ = writer.Write([]byte("\nGlobal Parameters:\n\n"))

	if c.Parameters == nil {
		return
	}
	for kv := c.Parameters.Front(); kv != nil; kv = kv.Next() {
		_, _ = writer.Write([]byte(fmt.Sprintf(" %s \"%s\" (%s)\n",
			describeParameter(kv.Value), kv.Value.Description, describeRequired(kv.Value))))
	}
}

// PrintParameters pretty prints the definition's parameters to io.Writer
func (c *CommandDefinition) PrintParameters(writer io.Writer) {
	if c.Parameters == nil {
		return
	}
	for kv := c.Parameters.Front(); kv != nil; kv = kv.Next() {
		_, _ = writer.Write([]byte(fmt.Sprintf("\n %s \"%s\" (%s)",
			describeParameter(kv.Value), kv.Value.Description, describeRequired(kv.Value))))
	}
}

// PrintCommandsWithParameters prints subcommands with their respective parameters
func (c *CommandDefinition) PrintCommandsWithParameters(writer io.Writer, config *PrettyPrintConfig) {
	if c.Subcommands == nil {
		return
	}
	for kv := c.Subcommands.Front(); kv != nil; kv = kv.Next() {
		kv.Value.Visit(func(definition *CommandDefinition, level int) bool {
			var prefix string
			if level == 0 {
				prefix = config.NewCommandPrefix
			} else if !definition.hasSubcommands() {
				prefix = config.TerminalPrefix
			} else {
				prefix = config.DefaultPrefix
			}

			command := fmt.Sprintf("%s%s%s \"%s\"\n", prefix,
				strings.Repeat(config.InnerLevelBindPrefix, level), definition.usageLine(), definition.Description)
			if _, err := writer.Write([]byte(command)); err != nil {
				return false
			}

			definition.printOwnParameters(writer, level, config)

			return true
		}, 0)
	}
}

// PrintCommands writes the definition's subcommand tree to io.Writer.
func (c *CommandDefinition) PrintCommands(writer io.Writer) {
	c.PrintCommandsUsing(writer, &PrettyPrintConfig{
		NewCommandPrefix:     " +",
		DefaultPrefix:        " │",
		TerminalPrefix:       " └",
		OuterLevelBindPrefix: "─",
	})
}

// PrintCommandsUsing writes the definition's subcommand tree to io.Writer using PrettyPrintConfig.
// PrettyPrintConfig.NewCommandPrefix precedes the start of a new command
// PrettyPrintConfig.DefaultPrefix precedes sub-commands by default
// PrettyPrintConfig.TerminalPrefix precedes terminal, i.e. definitions which don't have sub-commands
// PrettyPrintConfig.OuterLevelBindPrefix is used for indentation. The indentation is repeated for each Level under the
// command root. The command root is at Level 0.
func (c *CommandDefinition) PrintCommandsUsing(writer io.Writer, config *PrettyPrintConfig) {
	if c.Subcommands == nil {
		return
	}
	for kv := c.Subcommands.Front(); kv != nil; kv = kv.Next() {
		kv.Value.Visit(func(definition *CommandDefinition, level int) bool {
			var start = config.DefaultPrefix
			switch {
			case level == 0:
				start = config.NewCommandPrefix
			case !definition.hasSubcommands():
				start = config.TerminalPrefix
			}
			command := fmt.Sprintf("%s%s %s \"%s\"\n", start, strings.Repeat(config.OuterLevelBindPrefix, level),
				definition.Name, definition.Description)
			if _, err := writer.Write([]byte(command)); err != nil {
				return false
			}
			return true

		}, 0)
	}
}

// printOwnParameters prints parameters for a specific subcommand with the appropriate indentation
func (c *CommandDefinition) printOwnParameters(writer io.Writer, level int, config *PrettyPrintConfig) {
	if c.Parameters == nil {
		return
	}
	for kv := c.Parameters.Front(); kv != nil; kv = kv.Next() {
		line := fmt.Sprintf("%s%s \"%s\" (%s)\n", strings.Repeat(config.OuterLevelBindPrefix, level+1),
			describeParameter(kv.Value), kv.Value.Description, describeRequired(kv.Value))
		_, _ = writer.Write([]byte(line))
	}
}

// usageLine renders the definition's name followed by its synopsis tokens.
func (c *CommandDefinition) usageLine() string {
	if len(c.SynopsisParams) == 0 {
		return c.Name
	}

	return c.Name + " " + strings.Join(c.SynopsisParams, " ")
}

func (c *CommandDefinition) hasSubcommands() bool {
	return c.Subcommands != nil && c.Subcommands.Count() > 0
}

// describeParameter renders a parameter's flag token and, when registered,
// its short alias.
func describeParameter(param *CommandParameter) string {
	token := flagToken(param)
	if param.ShortName == "" {
		return token
	}

	return token + " or " + effectivePrefix(param, param.ShortStyle, true) + param.ShortName
}

// flagToken renders the token a parameter appears as on the command line.
// Positional parameters appear as their bare name.
func flagToken(param *CommandParameter) string {
	if param.Style == Positional {
		return param.Name
	}

	return effectivePrefix(param, param.Style, false) + param.Name
}

func describeRequired(param *CommandParameter) string {
	if param.Required {
		return "required"
	}

	return "optional"
}
