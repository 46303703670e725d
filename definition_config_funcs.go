package restix

import (
	"github.com/napalu/restix/types/orderedmap"
)

// NewDefinition creates and returns a new CommandDefinition named name. This
// function takes variadic ConfigureDefinitionFunc functions to customize the
// created definition.
func NewDefinition(name string, configs ...ConfigureDefinitionFunc) *CommandDefinition {
	definition := &CommandDefinition{
		Name:         name,
		DefaultStyle: Separate,
	}
	definition.ensureInit()

	for _, config := range configs {
		config(definition)
	}

	return definition
}

// Set is a helper config function that allows setting multiple configuration
// functions on a definition.
func (c *CommandDefinition) Set(configs ...ConfigureDefinitionFunc) {
	c.ensureInit()
	for _, config := range configs {
		config(c)
	}
}

func (c *CommandDefinition) ensureInit() {
	if c.Parameters == nil {
		c.Parameters = orderedmap.NewOrderedMap[string, *CommandParameter]()
	}
	if c.Subcommands == nil {
		c.Subcommands = orderedmap.NewOrderedMap[string, *CommandDefinition]()
	}
}

// WithParameter registers a parameter descriptor. Registering a name twice
// replaces the earlier descriptor while keeping its position in declaration
// order.
func WithParameter(parameter *CommandParameter) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		definition.Parameters.Set(parameter.Name, parameter)
	}
}

// WithParameters registers several parameter descriptors in the given order.
func WithParameters(parameters ...*CommandParameter) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		for _, parameter := range parameters {
			definition.Parameters.Set(parameter.Name, parameter)
		}
	}
}

// WithSubcommand attaches a subcommand definition to the command.
func WithSubcommand(subcommand *CommandDefinition) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		subcommand.ensureInit()
		definition.Subcommands.Set(subcommand.Name, subcommand)
	}
}

// WithSubcommands attaches several subcommand definitions in the given order.
func WithSubcommands(subcommands ...*CommandDefinition) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		for _, subcommand := range subcommands {
			subcommand.ensureInit()
			definition.Subcommands.Set(subcommand.Name, subcommand)
		}
	}
}

// WithDefaultStyle sets the style assigned to parameters generated for this
// definition when no explicit style is known (consumed by definition
// generators, not by the builder itself).
func WithDefaultStyle(style ParameterStyle) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		definition.DefaultStyle = style
	}
}

// WithSynopsis declares the positional parameters appended after all bound
// flags. A token wrapped in brackets ("[dir]") is optional and a trailing
// "..." marks it variadic.
func WithSynopsis(tokens ...string) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		definition.SynopsisParams = append(definition.SynopsisParams, tokens...)
	}
}

// WithDefinitionDescription sets the description for the definition. This
// description helps users to understand what the command does.
func WithDefinitionDescription(description string) ConfigureDefinitionFunc {
	return func(definition *CommandDefinition) {
		definition.Description = description
	}
}
