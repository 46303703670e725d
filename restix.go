// Copyright 2021-2024, Florent Heyworth. All rights reserved.
// Use of this source code is governed by the MIT licensee
// which can be found in the LICENSE file.

// Package restix provides declarative command building for external
// command-line tools.
//
// A CommandDefinition tree describes a tool's grammar: the parameters each
// command accepts, its subcommands, and the positional (synopsis) parameters
// appended after all flags. A CommandBuilder accumulates subcommand
// selections and parameter bindings against such a tree and renders them into
// an argument vector - the exact tokens later handed to a subprocess.
//
// It supports 5 rendering styles:
//
//	Separate - flag and value as two consecutive tokens ("--flag value")
//	Joined - flag and value as a single token ("--flag=value")
//	DoubleDash - "--flag", optionally followed by a value token
//	SingleDash - "-flag", optionally followed by a value token
//	Positional - the bare value without a flag token
//
// Parameters bound more than once coalesce into a list and render once per
// value in first-bound order, values may be deferred callables resolved on
// every Build, and each parameter may carry a short alias with its own style
// selected at build time.
package restix

import (
	"github.com/napalu/restix/types/orderedmap"
)

// CommandBuilder is a mutable single-invocation session bound to a root
// CommandDefinition. It accumulates subcommand selections and parameter
// bindings, then renders them on demand. Build performs no mutation, so a
// builder may be rendered repeatedly or extended and rebuilt. A builder is
// not safe for concurrent use; distinct builders may share one definition
// tree because definitions are never written after construction.
type CommandBuilder struct {
	root     *CommandDefinition
	cursor   *CommandDefinition
	chain    []string
	bindings *orderedmap.OrderedMap[string, *binding]
}

// NewCommandBuilder returns a builder rooted at the given definition. The
// cursor starts at the root and Command descends one subcommand per call.
func NewCommandBuilder(root *CommandDefinition) *CommandBuilder {
	return &CommandBuilder{
		root:     root,
		cursor:   root,
		bindings: orderedmap.NewOrderedMap[string, *binding](),
	}
}

// BuildOption adjusts a single Build invocation without mutating the builder.
type BuildOption func(options *buildOptions)

type buildOptions struct {
	shortForm      bool
	synopsisValues map[string]string
}

// UseShortForm renders parameters through their registered short aliases.
// Parameters without a short form keep their long form and style.
func UseShortForm() BuildOption {
	return func(options *buildOptions) {
		options.shortForm = true
	}
}

// WithSynopsisValues supplies values for the synopsis parameters declared on
// the selected command, keyed by the synopsis token stripped of its brackets
// and ellipsis.
func WithSynopsisValues(values map[string]string) BuildOption {
	return func(options *buildOptions) {
		options.synopsisValues = values
	}
}

// Command descends into a subcommand of the current command. Lookup is
// strict: only the current command's own subcommands match, there is no
// fallback to the root. On success the subcommand is appended to the chain
// and subsequent Param* calls resolve against the subcommand first.
func (b *CommandBuilder) Command(name string) error {
	sub, found := b.subcommand(name)
	if !found {
		return wrapErr(ErrUnknownSubcommand, name)
	}
	b.chain = append(b.chain, sub.Name)
	b.cursor = sub

	return nil
}

// Param binds a parameter without a value ("--verbose").
func (b *CommandBuilder) Param(name string) error {
	return b.bind(name, nil, false)
}

// ParamValue binds a single value to the named parameter.
func (b *CommandBuilder) ParamValue(name, value string) error {
	return b.bind(name, []bindingValue{{text: value}}, false)
}

// ParamValues binds a list of values to the named parameter. List elements
// render in the given order, one flag token per element.
func (b *CommandBuilder) ParamValues(name string, values ...string) error {
	bound := make([]bindingValue, 0, len(values))
	for _, value := range values {
		bound = append(bound, bindingValue{text: value})
	}

	return b.bind(name, bound, true)
}

// ParamFunc binds a deferred value. The callable is invoked on every Build,
// immediately before the binding is rendered, so it may depend on state
// established after the binding was recorded.
func (b *CommandBuilder) ParamFunc(name string, fn func() string) error {
	return b.bind(name, []bindingValue{{deferred: fn}}, false)
}

// Build renders the accumulated session into an argument vector: the root
// name, the subcommand chain, every binding in first-bound order, then the
// selected command's synopsis parameters in declared order. Build is pure -
// it never mutates the builder and repeated calls yield identical vectors.
// On failure no partial vector is returned.
func (b *CommandBuilder) Build(opts ...BuildOption) ([]string, error) {
	options := buildOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	argv := make([]string, 0, 2+len(b.chain)+b.bindings.Count()*2)
	argv = append(argv, b.root.Name)
	argv = append(argv, b.chain...)

	for kv := b.bindings.Front(); kv != nil; kv = kv.Next() {
		tokens, err := b.renderBinding(kv.Value, options.shortForm)
		if err != nil {
			return nil, err
		}
		argv = append(argv, tokens...)
	}

	synopsis, err := b.renderSynopsis(options.synopsisValues)
	if err != nil {
		return nil, err
	}

	return append(argv, synopsis...), nil
}

// Clear resets bindings, chain and cursor to their initial state so the
// builder can be reused for another invocation.
func (b *CommandBuilder) Clear() {
	b.cursor = b.root
	b.chain = b.chain[:0]
	b.bindings = orderedmap.NewOrderedMap[string, *binding]()
}

// Chain returns a copy of the subcommand names applied so far, in order.
func (b *CommandBuilder) Chain() []string {
	chain := make([]string, len(b.chain))
	copy(chain, b.chain)

	return chain
}

// Cursor returns the definition Param* and Command currently resolve against.
func (b *CommandBuilder) Cursor() *CommandDefinition {
	return b.cursor
}

// Root returns the definition the builder was constructed with.
func (b *CommandBuilder) Root() *CommandDefinition {
	return b.root
}
