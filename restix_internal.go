package restix

import (
	"fmt"
)

func wrapErr(sentinel error, detail string) error {
	return fmt.Errorf(FmtErrorWithString, sentinel, detail)
}

// subcommand resolves name against the cursor's own subcommands only.
func (b *CommandBuilder) subcommand(name string) (*CommandDefinition, bool) {
	if b.cursor.Subcommands == nil {
		return nil, false
	}

	return b.cursor.Subcommands.Get(name)
}

// lookupParameter resolves a parameter name against the cursor first and the
// root second, so parameters declared once at the root stay bindable from
// every subcommand context.
func (b *CommandBuilder) lookupParameter(name string) (*CommandParameter, error) {
	if b.cursor.Parameters != nil {
		if param, found := b.cursor.Parameters.Get(name); found {
			return param, nil
		}
	}
	if b.cursor != b.root && b.root.Parameters != nil {
		if param, found := b.root.Parameters.Get(name); found {
			return param, nil
		}
	}

	return nil, wrapErr(ErrUnknownParameter, name)
}

// bind resolves the descriptor for name, validates the binding and records
// it. Rebinding an already bound name appends to the existing entry so
// repeatable flags render once per value in first-bound order.
func (b *CommandBuilder) bind(name string, values []bindingValue, asList bool) error {
	param, err := b.lookupParameter(name)
	if err != nil {
		return err
	}
	if len(values) == 0 && param.ValueRequired &&
		param.Style != DoubleDash && param.Style != SingleDash {
		return wrapErr(ErrMissingValue, name)
	}

	if existing, found := b.bindings.Get(name); found {
		if len(existing.values) > 0 && len(values) > 0 {
			existing.list = true
		}
		existing.values = append(existing.values, values...)
		existing.list = existing.list || asList

		return nil
	}
	b.bindings.Set(name, &binding{name: name, values: values, list: asList})

	return nil
}

// renderBinding renders one binding into tokens. The descriptor is resolved
// against the cursor in scope now, not the one in scope when the binding was
// recorded - a binding whose descriptor is reachable from neither the cursor
// nor the root (bound on an intermediate command before descending further)
// fails as unknown.
func (b *CommandBuilder) renderBinding(bound *binding, shortForm bool) ([]string, error) {
	param, err := b.lookupParameter(bound.name)
	if err != nil {
		return nil, err
	}

	name, style := param.Name, param.Style
	short := shortForm && param.ShortName != ""
	if short {
		name, style = param.ShortName, param.ShortStyle
	}
	prefix := effectivePrefix(param, style, short)

	if len(bound.values) == 0 {
		if style == Positional {
			return []string{name}, nil
		}

		return []string{prefix + name}, nil
	}

	tokens := make([]string, 0, len(bound.values)*2)
	for _, value := range bound.values {
		resolved := value.resolve()
		switch style {
		case Joined:
			tokens = append(tokens, prefix+name+"="+resolved)
		case Positional:
			// A scalar positional contributes only its value; a list
			// repeats the parameter name ahead of every element.
			if bound.list {
				tokens = append(tokens, name, resolved)
			} else {
				tokens = append(tokens, resolved)
			}
		default: // Separate, DoubleDash, SingleDash
			tokens = append(tokens, prefix+name, resolved)
		}
	}

	return tokens, nil
}

// effectivePrefix selects the prefix token for one rendering: SingleDash is
// always "-", and a Separate parameter rendered through its short alias is
// forced to "-" as well since short flags are conventionally single-dash
// even when the long form uses "--".
func effectivePrefix(param *CommandParameter, style ParameterStyle, short bool) string {
	if style == SingleDash {
		return "-"
	}
	if short && style == Separate {
		return "-"
	}

	return param.Prefix
}

// renderSynopsis resolves the cursor's synopsis parameters in declared order
// against the supplied values. Required parameters must have a value;
// optional ones are skipped silently when absent.
func (b *CommandBuilder) renderSynopsis(values map[string]string) ([]string, error) {
	params := b.cursor.Synopsis()
	if len(params) == 0 {
		return nil, nil
	}

	tokens := make([]string, 0, len(params))
	for _, param := range params {
		value, found := values[param.Key]
		if !found {
			if param.Optional {
				continue
			}

			return nil, wrapErr(ErrMissingSynopsisParameter, param.Key)
		}
		tokens = append(tokens, value)
	}

	return tokens, nil
}
