package restix

// FluentBuilder wraps a CommandBuilder with chainable mutators. The first
// error reported by the underlying builder is recorded and short-circuits
// every later call; Err and Build surface it. The caller should always test
// for error on Build because the argument vector will be nil when any
// chained call failed.
//
// Example:
//
//	argv, err := NewFluentBuilder(defs).
//	    Command("backup").
//	    ParamValue("repo", "/srv/repo").
//	    ParamValues("tag", "nightly", "home").
//	    Param("verbose").
//	    Build()
type FluentBuilder struct {
	*CommandBuilder
	err error
}

// NewFluentBuilder returns a chainable builder rooted at the given
// definition.
func NewFluentBuilder(root *CommandDefinition) *FluentBuilder {
	return &FluentBuilder{CommandBuilder: NewCommandBuilder(root)}
}

// Command descends into a subcommand. See CommandBuilder.Command.
func (f *FluentBuilder) Command(name string) *FluentBuilder {
	if f.err == nil {
		f.err = f.CommandBuilder.Command(name)
	}

	return f
}

// Param binds a parameter without a value. See CommandBuilder.Param.
func (f *FluentBuilder) Param(name string) *FluentBuilder {
	if f.err == nil {
		f.err = f.CommandBuilder.Param(name)
	}

	return f
}

// ParamValue binds a single value. See CommandBuilder.ParamValue.
func (f *FluentBuilder) ParamValue(name, value string) *FluentBuilder {
	if f.err == nil {
		f.err = f.CommandBuilder.ParamValue(name, value)
	}

	return f
}

// ParamValues binds a list of values. See CommandBuilder.ParamValues.
func (f *FluentBuilder) ParamValues(name string, values ...string) *FluentBuilder {
	if f.err == nil {
		f.err = f.CommandBuilder.ParamValues(name, values...)
	}

	return f
}

// ParamFunc binds a deferred value. See CommandBuilder.ParamFunc.
func (f *FluentBuilder) ParamFunc(name string, fn func() string) *FluentBuilder {
	if f.err == nil {
		f.err = f.CommandBuilder.ParamFunc(name, fn)
	}

	return f
}

// Err returns the first error recorded by a chained call, or nil.
func (f *FluentBuilder) Err() error {
	return f.err
}

// Build surfaces the first chained error, or renders the accumulated
// session. See CommandBuilder.Build.
func (f *FluentBuilder) Build(opts ...BuildOption) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.CommandBuilder.Build(opts...)
}

// Clear resets the underlying builder and discards the recorded error.
func (f *FluentBuilder) Clear() *FluentBuilder {
	f.CommandBuilder.Clear()
	f.err = nil

	return f
}
