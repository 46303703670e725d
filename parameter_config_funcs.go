package restix

// NewParameter convenience initialization method to configure CommandParameter
// descriptors. Descriptors default to the Separate style with a "--" prefix.
func NewParameter(name string, configs ...ConfigureParameterFunc) *CommandParameter {
	parameter := &CommandParameter{
		Name:   name,
		Style:  Separate,
		Prefix: DefaultPrefix,
	}
	for _, config := range configs {
		config(parameter, nil)
	}

	return parameter
}

// Set configures the CommandParameter instance with the provided ConfigureParameterFunc(s),
// and returns an error if a configuration results in an error.
//
// Usage example:
//
//	param := &CommandParameter{Name: "output"}
//	err := param.Set(
//	    WithStyle(Separate),
//	    SetValueRequired(true),
//	)
//	if err != nil {
//	    // handle error
//	}
func (p *CommandParameter) Set(configs ...ConfigureParameterFunc) error {
	var err error
	for _, config := range configs {
		config(p, &err)
		if err != nil {
			return err
		}
	}
	return nil
}

// WithStyle sets the rendering style used for the parameter's long form.
func WithStyle(style ParameterStyle) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.Style = style
	}
}

// WithPrefix overrides the flag prefix token. SingleDash parameters ignore the
// configured prefix and always render "-".
func WithPrefix(prefix string) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.Prefix = prefix
	}
}

// WithShortForm registers a short alias together with the style used to render
// it. Name and style always travel together - a parameter without a registered
// short form falls back to its long form when a build requests short rendering.
func WithShortForm(name string, style ParameterStyle) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.ShortName = name
		parameter.ShortStyle = style
	}
}

// SetValueRequired when true, binding the parameter without a value is
// rejected unless the style tolerates a bare flag (DoubleDash and SingleDash
// do).
func SetValueRequired(required bool) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.ValueRequired = required
	}
}

// SetRequired when true, the parameter is marked as mandatory in usage output.
func SetRequired(required bool) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.Required = required
	}
}

// WithDescription the description will be used in usage output presented to the user
func WithDescription(description string) ConfigureParameterFunc {
	return func(parameter *CommandParameter, err *error) {
		parameter.Description = description
	}
}
