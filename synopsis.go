package restix

import "strings"

// SynopsisParam is the parsed form of a synopsis token declared on a
// CommandDefinition. A token wrapped in square brackets ("[dir]") is
// optional, a trailing ellipsis ("dir...") marks it variadic, and the
// stripped remainder is the key supplied values are looked up under.
type SynopsisParam struct {
	Raw      string
	Key      string
	Optional bool
	Variadic bool
}

// parseSynopsisParam decodes a single synopsis token. Brackets and ellipsis
// only affect Optional/Variadic; whitespace around the token is ignored.
func parseSynopsisParam(token string) SynopsisParam {
	param := SynopsisParam{Raw: token}

	key := strings.TrimSpace(token)
	if strings.HasPrefix(key, "[") && strings.HasSuffix(key, "]") {
		param.Optional = true
		key = key[1 : len(key)-1]
		key = strings.TrimSpace(key)
	}
	if strings.HasSuffix(key, "...") {
		param.Variadic = true
		key = strings.TrimSuffix(key, "...")
		key = strings.TrimSpace(key)
	}
	param.Key = key

	return param
}

// Synopsis parses every declared synopsis token in declaration order.
func (c *CommandDefinition) Synopsis() []SynopsisParam {
	if len(c.SynopsisParams) == 0 {
		return nil
	}

	params := make([]SynopsisParam, 0, len(c.SynopsisParams))
	for _, token := range c.SynopsisParams {
		params = append(params, parseSynopsisParam(token))
	}

	return params
}
