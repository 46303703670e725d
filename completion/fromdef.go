package completion

import (
	"github.com/napalu/restix"
)

// FromDefinition flattens a definition tree into completion data. Root
// parameters become global flags, subcommands contribute their own flags
// under their space-joined path, and positional (synopsis) parameters are
// left to the shell's file completion.
func FromDefinition(root *restix.CommandDefinition) CompletionData {
	data := CompletionData{
		CommandFlags:        make(map[string][]string),
		Descriptions:        make(map[string]string),
		CommandDescriptions: make(map[string]string),
		FlagValues:          make(map[string][]CompletionValue),
	}

	for kv := root.Parameters.Front(); kv != nil; kv = kv.Next() {
		token, ok := flagToken(kv.Value)
		if !ok {
			continue
		}
		data.Flags = append(data.Flags, token)
		if kv.Value.Description != "" {
			data.Descriptions[token] = kv.Value.Description
		}
	}

	var walk func(def *restix.CommandDefinition, path string)
	walk = func(def *restix.CommandDefinition, path string) {
		for kv := def.Subcommands.Front(); kv != nil; kv = kv.Next() {
			sub := kv.Value
			subPath := sub.Name
			if path != "" {
				subPath = path + " " + sub.Name
			}
			data.Commands = append(data.Commands, subPath)
			data.CommandDescriptions[subPath] = sub.Description

			for pkv := sub.Parameters.Front(); pkv != nil; pkv = pkv.Next() {
				token, ok := flagToken(pkv.Value)
				if !ok {
					continue
				}
				data.CommandFlags[subPath] = append(data.CommandFlags[subPath], token)
				if pkv.Value.Description != "" {
					data.Descriptions[subPath+"@"+token] = pkv.Value.Description
				}
			}

			walk(sub, subPath)
		}
	}
	walk(root, "")

	return data
}

// flagToken renders the token a user types for the parameter's long form.
// Positional parameters have no typed token.
func flagToken(param *restix.CommandParameter) (string, bool) {
	if param.Style == restix.Positional {
		return "", false
	}

	prefix := param.Prefix
	if param.Style == restix.SingleDash {
		prefix = "-"
	}
	if prefix == "" {
		prefix = restix.DefaultPrefix
	}

	return prefix + param.Name, true
}
