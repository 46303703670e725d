package completion

import (
	"strings"
)

// escapeBash neutralizes characters the generated scripts would otherwise
// interpret. Both the bash and zsh generators embed descriptions in
// bracketed hints, so brackets are escaped too.
func escapeBash(desc string) string {
	desc = strings.ReplaceAll(desc, `"`, `\"`)
	desc = strings.ReplaceAll(desc, `'`, `\'`)
	desc = strings.ReplaceAll(desc, `$`, `\$`)
	desc = strings.ReplaceAll(desc, `[`, `\[`)
	desc = strings.ReplaceAll(desc, `]`, `\]`)
	return desc
}
