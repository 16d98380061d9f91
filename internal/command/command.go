// Package command turns build options into an MSBuild command line.
package command

import (
	"strings"
)

// Command is an executable plus its ordered argument list.
type Command struct {
	Executable string
	Args       []string
}

// Argv returns the command as a single argv slice.
func (c Command) Argv() []string {
	return append([]string{c.Executable}, c.Args...)
}

// String renders the command for humans. Tokens containing whitespace
// are double-quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range c.Argv() {
		if p == "" || strings.ContainsAny(p, " \t") {
			p = `"` + p + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}
