package command

import (
	"slices"
	"strconv"
	"strings"
)

// Invocation is one launch of the search binary: a program path and its
// discrete argument list. It is built fresh per instance per run and is
// never modified afterwards.
type Invocation struct {
	Program string   `json:"program"`
	Args    []string `json:"args"`
}

// Argv returns a copy of the program followed by its arguments.
func (inv Invocation) Argv() []string {
	argv := make([]string, 0, len(inv.Args)+1)
	argv = append(argv, inv.Program)
	return append(argv, inv.Args...)
}

// Equal reports whether two invocations are byte-identical.
func (inv Invocation) Equal(other Invocation) bool {
	return inv.Program == other.Program && slices.Equal(inv.Args, other.Args)
}

// String returns the command as a single line for display and logging.
// It is not meant to be parsed by a shell; arguments that would be
// ambiguous when joined are quoted.
func (inv Invocation) String() string {
	var sb strings.Builder
	for i, arg := range inv.Argv() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(displayArg(arg))
	}
	return sb.String()
}

func displayArg(arg string) string {
	if arg == "" || strings.ContainsAny(arg, " \t\r\n\"'\\") {
		return strconv.Quote(arg)
	}
	return arg
}
