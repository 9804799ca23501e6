package orcconfig

import (
	"os"

	charmterm "github.com/charmbracelet/x/term"
	"golang.org/x/term"
)

// IsInteractive reports whether stdout is attached to a real terminal,
// for a front-end deciding whether to print progress output or stay
// quiet for log-file/pipe redirection; cmd/orc does not call it. Two independent terminal
// detectors are consulted - golang.org/x/term's descriptor-based check
// and charmbracelet/x/term's (which additionally understands Windows
// ConPTY and CI environments) - and both must agree the stream is a
// terminal, the more conservative of the two answers.
func IsInteractive() bool {
	fd := os.Stdout.Fd()
	return term.IsTerminal(int(fd)) && charmterm.IsTerminal(fd)
}
