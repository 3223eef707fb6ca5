// Package cli implements the gatectl operator commands. Each command returns
// a process exit code and writes to the supplied streams.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Streams bundles the standard streams used by a command.
type Streams struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

func (s Streams) withDefaults() Streams {
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Stderr == nil {
		s.Stderr = os.Stderr
	}
	if s.Stdin == nil {
		s.Stdin = os.Stdin
	}
	return s
}

func (s Streams) fail(command string, err error) int {
	fmt.Fprintf(s.Stderr, "%s: %v\n", command, err)
	return 1
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
