// Package segmenter runs the external segmentation executable.
package segmenter

import (
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultPath is the executable looked up relative to the working directory.
const DefaultPath = "./segmenter"

// Command is one segmenter invocation.
type Command struct {
	Path string
	Args []string
	Dir  string // working directory; empty means the caller's
}

// Flag renders a boolean as the "1"/"0" the segmenter expects.
func Flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// New builds the four positional arguments: feature file, annotated-beats
// flag, feature type and annotated-bounds flag. Arguments are passed as an
// argv vector, so paths need no escaping.
func New(path, featurePath string, annotBeats bool, feature string, annotBounds bool) Command {
	return Command{
		Path: path,
		Args: []string{featurePath, Flag(annotBeats), feature, Flag(annotBounds)},
	}
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Invoker runs a Command to completion.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) error
}

// Exec runs commands as child processes with inherited output streams.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Invoke blocks until the process exits. The returned error carries the
// exit status; whether it matters is up to the caller.
func (e Exec) Invoke(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	return cmd.Run()
}
