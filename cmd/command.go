// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package cmd holds the small command framework shared by the binaries.
package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("powerflex.cmd")

// Exit codes returned by Main.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// Info holds everything necessary to describe a Command's intent and usage.
type Info struct {
	// Name is the Command's name.
	Name string

	// Args describes the command's expected arguments.
	Args string

	// Purpose is a short explanation of the Command's purpose.
	Purpose string

	// Doc is the long documentation for the Command.
	Doc string
}

// Usage combines Name and Args to describe the Command's intended usage.
func (i *Info) Usage() string {
	if i.Args == "" {
		return i.Name
	}
	return fmt.Sprintf("%s %s", i.Name, i.Args)
}

// Context holds the environment a Command runs in.
type Context struct {
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	Getenv func(string) string
}

// DefaultContext returns a Context for the current process.
func DefaultContext() (*Context, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, errors.Trace(err)
	}
	return &Context{
		Dir:    dir,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Getenv: os.Getenv,
	}, nil
}

// AbsPath returns an absolute representation of path, relative to the
// context's directory.
func (ctx *Context) AbsPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ctx.Dir, path)
}

// Command is implemented by the binaries' entry points.
type Command interface {
	// Info returns information about the command.
	Info() *Info

	// SetFlags adds the command's flags to f.
	SetFlags(f *gnuflag.FlagSet)

	// Init is called with the positional arguments once flags are
	// parsed.
	Init(args []string) error

	// Run executes the command.
	Run(ctx *Context) error
}

// NewFlagSet returns a FlagSet initialized for use with c.
func NewFlagSet(c Command, stderr io.Writer) *gnuflag.FlagSet {
	f := gnuflag.NewFlagSet(c.Info().Name, gnuflag.ContinueOnError)
	f.SetOutput(stderr)
	f.Usage = func() { PrintUsage(c, stderr) }
	c.SetFlags(f)
	return f
}

// PrintUsage prints usage information for c to w.
func PrintUsage(c Command, w io.Writer) {
	i := c.Info()
	fmt.Fprintf(w, "Usage: %s\n", i.Usage())
	fmt.Fprintf(w, "\nSummary:\n%s\n", i.Purpose)
	fmt.Fprintf(w, "\nOptions:\n")
	f := gnuflag.NewFlagSet(i.Name, gnuflag.ContinueOnError)
	f.SetOutput(w)
	c.SetFlags(f)
	f.PrintDefaults()
	if i.Doc != "" {
		fmt.Fprintf(w, "\nDetails:\n%s\n", strings.TrimSpace(i.Doc))
	}
}

// Parse parses args on c. This must be called before c is Run.
func Parse(c Command, stderr io.Writer, args []string) error {
	f := NewFlagSet(c, stderr)
	if err := f.Parse(true, args); err != nil {
		return err
	}
	return c.Init(f.Args())
}

// CheckEmpty is a utility function that returns an error if args is not empty.
func CheckEmpty(args []string) error {
	if len(args) != 0 {
		return errors.Errorf("unrecognised args: %s", args)
	}
	return nil
}

// Main parses and runs c, returning the process exit code. args does not
// include the program name.
func Main(c Command, ctx *Context, args []string) int {
	if err := Parse(c, ctx.Stderr, args); err != nil {
		if err == gnuflag.ErrHelp {
			return ExitOK
		}
		fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		return ExitUsage
	}
	if err := c.Run(ctx); err != nil {
		logger.Debugf("%s command failed: %s", c.Info().Name, errors.ErrorStack(err))
		fmt.Fprintf(ctx.Stderr, "ERROR %v\n", err)
		return ExitError
	}
	return ExitOK
}
