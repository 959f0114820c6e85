// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package cmd_test

import (
	"bytes"
	"io"

	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/nova-compute-powerflex/cmd"
)

// testCommand is used by several different tests.
type testCommand struct {
	option string
	args   []string
	ran    bool
}

func (c *testCommand) Info() *cmd.Info {
	return &cmd.Info{Name: "verb", Args: "<something>", Purpose: "verb the thing", Doc: "verb-doc"}
}

func (c *testCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.option, "option", "", "option-doc")
}

func (c *testCommand) Init(args []string) error {
	c.args = args
	if len(args) > 1 {
		return cmd.CheckEmpty(args[1:])
	}
	return nil
}

func (c *testCommand) Run(ctx *cmd.Context) error {
	c.ran = true
	if c.option == "error" {
		return errors.New("BAM!")
	}
	_, err := io.WriteString(ctx.Stdout, c.option)
	return err
}

type commandSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&commandSuite{})

func (s *commandSuite) context(c *gc.C) *cmd.Context {
	return &cmd.Context{Dir: c.MkDir(), Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}
}

func bufferString(w io.Writer) string {
	return w.(*bytes.Buffer).String()
}

func (s *commandSuite) TestMainRuns(c *gc.C) {
	ctx := s.context(c)
	command := &testCommand{}
	code := cmd.Main(command, ctx, []string{"thing", "--option", "hello"})
	c.Assert(code, gc.Equals, cmd.ExitOK)
	c.Check(command.args, jc.DeepEquals, []string{"thing"})
	c.Check(bufferString(ctx.Stdout), gc.Equals, "hello")
}

func (s *commandSuite) TestMainRunError(c *gc.C) {
	ctx := s.context(c)
	code := cmd.Main(&testCommand{}, ctx, []string{"--option", "error"})
	c.Assert(code, gc.Equals, cmd.ExitError)
	c.Check(bufferString(ctx.Stderr), gc.Equals, "ERROR BAM!\n")
}

func (s *commandSuite) TestMainInitError(c *gc.C) {
	ctx := s.context(c)
	command := &testCommand{}
	code := cmd.Main(command, ctx, []string{"a", "b"})
	c.Assert(code, gc.Equals, cmd.ExitUsage)
	c.Check(command.ran, jc.IsFalse)
	c.Check(bufferString(ctx.Stderr), gc.Equals, "ERROR unrecognised args: [b]\n")
}

func (s *commandSuite) TestPrintUsage(c *gc.C) {
	var buf bytes.Buffer
	cmd.PrintUsage(&testCommand{}, &buf)
	c.Check(buf.String(), gc.Matches, `(?s)Usage: verb <something>\n\nSummary:\nverb the thing\n\nOptions:\n.*--option.*option-doc.*\nDetails:\nverb-doc\n`)
}

func (s *commandSuite) TestAbsPath(c *gc.C) {
	ctx := &cmd.Context{Dir: "/var/lib/juju"}
	c.Check(ctx.AbsPath("state.yaml"), gc.Equals, "/var/lib/juju/state.yaml")
	c.Check(ctx.AbsPath("/etc/state.yaml"), gc.Equals, "/etc/state.yaml")
}
