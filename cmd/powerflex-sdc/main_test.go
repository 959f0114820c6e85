// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/nova-compute-powerflex/cmd"
	"github.com/canonical/nova-compute-powerflex/internal/charm"
	"github.com/canonical/nova-compute-powerflex/internal/metrics"
	"github.com/canonical/nova-compute-powerflex/internal/state"
)

type mainSuite struct {
	testing.IsolationSuite

	charmDir string
	env      map[string]string
	stderr   *bytes.Buffer
}

var _ = gc.Suite(&mainSuite{})

func (s *mainSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.charmDir = c.MkDir()
	s.env = map[string]string{
		"JUJU_DISPATCH_PATH": "hooks/stop",
		"JUJU_UNIT_NAME":     "powerflex-sdc/0",
		"JUJU_CHARM_DIR":     s.charmDir,
	}
	s.stderr = &bytes.Buffer{}
}

func (s *mainSuite) context(c *gc.C) *cmd.Context {
	return &cmd.Context{
		Dir:    c.MkDir(),
		Stdout: &bytes.Buffer{},
		Stderr: s.stderr,
		Getenv: func(key string) string { return s.env[key] },
	}
}

func (s *mainSuite) TestStopHook(c *gc.C) {
	code := cmd.Main(newHookCommand(), s.context(c), []string{"--connector-path", filepath.Join(s.charmDir, "connector.conf")})
	c.Check(s.stderr.String(), gc.Equals, "")
	c.Assert(code, gc.Equals, cmd.ExitOK)
}

func (s *mainSuite) TestUnexpectedArgs(c *gc.C) {
	code := cmd.Main(newHookCommand(), s.context(c), []string{"install"})
	c.Assert(code, gc.Equals, cmd.ExitUsage)
	c.Check(s.stderr.String(), gc.Matches, `ERROR unrecognised args: \[install\]\n`)
}

func (s *mainSuite) TestNoHookContext(c *gc.C) {
	s.env = nil
	code := cmd.Main(newHookCommand(), s.context(c), nil)
	c.Assert(code, gc.Equals, cmd.ExitError)
	c.Check(s.stderr.String(), gc.Matches, `ERROR reading hook context: .*\n`)
}

func (s *mainSuite) TestMachineConfig(c *gc.C) {
	var captured charm.Config
	command := newHookCommand()
	command.newMachine = func(cfg charm.Config) (*charm.Machine, error) {
		captured = cfg
		return nil, errors.New("boom")
	}
	metricsDir := c.MkDir()

	code := cmd.Main(command, s.context(c), []string{
		"--connector-path", "/etc/connector.conf",
		"--metrics-dir", metricsDir,
	})
	c.Assert(code, gc.Equals, cmd.ExitError)
	c.Check(s.stderr.String(), gc.Equals, "ERROR boom\n")

	c.Check(captured.ConnectorPath, gc.Equals, "/etc/connector.conf")
	c.Check(captured.State.(*state.File).Path(), gc.Equals, filepath.Join(s.charmDir, stateFileName))
	recorder, ok := captured.Metrics.(*metrics.TextfileRecorder)
	c.Assert(ok, jc.IsTrue)
	c.Check(recorder.Path(), gc.Equals, filepath.Join(metricsDir, metrics.FileName))
}

func (s *mainSuite) TestHookFlagOutsideHookContext(c *gc.C) {
	s.env = nil
	var captured charm.Config
	command := newHookCommand()
	command.newMachine = func(cfg charm.Config) (*charm.Machine, error) {
		captured = cfg
		return nil, errors.New("boom")
	}
	ctx := s.context(c)

	code := cmd.Main(command, ctx, []string{"--hook", charm.UpdateStatus, "--state-file", "state.yaml"})
	c.Assert(code, gc.Equals, cmd.ExitError)
	c.Check(captured.State.(*state.File).Path(), gc.Equals, filepath.Join(ctx.Dir, "state.yaml"))
	c.Check(captured.Metrics, gc.Equals, metrics.Recorder(metrics.Nop{}))
}

func (s *mainSuite) TestLogFile(c *gc.C) {
	logFile := filepath.Join(c.MkDir(), "powerflex-sdc.log")
	code := cmd.Main(newHookCommand(), s.context(c), []string{
		"--connector-path", filepath.Join(s.charmDir, "connector.conf"),
		"--log-file", logFile,
	})
	c.Assert(code, gc.Equals, cmd.ExitOK)

	data, err := os.ReadFile(logFile)
	c.Assert(err, jc.ErrorIsNil)
	c.Check(string(data), jc.Contains, "running stop hook for powerflex-sdc/0")
}
