// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Command powerflex-sdc is the dispatch binary of the PowerFlex SDC charm.
// It is run by the unit agent for every hook.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/gnuflag"
	"github.com/juju/loggo"
	"github.com/juju/lumberjack/v2"

	"github.com/canonical/nova-compute-powerflex/cmd"
	"github.com/canonical/nova-compute-powerflex/internal/charm"
	"github.com/canonical/nova-compute-powerflex/internal/connector"
	"github.com/canonical/nova-compute-powerflex/internal/hookenv"
	"github.com/canonical/nova-compute-powerflex/internal/hooklock"
	"github.com/canonical/nova-compute-powerflex/internal/metrics"
	"github.com/canonical/nova-compute-powerflex/internal/packaging"
	"github.com/canonical/nova-compute-powerflex/internal/service"
	"github.com/canonical/nova-compute-powerflex/internal/state"
)

var logger = loggo.GetLogger("powerflex.cmd.sdc")

// stateFileName is the install state file, kept in the charm directory.
const stateFileName = ".powerflex-sdc-state.yaml"

const (
	logFileWriter     = "logfile"
	logFileMaxSizeMB  = 10
	logFileMaxBackups = 2
)

const doc = `
powerflex-sdc handles the lifecycle hooks of the PowerFlex SDC charm. The
hook is taken from JUJU_DISPATCH_PATH, or JUJU_HOOK_NAME, unless --hook is
given.

On install the cinder connector file is written and the sdc-deb-package
resource is installed with the configured MDM addresses. On remove the
package and connector file are removed. Every other hook recomputes the
unit status.
`

type hookCommand struct {
	hook          string
	stateFile     string
	connectorPath string
	metricsDir    string
	logConfig     string
	logFile       string
	debug         bool

	clock      clock.Clock
	newMachine func(charm.Config) (*charm.Machine, error)
}

func newHookCommand() *hookCommand {
	return &hookCommand{
		clock:      clock.WallClock,
		newMachine: charm.NewMachine,
	}
}

// Info implements cmd.Command.
func (c *hookCommand) Info() *cmd.Info {
	return &cmd.Info{
		Name:    "powerflex-sdc",
		Purpose: "Run a PowerFlex SDC charm hook.",
		Doc:     doc,
	}
}

// SetFlags implements cmd.Command.
func (c *hookCommand) SetFlags(f *gnuflag.FlagSet) {
	f.StringVar(&c.hook, "hook", "", "hook to run, overriding the hook environment")
	f.StringVar(&c.stateFile, "state-file", "", "install state file (default <charm dir>/"+stateFileName+")")
	f.StringVar(&c.connectorPath, "connector-path", connector.DefaultPath, "cinder connector file")
	f.StringVar(&c.metricsDir, "metrics-dir", "", "node exporter textfile collector directory")
	f.StringVar(&c.logConfig, "log-config", "<root>=INFO", "logging configuration")
	f.StringVar(&c.logFile, "log-file", "", "also log to this rotated file")
	f.BoolVar(&c.debug, "debug", false, "log at DEBUG level")
}

// Init implements cmd.Command.
func (c *hookCommand) Init(args []string) error {
	if c.connectorPath == "" {
		return errors.NotValidf("empty --connector-path")
	}
	if c.hook != "" && !charm.KnownHooks.Contains(c.hook) {
		logger.Debugf("hook %q has no dedicated handler", c.hook)
	}
	return cmd.CheckEmpty(args)
}

// Run implements cmd.Command.
func (c *hookCommand) Run(ctx *cmd.Context) error {
	logConfig := c.logConfig
	if c.debug {
		logConfig = "<root>=DEBUG"
	}
	if err := loggo.ConfigureLoggers(logConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	if c.logFile != "" {
		closeLog, err := c.openLogFile(ctx)
		if err != nil {
			return errors.Trace(err)
		}
		defer closeLog()
	}

	hook, charmDir := c.hook, ctx.Dir
	hookCtx, err := hookenv.ContextFromEnv(ctx.Getenv)
	switch {
	case err == nil:
		if hook == "" {
			hook = hookCtx.HookName
		}
		charmDir = hookCtx.CharmDir
		logger.Infof("running %s hook for %s", hook, hookCtx.UnitTag.Id())
	case hook == "":
		return errors.Annotate(err, "reading hook context")
	default:
		logger.Debugf("running %s hook outside a hook context: %v", hook, err)
	}

	machine, err := c.machine(ctx, charmDir)
	if err != nil {
		return errors.Trace(err)
	}

	stdctx := context.Background()
	releaser, err := hooklock.Acquire(stdctx, hooklock.DefaultName, c.clock)
	if err != nil {
		return errors.Trace(err)
	}
	defer releaser.Release()

	return errors.Annotatef(machine.Dispatch(stdctx, hook), "%s hook", hook)
}

// openLogFile adds a rotating log file writer. The returned func removes
// it again.
func (c *hookCommand) openLogFile(ctx *cmd.Context) (func(), error) {
	ljLogger := &lumberjack.Logger{
		Filename:   ctx.AbsPath(c.logFile),
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		Compress:   true,
	}
	writer := loggo.NewSimpleWriter(ljLogger, loggo.DefaultFormatter)
	if err := loggo.RegisterWriter(logFileWriter, writer); err != nil {
		return nil, errors.Annotatef(err, "logging to %q", ljLogger.Filename)
	}
	logger.Debugf("created rotating log file %q with max size %d MB and max backups %d",
		ljLogger.Filename, ljLogger.MaxSize, ljLogger.MaxBackups)
	return func() {
		_, _ = loggo.RemoveWriter(logFileWriter)
		_ = ljLogger.Close()
	}, nil
}

func (c *hookCommand) machine(ctx *cmd.Context, charmDir string) (*charm.Machine, error) {
	stateFile := c.stateFile
	if stateFile == "" {
		stateFile = filepath.Join(charmDir, stateFileName)
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if c.metricsDir != "" {
		recorder = metrics.NewTextfileRecorder(ctx.AbsPath(c.metricsDir))
	}
	tools := hookenv.NewTools(nil)
	return c.newMachine(charm.Config{
		Charm:         tools,
		Resources:     tools,
		Packages:      packaging.NewDpkg(nil),
		Services:      service.NewSystemd(service.NewDBusAPI),
		Status:        tools,
		State:         state.NewFile(ctx.AbsPath(stateFile), c.clock),
		Metrics:       recorder,
		ConnectorPath: ctx.AbsPath(c.connectorPath),
	})
}

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(cmd.ExitError)
	}
	os.Exit(cmd.Main(newHookCommand(), ctx, os.Args[1:]))
}
