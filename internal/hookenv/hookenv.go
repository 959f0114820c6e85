// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package hookenv talks to the unit agent through the hook tools it puts
// on the PATH of a running hook.
package hookenv

import (
	"os"
	"path"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/names/v5"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/canonical/nova-compute-powerflex/core/status"
)

var logger = loggo.GetLogger("powerflex.hookenv")

const (
	EnvDispatchPath = "JUJU_DISPATCH_PATH"
	EnvHookName     = "JUJU_HOOK_NAME"
	EnvUnitName     = "JUJU_UNIT_NAME"
	EnvCharmDir     = "JUJU_CHARM_DIR"
)

// CommandRunner allows to run commands on the underlying system.
type CommandRunner interface {
	RunCommands(run exec.RunParams) (*exec.ExecResponse, error)
}

type defaultRunner struct{}

func (defaultRunner) RunCommands(run exec.RunParams) (*exec.ExecResponse, error) {
	return exec.RunCommands(run)
}

// Context describes the hook being run.
type Context struct {
	HookName string
	UnitTag  names.UnitTag
	CharmDir string
}

// ContextFromEnv reads the hook context set up by the unit agent.
// getenv is usually os.Getenv.
func ContextFromEnv(getenv func(string) string) (Context, error) {
	hookName := getenv(EnvHookName)
	if dispatch := getenv(EnvDispatchPath); dispatch != "" {
		hookName = path.Base(dispatch)
	}
	if hookName == "" {
		return Context{}, errors.NotFoundf("%s", EnvDispatchPath)
	}

	unitName := getenv(EnvUnitName)
	if !names.IsValidUnit(unitName) {
		return Context{}, errors.NotValidf("unit name %q", unitName)
	}

	charmDir := getenv(EnvCharmDir)
	if charmDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Context{}, errors.Trace(err)
		}
		charmDir = wd
	}
	return Context{
		HookName: hookName,
		UnitTag:  names.NewUnitTag(unitName),
		CharmDir: charmDir,
	}, nil
}

// Tools runs the hook tools.
type Tools struct {
	runner CommandRunner
}

// NewTools returns Tools using runner, or bash on the local host when
// runner is nil.
func NewTools(runner CommandRunner) *Tools {
	if runner == nil {
		runner = defaultRunner{}
	}
	return &Tools{runner: runner}
}

func (t *Tools) run(args ...string) (string, error) {
	command := shellquote.Join(args...)
	resp, err := t.runner.RunCommands(exec.RunParams{Commands: command})
	if err != nil {
		return "", errors.Annotatef(err, "running %s", args[0])
	}
	if resp.Code != 0 {
		return "", errors.Errorf("%s exited %d: %s", args[0], resp.Code, strings.TrimSpace(string(resp.Stderr)))
	}
	return string(resp.Stdout), nil
}

// Config returns the charm config as reported by config-get.
func (t *Tools) Config() (map[string]interface{}, error) {
	out, err := t.run("config-get", "--format=yaml")
	if err != nil {
		return nil, errors.Trace(err)
	}
	attrs := make(map[string]interface{})
	if err := yaml.Unmarshal([]byte(out), &attrs); err != nil {
		return nil, errors.Annotate(err, "parsing config-get output")
	}
	return attrs, nil
}

// FetchResource returns the path of the named resource as reported by
// resource-get.
func (t *Tools) FetchResource(name string) (string, error) {
	out, err := t.run("resource-get", name)
	if err != nil {
		return "", errors.Annotatef(err, "fetching resource %q", name)
	}
	resourcePath := strings.TrimSpace(out)
	if resourcePath == "" {
		return "", errors.NotFoundf("resource %q", name)
	}
	return resourcePath, nil
}

// SetStatus implements status.StatusSetter with status-set.
func (t *Tools) SetStatus(info status.StatusInfo) error {
	if !status.ValidWorkloadStatus(info.Status) {
		return errors.NotValidf("workload status %q", info.Status)
	}
	logger.Debugf("setting status %s", info)
	args := []string{"status-set", info.Status.String()}
	if info.Message != "" {
		args = append(args, info.Message)
	}
	_, err := t.run(args...)
	return errors.Trace(err)
}
