// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package packaging installs, inspects and removes Debian packages on the
// local host by running the system package tools.
package packaging

import (
	"github.com/juju/utils/v4/exec"
)

// Result holds the outcome of a package tool invocation.
type Result struct {
	Code   int
	Stdout string
	Stderr string
}

// Succeeded returns whether the tool exited cleanly.
func (r Result) Succeeded() bool {
	return r.Code == 0
}

// PackageManager is the set of package operations the charm needs.
// Install and Remove report a failing tool through Result.Code; an error
// means the tool could not be run at all.
type PackageManager interface {
	// Inspect returns the name recorded in the package metadata of the
	// archive at path. It returns an error satisfying errors.NotFound if
	// the metadata holds no name.
	Inspect(path string) (string, error)

	// Install installs the archive at path, passing the MDM addresses
	// through to the package maintainer scripts.
	Install(path string, mdmIPs string) (Result, error)

	// Remove removes the named package.
	Remove(name string) (Result, error)
}

// CommandRunner allows to run commands on the underlying system.
type CommandRunner interface {
	RunCommands(run exec.RunParams) (*exec.ExecResponse, error)
}

type defaultRunner struct{}

func (defaultRunner) RunCommands(run exec.RunParams) (*exec.ExecResponse, error) {
	return exec.RunCommands(run)
}

// DefaultRunner runs commands with bash on the local host.
var DefaultRunner CommandRunner = defaultRunner{}
