// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package packaging

import (
	"regexp"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/utils/v4/exec"
	"github.com/kballard/go-shellquote"
)

var logger = loggo.GetLogger("powerflex.packaging")

// packageFieldRE matches the package name in the dpkg --info output.
var packageFieldRE = regexp.MustCompile(`(?m)^\s*Package:\s+(.+?)$`)

// MDMEnvVar carries the MDM addresses to the SDC maintainer scripts.
const MDMEnvVar = "MDM_IP"

// aptGetRemoveCommand won't block waiting for a prompt from the user.
var aptGetRemoveCommand = []string{
	"apt-get", "--option=Dpkg::Options::=--force-confold", "--assume-yes", "--quiet", "remove",
}

// aptGetEnvOptions are options we need to pass to apt-get to not have it
// prompt the user.
var aptGetEnvOptions = []string{"DEBIAN_FRONTEND=noninteractive"}

// Dpkg manages local Debian archives with dpkg and apt-get. Commands that
// change the system are run through sudo.
type Dpkg struct {
	runner CommandRunner
}

var _ PackageManager = (*Dpkg)(nil)

// NewDpkg returns a Dpkg using the given runner.
func NewDpkg(runner CommandRunner) *Dpkg {
	if runner == nil {
		runner = DefaultRunner
	}
	return &Dpkg{runner: runner}
}

// Inspect implements PackageManager.
func (d *Dpkg) Inspect(path string) (string, error) {
	result, err := d.run("dpkg", "--info", path)
	if err != nil {
		return "", errors.Trace(err)
	}
	if !result.Succeeded() {
		return "", errors.Errorf("dpkg --info %q exited %d: %s", path, result.Code, result.Stderr)
	}
	return ParsePackageName(result.Stdout)
}

// Install implements PackageManager.
func (d *Dpkg) Install(path string, mdmIPs string) (Result, error) {
	logger.Infof("installing %q with MDM(s) %s", path, mdmIPs)
	result, err := d.run("sudo", MDMEnvVar+"="+mdmIPs, "dpkg", "-i", path)
	if err != nil {
		return Result{}, errors.Annotatef(err, "running dpkg -i %q", path)
	}
	return result, nil
}

// Remove implements PackageManager.
func (d *Dpkg) Remove(name string) (Result, error) {
	logger.Infof("removing package %q", name)
	args := append([]string{"sudo"}, aptGetEnvOptions...)
	args = append(args, aptGetRemoveCommand...)
	args = append(args, name)
	result, err := d.run(args...)
	if err != nil {
		return Result{}, errors.Annotatef(err, "running apt-get remove %q", name)
	}
	return result, nil
}

func (d *Dpkg) run(args ...string) (Result, error) {
	command := shellquote.Join(args...)
	logger.Debugf("running: %s", command)
	resp, err := d.runner.RunCommands(exec.RunParams{
		Commands: command,
	})
	if err != nil {
		return Result{}, errors.Trace(err)
	}
	result := Result{
		Code:   resp.Code,
		Stdout: string(resp.Stdout),
		Stderr: string(resp.Stderr),
	}
	logger.Tracef("%s exited %d, stdout: %s", command, result.Code, result.Stdout)
	return result, nil
}

// ParsePackageName returns the value of the first Package field found in
// dpkg --info output.
func ParsePackageName(info string) (string, error) {
	match := packageFieldRE.FindStringSubmatch(info)
	if match == nil {
		return "", errors.NotFoundf("package name")
	}
	return match[1], nil
}
