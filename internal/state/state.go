// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package state holds the install state of the SDC package, which
// survives between hook invocations.
package state

import (
	"fmt"
)

// Kind enumerates the outcomes recorded for the SDC package.
type Kind string

const (
	// Uninstalled indicates that no install has been attempted, or that
	// the package has been removed again.
	Uninstalled Kind = "uninstalled"

	// Installed indicates that the last install attempt succeeded.
	Installed Kind = "installed"

	// Failed indicates that the last install attempt failed.
	Failed Kind = "failed"
)

// InstallState is the recorded outcome of the last install or removal.
// The zero value is the uninstalled state. Values are immutable; the
// transition methods return new values.
type InstallState struct {
	kind        Kind
	packageName string
}

// New returns the initial, uninstalled state.
func New() InstallState {
	return InstallState{kind: Uninstalled}
}

// Kind returns the kind of the state.
func (s InstallState) Kind() Kind {
	if s.kind == "" {
		return Uninstalled
	}
	return s.kind
}

// Installed returns whether the last install attempt succeeded.
func (s InstallState) Installed() bool {
	return s.Kind() == Installed
}

// InstallFailed returns whether the last install attempt failed.
func (s InstallState) InstallFailed() bool {
	return s.Kind() == Failed
}

// PackageName returns the name of the installed package, if known.
func (s InstallState) PackageName() string {
	return s.packageName
}

// InstallSucceeded records a successful install of the named package.
// The name may be empty when the package metadata could not be read.
func (s InstallState) InstallSucceeded(packageName string) InstallState {
	return InstallState{kind: Installed, packageName: packageName}
}

// InstallAttemptFailed records a failed install. A previously recorded
// package name is kept.
func (s InstallState) InstallAttemptFailed() InstallState {
	return InstallState{kind: Failed, packageName: s.packageName}
}

// Removed records that the package is gone.
func (s InstallState) Removed() InstallState {
	return New()
}

// String implements fmt.Stringer.
func (s InstallState) String() string {
	if s.packageName == "" {
		return string(s.Kind())
	}
	return fmt.Sprintf("%s (%s)", s.Kind(), s.packageName)
}
