// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package state

import (
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/utils/v4"
	"gopkg.in/yaml.v3"
)

// doc is the on-disk form of an InstallState.
type doc struct {
	Kind        Kind      `yaml:"kind"`
	PackageName string    `yaml:"package-name,omitempty"`
	Updated     time.Time `yaml:"updated,omitempty"`
}

// validate returns an error if the state violates expectations.
func (d doc) validate() (err error) {
	defer errors.DeferredAnnotatef(&err, "invalid install state")
	switch d.Kind {
	case Uninstalled:
		if d.PackageName != "" {
			return errors.Errorf("unexpected package name %q", d.PackageName)
		}
	case Installed, Failed:
	default:
		return errors.Errorf("unknown kind %q", d.Kind)
	}
	return nil
}

// File holds the install state on disk.
type File struct {
	path  string
	clock clock.Clock
}

// NewFile returns a new File using path.
func NewFile(path string, clk clock.Clock) *File {
	if clk == nil {
		clk = clock.WallClock
	}
	return &File{path: path, clock: clk}
}

// Path returns the location of the state file.
func (f *File) Path() string {
	return f.path
}

// Read reads the install state from the file. A missing file yields the
// initial state.
func (f *File) Read() (InstallState, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return New(), nil
	} else if err != nil {
		return InstallState{}, errors.Annotatef(err, "reading install state")
	}
	var d doc
	if err := yaml.Unmarshal(data, &d); err != nil {
		return InstallState{}, errors.Annotatef(err, "cannot read install state at %q", f.path)
	}
	if err := d.validate(); err != nil {
		return InstallState{}, errors.Annotatef(err, "cannot read install state at %q", f.path)
	}
	return InstallState{kind: d.Kind, packageName: d.PackageName}, nil
}

// Write stores the supplied state to the file.
func (f *File) Write(st InstallState) error {
	d := doc{
		Kind:        st.Kind(),
		PackageName: st.PackageName(),
		Updated:     f.clock.Now().UTC(),
	}
	if err := d.validate(); err != nil {
		return errors.Trace(err)
	}
	data, err := yaml.Marshal(d)
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(utils.AtomicWriteFile(f.path, data, 0600), "writing install state")
}
