// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package charm implements the install and removal of the PowerFlex SDC
// on a Nova compute host in response to the unit's lifecycle hooks.
package charm

import (
	"context"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/canonical/nova-compute-powerflex/core/status"
	"github.com/canonical/nova-compute-powerflex/internal/config"
	"github.com/canonical/nova-compute-powerflex/internal/metrics"
	"github.com/canonical/nova-compute-powerflex/internal/packaging"
	"github.com/canonical/nova-compute-powerflex/internal/state"
)

var logger = loggo.GetLogger("powerflex.charm")

// Hooks handled by the charm.
const (
	Install       = "install"
	Remove        = "remove"
	ConfigChanged = "config-changed"
	UpgradeCharm  = "upgrade-charm"
	UpdateStatus  = "update-status"
	Start         = "start"
	Stop          = "stop"
)

// KnownHooks holds the hooks the charm acts on.
var KnownHooks = set.NewStrings(Install, Remove, ConfigChanged, UpgradeCharm, UpdateStatus, Start, Stop)

// ConfigGetter returns the raw charm config.
type ConfigGetter interface {
	Config() (map[string]interface{}, error)
}

// ResourceFetcher returns the local path of a charm resource.
type ResourceFetcher interface {
	FetchResource(name string) (string, error)
}

// ServiceManager probes and restarts host services.
type ServiceManager interface {
	IsRunning(ctx context.Context, name string) (bool, error)
	Restart(ctx context.Context, name string) error
}

// StateStore persists the install state between hooks.
type StateStore interface {
	Read() (state.InstallState, error)
	Write(state.InstallState) error
}

// Config holds the dependencies of a Machine.
type Config struct {
	Charm         ConfigGetter
	Resources     ResourceFetcher
	Packages      packaging.PackageManager
	Services      ServiceManager
	Status        status.StatusSetter
	State         StateStore
	Metrics       metrics.Recorder
	ConnectorPath string
	RestartMap    RestartMap
}

// Validate returns an error if the config cannot be used to create a
// Machine.
func (c Config) Validate() error {
	if c.Charm == nil {
		return errors.NotValidf("nil Charm")
	}
	if c.Resources == nil {
		return errors.NotValidf("nil Resources")
	}
	if c.Packages == nil {
		return errors.NotValidf("nil Packages")
	}
	if c.Services == nil {
		return errors.NotValidf("nil Services")
	}
	if c.Status == nil {
		return errors.NotValidf("nil Status")
	}
	if c.State == nil {
		return errors.NotValidf("nil State")
	}
	if c.ConnectorPath == "" {
		return errors.NotValidf("empty ConnectorPath")
	}
	return nil
}

// Machine drives the SDC install state through the unit's lifecycle.
// Handlers must not be called concurrently.
type Machine struct {
	cfg Config
}

// NewMachine returns a Machine for the given config.
func NewMachine(cfg Config) (*Machine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Nop{}
	}
	if cfg.RestartMap == nil {
		cfg.RestartMap = DefaultRestartMap(cfg.ConnectorPath)
	}
	return &Machine{cfg: cfg}, nil
}

// Dispatch runs the handler for the named hook.
func (m *Machine) Dispatch(ctx context.Context, hook string) error {
	logger.Debugf("dispatching %q hook", hook)
	switch hook {
	case Install:
		return m.OnInstall(ctx)
	case Remove:
		return m.OnRemove(ctx)
	case ConfigChanged, UpgradeCharm:
		return m.OnConfigChanged(ctx)
	case Stop:
		return nil
	case UpdateStatus, Start:
	default:
		logger.Debugf("no handler for %q hook, updating status", hook)
	}
	return m.OnUpdateStatus(ctx)
}

func (m *Machine) readConfig() (config.Config, error) {
	attrs, err := m.cfg.Charm.Config()
	if err != nil {
		return config.Config{}, errors.Annotate(err, "reading charm config")
	}
	cfg, err := config.Parse(attrs)
	return cfg, errors.Trace(err)
}

// setStatus reports an intermediate status. Failing to do so does not
// stop the handler.
func (m *Machine) setStatus(info status.StatusInfo) {
	if err := m.cfg.Status.SetStatus(info); err != nil {
		logger.Warningf("cannot set status %q: %v", info, err)
	}
}
