// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"
	"fmt"

	"github.com/juju/errors"

	"github.com/canonical/nova-compute-powerflex/core/status"
	"github.com/canonical/nova-compute-powerflex/internal/config"
	"github.com/canonical/nova-compute-powerflex/internal/connector"
	"github.com/canonical/nova-compute-powerflex/internal/metrics"
	"github.com/canonical/nova-compute-powerflex/internal/service"
	"github.com/canonical/nova-compute-powerflex/internal/state"
)

// ResourceAvailability records whether the SDC package resource can be
// used.
type ResourceAvailability bool

const (
	ResourceAvailable ResourceAvailability = true
	ResourceMissing   ResourceAvailability = false
)

// ResourceStatus reports whether the sdc-deb-package resource has been
// provided.
func ResourceStatus(res ResourceAvailability) status.StatusInfo {
	if res == ResourceAvailable {
		return status.NewActive("")
	}
	return status.NewBlocked(status.MessageResourceMissing)
}

// InstallStatus reports the outcome of the last SDC package install.
func InstallStatus(st state.InstallState) status.StatusInfo {
	switch {
	case st.Installed():
		return status.NewActive("")
	case st.InstallFailed():
		return status.NewBlocked(status.MessageInstallFailed)
	default:
		return status.NewBlocked(status.MessageNotInstalled)
	}
}

// ConfigStatus reports charm config which stops the connector file from
// being rendered, or the package from being installed.
func ConfigStatus(cfg config.Config, st state.InstallState) status.StatusInfo {
	if _, err := connector.Build(cfg); err != nil {
		return status.NewBlocked(fmt.Sprintf("invalid %s: %v", config.ReplicationConfigKey, err))
	}
	if !st.Installed() {
		if len(cfg.MDMAddresses()) == 0 {
			return status.NewBlocked(status.MessageMissingMDMAddress)
		}
		if err := cfg.ValidateForInstall(); err != nil {
			return status.NewBlocked(fmt.Sprintf("invalid charm config: %v", err))
		}
	}
	return status.NewActive("")
}

// DeriveStatus returns the unit status for the given install state and
// resource availability.
func DeriveStatus(st state.InstallState, res ResourceAvailability) status.StatusInfo {
	return status.Aggregate(ResourceStatus(res), InstallStatus(st))
}

// Status computes the unit status from the current charm config, resource
// and install state.
func (m *Machine) Status() (status.StatusInfo, error) {
	cfg, err := m.readConfig()
	if err != nil {
		return status.StatusInfo{}, errors.Trace(err)
	}
	st, err := m.cfg.State.Read()
	if err != nil {
		return status.StatusInfo{}, errors.Trace(err)
	}
	_, resErr := m.resolveResource()
	return m.status(cfg, st, availability(resErr)), nil
}

// status checks the resource first, then the config and finally the
// install state. A missing resource is reported even when the config is
// also incomplete.
func (m *Machine) status(cfg config.Config, st state.InstallState, res ResourceAvailability) status.StatusInfo {
	return status.Aggregate(ResourceStatus(res), ConfigStatus(cfg, st), InstallStatus(st))
}

// OnUpdateStatus recomputes and reports the unit status.
func (m *Machine) OnUpdateStatus(ctx context.Context) error {
	return errors.Trace(m.updateStatus(ctx, nil))
}

// updateStatus publishes the unit status and records metrics. exitCode is
// the exit code of an install run by the current hook, if any.
func (m *Machine) updateStatus(ctx context.Context, exitCode *int) error {
	cfg, err := m.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	st, err := m.cfg.State.Read()
	if err != nil {
		return errors.Trace(err)
	}
	_, resErr := m.resolveResource()
	res := availability(resErr)

	info := m.status(cfg, st, res)
	logger.Infof("unit status: %s", info)
	if err := m.cfg.Status.SetStatus(info); err != nil {
		return errors.Annotate(err, "setting unit status")
	}

	sample := metrics.Sample{
		Installed:           st.Installed(),
		InstallFailed:       st.InstallFailed(),
		ResourceAvailable:   bool(res),
		HookInstallExitCode: exitCode,
	}
	if st.Installed() {
		sample.ServiceRunning = m.serviceRunning(ctx, service.SDCService)
	}
	if err := m.cfg.Metrics.Record(sample); err != nil {
		logger.Warningf("cannot record metrics: %v", err)
	}
	return nil
}

func availability(err error) ResourceAvailability {
	if err != nil {
		return ResourceMissing
	}
	return ResourceAvailable
}

// serviceRunning probes the named service. The probe is a signal only;
// errors are logged and count as not running.
func (m *Machine) serviceRunning(ctx context.Context, name string) bool {
	running, err := m.cfg.Services.IsRunning(ctx, name)
	if err != nil {
		logger.Errorf("cannot query service %q: %v", name, err)
		return false
	}
	return running
}
