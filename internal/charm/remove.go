// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"
	"strings"

	"github.com/canonical/nova-compute-powerflex/core/status"
	"github.com/canonical/nova-compute-powerflex/internal/connector"
	"github.com/canonical/nova-compute-powerflex/internal/state"
)

// OnRemove tears down the connector file and the SDC package. Teardown is
// best effort; failures are logged and never fail the hook.
func (m *Machine) OnRemove(ctx context.Context) error {
	m.setStatus(status.NewMaintenance(status.MessageRemovingSDC))

	if err := connector.Remove(m.cfg.ConnectorPath); err != nil {
		logger.Errorf("cannot remove connector file: %v", err)
	}

	st, err := m.cfg.State.Read()
	if err != nil {
		logger.Errorf("cannot read install state: %v", err)
		st = state.New()
	}
	if m.uninstall(st) {
		if err := m.cfg.State.Write(st.Removed()); err != nil {
			logger.Errorf("cannot save install state: %v", err)
		}
	}

	if err := m.updateStatus(ctx, nil); err != nil {
		logger.Errorf("cannot update status: %v", err)
	}
	return nil
}

// uninstall removes the SDC package if the state records it as installed.
// It reports whether the host is left without the package.
func (m *Machine) uninstall(st state.InstallState) bool {
	if !st.Installed() {
		logger.Debugf("SDC package not installed, nothing to remove")
		return true
	}
	name := st.PackageName()
	if name == "" {
		logger.Errorf("SDC package installed under an unknown name, cannot remove it")
		return false
	}
	logger.Infof("removing SDC package %q", name)
	res, err := m.cfg.Packages.Remove(name)
	if err != nil {
		logger.Errorf("cannot run removal of SDC package %q: %v", name, err)
		return false
	}
	if !res.Succeeded() {
		logger.Errorf("removal of SDC package %q exited %d: %s", name, res.Code, strings.TrimSpace(res.Stderr))
		return false
	}
	return true
}
