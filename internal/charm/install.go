// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"

	"github.com/canonical/nova-compute-powerflex/core/status"
	"github.com/canonical/nova-compute-powerflex/internal/config"
	"github.com/canonical/nova-compute-powerflex/internal/connector"
	"github.com/canonical/nova-compute-powerflex/internal/service"
)

const (
	// ResourceName is the charm resource holding the SDC Debian package.
	ResourceName = "sdc-deb-package"

	// ErrResourceMissing is returned when the SDC package resource has
	// not been provided, or is empty.
	ErrResourceMissing = errors.ConstError(status.MessageResourceMissing)
)

// ResolvePackage checks that path names a non-empty regular file.
func ResolvePackage(path string) (string, error) {
	if path == "" {
		return "", ErrResourceMissing
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return "", ErrResourceMissing
	} else if err != nil {
		return "", errors.Trace(err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return "", ErrResourceMissing
	}
	logger.Debugf("resource %q at %s (%s)", ResourceName, path, humanize.Bytes(uint64(info.Size())))
	return path, nil
}

// resolveResource fetches and checks the SDC package resource. A failure
// to fetch it counts as missing.
func (m *Machine) resolveResource() (string, error) {
	path, err := m.cfg.Resources.FetchResource(ResourceName)
	if err != nil {
		logger.Debugf("cannot fetch resource %q: %v", ResourceName, err)
		return "", ErrResourceMissing
	}
	return ResolvePackage(path)
}

// OnInstall writes the connector file and installs the SDC package.
func (m *Machine) OnInstall(ctx context.Context) error {
	cfg, err := m.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	if err := m.writeConnector(cfg); err != nil {
		return errors.Trace(err)
	}

	path, err := m.resolveResource()
	if errors.Is(err, ErrResourceMissing) {
		logger.Warningf("%s, not installing the SDC", ErrResourceMissing)
		return errors.Trace(m.updateStatus(ctx, nil))
	} else if err != nil {
		return errors.Trace(err)
	}

	if err := cfg.ValidateForInstall(); err != nil {
		logger.Warningf("not installing the SDC: %v", err)
		return errors.Trace(m.updateStatus(ctx, nil))
	}

	code, err := m.install(ctx, path, cfg)
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(m.updateStatus(ctx, &code))
}

// writeConnector renders the connector file from the charm config. On
// failure the unit is blocked and the error returned.
func (m *Machine) writeConnector(cfg config.Config) (err error) {
	defer func() {
		if err != nil {
			m.setStatus(status.NewBlocked(err.Error()))
		}
	}()
	connCfg, err := connector.Build(cfg)
	if err != nil {
		return errors.Annotatef(err, "invalid %s", config.ReplicationConfigKey)
	}
	changed, err := connector.Write(m.cfg.ConnectorPath, connCfg)
	if err != nil {
		return errors.Annotate(err, "writing connector file")
	}
	if changed {
		logger.Infof("wrote connector file %s", m.cfg.ConnectorPath)
	}
	return nil
}

// install runs the package install and persists the resulting state. It
// returns the exit code of the install command.
func (m *Machine) install(ctx context.Context, path string, cfg config.Config) (int, error) {
	m.setStatus(status.NewMaintenance(status.MessageInstallingSDC))

	name, err := m.cfg.Packages.Inspect(path)
	if err != nil {
		logger.Warningf("cannot determine SDC package name: %v", err)
		name = ""
	}

	st, err := m.cfg.State.Read()
	if err != nil {
		return 0, errors.Trace(err)
	}

	ips := strings.Join(cfg.MDMAddresses(), ",")
	logger.Infof("installing SDC package %q with MDM addresses %s", name, ips)
	res, err := m.cfg.Packages.Install(path, ips)
	if err != nil {
		logger.Errorf("cannot run SDC package install: %v", err)
		res.Code = -1
	}

	if res.Succeeded() {
		if name == "" {
			// Keep the name recorded by an earlier install.
			name = st.PackageName()
		}
		st = st.InstallSucceeded(name)
	} else {
		logger.Errorf("SDC package install exited %d: %s", res.Code, strings.TrimSpace(res.Stderr))
		st = st.InstallAttemptFailed()
	}
	if err := m.cfg.State.Write(st); err != nil {
		return res.Code, errors.Annotatef(err, "saving install state %s", st)
	}

	if st.Installed() {
		m.probeSDC(ctx)
	}
	return res.Code, nil
}

func (m *Machine) probeSDC(ctx context.Context) {
	if m.serviceRunning(ctx, service.SDCService) {
		logger.Infof("%s service running", service.SDCService)
		return
	}
	logger.Errorf("%s service is not running after install", service.SDCService)
}
