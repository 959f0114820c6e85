// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"context"

	"github.com/juju/errors"

	"github.com/canonical/nova-compute-powerflex/internal/config"
	"github.com/canonical/nova-compute-powerflex/internal/connector"
)

// OnConfigChanged rewrites the connector file and, if its content
// changed while the SDC is installed, restarts the services which read it.
func (m *Machine) OnConfigChanged(ctx context.Context) error {
	cfg, err := m.readConfig()
	if err != nil {
		return errors.Trace(err)
	}
	connCfg, err := connector.Build(cfg)
	if err != nil {
		err = errors.Annotatef(err, "invalid %s", config.ReplicationConfigKey)
		if statusErr := m.updateStatus(ctx, nil); statusErr != nil {
			logger.Errorf("cannot update status: %v", statusErr)
		}
		return errors.Trace(err)
	}
	changed, err := connector.Write(m.cfg.ConnectorPath, connCfg)
	if err != nil {
		return errors.Annotate(err, "writing connector file")
	}

	st, err := m.cfg.State.Read()
	if err != nil {
		return errors.Trace(err)
	}
	if changed && st.Installed() {
		m.restartServices(ctx, m.cfg.RestartMap.ServicesFor(m.cfg.ConnectorPath))
	}
	return errors.Trace(m.updateStatus(ctx, nil))
}

func (m *Machine) restartServices(ctx context.Context, names []string) {
	for _, name := range names {
		logger.Infof("restarting %s", name)
		if err := m.cfg.Services.Restart(ctx, name); err != nil {
			logger.Errorf("cannot restart %s: %v", name, err)
		}
	}
}
