// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package charm

import (
	"github.com/juju/collections/set"

	"github.com/canonical/nova-compute-powerflex/internal/service"
)

// RestartMap maps a managed file to the services which must be restarted
// when its content changes.
type RestartMap map[string]set.Strings

// DefaultRestartMap restarts the SDC service when the connector file at
// connectorPath changes.
func DefaultRestartMap(connectorPath string) RestartMap {
	return RestartMap{
		connectorPath: set.NewStrings(service.SDCService),
	}
}

// ServicesFor returns the sorted services to restart for the given
// changed paths.
func (r RestartMap) ServicesFor(paths ...string) []string {
	services := set.NewStrings()
	for _, path := range paths {
		services = services.Union(r[path])
	}
	return services.SortedValues()
}
