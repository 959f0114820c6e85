// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package service queries and restarts the host services the SDC relies
// on through systemd.
package service

import (
	"context"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/juju/errors"
	"github.com/juju/loggo"
)

// SDCService is the service started by the SDC package. It reads the
// connector file.
const SDCService = "scini"

var logger = loggo.GetLogger("powerflex.service")

// DBusAPI describes the systemd D-Bus calls used here.
type DBusAPI interface {
	Close()
	ListUnitsByNamesContext(ctx context.Context, units []string) ([]dbus.UnitStatus, error)
	RestartUnitContext(ctx context.Context, name string, mode string, ch chan<- string) (int, error)
}

// DBusAPIFactory opens a connection to systemd.
type DBusAPIFactory = func(ctx context.Context) (DBusAPI, error)

// NewDBusAPI connects to the system instance of systemd.
var NewDBusAPI DBusAPIFactory = func(ctx context.Context) (DBusAPI, error) {
	return dbus.NewWithContext(ctx)
}

// Systemd probes and restarts services through systemd.
type Systemd struct {
	newDBus DBusAPIFactory
}

// NewSystemd returns a Systemd that connects with newDBus.
func NewSystemd(newDBus DBusAPIFactory) *Systemd {
	if newDBus == nil {
		newDBus = NewDBusAPI
	}
	return &Systemd{newDBus: newDBus}
}

// UnitName returns the systemd unit name for a service.
func UnitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

func (s *Systemd) newConn(ctx context.Context, name string) (DBusAPI, error) {
	conn, err := s.newDBus(ctx)
	if err != nil {
		logger.Errorf("failed to connect to dbus for service %q: %v", name, err)
		return nil, errors.Annotate(err, "connecting to systemd")
	}
	return conn, nil
}

// IsRunning reports whether the named service is loaded and active.
func (s *Systemd) IsRunning(ctx context.Context, name string) (bool, error) {
	conn, err := s.newConn(ctx, name)
	if err != nil {
		return false, errors.Trace(err)
	}
	defer conn.Close()

	unitName := UnitName(name)
	units, err := conn.ListUnitsByNamesContext(ctx, []string{unitName})
	if err != nil {
		return false, errors.Annotatef(err, "querying service %q", name)
	}
	for _, unit := range units {
		if unit.Name == unitName {
			running := unit.LoadState == "loaded" && unit.ActiveState == "active"
			return running, nil
		}
	}
	return false, nil
}

// Restart restarts the named service and waits for systemd to report the
// job as done.
func (s *Systemd) Restart(ctx context.Context, name string) error {
	conn, err := s.newConn(ctx, name)
	if err != nil {
		return errors.Trace(err)
	}
	defer conn.Close()

	statusCh := make(chan string, 1)
	if _, err := conn.RestartUnitContext(ctx, UnitName(name), "replace", statusCh); err != nil {
		return errors.Annotatef(err, "dbus restart request for service %q failed", name)
	}

	select {
	case result := <-statusCh:
		if result != "done" {
			return errors.Errorf("failed to restart service %q (API status %q)", name, result)
		}
	case <-ctx.Done():
		return errors.Annotatef(ctx.Err(), "waiting for service %q to restart", name)
	}
	logger.Infof("service %q restarted", name)
	return nil
}
