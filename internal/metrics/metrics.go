// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package metrics exposes the SDC install state to the node exporter
// through its textfile collector.
package metrics

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "powerflex"
	subsystem = "sdc"

	// FileName is the name of the file written into the collector
	// directory.
	FileName = "powerflex_sdc.prom"
)

// Sample is a snapshot of the unit taken at the end of a hook.
type Sample struct {
	Installed         bool
	InstallFailed     bool
	ResourceAvailable bool
	ServiceRunning    bool
	// HookInstallExitCode is the exit code of the install run by the
	// current hook. It is nil, and the gauge left out of the file, when
	// the hook ran no install.
	HookInstallExitCode *int
}

// Recorder records samples.
type Recorder interface {
	Record(Sample) error
}

// TextfileRecorder writes samples for the node exporter textfile
// collector.
type TextfileRecorder struct {
	path     string
	registry *prometheus.Registry

	installed         prometheus.Gauge
	installFailed     prometheus.Gauge
	resourceAvailable prometheus.Gauge
	serviceRunning    prometheus.Gauge
	exitCode          prometheus.Gauge
}

// NewTextfileRecorder returns a recorder writing into dir.
func NewTextfileRecorder(dir string) *TextfileRecorder {
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      name,
			Help:      help,
		})
	}
	r := &TextfileRecorder{
		path:              filepath.Join(dir, FileName),
		registry:          prometheus.NewRegistry(),
		installed:         gauge("installed", "Whether the SDC package is installed."),
		installFailed:     gauge("install_failed", "Whether the last SDC package install failed."),
		resourceAvailable: gauge("resource_available", "Whether the sdc-deb-package resource is available."),
		serviceRunning:    gauge("service_running", "Whether the scini service is active."),
		exitCode:          gauge("hook_install_exit_code", "Exit code of the SDC package install run by the hook that wrote this file."),
	}
	r.registry.MustRegister(r.installed, r.installFailed, r.resourceAvailable, r.serviceRunning)
	return r
}

// Path returns the file the recorder writes.
func (r *TextfileRecorder) Path() string {
	return r.path
}

// Record implements Recorder.
func (r *TextfileRecorder) Record(sample Sample) error {
	r.installed.Set(boolValue(sample.Installed))
	r.installFailed.Set(boolValue(sample.InstallFailed))
	r.resourceAvailable.Set(boolValue(sample.ResourceAvailable))
	r.serviceRunning.Set(boolValue(sample.ServiceRunning))

	gatherer := prometheus.Gatherer(r.registry)
	if sample.HookInstallExitCode != nil {
		r.exitCode.Set(float64(*sample.HookInstallExitCode))
		extra := prometheus.NewRegistry()
		extra.MustRegister(r.exitCode)
		gatherer = prometheus.Gatherers{r.registry, extra}
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0755); err != nil {
		return errors.Trace(err)
	}
	return errors.Annotatef(prometheus.WriteToTextfile(r.path, gatherer), "writing metrics to %q", r.path)
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Nop is a Recorder which drops samples.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(Sample) error {
	return nil
}
