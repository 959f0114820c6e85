// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package metrics_test

import (
	"os"
	"path/filepath"

	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/nova-compute-powerflex/internal/metrics"
)

type metricsSuite struct {
	testing.IsolationSuite

	dir string
}

var _ = gc.Suite(&metricsSuite{})

func (s *metricsSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.dir = filepath.Join(c.MkDir(), "textfile_collector")
}

func (s *metricsSuite) read(c *gc.C, r *metrics.TextfileRecorder) string {
	c.Assert(r.Path(), gc.Equals, filepath.Join(s.dir, "powerflex_sdc.prom"))
	data, err := os.ReadFile(r.Path())
	c.Assert(err, jc.ErrorIsNil)
	return string(data)
}

func (s *metricsSuite) TestRecord(c *gc.C) {
	r := metrics.NewTextfileRecorder(s.dir)
	err := r.Record(metrics.Sample{
		Installed:         true,
		ResourceAvailable: true,
		ServiceRunning:    true,
	})
	c.Assert(err, jc.ErrorIsNil)

	out := s.read(c, r)
	c.Check(out, jc.Contains, "powerflex_sdc_installed 1\n")
	c.Check(out, jc.Contains, "powerflex_sdc_install_failed 0\n")
	c.Check(out, jc.Contains, "powerflex_sdc_resource_available 1\n")
	c.Check(out, jc.Contains, "powerflex_sdc_service_running 1\n")
	c.Check(out, gc.Not(jc.Contains), "hook_install_exit_code")
}

func (s *metricsSuite) TestRecordExitCode(c *gc.C) {
	r := metrics.NewTextfileRecorder(s.dir)
	code := 128
	err := r.Record(metrics.Sample{
		InstallFailed:       true,
		HookInstallExitCode: &code,
	})
	c.Assert(err, jc.ErrorIsNil)

	out := s.read(c, r)
	c.Check(out, jc.Contains, "powerflex_sdc_install_failed 1\n")
	c.Check(out, jc.Contains, "powerflex_sdc_hook_install_exit_code 128\n")
}

func (s *metricsSuite) TestNop(c *gc.C) {
	c.Assert(metrics.Nop{}.Record(metrics.Sample{Installed: true}), jc.ErrorIsNil)
}

func (s *metricsSuite) TestExitCodeOnlyForHookThatInstalled(c *gc.C) {
	r := metrics.NewTextfileRecorder(s.dir)
	code := 0
	err := r.Record(metrics.Sample{Installed: true, HookInstallExitCode: &code})
	c.Assert(err, jc.ErrorIsNil)
	c.Check(s.read(c, r), jc.Contains, "powerflex_sdc_hook_install_exit_code 0\n")

	err = r.Record(metrics.Sample{Installed: true})
	c.Assert(err, jc.ErrorIsNil)
	out := s.read(c, r)
	c.Check(out, jc.Contains, "powerflex_sdc_installed 1\n")
	c.Check(out, gc.Not(jc.Contains), "hook_install_exit_code")
}
