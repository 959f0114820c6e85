// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package connector_test

import (
	"os"
	"path/filepath"

	"github.com/juju/errors"
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"github.com/canonical/nova-compute-powerflex/internal/connector"
)

type fileSuite struct {
	testing.IsolationSuite

	path string
}

var _ = gc.Suite(&fileSuite{})

func (s *fileSuite) SetUpTest(c *gc.C) {
	s.IsolationSuite.SetUpTest(c)
	s.path = filepath.Join(c.MkDir(), "opt", "emc", "scaleio", "openstack", "connector.conf")
}

func (s *fileSuite) TestDefaultPath(c *gc.C) {
	c.Assert(connector.DefaultPath, gc.Equals, "/opt/emc/scaleio/openstack/connector.conf")
}

func (s *fileSuite) TestRender(c *gc.C) {
	data, err := connector.Render(connector.Config{
		CinderName:  connector.CinderName,
		SANPassword: "secret",
	})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(string(data), gc.Matches, `(?s)\s*\[backends\]\ncinder_name\s+= cinder-dell-powerflex\nsan_password\s+= secret\n.*`)
}

func (s *fileSuite) TestWriteKeepsCommentCharactersVerbatim(c *gc.C) {
	cfg := connector.Config{
		CinderName:        connector.CinderName,
		SANPassword:       "pa#ss;wd",
		ReplicationDevice: "backendid:acme,san_ip:10.20.30.41,san_login:admin,san_password:re#p;pw",
		RepSANPassword:    "re#p;pw",
	}
	_, err := connector.Write(s.path, cfg)
	c.Assert(err, jc.ErrorIsNil)

	data, err := os.ReadFile(s.path)
	c.Assert(err, jc.ErrorIsNil)
	content := string(data)
	c.Check(content, gc.Matches, `(?s).*\nsan_password\s*= pa#ss;wd\n.*`)
	c.Check(content, gc.Matches, `(?s).*\nreplication_device\s*= backendid:acme,san_ip:10\.20\.30\.41,san_login:admin,san_password:re#p;pw\n.*`)
	c.Check(content, gc.Matches, `(?s).*\nrep_san_password\s*= re#p;pw\n.*`)
	c.Check(content, gc.Not(jc.Contains), "`")
	c.Check(content, gc.Not(jc.Contains), `"`)

	read, err := connector.Read(s.path)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(read, jc.DeepEquals, cfg.Map())
}

func (s *fileSuite) TestRenderRejectsQuotedValues(c *gc.C) {
	for i, test := range []struct {
		cfg    connector.Config
		expect string
	}{{
		cfg:    connector.Config{CinderName: connector.CinderName, SANPassword: "se\ncret"},
		expect: "san_password value contains a line break",
	}, {
		cfg:    connector.Config{CinderName: connector.CinderName, RepSANPassword: "x`y"},
		expect: "rep_san_password value contains a backtick",
	}, {
		cfg:    connector.Config{CinderName: connector.CinderName, SANPassword: " secret"},
		expect: "san_password value has leading or trailing whitespace",
	}} {
		c.Logf("test %d: %s", i, test.expect)
		_, err := connector.Render(test.cfg)
		c.Check(err, jc.ErrorIs, errors.NotValid)
		c.Check(err, gc.ErrorMatches, test.expect)
	}
}

func (s *fileSuite) TestWriteRejectedValueLeavesNoFile(c *gc.C) {
	_, err := connector.Write(s.path, connector.Config{CinderName: connector.CinderName, SANPassword: "x`y"})
	c.Assert(err, gc.ErrorMatches, "rendering connector config: san_password value contains a backtick")
	c.Assert(s.path, jc.DoesNotExist)
}

func (s *fileSuite) TestWriteCreatesDirectoryAndRestrictsMode(c *gc.C) {
	changed, err := connector.Write(s.path, connector.Config{CinderName: connector.CinderName})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(changed, jc.IsTrue)

	info, err := os.Stat(s.path)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(info.Mode().Perm(), gc.Equals, os.FileMode(0600))
	c.Assert(filepath.Dir(s.path), jc.IsDirectory)
}

func (s *fileSuite) TestWriteRoundTrip(c *gc.C) {
	cfg := connector.Config{
		CinderName:        connector.CinderName,
		SANPassword:       "s3cr3t!",
		ReplicationDevice: "backendid:acme,san_ip:10.20.30.41,san_login:admin,san_password:password",
		RepSANPassword:    "password",
	}
	_, err := connector.Write(s.path, cfg)
	c.Assert(err, jc.ErrorIsNil)

	read, err := connector.Read(s.path)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(read, jc.DeepEquals, cfg.Map())
}

func (s *fileSuite) TestWriteOverwrites(c *gc.C) {
	_, err := connector.Write(s.path, connector.Config{CinderName: connector.CinderName, SANPassword: "old"})
	c.Assert(err, jc.ErrorIsNil)

	changed, err := connector.Write(s.path, connector.Config{CinderName: connector.CinderName})
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(changed, jc.IsTrue)

	read, err := connector.Read(s.path)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(read, jc.DeepEquals, map[string]string{"cinder_name": connector.CinderName})
}

func (s *fileSuite) TestWriteUnchanged(c *gc.C) {
	cfg := connector.Config{CinderName: connector.CinderName, SANPassword: "secret"}
	_, err := connector.Write(s.path, cfg)
	c.Assert(err, jc.ErrorIsNil)

	changed, err := connector.Write(s.path, cfg)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(changed, jc.IsFalse)
}

func (s *fileSuite) TestWriteParentIsFile(c *gc.C) {
	parent := filepath.Join(c.MkDir(), "file")
	err := os.WriteFile(parent, nil, 0644)
	c.Assert(err, jc.ErrorIsNil)

	_, err = connector.Write(filepath.Join(parent, "connector.conf"), connector.Config{CinderName: connector.CinderName})
	c.Assert(err, gc.ErrorMatches, `creating connector directory: .*`)
}

func (s *fileSuite) TestRemove(c *gc.C) {
	_, err := connector.Write(s.path, connector.Config{CinderName: connector.CinderName})
	c.Assert(err, jc.ErrorIsNil)

	err = connector.Remove(s.path)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(s.path, jc.DoesNotExist)
}

func (s *fileSuite) TestRemoveMissing(c *gc.C) {
	err := connector.Remove(s.path)
	c.Assert(err, jc.ErrorIsNil)
}

func (s *fileSuite) TestReadMissing(c *gc.C) {
	_, err := connector.Read(s.path)
	c.Assert(err, jc.ErrorIs, errors.NotFound)
}
