// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package connector

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/juju/utils/v4"
	"gopkg.in/ini.v1"
)

const (
	// Dir is where the PowerFlex openstack integration looks for its
	// configuration.
	Dir = "/opt/emc/scaleio/openstack"

	// FileName is the name of the connector file within Dir.
	FileName = "connector.conf"

	// Section holds every connector key.
	Section = "backends"

	// FileMode restricts the connector file to its owner as it holds
	// credentials.
	FileMode os.FileMode = 0600

	dirMode os.FileMode = 0755
)

// DefaultPath is the location of the connector file on the host.
var DefaultPath = filepath.Join(Dir, FileName)

var logger = loggo.GetLogger("powerflex.connector")

// loadOptions keep "#" and ";" as part of a value. The connector file is
// read by Python's configparser, which has no quoting.
var loadOptions = ini.LoadOptions{IgnoreInlineComment: true}

// Render returns the connector file content for the config. Values are
// written verbatim; a value which cannot be is not valid.
func Render(cfg Config) ([]byte, error) {
	file, err := ini.LoadSources(loadOptions, []byte(""))
	if err != nil {
		return nil, errors.Trace(err)
	}
	section, err := file.NewSection(Section)
	if err != nil {
		return nil, errors.Trace(err)
	}
	for _, item := range cfg.Items() {
		if err := checkValue(item); err != nil {
			return nil, errors.Trace(err)
		}
		if _, err := section.NewKey(item.Key, item.Value); err != nil {
			return nil, errors.Annotatef(err, "adding %q", item.Key)
		}
	}
	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return nil, errors.Trace(err)
	}
	return buf.Bytes(), nil
}

// checkValue rejects values that ini would quote on write. The value
// itself is never part of the error as it may be a password.
func checkValue(item Item) error {
	var reason string
	switch {
	case strings.ContainsAny(item.Value, "\r\n"):
		reason = "contains a line break"
	case strings.Contains(item.Value, "`"):
		reason = "contains a backtick"
	case strings.TrimSpace(item.Value) != item.Value:
		reason = "has leading or trailing whitespace"
	default:
		return nil
	}
	return errors.NewNotValid(nil, fmt.Sprintf("%s value %s", item.Key, reason))
}

// Write renders cfg to path, creating the parent directory if needed.
// It reports whether the content on disk changed.
func Write(path string, cfg Config) (bool, error) {
	data, err := Render(cfg)
	if err != nil {
		return false, errors.Annotate(err, "rendering connector config")
	}
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return false, errors.Annotatef(err, "creating connector directory")
	}

	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return false, errors.Annotatef(err, "reading connector file %q", path)
	}
	changed := err != nil || !bytes.Equal(existing, data)

	logger.Infof("writing connector file %q with keys %v", path, keys(cfg))
	if err := utils.AtomicWriteFile(path, data, FileMode); err != nil {
		return false, errors.Annotatef(err, "writing connector file %q", path)
	}
	return changed, nil
}

// Remove deletes the connector file. A missing file is not an error.
func Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		logger.Debugf("connector file %q already absent", path)
		return nil
	} else if err != nil {
		return errors.Annotatef(err, "removing connector file %q", path)
	}
	logger.Infof("removed connector file %q", path)
	return nil
}

// Read parses the connector file at path.
func Read(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("connector file %q", path)
	} else if err != nil {
		return nil, errors.Trace(err)
	}
	file, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, errors.Annotatef(err, "parsing connector file %q", path)
	}
	section, err := file.GetSection(Section)
	if err != nil {
		return nil, errors.NotFoundf("section %q in %q", Section, path)
	}
	return section.KeysHash(), nil
}

// keys returns the keys of cfg, secrets are never logged.
func keys(cfg Config) []string {
	var names []string
	for _, item := range cfg.Items() {
		names = append(names, item.Key)
	}
	return names
}
