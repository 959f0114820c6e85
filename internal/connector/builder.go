// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package connector

import (
	"strings"

	"github.com/juju/errors"

	"github.com/canonical/nova-compute-powerflex/internal/config"
)

const (
	// CinderName is the cinder backend stanza the connector belongs to.
	CinderName = "cinder-dell-powerflex"

	CinderNameKey        = "cinder_name"
	SANPasswordKey       = "san_password"
	ReplicationDeviceKey = "replication_device"
	RepSANPasswordKey    = "rep_san_password"

	// replicationPasswordField is the position of the san_password pair
	// in the replication_device value.
	replicationPasswordField = 3
)

// ErrMalformedReplicationConfig is returned when the replication config
// does not carry a password where one is expected.
const ErrMalformedReplicationConfig = errors.ConstError("malformed replication config")

// Config is the content of the connector file. Empty fields are not
// written.
type Config struct {
	CinderName        string
	SANPassword       string
	ReplicationDevice string
	RepSANPassword    string
}

// Build derives the connector file content from the charm config.
func Build(cfg config.Config) (Config, error) {
	result := Config{
		CinderName:  CinderName,
		SANPassword: cfg.GatewayPassword,
	}
	if cfg.ReplicationConfig == "" {
		return result, nil
	}
	password, err := replicationPassword(cfg.ReplicationConfig)
	if err != nil {
		return Config{}, errors.Trace(err)
	}
	result.ReplicationDevice = cfg.ReplicationConfig
	result.RepSANPassword = password
	return result, nil
}

// replicationPassword extracts the password from a value such as
// "backendid:acme,san_ip:10.20.30.41,san_login:admin,san_password:password".
func replicationPassword(device string) (string, error) {
	fields := strings.Split(device, ",")
	if len(fields) <= replicationPasswordField {
		return "", errors.Annotatef(ErrMalformedReplicationConfig,
			"expected at least %d fields, got %d", replicationPasswordField+1, len(fields))
	}
	_, password, ok := strings.Cut(fields[replicationPasswordField], ":")
	if !ok {
		return "", errors.Annotatef(ErrMalformedReplicationConfig,
			"field %q is not a key:value pair", fields[replicationPasswordField])
	}
	if password == "" {
		return "", errors.Annotatef(ErrMalformedReplicationConfig, "empty replication password")
	}
	return password, nil
}

// Items returns the non-empty keys and values in the order they are
// written to the connector file.
func (c Config) Items() []Item {
	all := []Item{
		{CinderNameKey, c.CinderName},
		{SANPasswordKey, c.SANPassword},
		{ReplicationDeviceKey, c.ReplicationDevice},
		{RepSANPasswordKey, c.RepSANPassword},
	}
	items := make([]Item, 0, len(all))
	for _, item := range all {
		if item.Value != "" {
			items = append(items, item)
		}
	}
	return items
}

// Map returns the non-empty keys and values of the config.
func (c Config) Map() map[string]string {
	result := make(map[string]string)
	for _, item := range c.Items() {
		result[item.Key] = item.Value
	}
	return result
}

// Item is a single connector file entry.
type Item struct {
	Key   string
	Value string
}
