// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package config describes the charm configuration consumed by the
// PowerFlex SDC agent and coerces the raw config-get output into it.
package config

import (
	"net"
	"strings"

	"github.com/juju/collections/set"
	"github.com/juju/errors"
	"github.com/juju/schema"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/juju/environschema.v1"
)

const (
	VolumeBackendNameKey = "volume-backend-name"
	GatewayPasswordKey   = "powerflexgw-password"
	ReplicationConfigKey = "powerflex-replication-config"
	MDMIPsKey            = "powerflex-sdc-mdm-ips"
)

var configSchema = environschema.Fields{
	VolumeBackendNameKey: {
		Description: "The name of the cinder volume backend served by PowerFlex.",
		Type:        environschema.Tstring,
	},
	GatewayPasswordKey: {
		Description: "The password of the PowerFlex gateway.",
		Type:        environschema.Tstring,
		Secret:      true,
	},
	ReplicationConfigKey: {
		Description: "The cinder replication_device value, a comma separated list of key:value pairs.",
		Type:        environschema.Tstring,
		Example:     "backendid:acme,san_ip:10.20.30.41,san_login:admin,san_password:password",
	},
	MDMIPsKey: {
		Description: "Comma separated list of the PowerFlex MDM addresses the SDC registers with.",
		Type:        environschema.Tstring,
	},
}

var configDefaults = schema.Defaults{
	VolumeBackendNameKey: schema.Omit,
	GatewayPasswordKey:   schema.Omit,
	ReplicationConfigKey: schema.Omit,
	MDMIPsKey:            schema.Omit,
}

// Config holds the charm configuration relevant to the SDC integration.
// Unset options are held as empty strings.
type Config struct {
	VolumeBackendName string `mapstructure:"volume-backend-name"`
	GatewayPassword   string `mapstructure:"powerflexgw-password"`
	ReplicationConfig string `mapstructure:"powerflex-replication-config"`
	MDMIPs            string `mapstructure:"powerflex-sdc-mdm-ips"`
}

// Schema returns the fields understood by the charm.
func Schema() environschema.Fields {
	return configSchema
}

// KnownKeys returns the names of the options understood by the charm.
func KnownKeys() set.Strings {
	keys := set.NewStrings()
	for name := range configSchema {
		keys.Add(name)
	}
	return keys
}

// Parse coerces the raw attributes returned by config-get into a Config.
// Options the charm does not know about are ignored, as are options
// without a value.
func Parse(attrs map[string]interface{}) (Config, error) {
	fields, defaults, err := configSchema.ValidationSchema()
	if err != nil {
		return Config{}, errors.Trace(err)
	}
	for key, value := range configDefaults {
		defaults[key] = value
	}

	known := KnownKeys()
	input := make(map[string]interface{}, len(attrs))
	for key, value := range attrs {
		if value == nil || !known.Contains(key) {
			continue
		}
		input[key] = value
	}

	coerced, err := schema.FieldMap(fields, defaults).Coerce(input, nil)
	if err != nil {
		return Config{}, errors.Annotate(err, "invalid charm config")
	}

	var cfg Config
	if err := mapstructure.Decode(coerced, &cfg); err != nil {
		return Config{}, errors.Trace(err)
	}
	cfg.trim()
	return cfg, nil
}

func (c *Config) trim() {
	c.VolumeBackendName = strings.TrimSpace(c.VolumeBackendName)
	c.ReplicationConfig = strings.TrimSpace(c.ReplicationConfig)
	c.MDMIPs = strings.TrimSpace(c.MDMIPs)
}

// MDMAddresses returns the configured MDM addresses.
func (c Config) MDMAddresses() []string {
	var addrs []string
	for _, addr := range strings.Split(c.MDMIPs, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			addrs = append(addrs, addr)
		}
	}
	return addrs
}

// ValidateForInstall checks that the configuration carries what the SDC
// package needs at install time.
func (c Config) ValidateForInstall() error {
	addrs := c.MDMAddresses()
	if len(addrs) == 0 {
		return errors.NotValidf("empty %s", MDMIPsKey)
	}
	for _, addr := range addrs {
		if net.ParseIP(addr) == nil {
			return errors.NotValidf("%s address %q", MDMIPsKey, addr)
		}
	}
	return nil
}
