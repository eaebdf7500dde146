// Package config provides configuration management for bactopo.
//
// The config file carries operator knowledge the wire cannot provide:
// the scanner's own BACnet identity, the instance range and window
// sizes for discovery, declared subnets and BBMDs, and where snapshots
// are stored.
//
// Config file locations (priority order):
//  1. $BACTOPO_CONFIG
//  2. ./bactopo.yaml
//  3. ~/.config/bactopo/config.yaml
//  4. /etc/bactopo/config.yaml
package config

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"

	"bactopo/internal/bacnet"
)

// MaxInstance is the highest valid BACnet device instance number.
const MaxInstance = 4194303

// Load finds and loads the config file, or returns defaults if none found
func Load() (*Config, string, error) {
	path := FindConfigPath()

	if path == "" {
		return DefaultConfig(), "", nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path
func LoadFromPath(path string) (*Config, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	cfg := &Config{Version: 1}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in missing values with defaults
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Device.Name == "" {
		c.Device.Name = "bactopo"
	}
	if c.Scan.HighLimit == 0 {
		c.Scan.HighLimit = MaxInstance
	}
	if c.Scan.FullStepSize == 0 {
		c.Scan.FullStepSize = 100
	}
	if c.Scan.EmptyStepSize == 0 {
		c.Scan.EmptyStepSize = 1000
	}
	if c.Network.SubnetPrefixLen == 0 {
		c.Network.SubnetPrefixLen = 24
	}
	if c.Database.Path == "" {
		c.Database.Path = "./bactopo.db"
	}
	if c.Database.SnapshotLimit == 0 {
		c.Database.SnapshotLimit = 30
	}
}

// Validate checks ranges and parseability of every field that has a
// constrained domain. It is called on load, so a scan never starts from
// a config that would fail halfway through.
func (c *Config) Validate() error {
	if c.Scan.HighLimit > MaxInstance {
		return fmt.Errorf("scan.high_limit %d exceeds maximum instance %d", c.Scan.HighLimit, MaxInstance)
	}
	if c.Scan.LowLimit > c.Scan.HighLimit {
		return fmt.Errorf("scan.low_limit %d exceeds scan.high_limit %d", c.Scan.LowLimit, c.Scan.HighLimit)
	}
	if c.Device.InstanceID > MaxInstance {
		return fmt.Errorf("device.instance_id %d exceeds maximum instance %d", c.Device.InstanceID, MaxInstance)
	}
	if c.Network.SubnetPrefixLen < 1 || c.Network.SubnetPrefixLen > 32 {
		return fmt.Errorf("network.subnet_prefix_len %d outside [1, 32]", c.Network.SubnetPrefixLen)
	}
	if _, err := c.Subnets(); err != nil {
		return err
	}
	if _, err := c.BBMDAddresses(); err != nil {
		return err
	}
	if fr := c.Network.ForeignRegistration; fr != nil {
		if _, err := bacnet.ParseAddress(fr.BBMD); err != nil {
			return fmt.Errorf("network.foreign_registration: %w", err)
		}
	}
	return nil
}

// Subnets parses the declared subnet list
func (c *Config) Subnets() ([]netip.Prefix, error) {
	subnets := make([]netip.Prefix, 0, len(c.Network.KnownSubnets))
	for _, s := range c.Network.KnownSubnets {
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("network.known_subnets: parse %q: %w", s, err)
		}
		subnets = append(subnets, prefix.Masked())
	}
	return subnets, nil
}

// BBMDAddresses parses the declared BBMD list
func (c *Config) BBMDAddresses() ([]bacnet.Address, error) {
	addrs := make([]bacnet.Address, 0, len(c.Network.BBMDs))
	for _, s := range c.Network.BBMDs {
		addr, err := bacnet.ParseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("network.bbmds: %w", err)
		}
		addrs = append(addrs, addr)
	}
	return addrs, nil
}
