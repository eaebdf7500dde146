package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version  int            `yaml:"version"`
	Device   DeviceConfig   `yaml:"device"`
	Scan     ScanConfig     `yaml:"scan"`
	Network  NetworkConfig  `yaml:"network"`
	Database DatabaseConfig `yaml:"database"`
}

// DeviceConfig is the scanner's own BACnet identity
type DeviceConfig struct {
	Name       string `yaml:"name"`
	InstanceID uint32 `yaml:"instance_id"`
	// Address is the local address in CIDR form with an optional port,
	// e.g. "192.168.1.12/24:47808".
	Address  string `yaml:"address"`
	VendorID uint16 `yaml:"vendor_id"`
}

// ScanConfig drives the adaptive Who-Is windows and probe timing
type ScanConfig struct {
	LowLimit      uint32 `yaml:"low_limit"`
	HighLimit     uint32 `yaml:"high_limit"`
	FullStepSize  uint32 `yaml:"full_step_size"`
	EmptyStepSize uint32 `yaml:"empty_step_size"`

	// ResponseWindow is how long a broadcast collects answers before the
	// window closes.
	ResponseWindow *Duration `yaml:"response_window,omitempty"`
	// ProbeTimeout bounds each directed BBMD table read.
	ProbeTimeout *Duration `yaml:"probe_timeout,omitempty"`
}

// NetworkConfig holds operator knowledge about the internetwork
type NetworkConfig struct {
	// BBMDs are addresses known to be broadcast relays, classified as
	// such even when a table probe fails.
	BBMDs []string `yaml:"bbmds,omitempty"`
	// KnownSubnets are CIDR prefixes devices are expected on; addresses
	// outside every listed subnet get one synthesized around them.
	KnownSubnets []string `yaml:"known_subnets,omitempty"`
	// SubnetPrefixLen is the prefix length for synthesized subnets.
	SubnetPrefixLen int `yaml:"subnet_prefix_len"`

	// ForeignRegistration, when set, registers the scanner as a foreign
	// device with a BBMD so broadcasts cross into remote subnets.
	ForeignRegistration *ForeignRegistration `yaml:"foreign_registration,omitempty"`
}

// ForeignRegistration names the BBMD to register with and the lease TTL
type ForeignRegistration struct {
	BBMD string   `yaml:"bbmd"`
	TTL  Duration `yaml:"ttl"`
}

// DatabaseConfig holds snapshot store settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
	// SnapshotLimit caps how many snapshots Prune retains.
	SnapshotLimit int `yaml:"snapshot_limit"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
