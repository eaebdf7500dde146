package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bactopo.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Device.Name != "bactopo" {
		t.Errorf("expected default device name bactopo, got %s", cfg.Device.Name)
	}
	if cfg.Scan.HighLimit != MaxInstance {
		t.Errorf("expected default high limit %d, got %d", MaxInstance, cfg.Scan.HighLimit)
	}
	if cfg.Scan.FullStepSize != 100 || cfg.Scan.EmptyStepSize != 1000 {
		t.Errorf("unexpected default step sizes %d/%d", cfg.Scan.FullStepSize, cfg.Scan.EmptyStepSize)
	}
	if cfg.Network.SubnetPrefixLen != 24 {
		t.Errorf("expected default prefix length 24, got %d", cfg.Network.SubnetPrefixLen)
	}
	if cfg.Database.SnapshotLimit != 30 {
		t.Errorf("expected default snapshot limit 30, got %d", cfg.Database.SnapshotLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := writeConfig(t, `
version: 1
device:
  name: scanner-12
  instance_id: 4000000
  address: 192.168.1.12/24:47808
  vendor_id: 555
scan:
  low_limit: 100
  high_limit: 5000
  response_window: 3s
network:
  bbmds:
    - 10.0.0.7
    - 10.0.1.7:47809
  known_subnets:
    - 10.0.0.0/24
  foreign_registration:
    bbmd: 10.0.0.7
    ttl: 5m
database:
  path: /var/lib/bactopo/snapshots.db
`)

	cfg, from, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if from != path {
		t.Errorf("expected source path %s, got %s", path, from)
	}
	if cfg.Device.Name != "scanner-12" || cfg.Device.InstanceID != 4000000 {
		t.Errorf("unexpected device identity %+v", cfg.Device)
	}
	if cfg.Scan.LowLimit != 100 || cfg.Scan.HighLimit != 5000 {
		t.Errorf("unexpected scan range %d..%d", cfg.Scan.LowLimit, cfg.Scan.HighLimit)
	}
	if cfg.Scan.ResponseWindow.Duration() != 3*time.Second {
		t.Errorf("expected 3s response window, got %v", cfg.Scan.ResponseWindow.Duration())
	}
	// Defaults still fill unspecified fields.
	if cfg.Scan.EmptyStepSize != 1000 {
		t.Errorf("expected default empty step, got %d", cfg.Scan.EmptyStepSize)
	}

	subnets, err := cfg.Subnets()
	if err != nil {
		t.Fatalf("subnets: %v", err)
	}
	if len(subnets) != 1 || subnets[0].String() != "10.0.0.0/24" {
		t.Errorf("unexpected subnets %v", subnets)
	}

	bbmds, err := cfg.BBMDAddresses()
	if err != nil {
		t.Fatalf("bbmds: %v", err)
	}
	if len(bbmds) != 2 || bbmds[1].Port != 47809 {
		t.Errorf("unexpected bbmds %v", bbmds)
	}
	if cfg.Network.ForeignRegistration.TTL.Duration() != 5*time.Minute {
		t.Errorf("unexpected registration TTL %v", cfg.Network.ForeignRegistration.TTL.Duration())
	}
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "inverted range",
			content: "scan:\n  low_limit: 500\n  high_limit: 100\n",
			want:    "low_limit",
		},
		{
			name:    "instance too large",
			content: "scan:\n  high_limit: 9999999\n",
			want:    "high_limit",
		},
		{
			name:    "bad subnet",
			content: "network:\n  known_subnets:\n    - not-a-subnet\n",
			want:    "known_subnets",
		},
		{
			name:    "bad bbmd",
			content: "network:\n  bbmds:\n    - '999999:zz'\n",
			want:    "bbmds",
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, _, err := LoadFromPath(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadHonorsEnvPath(t *testing.T) {
	path := writeConfig(t, "device:\n  name: from-env\n")
	t.Setenv(EnvConfigPath, path)

	cfg, from, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if from != path {
		t.Errorf("expected config from %s, got %s", path, from)
	}
	if cfg.Device.Name != "from-env" {
		t.Errorf("unexpected device name %s", cfg.Device.Name)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Device.Name = "roundtrip"
	cfg.Network.KnownSubnets = []string{"192.168.0.0/16"}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, _, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.Device.Name != "roundtrip" {
		t.Errorf("unexpected device name %s", loaded.Device.Name)
	}
	if len(loaded.Network.KnownSubnets) != 1 || loaded.Network.KnownSubnets[0] != "192.168.0.0/16" {
		t.Errorf("unexpected subnets %v", loaded.Network.KnownSubnets)
	}
}
