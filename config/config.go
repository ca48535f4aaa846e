// Package config loads the router's YAML configuration file: the
// declarative link list plus logging and operator-shell settings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values read as human strings
// like "30s" or "2m" instead of integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler via time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration back out in the same string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is the top-level router configuration file.
type Config struct {
	Log   LogConfig    `yaml:"log"`
	Shell ShellConfig  `yaml:"shell"`
	Links []LinkConfig `yaml:"links"`
}

// LogConfig holds console logging knobs.
type LogConfig struct {
	Level           string `yaml:"level"`            // debug, info, warn, error
	Verbose         bool   `yaml:"verbose"`          // log every drop/unroutable decision
	TimestampFormat string `yaml:"timestamp_format"` // "time" or "unix"
	StatsIntervalS  int    `yaml:"stats_interval"`   // seconds between stats lines (default 30)
}

// ShellConfig controls the operator shell HTTP API.
type ShellConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // e.g. "127.0.0.1:8088"
}

// LinkConfig describes one configured transport. Kind selects which
// fields apply: "udp-client", "udp-server", "udp-broadcast", "serial".
type LinkConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	SikRadio bool   `yaml:"sik_radio"`

	// OutputOnlyFrom restricts this link to forwarding only frames whose
	// source system id is in this list; empty means unrestricted.
	OutputOnlyFrom []uint8 `yaml:"output_only_from"`

	// udp-client
	RemoteAddress string `yaml:"remote_address"`

	// udp-server
	ListenAddress string   `yaml:"listen_address"`
	PeerTTL       Duration `yaml:"peer_ttl"`

	// udp-broadcast
	BroadcastAddress string `yaml:"broadcast_address"`
	EndpointLock     bool   `yaml:"endpoint_lock"`

	// serial
	Device      string `yaml:"device"`
	Baud        int    `yaml:"baud"`
	FlowControl string `yaml:"flow_control"` // "hardware" or "none"

	// SeenTTL bounds how long a discovered sysid is remembered idle on
	// this link before it is evicted; 0 uses the default.
	SeenTTL Duration `yaml:"seen_ttl"`

	// OutboundQueueLength bounds the per-link writer queue; 0 uses the
	// default.
	OutboundQueueLength int `yaml:"outbound_queue_length"`

	// KillThreshold is the consecutive I/O error count after which a
	// serial link marks itself dead; 0 uses the default.
	KillThreshold int64 `yaml:"kill_threshold"`
}

const (
	DefaultSeenTTL             = 10 * time.Second
	DefaultOutboundQueueLength = 256
	DefaultInboundQueueLength  = 1024
	DefaultSerialKillThreshold = 20
	DefaultUDPServerPeerTTL    = 30 * time.Second
)

// Load reads and validates a router configuration file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", filename, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", filename, err)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.StatsIntervalS <= 0 {
		cfg.Log.StatsIntervalS = 30
	}
	for i := range cfg.Links {
		if cfg.Links[i].SeenTTL <= 0 {
			cfg.Links[i].SeenTTL = Duration(DefaultSeenTTL)
		}
		if cfg.Links[i].OutboundQueueLength <= 0 {
			cfg.Links[i].OutboundQueueLength = DefaultOutboundQueueLength
		}
		if cfg.Links[i].Kind == "serial" && cfg.Links[i].KillThreshold <= 0 {
			cfg.Links[i].KillThreshold = DefaultSerialKillThreshold
		}
		if cfg.Links[i].Kind == "udp-server" && cfg.Links[i].PeerTTL <= 0 {
			cfg.Links[i].PeerTTL = Duration(DefaultUDPServerPeerTTL)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that every link is internally consistent for its kind.
func (c *Config) Validate() error {
	if len(c.Links) < 2 {
		return fmt.Errorf("at least two links are required to route between")
	}
	names := make(map[string]bool, len(c.Links))
	for _, l := range c.Links {
		if l.Name == "" {
			return fmt.Errorf("link name cannot be empty")
		}
		if names[l.Name] {
			return fmt.Errorf("duplicate link name %q", l.Name)
		}
		names[l.Name] = true

		switch l.Kind {
		case "udp-client":
			if l.RemoteAddress == "" {
				return fmt.Errorf("link %q: udp-client requires remote_address", l.Name)
			}
		case "udp-server":
			if l.ListenAddress == "" {
				return fmt.Errorf("link %q: udp-server requires listen_address", l.Name)
			}
		case "udp-broadcast":
			if l.ListenAddress == "" || l.BroadcastAddress == "" {
				return fmt.Errorf("link %q: udp-broadcast requires listen_address and broadcast_address", l.Name)
			}
		case "serial":
			if l.Device == "" || l.Baud <= 0 {
				return fmt.Errorf("link %q: serial requires device and a positive baud", l.Name)
			}
		default:
			return fmt.Errorf("link %q: unknown kind %q", l.Name, l.Kind)
		}
	}
	if c.Shell.Enabled && c.Shell.Address == "" {
		return fmt.Errorf("shell.address cannot be empty when shell.enabled is true")
	}
	return nil
}

// Save writes cfg back out as YAML.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", filename, err)
	}
	return nil
}
