package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "router.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: gcs
    kind: udp-client
    remote_address: "127.0.0.1:14550"
  - name: autopilot
    kind: serial
    device: /dev/ttyACM0
    baud: 57600
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("log level default = %q, want info", cfg.Log.Level)
	}
	if cfg.Links[1].KillThreshold != DefaultSerialKillThreshold {
		t.Fatalf("serial kill threshold = %d, want default %d", cfg.Links[1].KillThreshold, DefaultSerialKillThreshold)
	}
	if cfg.Links[0].SeenTTL != Duration(DefaultSeenTTL) {
		t.Fatalf("seen ttl = %v, want default %v", cfg.Links[0].SeenTTL, DefaultSeenTTL)
	}
}

func TestLoad_RejectsUnknownKind(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: a
    kind: bogus
  - name: b
    kind: udp-client
    remote_address: "127.0.0.1:1"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown link kind")
	}
}

func TestLoad_RejectsFewerThanTwoLinks(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: a
    kind: udp-client
    remote_address: "127.0.0.1:1"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for fewer than two links")
	}
}

func TestLoad_RejectsDuplicateNames(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: a
    kind: udp-client
    remote_address: "127.0.0.1:1"
  - name: a
    kind: udp-client
    remote_address: "127.0.0.1:2"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for duplicate link names")
	}
}

func TestLoad_ShellRequiresAddressWhenEnabled(t *testing.T) {
	path := writeTempConfig(t, `
shell:
  enabled: true
links:
  - name: a
    kind: udp-client
    remote_address: "127.0.0.1:1"
  - name: b
    kind: udp-client
    remote_address: "127.0.0.1:2"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error when shell is enabled without an address")
	}
}

func TestLoad_ParsesHumanDurations(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: gcs
    kind: udp-server
    listen_address: "0.0.0.0:14550"
    peer_ttl: "45s"
    seen_ttl: "2m"
  - name: relay
    kind: udp-client
    remote_address: "127.0.0.1:14551"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := time.Duration(cfg.Links[0].PeerTTL); got != 45*time.Second {
		t.Fatalf("peer ttl = %v, want 45s", got)
	}
	if got := time.Duration(cfg.Links[0].SeenTTL); got != 2*time.Minute {
		t.Fatalf("seen ttl = %v, want 2m", got)
	}
}

func TestLoad_RejectsMalformedDuration(t *testing.T) {
	path := writeTempConfig(t, `
links:
  - name: gcs
    kind: udp-server
    listen_address: "0.0.0.0:14550"
    peer_ttl: "soon"
  - name: relay
    kind: udp-client
    remote_address: "127.0.0.1:14551"
`)
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for a malformed duration string")
	}
}
