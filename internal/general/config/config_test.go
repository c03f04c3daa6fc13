package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_AMQP_PASSWORD", "s3cret")

	path := writeConfig(t, `
# client config
server:
  base_url: "http://localhost:3000"
  timeout_seconds: 5

push:
  transport: amqp
  amqp_host: broker.local
  amqp_port: 5673
  amqp_user: driver
  amqp_password: ${TEST_AMQP_PASSWORD}

storage:
  state_dir: /tmp/companion

control:
  addr: "127.0.0.1:7171"

log:
  capacity: 10
  poll_interval_seconds: 3
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:3000" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.TimeoutSeconds != 5 {
		t.Errorf("timeout_seconds = %d", cfg.Server.TimeoutSeconds)
	}
	if cfg.Push.Transport != "amqp" || cfg.Push.AMQPHost != "broker.local" || cfg.Push.AMQPPort != 5673 {
		t.Errorf("push = %+v", cfg.Push)
	}
	if cfg.Push.AMQPPassword != "s3cret" {
		t.Errorf("amqp_password = %q, want env expansion", cfg.Push.AMQPPassword)
	}
	if cfg.Push.Prefetch != 8 {
		t.Errorf("prefetch default = %d, want 8", cfg.Push.Prefetch)
	}
	if cfg.Storage.StateDir != "/tmp/companion" {
		t.Errorf("state_dir = %q", cfg.Storage.StateDir)
	}
	if cfg.Control.Addr != "127.0.0.1:7171" {
		t.Errorf("control.addr = %q", cfg.Control.Addr)
	}
	if cfg.Log.Capacity != 10 || cfg.Log.PollIntervalSeconds != 3 {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadFromFileDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: http://localhost:3000

push:
  transport: websocket
  gateway_url: ws://localhost:3001/ws/driver
`)

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.TimeoutSeconds != 10 {
		t.Errorf("timeout default = %d, want 10", cfg.Server.TimeoutSeconds)
	}
	if cfg.Control.Addr != "127.0.0.1:7077" {
		t.Errorf("control default = %q", cfg.Control.Addr)
	}
	if cfg.Log.Capacity != 50 || cfg.Log.PollIntervalSeconds != 15 {
		t.Errorf("log defaults = %+v", cfg.Log)
	}
	if cfg.Storage.StateDir == "" {
		t.Error("state_dir default is empty")
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown top-level key",
			content: "database:\n  host: x\n",
			want:    "unknown top-level key",
		},
		{
			name:    "unknown key in section",
			content: "server:\n  base_url: x\n  bogus: y\n",
			want:    "unknown key in server",
		},
		{
			name:    "duplicate section",
			content: "server:\n  base_url: x\nserver:\n  base_url: y\n",
			want:    "duplicate 'server' section",
		},
		{
			name:    "key without section",
			content: "  base_url: x\n",
			want:    "key without a section",
		},
		{
			name:    "non-int port",
			content: "server:\n  base_url: x\npush:\n  amqp_port: nope\n",
			want:    "push.amqp_port must be int",
		},
		{
			name:    "missing base_url",
			content: "push:\n  transport: websocket\n  gateway_url: ws://x\n",
			want:    "server.base_url is required",
		},
		{
			name:    "bad transport",
			content: "server:\n  base_url: x\npush:\n  transport: carrier-pigeon\n",
			want:    "push.transport must be",
		},
		{
			name:    "websocket without gateway",
			content: "server:\n  base_url: x\npush:\n  transport: websocket\n",
			want:    "push.gateway_url is required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := LoadFromFile(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error = %v, want substring %q", err, tc.want)
			}
		})
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}

func TestResolveScalar(t *testing.T) {
	t.Setenv("TEST_SCALAR", "value")

	cases := []struct{ in, want string }{
		{`"localhost"`, "localhost"},
		{`'password123'`, "password123"},
		{`plain`, "plain"},
		{`${TEST_SCALAR}`, "value"},
		{`${TEST_SCALAR_UNSET}`, ""},
		{`  spaced  `, "spaced"},
	}
	for _, tc := range cases {
		if got := resolveScalar(tc.in); got != tc.want {
			t.Errorf("resolveScalar(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
