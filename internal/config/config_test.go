package config

import (
	"errors"
	"testing"
	"time"

	"github.com/ctfkit/instanced/internal/paths"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Quota != 2 {
		t.Fatalf("Quota = %d, want 2", cfg.Quota)
	}
	if cfg.TTL != 20*time.Minute {
		t.Fatalf("TTL = %s, want 20m", cfg.TTL)
	}
	if cfg.DaemonTimeout != 60*time.Second {
		t.Fatalf("DaemonTimeout = %s, want 60s", cfg.DaemonTimeout)
	}
	if cfg.Database != paths.Database() {
		t.Fatalf("Database = %q, want %q", cfg.Database, paths.Database())
	}
	if cfg.Runtime().Remote() {
		t.Fatal("expected local daemon by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("INSTANCED_QUOTA", "5")
	t.Setenv("INSTANCED_TTL", "1h")
	t.Setenv("INSTANCED_DAEMON_TIMEOUT", "10s")
	t.Setenv("INSTANCED_PLATFORM", "linux/arm64")
	t.Setenv("INSTANCED_DATABASE", "/var/lib/instanced/records.db")
	t.Setenv("INSTANCED_DOCKER_HOST", "tcp://10.0.0.5:2376")
	t.Setenv("INSTANCED_DOCKER_CA", "/etc/instanced/ca.pem")
	t.Setenv("INSTANCED_DOCKER_CLIENT", "/etc/instanced/cert.pem")
	t.Setenv("INSTANCED_DOCKER_KEY", "/etc/instanced/key.pem")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	rt := cfg.Runtime()
	if !rt.Remote() || rt.Host != "tcp://10.0.0.5:2376" || rt.Timeout != 10*time.Second || rt.Platform != "linux/arm64" {
		t.Fatalf("unexpected runtime config %+v", rt)
	}

	opts := cfg.Engine()
	if opts.Quota != 5 || opts.TTL != time.Hour {
		t.Fatalf("unexpected engine options %+v", opts)
	}
	if cfg.Database != "/var/lib/instanced/records.db" {
		t.Fatalf("Database = %q", cfg.Database)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want error
	}{
		{"bad quota", map[string]string{"INSTANCED_QUOTA": "many"}, ErrConfig},
		{"zero quota", map[string]string{"INSTANCED_QUOTA": "0"}, ErrConfig},
		{"bad ttl", map[string]string{"INSTANCED_TTL": "soon"}, ErrConfig},
		{"negative ttl", map[string]string{"INSTANCED_TTL": "-1m"}, ErrConfig},
		{"zero timeout", map[string]string{"INSTANCED_DAEMON_TIMEOUT": "0s"}, ErrConfig},
		{"host only", map[string]string{"INSTANCED_DOCKER_HOST": "tcp://10.0.0.5:2376"}, ErrIncompleteTLS},
		{"missing key", map[string]string{
			"INSTANCED_DOCKER_HOST":   "tcp://10.0.0.5:2376",
			"INSTANCED_DOCKER_CA":     "/ca.pem",
			"INSTANCED_DOCKER_CLIENT": "/cert.pem",
		}, ErrIncompleteTLS},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
