package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ctfkit/instanced/internal/engine"
	"github.com/ctfkit/instanced/internal/paths"
	"github.com/ctfkit/instanced/internal/runtime"
)

// Daemon settings read from INSTANCED_* environment variables.
type Config struct {
	DockerHost    string        `env:"INSTANCED_DOCKER_HOST"`                     // Remote daemon URL.
	DockerCA      string        `env:"INSTANCED_DOCKER_CA"`                       // CA certificate for the remote daemon.
	DockerCert    string        `env:"INSTANCED_DOCKER_CLIENT"`                   // Client certificate.
	DockerKey     string        `env:"INSTANCED_DOCKER_KEY"`                      // Client key.
	Platform      string        `env:"INSTANCED_PLATFORM"`                        // Platform for new containers.
	Quota         int           `env:"INSTANCED_QUOTA"          envDefault:"2"`   // Live instances per team.
	TTL           time.Duration `env:"INSTANCED_TTL"            envDefault:"20m"` // Instance lifetime.
	DaemonTimeout time.Duration `env:"INSTANCED_DAEMON_TIMEOUT" envDefault:"60s"` // Bound on each daemon call.
	Database      string        `env:"INSTANCED_DATABASE"`                        // Record database path. Empty uses [paths.Database].
}

// Reads the configuration from the environment and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	if cfg.Database == "" {
		cfg.Database = paths.Database()
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Checks ranges and that remote daemon settings are all or nothing.
func (c Config) Validate() error {
	if c.Quota < 1 {
		return fmt.Errorf("%w: INSTANCED_QUOTA must be at least 1, got %d", ErrConfig, c.Quota)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("%w: INSTANCED_TTL must be positive, got %s", ErrConfig, c.TTL)
	}
	if c.DaemonTimeout <= 0 {
		return fmt.Errorf("%w: INSTANCED_DAEMON_TIMEOUT must be positive, got %s", ErrConfig, c.DaemonTimeout)
	}

	set := 0
	for _, v := range []string{c.DockerHost, c.DockerCA, c.DockerCert, c.DockerKey} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 4 {
		return fmt.Errorf("%w: INSTANCED_DOCKER_HOST, INSTANCED_DOCKER_CA, INSTANCED_DOCKER_CLIENT and INSTANCED_DOCKER_KEY must be set together", ErrIncompleteTLS)
	}

	return nil
}

// Returns the runtime client settings.
func (c Config) Runtime() runtime.Config {
	return runtime.Config{
		Host:       c.DockerHost,
		CACert:     c.DockerCA,
		ClientCert: c.DockerCert,
		ClientKey:  c.DockerKey,
		Platform:   c.Platform,
		Timeout:    c.DaemonTimeout,
	}
}

// Returns the engine policy.
func (c Config) Engine() engine.Options {
	return engine.Options{
		Quota: c.Quota,
		TTL:   c.TTL,
	}
}
