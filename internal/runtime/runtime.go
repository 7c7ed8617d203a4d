package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/containerd/platforms"
	"github.com/ctfkit/instanced/internal/instance"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

const (

	// Docker socket used when no remote daemon is configured.
	DefaultHost = "unix:///var/run/docker.sock"

	// Bound applied to each daemon call when the configuration sets none.
	DefaultTimeout = 60 * time.Second
)

// Holds the daemon connection parameters.
type Config struct {
	Host       string        // Remote daemon URL (e.g., "tcp://10.0.0.5:2376").
	CACert     string        // Path to the CA certificate for the remote daemon.
	ClientCert string        // Path to the client certificate.
	ClientKey  string        // Path to the client key.
	Platform   string        // Platform for new containers (e.g., "linux/amd64"). Empty uses the daemon default.
	Timeout    time.Duration // Bound on each daemon call. Zero uses [DefaultTimeout].
}

// Reports whether every remote TLS parameter is set.
func (c Config) Remote() bool {
	return c.Host != "" && c.CACert != "" && c.ClientCert != "" && c.ClientKey != ""
}

// Client for the Docker daemon that runs challenge instances.
//
// The connection is established on first use and shared by all callers.
// Concurrent first calls result in exactly one connection; a failed attempt
// is not cached, so the next call tries again.
type Docker struct {
	cfg      Config                               // Connection parameters.
	platform *ocispec.Platform                    // Parsed platform, nil for the daemon default.
	connect  func(Config) (*client.Client, error) // Builds the API client; replaced in tests.
	cli      atomic.Pointer[client.Client]        // Established client, nil until first use.
	mu       sync.Mutex                           // Serializes connection attempts.
}

// Creates a Docker runtime from the given configuration.
//
// No connection is made until the first operation. The runtime must be closed
// when no longer needed.
func New(cfg Config) (*Docker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	d := &Docker{cfg: cfg, connect: connect}

	if cfg.Platform != "" {
		p, err := platforms.Parse(cfg.Platform)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidPlatform, err)
		}
		d.platform = &p
	}

	return d, nil
}

// Builds an API client for the remote TLS daemon when fully configured,
// otherwise for the local socket.
func connect(cfg Config) (*client.Client, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}

	if cfg.Remote() {
		slog.Debug("connecting to docker daemon with tls", "host", cfg.Host)
		opts = append(opts,
			client.WithHost(cfg.Host),
			client.WithTLSClientConfig(cfg.CACert, cfg.ClientCert, cfg.ClientKey),
		)
	} else {
		slog.Debug("connecting to docker daemon on local socket", "host", DefaultHost)
		opts = append(opts, client.WithHost(DefaultHost))
	}

	return client.NewClientWithOpts(opts...)
}

// Returns the shared API client, connecting and pinging the daemon on first
// use.
//
// Any failure is reported as [instance.ErrRuntimeUnavailable].
func (d *Docker) client(ctx context.Context) (*client.Client, error) {
	if cli := d.cli.Load(); cli != nil {
		return cli, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cli := d.cli.Load(); cli != nil {
		return cli, nil
	}

	cli, err := d.connect(d.cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", instance.ErrRuntimeUnavailable, err)
	}

	ctx, cancel := d.bound(ctx)
	defer cancel()

	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("%w: %w", instance.ErrRuntimeUnavailable, err)
	}

	d.cli.Store(cli)
	slog.Info("connected to docker daemon", "host", cli.DaemonHost(), "api", cli.ClientVersion())

	return cli, nil
}

// Derives a context bounded by the configured daemon timeout.
func (d *Docker) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.cfg.Timeout)
}

// Closes the daemon connection, if one was established.
func (d *Docker) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	cli := d.cli.Swap(nil)
	if cli == nil {
		return nil
	}
	return cli.Close()
}
