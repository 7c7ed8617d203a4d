package cli

import (
	"context"
	"log/slog"

	"github.com/ctfkit/instanced/internal/catalog"
	"github.com/ctfkit/instanced/internal/config"
	"github.com/ctfkit/instanced/internal/engine"
	"github.com/ctfkit/instanced/internal/protocol"
	"github.com/ctfkit/instanced/internal/runtime"
	"github.com/ctfkit/instanced/internal/server"
	"github.com/ctfkit/instanced/internal/store"
)

// Represents the 'instanced start' command.
type StartCmd struct{}

// Executes the start command.
//
// Opens the record store, prepares the container runtime client, and serves
// requests on a Unix domain socket until the context is cancelled (e.g. via
// SIGINT or SIGTERM) or a shutdown command is received. The container daemon
// is not contacted until the first request that needs it.
func (c *StartCmd) Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	rt, err := runtime.New(cfg.Runtime())
	if err != nil {
		return err
	}
	defer rt.Close()

	cat := catalog.New(st)
	eng := engine.New(rt, st, cat, cfg.Engine())

	srv, err := server.New(server.Config{
		SocketPath: RootCmd.Socket,
		Engine:     eng,
		Registry:   cat,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("instanced is running",
		"database", cfg.Database,
		"remote", cfg.Runtime().Remote(),
		"quota", cfg.Quota,
		"ttl", cfg.TTL,
	)

	select {
	case <-ctx.Done():
	case <-srv.Done():
	}

	slog.Info("shutting down")
	return srv.Stop()
}

// Represents the 'instanced stop' command.
type StopCmd struct{}

// Executes the stop command.
func (c *StopCmd) Run(ctx context.Context) error {
	return dial().Call(ctx, protocol.CmdShutdown, nil, nil)
}
