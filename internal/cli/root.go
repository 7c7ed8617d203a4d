package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/ctfkit/instanced/internal"
	"github.com/ctfkit/instanced/internal/client"
	"github.com/ctfkit/instanced/internal/paths"
)

// Represents the root command for instanced.
var RootCmd struct {
	Quiet    bool        `short:"q" help:"Suppress informational output."`
	Verbose  bool        `short:"v" help:"Enable verbose output."`
	Debug    bool        `short:"d" help:"Enable debug output."`
	Socket   string      `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	Start    StartCmd    `cmd:"" help:"Start the daemon."`
	Stop     StopCmd     `cmd:"" help:"Stop a running daemon."`
	Status   StatusCmd   `cmd:"" help:"Show daemon status."`
	Instance InstanceCmd `cmd:"" help:"Manage challenge instances."`
	Image    ImageCmd    `cmd:"" help:"Manage published challenge images."`
	Version  VersionCmd  `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Per-team challenge instance daemon.\n\nLaunches challenge containers on demand and keeps their records in line with the container daemon."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Configures the global logger based on CLI flags.
//
// Flags only ever enable a mode; build-time defaults stay in effect otherwise.
func configureLogger() {
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	internal.LogLevel.Set(internal.Level())

	if internal.IsVerbose() {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:     internal.LogLevel,
			AddSource: true,
		})
		slog.SetDefault(slog.New(handler).With("daemon", internal.Name))
	}
}

// Returns the socket path selected by flags.
func socketPath() string {
	if RootCmd.Socket != "" {
		return RootCmd.Socket
	}
	return paths.Socket()
}

// Returns a client for the daemon selected by flags.
func dial() *client.Client {
	return client.New(socketPath())
}
