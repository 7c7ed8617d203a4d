package main

import (
	"log/slog"
	"os"

	"github.com/ctfkit/instanced/internal"
	"github.com/ctfkit/instanced/internal/cli"
)

// The entry point for the instanced daemon and its client commands.
//
// Installs the default logger, records startup information, and executes the
// command line. Exits with a non-zero code if the command fails.
func main() {
	slog.SetDefault(logger())

	slog.Debug("starting", internal.BuildAttr(),
		"pid", os.Getpid(),
		"cwd", cwd(),
		"args", os.Args,
	)

	if err := cli.Execute(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

// Creates a text logger on stderr whose level follows [internal.LogLevel].
//
// The level is adjusted after flag parsing via cli.Execute.
func logger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: internal.LogLevel,
	})
	return slog.New(handler).With("daemon", internal.Name)
}

// Returns the current working directory or "(unknown)".
func cwd() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "(unknown)"
	}
	return cwd
}
