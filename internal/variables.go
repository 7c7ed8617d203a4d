package internal

import (
	"fmt"
	"log/slog"
	"runtime"
	"strings"
)

const (

	// Name of the daemon, used for logging, sockets, and default paths.
	Name = "instanced"

	// Placeholder for a build variable that was not injected.
	defaultUndefined = "(undefined)"

	// Version string reported by binaries built outside the release pipeline.
	defaultLocalBuild = "(local)"

	// Release branch; omitted from version strings.
	mainBranch = "main"
)

// Injected with -ldflags "-X github.com/ctfkit/instanced/internal.version=..."
var (
	version   = "" // Release version (e.g., "v0.4.1").
	stage     = "" // Git branch the release was cut from.
	gitCommit = "" // Short commit hash.

	rawQuiet   = "false" // Build-time default for quiet mode.
	rawDebug   = "false" // Build-time default for debug mode.
	rawVerbose = "false" // Build-time default for verbose logging.
)

// Returns the release version without any "v" prefix, or "(undefined)".
func Version() string {
	v := strings.ToLower(strings.TrimSpace(version))
	if v == "" {
		return defaultUndefined
	}
	return strings.TrimPrefix(v, "v")
}

// Returns the branch the binary was built from, or "(undefined)".
func Stage() string {
	s := strings.ToLower(strings.TrimSpace(stage))
	if s == "" {
		return defaultUndefined
	}
	return s
}

// Returns the commit hash, or "(undefined)".
func GitCommit() string {
	c := strings.TrimSpace(gitCommit)
	if c == "" {
		return defaultUndefined
	}
	return c
}

// Reports whether any release variable is missing.
func IsLocal() bool {
	return strings.TrimSpace(version) == "" ||
		strings.TrimSpace(gitCommit) == "" ||
		strings.TrimSpace(stage) == ""
}

// Returns "<version>[+<stage>] <commit> [<arch>]", or "(local)" for builds
// made outside the release pipeline.
func VersionString() string {
	if IsLocal() {
		return defaultLocalBuild
	}

	suffix := ""
	if s := Stage(); s != mainBranch {
		suffix = "+" + s
	}

	return fmt.Sprintf("%s%s %s [%s]", Version(), suffix, GitCommit(), runtime.GOARCH)
}

// Returns the build information as a log group.
func BuildAttr() slog.Attr {
	return slog.Group("build",
		"version", Version(),
		"stage", Stage(),
		"commit", GitCommit(),
		"arch", runtime.GOARCH,
	)
}
