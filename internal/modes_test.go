package internal

import (
	"log/slog"
	"testing"
)

func TestLevel(t *testing.T) {
	defer SetDebug(IsDebug())
	defer SetQuiet(IsQuiet())

	tests := []struct {
		name  string
		debug bool
		quiet bool
		want  slog.Level
	}{
		{name: "default", want: slog.LevelInfo},
		{name: "quiet", quiet: true, want: slog.LevelWarn},
		{name: "debug", debug: true, want: slog.LevelDebug},
		{name: "debug wins over quiet", debug: true, quiet: true, want: slog.LevelDebug},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetDebug(tt.debug)
			SetQuiet(tt.quiet)
			if got := Level(); got != tt.want {
				t.Fatalf("Level() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVersionStringLocal(t *testing.T) {
	if !IsLocal() {
		t.Skip("linker variables are set")
	}
	if got := VersionString(); got != defaultLocalBuild {
		t.Fatalf("VersionString() = %q, want %q", got, defaultLocalBuild)
	}
	if got := Version(); got != defaultUndefined {
		t.Fatalf("Version() = %q, want %q", got, defaultUndefined)
	}
}
