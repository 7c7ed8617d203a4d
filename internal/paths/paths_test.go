package paths

import (
	"path/filepath"
	"testing"
)

func TestRuntimeFiles(t *testing.T) {
	tests := []struct {
		name string
		path string
		base string
	}{
		{"socket", Socket(), "instanced.sock"},
		{"pid", PIDFile(), "instanced.pid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if filepath.Dir(tt.path) != Runtime() {
				t.Fatalf("%s not under runtime dir %s", tt.path, Runtime())
			}
			if filepath.Base(tt.path) != tt.base {
				t.Fatalf("base = %q, want %q", filepath.Base(tt.path), tt.base)
			}
		})
	}
}

func TestDatabase(t *testing.T) {
	db := Database()
	if filepath.Dir(db) != Data() {
		t.Fatalf("%s not under data dir %s", db, Data())
	}
	if filepath.Base(Data()) != "instanced" {
		t.Fatalf("unexpected data dir %s", Data())
	}
	if !filepath.IsAbs(db) {
		t.Fatalf("expected absolute path, got %s", db)
	}
}
