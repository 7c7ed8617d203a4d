package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	daemonName = "instanced"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644
)

// Path to the directory for runtime files (sockets, PIDs).
//
//	Linux:   $XDG_RUNTIME_DIR/instanced or /run/user/<uid>/instanced
//	macOS:   ~/Library/Caches/instanced/run
func Runtime() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, daemonName)
	}
	return filepath.Join(xdg.CacheHome, daemonName, "run")
}

// Default path to the Unix domain socket for CLI-to-daemon communication.
//
//	Linux:   $XDG_RUNTIME_DIR/instanced/instanced.sock
//	macOS:   ~/Library/Caches/instanced/run/instanced.sock
func Socket() string {
	return filepath.Join(Runtime(), daemonName+".sock")
}

// Default path to the PID file.
//
//	Linux:   $XDG_RUNTIME_DIR/instanced/instanced.pid
//	macOS:   ~/Library/Caches/instanced/run/instanced.pid
func PIDFile() string {
	return filepath.Join(Runtime(), daemonName+".pid")
}

// Path to the directory for persistent state.
//
//	Linux:   $XDG_DATA_HOME/instanced or ~/.local/share/instanced
//	macOS:   ~/Library/Application Support/instanced
func Data() string {
	return filepath.Join(xdg.DataHome, daemonName)
}

// Default path to the instance record database.
//
//	Linux:   $XDG_DATA_HOME/instanced/instanced.db
//	macOS:   ~/Library/Application Support/instanced/instanced.db
func Database() string {
	return filepath.Join(Data(), daemonName+".db")
}
