// Provides platform-appropriate paths for the daemon.
//
// All paths follow XDG conventions on Linux and platform-native conventions
// on macOS and Windows. The daemon name "instanced" is used as the
// subdirectory under each base path. Runtime files (socket, PID) live under
// the runtime directory and are removed on shutdown; the record database
// lives under the data directory and survives restarts.
package paths
