// Parses flags and runs instanced commands.
//
// The same binary runs the daemon and talks to it:
//
//	instanced start                          Run the daemon.
//	instanced stop                           Ask a running daemon to exit.
//	instanced status                         Show daemon status.
//	instanced instance create TEAM IMAGE     Launch an instance.
//	instanced instance delete ID             Remove an instance.
//	instanced instance reset TEAM ID IMAGE   Replace an instance.
//	instanced instance list [-l] TEAM        List a team's instances.
//	instanced instance expired               List expired instances.
//	instanced image register DIGEST CHAL     Publish a challenge image.
//	instanced version                        Print version information.
//
// Global flags:
//
//	-q, --quiet     Suppress informational output.
//	-v, --verbose   Enable verbose output.
//	-d, --debug     Enable debug output.
//	-s, --socket    Unix socket path.
//
// Flags override build-time defaults set via linker flags. After parsing, the
// global logger is reconfigured to reflect the final level and verbosity before
// the command runs. Daemon settings come from the environment; see the config
// package.
package cli
