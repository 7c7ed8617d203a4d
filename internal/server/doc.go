// Package server implements the instanced daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the instanced CLI and from the platform's web tier. Each connection
// carries a single request-response exchange: the client sends a
// newline-delimited JSON envelope, the server dispatches the command, and
// writes the result back before closing the connection.
//
// Lifecycle commands are delegated to the engine package. Engine errors are
// translated into short user messages; rejections caused by the request
// (quota, duplicate, bad reference) are logged at info level, failures of
// the container daemon or the record store at error level with their full
// detail.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    Engine:   eng,
//	    Registry: cat,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
