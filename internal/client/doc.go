// Sends commands to a running instanced daemon over its Unix socket.
//
// Each call opens a connection, writes one request envelope, reads one
// response, and closes the connection. A [protocol.CmdError] response is
// returned as an error wrapping [ErrDaemon].
//
// Example usage:
//
//	c := client.New(paths.Socket())
//
//	var res protocol.InstanceResult
//	err := c.Call(ctx, protocol.CmdInstanceCreate, &protocol.CreateRequest{
//	    Team:  "team1",
//	    Image: "sha256:4f2a...",
//	}, &res)
package client
