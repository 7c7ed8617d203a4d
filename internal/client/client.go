package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/ctfkit/instanced/internal/protocol"
)

// Bound on a call when the context carries no deadline.
const DefaultTimeout = 2 * time.Minute

// Talks to the daemon listening on a Unix socket.
type Client struct {
	socketPath string // Path to the daemon socket.
}

// Creates a client for the daemon at socketPath.
func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Sends cmd with payload and decodes the response payload into result.
//
// Payload and result may be nil. The call is bounded by the context deadline,
// or by [DefaultTimeout] when there is none.
func (c *Client) Call(ctx context.Context, cmd protocol.Command, payload, result any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResponse, err)
	}

	env, raw, err := protocol.Decode(line)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrResponse, err)
	}

	switch env.Command {
	case protocol.CmdOK:
	case protocol.CmdError:
		res, err := protocol.DecodePayload[protocol.ErrorResult](raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrResponse, err)
		}
		return fmt.Errorf("%w: %s", ErrDaemon, res.Message)
	default:
		return fmt.Errorf("%w: unexpected command %q", ErrResponse, env.Command)
	}

	if result == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("%w: %w", ErrResponse, err)
	}
	return nil
}
