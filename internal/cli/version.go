package cli

import (
	"context"
	"fmt"

	"github.com/ctfkit/instanced/internal"
	"github.com/ctfkit/instanced/internal/protocol"
)

// Represents the 'instanced version' command.
type VersionCmd struct{}

// Executes the version command.
func (c *VersionCmd) Run(ctx context.Context) error {
	fmt.Println(internal.VersionString())
	return nil
}

// Represents the 'instanced status' command.
type StatusCmd struct{}

// Executes the status command.
func (c *StatusCmd) Run(ctx context.Context) error {
	var res protocol.StatusResult
	if err := dial().Call(ctx, protocol.CmdStatus, nil, &res); err != nil {
		return err
	}

	fmt.Printf("version:  %s\npid:      %d\nuptime:   %s\nrequests: %d\n", res.Version, res.Pid, res.Uptime, res.Requests)
	return nil
}
