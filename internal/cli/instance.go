package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/protocol"
)

// Represents the 'instanced instance' command group.
type InstanceCmd struct {
	Create  InstanceCreateCmd  `cmd:"" help:"Launch a challenge instance for a team."`
	Delete  InstanceDeleteCmd  `cmd:"" help:"Remove a challenge instance."`
	Reset   InstanceResetCmd   `cmd:"" help:"Replace a challenge instance with a fresh one."`
	List    InstanceListCmd    `cmd:"" help:"List a team's challenge instances."`
	Expired InstanceExpiredCmd `cmd:"" help:"List instances past their expiry time."`
}

// Represents the 'instanced instance create' command.
type InstanceCreateCmd struct {
	Team  string `arg:"" help:"Team identifier."`
	Image string `arg:"" help:"Challenge image digest."`
}

// Executes the instance create command.
func (c *InstanceCreateCmd) Run(ctx context.Context) error {
	var res protocol.InstanceResult
	req := &protocol.CreateRequest{Team: c.Team, Image: c.Image}
	if err := dial().Call(ctx, protocol.CmdInstanceCreate, req, &res); err != nil {
		return err
	}
	return printInstanceResult(os.Stdout, res)
}

// Represents the 'instanced instance delete' command.
type InstanceDeleteCmd struct {
	ID string `arg:"" help:"Full container ID of the instance."`
}

// Executes the instance delete command.
func (c *InstanceDeleteCmd) Run(ctx context.Context) error {
	var res protocol.DeleteResult
	if err := dial().Call(ctx, protocol.CmdInstanceDelete, &protocol.DeleteRequest{ID: c.ID}, &res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("%w: %s", ErrRequest, res.Message)
	}
	fmt.Println(c.ID)
	return nil
}

// Represents the 'instanced instance reset' command.
type InstanceResetCmd struct {
	Team  string `arg:"" help:"Team identifier."`
	ID    string `arg:"" help:"Full container ID of the instance to replace."`
	Image string `arg:"" help:"Challenge image digest."`
}

// Executes the instance reset command.
func (c *InstanceResetCmd) Run(ctx context.Context) error {
	var res protocol.InstanceResult
	req := &protocol.ResetRequest{Team: c.Team, ID: c.ID, Image: c.Image}
	if err := dial().Call(ctx, protocol.CmdInstanceReset, req, &res); err != nil {
		return err
	}
	return printInstanceResult(os.Stdout, res)
}

// Represents the 'instanced instance list' command.
type InstanceListCmd struct {
	Team string `arg:"" help:"Team identifier."`
	Live bool   `short:"l" help:"Check with the container daemon instead of reading records only."`
}

// Executes the instance list command.
func (c *InstanceListCmd) Run(ctx context.Context) error {
	var res protocol.ListResult
	req := &protocol.ListRequest{Team: c.Team, Live: c.Live}
	if err := dial().Call(ctx, protocol.CmdInstanceList, req, &res); err != nil {
		return err
	}
	return printInstances(os.Stdout, res.Instances, time.Now())
}

// Represents the 'instanced instance expired' command.
type InstanceExpiredCmd struct{}

// Executes the instance expired command.
func (c *InstanceExpiredCmd) Run(ctx context.Context) error {
	var res protocol.ListResult
	if err := dial().Call(ctx, protocol.CmdInstanceExpired, nil, &res); err != nil {
		return err
	}
	return printInstances(os.Stdout, res.Instances, time.Now())
}

// Prints the instance from a create or reset result, or returns the
// daemon's message as an error.
func printInstanceResult(w io.Writer, res protocol.InstanceResult) error {
	if !res.Success || res.Instance == nil {
		return fmt.Errorf("%w: %s", ErrRequest, res.Message)
	}
	return printInstances(w, []instance.Instance{*res.Instance}, time.Now())
}

// Prints instances as an aligned table.
func printInstances(w io.Writer, insts []instance.Instance, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTEAM\tCHALLENGE\tPORTS\tEXPIRES")
	for _, inst := range insts {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			shortID(inst.RuntimeID),
			inst.Team,
			inst.ChallengeID,
			inst.Ports.String(),
			expiresIn(inst, now),
		)
	}
	return tw.Flush()
}

// Returns the first 12 characters of a container ID, as the Docker CLI shows.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Describes the time left before an instance expires.
func expiresIn(inst instance.Instance, now time.Time) string {
	if inst.ExpiresAt.IsZero() {
		return "-"
	}
	if inst.Expired(now) {
		return "expired"
	}
	return inst.ExpiresAt.Sub(now).Truncate(time.Second).String()
}
