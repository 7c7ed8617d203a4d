package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/go-connections/nat"
)

// Container state reported for a started, not yet exited container.
const stateRunning = "running"

// Describes a challenge instance to launch.
type RunOptions struct {
	Image       string    // Image digest to run.
	Team        string    // Owning team, stored in the owner label.
	ChallengeID string    // Challenge, stored in the challenge label.
	ExpiresAt   time.Time // Scheduled expiry, stored in the delete_at label.
}

// Launches a container for a challenge instance.
//
// The container publishes all exposed ports on random host ports and is
// removed by the daemon when it exits. After it starts, the container is
// inspected to read back the assigned port mappings. If starting or
// inspecting fails the container is force-removed so that no unit is left
// running without a caller knowing its ID.
func (d *Docker) Run(ctx context.Context, opts RunOptions) (instance.Unit, error) {
	cli, err := d.client(ctx)
	if err != nil {
		return instance.Unit{}, err
	}

	ctx, cancel := d.bound(ctx)
	defer cancel()

	config := &container.Config{
		Image:  opts.Image,
		Labels: labels(opts),
	}
	hostConfig := &container.HostConfig{
		AutoRemove:      true,
		PublishAllPorts: true,
	}

	created, err := cli.ContainerCreate(ctx, config, hostConfig, nil, d.platform, "")
	if err != nil {
		return instance.Unit{}, translate(err, instance.ErrCreateFailed)
	}
	for _, w := range created.Warnings {
		slog.Warn("container created with warning", "id", created.ID, "warning", w)
	}

	if err := cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		d.discard(created.ID)
		return instance.Unit{}, translate(err, instance.ErrCreateFailed)
	}

	info, err := cli.ContainerInspect(ctx, created.ID)
	if err != nil {
		d.discard(created.ID)
		return instance.Unit{}, translate(err, instance.ErrCreateFailed)
	}

	unit := inspectUnit(info)
	slog.Debug("container started", "id", unit.ID, "team", opts.Team, "challenge", opts.ChallengeID, "ports", unit.Ports.String())

	return unit, nil
}

// Lists the containers labeled as owned by team, including those that are
// not running.
//
// A container whose create call timed out on the client side may exist on
// the daemon without ever being started, and AutoRemove never applies to it.
// Listing every state lets reconciliation find and remove such containers.
func (d *Docker) List(ctx context.Context, team string) ([]instance.Unit, error) {
	cli, err := d.client(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := d.bound(ctx)
	defer cancel()

	summaries, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelOwner+"="+team)),
	})
	if err != nil {
		return nil, translate(err, instance.ErrRuntimeUnavailable)
	}

	units := make([]instance.Unit, 0, len(summaries))
	for _, s := range summaries {
		units = append(units, summaryUnit(s))
	}
	return units, nil
}

// Force-removes the container with the given ID.
//
// Returns an error matching [instance.ErrNotFound] when the container does
// not exist, and [instance.ErrDeleteFailed] for any other daemon error.
func (d *Docker) Remove(ctx context.Context, id string) error {
	cli, err := d.client(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := d.bound(ctx)
	defer cancel()

	if err := cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return translate(err, instance.ErrDeleteFailed)
	}

	slog.Debug("container removed", "id", id)
	return nil
}

// Best-effort removal of a container the caller is abandoning.
//
// Uses a fresh context so that a cancelled or timed-out request still
// cleans up after itself.
func (d *Docker) discard(id string) {
	ctx, cancel := d.bound(context.Background())
	defer cancel()

	if err := d.Remove(ctx, id); err != nil {
		slog.Warn("failed to discard container", "id", id, "error", err)
	}
}

// Builds a unit from a container inspection.
func inspectUnit(info container.InspectResponse) instance.Unit {
	u := instance.Unit{Ports: instance.Ports{}}

	if info.ContainerJSONBase != nil {
		u.ID = info.ID
		u.Image = info.Image
		if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
			u.CreatedAt = t.UTC()
		}
		if info.State != nil {
			u.Running = info.State.Running
		}
	}
	if info.Config != nil {
		applyLabels(&u, info.Config.Labels)
	}
	if info.NetworkSettings != nil {
		u.Ports = portMap(info.NetworkSettings.Ports)
	}

	return u
}

// Builds a unit from a container list entry.
func summaryUnit(s container.Summary) instance.Unit {
	u := instance.Unit{
		ID:        s.ID,
		Image:     s.ImageID,
		CreatedAt: time.Unix(s.Created, 0).UTC(),
		Ports:     instance.Ports{},
		Running:   string(s.State) == stateRunning,
	}
	applyLabels(&u, s.Labels)

	for _, p := range s.Ports {
		if p.PublicPort == 0 {
			continue
		}
		key := fmt.Sprintf("%d/%s", p.PrivatePort, p.Type)
		if _, ok := u.Ports[key]; !ok {
			u.Ports[key] = strconv.Itoa(int(p.PublicPort))
		}
	}

	return u
}

// Flattens a port map to the first host binding of each container port.
func portMap(pm nat.PortMap) instance.Ports {
	ports := make(instance.Ports, len(pm))
	for port, bindings := range pm {
		for _, b := range bindings {
			if b.HostPort != "" {
				ports[string(port)] = b.HostPort
				break
			}
		}
	}
	return ports
}
