package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/runtime"
	"github.com/ctfkit/instanced/internal/store"
)

// Launches a challenge instance for team from the image named by ref.
//
// The reference is validated and resolved before the runtime is contacted.
// The team's state is then reconciled and checked against the quota and
// the one-instance-per-challenge rule. On a runtime failure nothing is
// recorded; on a record failure the new unit is removed again.
func (e *Engine) Create(ctx context.Context, team, ref string) (instance.Instance, error) {
	if err := instance.ValidateTeam(team); err != nil {
		return instance.Instance{}, err
	}

	img, err := e.catalog.Lookup(ctx, ref)
	if err != nil {
		return instance.Instance{}, err
	}

	defer e.lock(team)()
	return e.create(ctx, team, img)
}

// Create without validation or locking. The caller must hold the team lock.
func (e *Engine) create(ctx context.Context, team string, img instance.ChallengeImage) (instance.Instance, error) {
	live, err := e.reconcile(ctx, team)
	if err != nil {
		return instance.Instance{}, err
	}

	if len(live) >= e.quota {
		slog.Info("instance quota reached", "team", team, "live", len(live), "quota", e.quota)
		return instance.Instance{}, fmt.Errorf("%w: %d of %d running", instance.ErrQuotaExceeded, len(live), e.quota)
	}

	for _, inst := range live {
		if inst.ChallengeID == img.ChallengeID {
			slog.Info("instance already running", "team", team, "challenge", img.ChallengeID, "id", inst.RuntimeID)
			return instance.Instance{}, fmt.Errorf("%w: challenge %s", instance.ErrAlreadyRunning, img.ChallengeID)
		}
	}

	now := e.now().UTC().Truncate(time.Second)
	expires := now.Add(e.ttl)

	unit, err := e.runtime.Run(ctx, runtime.RunOptions{
		Image:       img.Digest.String(),
		Team:        team,
		ChallengeID: img.ChallengeID,
		ExpiresAt:   expires,
	})
	if err != nil {
		slog.Error("failed to launch instance", "team", team, "challenge", img.ChallengeID, "error", err)
		if !errors.Is(err, instance.ErrRuntimeUnavailable) && !errors.Is(err, instance.ErrCreateFailed) {
			err = fmt.Errorf("%w: %w", instance.ErrCreateFailed, err)
		}
		return instance.Instance{}, err
	}

	inst := instance.Instance{
		RuntimeID:   unit.ID,
		Team:        team,
		ChallengeID: img.ChallengeID,
		Image:       img.Digest.String(),
		Ports:       unit.Ports,
		CreatedAt:   now,
		ExpiresAt:   expires,
	}

	if err := e.store.Insert(context.WithoutCancel(ctx), inst); err != nil {
		e.abandon(ctx, unit.ID)
		if errors.Is(err, store.ErrConflict) {
			slog.Info("instance recorded concurrently", "team", team, "challenge", img.ChallengeID)
			return instance.Instance{}, fmt.Errorf("%w: challenge %s", instance.ErrAlreadyRunning, img.ChallengeID)
		}
		slog.Error("failed to record instance", "team", team, "id", unit.ID, "error", err)
		return instance.Instance{}, fmt.Errorf("%w: %w", instance.ErrCreateFailed, err)
	}

	slog.Info("instance created",
		"team", team,
		"challenge", img.ChallengeID,
		"id", inst.RuntimeID,
		"ports", inst.Ports.String(),
		"expires", inst.ExpiresAt,
	)

	return inst, nil
}

// Removes a unit that was launched but could not be recorded.
//
// Runs detached from ctx so that a cancelled request still cleans up. A unit
// that survives this is found as untracked by the next reconciliation.
func (e *Engine) abandon(ctx context.Context, id string) {
	if err := e.runtime.Remove(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, instance.ErrNotFound) {
		slog.Error("failed to remove unrecorded instance", "id", id, "error", err)
	}
}

// Removes the unit with the given ID and its records.
//
// A unit that is already gone counts as removed. Any other runtime failure
// leaves the records in place, since the unit may still exist. Calling
// Delete again for the same ID succeeds.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := instance.ValidateID(id); err != nil {
		return err
	}

	err := e.runtime.Remove(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, instance.ErrNotFound):
		slog.Debug("instance already removed", "id", id)
	case errors.Is(err, instance.ErrRuntimeUnavailable):
		return err
	default:
		slog.Error("failed to remove instance", "id", id, "error", err)
		if !errors.Is(err, instance.ErrDeleteFailed) {
			err = fmt.Errorf("%w: %w", instance.ErrDeleteFailed, err)
		}
		return err
	}

	// The unit is gone; a cancelled request must not leave its record behind
	// if it can be avoided. A record that does remain is dropped as stale by
	// the next reconciliation.
	n, err := e.store.DeleteByRuntimeID(context.WithoutCancel(ctx), id)
	if err != nil {
		slog.Error("failed to delete instance record", "id", id, "error", err)
		return fmt.Errorf("%w: %w", instance.ErrDeleteFailed, err)
	}

	slog.Info("instance deleted", "id", id, "records", n)
	return nil
}

// Deletes the unit with the given ID and launches a fresh instance for team
// from ref.
//
// The reference is validated and resolved first, so a bad reference leaves
// the old instance running. The ID must name a record or a unit owned by
// team; otherwise [instance.ErrNotFound] is returned and nothing is removed.
// If the delete succeeds and the create fails, the team is left without an
// instance for the challenge and the create error is returned.
func (e *Engine) Reset(ctx context.Context, team, id, ref string) (instance.Instance, error) {
	if err := instance.ValidateTeam(team); err != nil {
		return instance.Instance{}, err
	}
	if err := instance.ValidateID(id); err != nil {
		return instance.Instance{}, err
	}

	img, err := e.catalog.Lookup(ctx, ref)
	if err != nil {
		return instance.Instance{}, err
	}

	defer e.lock(team)()

	owned, err := e.owns(ctx, team, id)
	if err != nil {
		return instance.Instance{}, err
	}
	if !owned {
		slog.Info("reset of instance not owned by team", "team", team, "id", id)
		return instance.Instance{}, fmt.Errorf("%w: %s is not an instance of team %s", instance.ErrNotFound, id, team)
	}

	if err := e.Delete(ctx, id); err != nil {
		return instance.Instance{}, err
	}

	return e.create(ctx, team, img)
}

// Reports whether id names a record or a unit owned by team. The caller must
// hold the team lock.
//
// Records are checked first, so the runtime is only listed for an ID the
// store does not know about.
func (e *Engine) owns(ctx context.Context, team, id string) (bool, error) {
	records, err := e.store.FindByOwner(ctx, team)
	if err != nil {
		return false, err
	}
	for _, r := range records {
		if r.RuntimeID == id {
			return true, nil
		}
	}

	units, err := e.runtime.List(ctx, team)
	if err != nil {
		return false, err
	}
	for _, u := range units {
		if u.ID == id {
			return true, nil
		}
	}

	return false, nil
}
