package engine

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/ctfkit/instanced/internal/instance"
)

// Partition of a team's records and units.
type Diff struct {
	Confirmed []instance.Instance // Records backed by a running unit, with the unit's current ports.
	Stale     []instance.Instance // Records whose unit no longer exists.
	Untracked []instance.Unit     // Running units with no record.
	Stopped   []instance.Unit     // Units that exist but are not running, recorded or not.
}

// Compares a snapshot of records against a snapshot of units.
//
// Neither input is modified. Units are matched to records by runtime ID. A
// unit that is not running never confirms a record; removing it also removes
// its record, so its record is reported as neither confirmed nor stale.
func Compare(records []instance.Instance, units []instance.Unit) Diff {
	tracked := make(map[string]instance.Instance, len(records))
	for _, r := range records {
		tracked[r.RuntimeID] = r
	}

	var d Diff
	for _, u := range units {
		if !u.Running {
			delete(tracked, u.ID)
			d.Stopped = append(d.Stopped, u)
			continue
		}
		r, ok := tracked[u.ID]
		if !ok {
			d.Untracked = append(d.Untracked, u)
			continue
		}
		delete(tracked, u.ID)
		if len(u.Ports) > 0 {
			r.Ports = u.Ports
		}
		d.Confirmed = append(d.Confirmed, r)
	}

	for _, r := range records {
		if _, ok := tracked[r.RuntimeID]; ok {
			d.Stale = append(d.Stale, r)
		}
	}

	return d
}

// Brings the team's records in line with the runtime and returns the
// team's live instances, oldest first.
//
// Records with no unit are deleted without a daemon call. Running units
// with no record are removed from the runtime, since the record is the only
// place their expiry is kept. Units that are not running are removed along
// with any record they have. All corrections are logged, not returned as
// errors. A running unit that cannot be removed stays in the result, because
// it still counts against the team.
func (e *Engine) Reconcile(ctx context.Context, team string) ([]instance.Instance, error) {
	if err := instance.ValidateTeam(team); err != nil {
		return nil, err
	}

	defer e.lock(team)()
	return e.reconcile(ctx, team)
}

// Reconcile without taking the team lock. The caller must hold it.
func (e *Engine) reconcile(ctx context.Context, team string) ([]instance.Instance, error) {
	records, err := e.store.FindByOwner(ctx, team)
	if err != nil {
		return nil, err
	}

	units, err := e.runtime.List(ctx, team)
	if err != nil {
		return nil, err
	}

	diff := Compare(records, units)
	live := diff.Confirmed

	for _, u := range diff.Untracked {
		slog.Warn("removing untracked instance",
			"team", team,
			"id", u.ID,
			"challenge", u.ChallengeID,
		)
		if err := e.Delete(ctx, u.ID); err != nil {
			if errors.Is(err, instance.ErrRuntimeUnavailable) {
				return nil, err
			}
			slog.Error("failed to remove untracked instance", "team", team, "id", u.ID, "error", err)
			live = append(live, u.Instance())
		}
	}

	for _, u := range diff.Stopped {
		slog.Warn("removing stopped instance",
			"team", team,
			"id", u.ID,
			"challenge", u.ChallengeID,
		)
		if err := e.Delete(ctx, u.ID); err != nil {
			if errors.Is(err, instance.ErrRuntimeUnavailable) {
				return nil, err
			}
			slog.Error("failed to remove stopped instance", "team", team, "id", u.ID, "error", err)
		}
	}

	for _, r := range diff.Stale {
		slog.Warn("dropping stale instance record",
			"team", team,
			"id", r.RuntimeID,
			"challenge", r.ChallengeID,
		)
		if _, err := e.store.DeleteByRuntimeID(ctx, r.RuntimeID); err != nil {
			return nil, err
		}
	}

	slices.SortFunc(live, func(a, b instance.Instance) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.RuntimeID, b.RuntimeID))
	})

	if len(diff.Untracked) > 0 || len(diff.Stopped) > 0 || len(diff.Stale) > 0 {
		slog.Info("reconciled instances",
			"team", team,
			"live", len(live),
			"untracked", len(diff.Untracked),
			"stopped", len(diff.Stopped),
			"stale", len(diff.Stale),
		)
	}

	return live, nil
}
