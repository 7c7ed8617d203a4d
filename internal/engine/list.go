package engine

import (
	"context"

	"github.com/ctfkit/instanced/internal/instance"
)

// Returns the team's live instances after reconciling with the runtime.
func (e *Engine) ListLive(ctx context.Context, team string) ([]instance.Instance, error) {
	return e.Reconcile(ctx, team)
}

// Returns the team's recorded instances without contacting the runtime.
//
// The result may include instances whose unit has since exited.
func (e *Engine) ListCached(ctx context.Context, team string) ([]instance.Instance, error) {
	if err := instance.ValidateTeam(team); err != nil {
		return nil, err
	}
	return e.store.FindByOwner(ctx, team)
}

// Returns the recorded instances whose expiry has passed, for all teams.
func (e *Engine) Expired(ctx context.Context) ([]instance.Instance, error) {
	return e.store.FindExpired(ctx, e.now())
}
