// Package engine reconciles challenge instance records against the runtime
// daemon and applies create, delete, and reset requests.
//
// The daemon is the only authority on whether a container exists; the record
// store caches the association between a container, its team, its
// challenge, and its expiry. Containers can die, expire, or be removed at any
// time without the engine noticing, so every operation that needs an
// accurate view starts with [Engine.Reconcile]: records without a container
// are dropped, and containers without a record are removed.
//
// Creation decisions for a team are serialized in-process with a per-team
// lock, which also keeps a concurrent reconciliation from mistaking a
// container that is still being recorded for an untracked one. Across
// processes, the store's (team, challenge) uniqueness constraint rejects the
// second of two racing inserts, and the losing container is removed.
//
// Example usage:
//
//	eng := engine.New(rt, st, catalog.New(st), engine.Options{
//	    Quota: 2,
//	    TTL:   20 * time.Minute,
//	})
//
//	inst, err := eng.Create(ctx, "team1", "sha256:4f2a...")
//	if errors.Is(err, instance.ErrAlreadyRunning) {
//	    inst, err = eng.Reset(ctx, "team1", existing.RuntimeID, "sha256:4f2a...")
//	}
package engine
