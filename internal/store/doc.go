// Package store persists instance records and the image catalog in SQLite.
//
// The instances table is a cache of the runtime daemon's state, keyed by
// container ID. A uniqueness constraint on (team, challenge) guarantees that
// two requests racing past the engine's checks cannot both record a live
// instance for the same challenge; the loser's insert fails with
// [ErrConflict].
//
// Schema changes are embedded SQL files applied in lexical order, each at
// most once, and tracked in the schema_migrations table.
//
// Example usage:
//
//	st, err := store.Open(ctx, paths.Database())
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	records, err := st.FindByOwner(ctx, "team1")
package store
