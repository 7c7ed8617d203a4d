// Package instance defines the challenge instance model shared by the
// runtime, store, and engine packages.
//
// An [Instance] is the persisted record of a container launched for a team
// from a challenge image. A [Unit] is the same container as reported by the
// runtime daemon. The two are reconciled by the engine package; the daemon's
// view is authoritative and the records are a cache of it.
//
// The package also owns the error taxonomy surfaced to callers and the
// validation of externally supplied identifiers. Identifiers that fail
// validation must never reach the runtime daemon.
package instance
