// Package runtime launches and tracks challenge containers through the
// Docker Engine API.
//
// A [Docker] runtime is constructed once at startup and shared by every
// request. It connects lazily: the first operation dials the daemon (a remote
// TLS endpoint when fully configured, the local socket otherwise), pings it,
// and caches the client. Every daemon call is bounded by the configured
// timeout.
//
// Containers are labeled with their owning team, challenge, and expiry so
// that the daemon's listing alone is enough to reconstruct which team a unit
// belongs to. Daemon errors are translated at this boundary into the
// sentinels of the instance package; callers never see Docker error text
// except through the wrapped chain used for logging.
//
// Example usage:
//
//	rt, err := runtime.New(runtime.Config{Timeout: time.Minute})
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	unit, err := rt.Run(ctx, runtime.RunOptions{
//	    Image:       "sha256:4f2a...",
//	    Team:        "team1",
//	    ChallengeID: "web-1",
//	    ExpiresAt:   time.Now().Add(20 * time.Minute),
//	})
//	if err != nil {
//	    return err
//	}
//
//	err = rt.Remove(ctx, unit.ID)
package runtime
