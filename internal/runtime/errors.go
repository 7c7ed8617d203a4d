package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/ctfkit/instanced/internal/instance"
	"github.com/docker/docker/client"
)

var ErrInvalidPlatform = errors.New("invalid platform")

// Translates a Docker API error into the instance error taxonomy.
//
// Missing containers become [instance.ErrNotFound] and an unreachable daemon
// becomes [instance.ErrRuntimeUnavailable]. Everything else, including
// timeouts, is reported as fallback. The daemon's message is kept in the
// chain for logging but callers must only match on the sentinels.
func translate(err error, fallback error) error {
	switch {
	case err == nil:
		return nil
	case errdefs.IsNotFound(err):
		return fmt.Errorf("%w: %w", instance.ErrNotFound, err)
	case client.IsErrConnectionFailed(err):
		return fmt.Errorf("%w: %w", instance.ErrRuntimeUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: daemon call timed out: %w", fallback, err)
	default:
		return fmt.Errorf("%w: %w", fallback, err)
	}
}
