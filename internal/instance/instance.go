package instance

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
)

// Maps a container port (e.g., "80/tcp") to the host port it is published on.
type Ports map[string]string

// Returns the mappings formatted as "80/tcp->32768", sorted by container port.
func (p Ports) String() string {
	keys := slices.Sorted(maps.Keys(p))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s->%s", k, p[k]))
	}
	return strings.Join(parts, ",")
}

// A tracked challenge instance.
type Instance struct {
	RuntimeID   string    `json:"runtime_id"`   // Container ID assigned by the daemon.
	Team        string    `json:"team"`         // Owning team.
	ChallengeID string    `json:"challenge_id"` // Challenge the image instantiates.
	Image       string    `json:"image"`        // Image digest the container was launched from.
	Ports       Ports     `json:"ports"`        // Published ports.
	CreatedAt   time.Time `json:"created_at"`   // Launch time.
	ExpiresAt   time.Time `json:"expires_at"`   // Time after which the instance may be swept.
}

// Reports whether the instance is past its expiry time.
func (i Instance) Expired(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}

// A container as reported by the runtime daemon.
type Unit struct {
	ID          string    // Container ID.
	Team        string    // Value of the owner label.
	ChallengeID string    // Value of the challenge label.
	Image       string    // Image ID the container runs.
	Ports       Ports     // Published ports.
	CreatedAt   time.Time // Creation time reported by the daemon.
	ExpiresAt   time.Time // Value of the delete_at label; zero if absent.
	Running     bool      // False for containers that were never started or have exited.
}

// Converts the unit into an instance record.
func (u Unit) Instance() Instance {
	return Instance{
		RuntimeID:   u.ID,
		Team:        u.Team,
		ChallengeID: u.ChallengeID,
		Image:       u.Image,
		Ports:       u.Ports,
		CreatedAt:   u.CreatedAt,
		ExpiresAt:   u.ExpiresAt,
	}
}

// A published challenge image.
//
// Images are immutable once published. Metadata is keyed by OCI annotation
// names such as "org.opencontainers.image.revision".
type ChallengeImage struct {
	Digest      digest.Digest     `json:"digest"`
	ChallengeID string            `json:"challenge_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}
