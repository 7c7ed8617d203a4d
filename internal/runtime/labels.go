package runtime

import (
	"strconv"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
)

const (
	LabelOwner     = "owner"             // Team that owns the container.
	LabelChallenge = "challenge"         // Challenge the container instantiates.
	LabelDeleteAt  = "delete_at"         // Expiry as unix seconds.
	LabelManaged   = "instanced.managed" // Marks containers launched by this daemon.
)

// Returns the labels applied to a new challenge container.
func labels(opts RunOptions) map[string]string {
	return map[string]string{
		LabelOwner:     opts.Team,
		LabelChallenge: opts.ChallengeID,
		LabelDeleteAt:  strconv.FormatInt(opts.ExpiresAt.Unix(), 10),
		LabelManaged:   "true",
	}
}

// Copies ownership and expiry from container labels into u.
//
// A malformed delete_at label leaves the expiry unset.
func applyLabels(u *instance.Unit, l map[string]string) {
	u.Team = l[LabelOwner]
	u.ChallengeID = l[LabelChallenge]

	if v, ok := l[LabelDeleteAt]; ok {
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			u.ExpiresAt = time.Unix(secs, 0).UTC()
		}
	}
}
