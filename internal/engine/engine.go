package engine

import (
	"context"
	"time"

	"github.com/ctfkit/instanced/internal/instance"
	"github.com/ctfkit/instanced/internal/runtime"
	"github.com/moby/locker"
)

const (

	// Live instances a team may hold when no quota is configured.
	DefaultQuota = 2

	// Lifetime of an instance when no TTL is configured.
	DefaultTTL = 20 * time.Minute
)

// Launches, lists, and removes runtime units.
type Runtime interface {
	Run(ctx context.Context, opts runtime.RunOptions) (instance.Unit, error)
	List(ctx context.Context, team string) ([]instance.Unit, error)
	Remove(ctx context.Context, id string) error
}

// Persists instance records.
type Store interface {
	FindByOwner(ctx context.Context, team string) ([]instance.Instance, error)
	FindExpired(ctx context.Context, now time.Time) ([]instance.Instance, error)
	Insert(ctx context.Context, inst instance.Instance) error
	DeleteByRuntimeID(ctx context.Context, id string) (int64, error)
}

// Resolves image references to challenges.
type Catalog interface {
	Lookup(ctx context.Context, ref string) (instance.ChallengeImage, error)
}

// Tunes engine policy.
type Options struct {
	Quota int              // Maximum live instances per team. Zero uses [DefaultQuota].
	TTL   time.Duration    // Instance lifetime. Zero uses [DefaultTTL].
	Now   func() time.Time // Clock. Nil uses [time.Now].
}

// Reconciles instance records with the runtime and applies lifecycle
// requests.
type Engine struct {
	runtime Runtime          // Source of truth for running units.
	store   Store            // Instance records.
	catalog Catalog          // Image reference resolution.
	quota   int              // Maximum live instances per team.
	ttl     time.Duration    // Instance lifetime.
	now     func() time.Time // Clock.
	teams   *locker.Locker   // Per-team locks serializing reconciliation and creation.
}

// Creates an engine.
func New(rt Runtime, st Store, cat Catalog, opts Options) *Engine {
	if opts.Quota <= 0 {
		opts.Quota = DefaultQuota
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Engine{
		runtime: rt,
		store:   st,
		catalog: cat,
		quota:   opts.Quota,
		ttl:     opts.TTL,
		now:     opts.Now,
		teams:   locker.New(),
	}
}

// Takes the team lock and returns its release function.
func (e *Engine) lock(team string) func() {
	e.teams.Lock(team)
	return func() { e.teams.Unlock(team) }
}
