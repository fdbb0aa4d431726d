package custody

import (
	"context"
	"sort"
	"time"

	"github.com/facilityops/key-custody/internal/model"
)

// GrantSource provides the authorization overlay reads: the grants
// registered for a key and the people linked to a grant.
type GrantSource interface {
	GrantsForKey(ctx context.Context, keyNumber int64) ([]model.Authorization, error)
	GrantPeople(ctx context.Context, authorizationID string) ([]model.Person, error)
}

// Resolver evaluates the time-windowed authorization overlay at query
// time.  It never materializes results.
type Resolver struct {
	src GrantSource
}

// NewResolver returns a Resolver over the given source.
func NewResolver(src GrantSource) *Resolver { return &Resolver{src: src} }

// AuthorizedPeople returns the active persons covered by at least one
// grant for the key whose window contains now.  Both interval bounds
// are inclusive; a nil bound is unbounded.  An empty result is a
// valid, non-error outcome; widening the pool is the caller's policy,
// not the resolver's.  People are returned once each, ordered by name
// then id.
func (r *Resolver) AuthorizedPeople(ctx context.Context, keyNumber int64, now time.Time) ([]model.Person, error) {
	grants, err := r.src.GrantsForKey(ctx, keyNumber)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	people := make([]model.Person, 0)
	for _, g := range grants {
		if !windowContains(g, now) {
			continue
		}
		members, err := r.src.GrantPeople(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range members {
			if !p.Active {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			people = append(people, p)
		}
	}
	sort.Slice(people, func(i, j int) bool {
		if people[i].Name != people[j].Name {
			return people[i].Name < people[j].Name
		}
		return people[i].ID < people[j].ID
	})
	return people, nil
}

// windowContains reports whether now falls inside the grant's
// inclusive validity window.
func windowContains(g model.Authorization, now time.Time) bool {
	if g.ValidFrom != nil && now.Before(*g.ValidFrom) {
		return false
	}
	if g.ValidTo != nil && now.After(*g.ValidTo) {
		return false
	}
	return true
}
