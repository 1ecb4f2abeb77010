package store

import (
	"sync"

	"chatapp-client/internal/models"
)

// ProfileCache memoizes fetched user profiles. A profile, once present,
// is never re-fetched; Begin/Finish additionally collapse concurrent
// fetches for the same id into one remote call.
type ProfileCache struct {
	observers

	mu       sync.Mutex
	profiles map[int64]models.User
	pending  map[int64]struct{}
}

func NewProfileCache() *ProfileCache {
	return &ProfileCache{
		profiles: make(map[int64]models.User),
		pending:  make(map[int64]struct{}),
	}
}

// Get returns a copy of the cached profiles.
func (c *ProfileCache) Get() map[int64]models.User {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[int64]models.User, len(c.profiles))
	for id, u := range c.profiles {
		out[id] = u
	}
	return out
}

func (c *ProfileCache) Lookup(userID int64) (models.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.profiles[userID]
	return u, ok
}

// Begin reports whether a fetch for userID should be issued. It returns
// false when the profile is already cached or another fetch for the same
// id is in flight; when it returns true the caller owns the fetch and
// must call Finish.
func (c *ProfileCache) Begin(userID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.profiles[userID]; ok {
		return false
	}
	if _, ok := c.pending[userID]; ok {
		return false
	}
	c.pending[userID] = struct{}{}
	return true
}

// Finish completes a fetch begun with Begin. A nil profile records the
// failure without caching anything, so a later call may retry.
func (c *ProfileCache) Finish(userID int64, profile *models.User) {
	c.mu.Lock()
	delete(c.pending, userID)
	stored := profile != nil
	if stored {
		c.profiles[userID] = *profile
	}
	c.mu.Unlock()

	if stored {
		c.notify()
	}
}
