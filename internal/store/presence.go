package store

import (
	"sync"

	"chatapp-client/internal/models"
)

// PresenceMap is the ephemeral online set. It is rebuilt purely from
// the transport's own join/leave broadcasts; nothing here is fetched,
// persisted, or merged with the entity stores.
type PresenceMap struct {
	observers

	mu     sync.RWMutex
	online map[int64]models.PresenceInfo
}

func NewPresenceMap() *PresenceMap {
	return &PresenceMap{online: make(map[int64]models.PresenceInfo)}
}

// Get returns a copy of the online set.
func (p *PresenceMap) Get() map[int64]models.PresenceInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make(map[int64]models.PresenceInfo, len(p.online))
	for id, info := range p.online {
		out[id] = info
	}
	return out
}

func (p *PresenceMap) Lookup(userID int64) (models.PresenceInfo, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info, ok := p.online[userID]
	return info, ok
}

// MarkOnline upserts the user's presence payload.
func (p *PresenceMap) MarkOnline(userID int64, info models.PresenceInfo) {
	p.mu.Lock()
	p.online[userID] = info
	p.mu.Unlock()

	p.notify()
}

// MarkOffline removes the user. Absent keys are a no-op.
func (p *PresenceMap) MarkOffline(userID int64) {
	p.mu.Lock()
	_, existed := p.online[userID]
	delete(p.online, userID)
	p.mu.Unlock()

	if existed {
		p.notify()
	}
}
