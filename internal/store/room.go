package store

import (
	"sync"

	"chatapp-client/internal/models"
)

// CurrentRoom is the active voice/media room reference. Unlike every
// other store it is patched field by field: the UI learns the pieces at
// different times while joining (channel first, resolved server name
// last).
type CurrentRoom struct {
	observers

	mu   sync.RWMutex
	room models.Room
}

func NewCurrentRoom() *CurrentRoom {
	return &CurrentRoom{}
}

func (r *CurrentRoom) Get() models.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.room
}

func (r *CurrentRoom) SetChannel(channelID int64) {
	r.mu.Lock()
	r.room.ChannelID = channelID
	r.mu.Unlock()

	r.notify()
}

func (r *CurrentRoom) SetName(name string) {
	r.mu.Lock()
	r.room.Name = name
	r.mu.Unlock()

	r.notify()
}

func (r *CurrentRoom) SetServer(serverID int64) {
	r.mu.Lock()
	r.room.ServerID = serverID
	r.mu.Unlock()

	r.notify()
}

func (r *CurrentRoom) SetServerName(name string) {
	r.mu.Lock()
	r.room.ServerName = name
	r.mu.Unlock()

	r.notify()
}
