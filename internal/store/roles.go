package store

import (
	"sync"

	"chatapp-client/internal/models"
)

// RoleIndex maps a server id to its ordered role list. Role delete
// events do not always carry server context, so RemoveRole scans every
// server's list for the role id.
type RoleIndex struct {
	observers

	mu       sync.RWMutex
	byServer map[int64][]models.Role
}

func NewRoleIndex() *RoleIndex {
	return &RoleIndex{byServer: make(map[int64][]models.Role)}
}

// Get returns a copy of the whole index.
func (x *RoleIndex) Get() map[int64][]models.Role {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make(map[int64][]models.Role, len(x.byServer))
	for serverID, roles := range x.byServer {
		cp := make([]models.Role, len(roles))
		copy(cp, roles)
		out[serverID] = cp
	}
	return out
}

// ServerRoles returns a copy of one server's role list, empty when the
// server is unknown.
func (x *RoleIndex) ServerRoles(serverID int64) []models.Role {
	x.mu.RLock()
	defer x.mu.RUnlock()

	roles := x.byServer[serverID]
	cp := make([]models.Role, len(roles))
	copy(cp, roles)
	return cp
}

// Upsert replaces the role in its server's list, or appends it.
func (x *RoleIndex) Upsert(role models.Role) {
	x.mu.Lock()
	roles := x.byServer[role.ServerID]
	replaced := false
	for i := range roles {
		if roles[i].ID == role.ID {
			roles[i] = role
			replaced = true
			break
		}
	}
	if !replaced {
		roles = append(roles, role)
	}
	x.byServer[role.ServerID] = roles
	x.mu.Unlock()

	x.notify()
}

// RemoveRole deletes the role id from every server's list.
func (x *RoleIndex) RemoveRole(roleID int64) {
	x.mu.Lock()
	removed := false
	for serverID, roles := range x.byServer {
		kept := make([]models.Role, 0, len(roles))
		for _, r := range roles {
			if r.ID != roleID {
				kept = append(kept, r)
			}
		}
		if len(kept) != len(roles) {
			x.byServer[serverID] = kept
			removed = true
		}
	}
	x.mu.Unlock()

	if removed {
		x.notify()
	}
}

// ReplaceServer swaps one server's whole role list.
func (x *RoleIndex) ReplaceServer(serverID int64, roles []models.Role) {
	cp := make([]models.Role, len(roles))
	copy(cp, roles)

	x.mu.Lock()
	x.byServer[serverID] = cp
	x.mu.Unlock()

	x.notify()
}

// ReplaceAll rebuilds the whole index from a flat role list, grouping
// by server id. Meant for the app-launch bulk load.
func (x *RoleIndex) ReplaceAll(roles []models.Role) {
	next := make(map[int64][]models.Role)
	for _, r := range roles {
		next[r.ServerID] = append(next[r.ServerID], r)
	}

	x.mu.Lock()
	x.byServer = next
	x.mu.Unlock()

	x.notify()
}
