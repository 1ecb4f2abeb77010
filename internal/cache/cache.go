// Package cache owns the fetch/merge operations: each one pulls a
// single authoritative snapshot from the remote service and splices it
// into the right store. A failed fetch is logged and leaves the store
// untouched; there is no retry and no partial merge. Every operation is
// idempotent: repeating it against an unchanged remote leaves the
// stores identical.
package cache

import (
	"context"

	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/remote"
	"chatapp-client/internal/store"

	"go.uber.org/zap"
)

// Cache aggregates the stores for one session. Construct one per
// session with New; there are no package-level instances.
type Cache struct {
	sugar  *zap.SugaredLogger
	remote remote.Service
	userID int64

	Servers      *store.List[models.ServerForMember]
	Channel      *store.Value[*models.Channel]
	Messages     *store.MessageLog
	ChannelPerms *store.Value[permissions.Set]
	ServerPerms  *store.Value[permissions.Set]
	Roles        *store.RoleIndex
	DMChannels   *store.KeyMap[int64, models.DMChannel]
	Relations    *store.List[models.Relation]
	Presence     *store.PresenceMap
	Profiles     *store.ProfileCache
	Room         *store.CurrentRoom
}

func New(sugar *zap.SugaredLogger, svc remote.Service, userID int64) *Cache {
	return &Cache{
		sugar:  sugar,
		remote: svc,
		userID: userID,

		Servers:      store.NewList(func(s models.ServerForMember) int64 { return s.ServerID }),
		Channel:      store.NewValue[*models.Channel](),
		Messages:     store.NewMessageLog(),
		ChannelPerms: store.NewValue[permissions.Set](),
		ServerPerms:  store.NewValue[permissions.Set](),
		Roles:        store.NewRoleIndex(),
		DMChannels:   store.NewKeyMap[int64, models.DMChannel](),
		Relations:    store.NewList(func(r models.Relation) int64 { return r.ID }),
		Presence:     store.NewPresenceMap(),
		Profiles:     store.NewProfileCache(),
		Room:         store.NewCurrentRoom(),
	}
}

func (c *Cache) UserID() int64 {
	return c.userID
}

// AddServer fetches the server a new membership row grants and appends
// it. DM pseudo-servers are dropped here; the DMChannels store tracks
// those.
func (c *Cache) AddServer(ctx context.Context, memberID int64) {
	m, err := c.remote.ServerForMember(ctx, memberID)
	if err != nil {
		c.sugar.Errorf("Fetching server for membership [%d] failed: %v", memberID, err)
		return
	}

	if m.Server.IsDM {
		c.sugar.Debugf("Membership [%d] points at a DM pseudo-server, skipping", memberID)
		return
	}

	c.Servers.Upsert(m)
}

// UpdateServer re-fetches one server snapshot and swaps it in place.
// Unknown servers stay absent (replace never inserts).
func (c *Cache) UpdateServer(ctx context.Context, serverID int64) {
	srv, err := c.remote.Server(ctx, serverID)
	if err != nil {
		c.sugar.Errorf("Fetching server [%d] failed: %v", serverID, err)
		return
	}

	c.Servers.Replace(models.ServerForMember{ServerID: serverID, Server: srv})
}

func (c *Cache) RemoveServer(serverID int64) {
	c.Servers.RemoveByID(serverID)
}

// RefreshServers replaces the whole server list. Used on initial load
// and as the coarse fallback when a membership delete arrives carrying
// only the membership id.
func (c *Cache) RefreshServers(ctx context.Context) {
	servers, err := c.remote.ServersForUser(ctx, c.userID)
	if err != nil {
		c.sugar.Errorf("Fetching server list failed: %v", err)
		return
	}

	c.Servers.ReplaceAll(servers)
}

// SetChannel records the active text channel and clears the message
// log before any fetch for the new channel starts.
func (c *Cache) SetChannel(ch *models.Channel) {
	c.Channel.Set(ch)
	if ch == nil {
		c.Messages.SetChannel(0)
		return
	}
	c.Messages.SetChannel(ch.ID)
}

func (c *Cache) RefreshMessages(ctx context.Context, channelID int64) {
	msgs, err := c.remote.MessagesInChannel(ctx, channelID)
	if err != nil {
		c.sugar.Errorf("Fetching messages for channel [%d] failed: %v", channelID, err)
		return
	}

	if !c.Messages.ReplaceAll(channelID, msgs) {
		c.sugar.Debugf("Dropped late message list for channel [%d]", channelID)
	}
}

func (c *Cache) AddMessage(ctx context.Context, messageID int64) {
	m, err := c.remote.Message(ctx, messageID)
	if err != nil {
		c.sugar.Errorf("Fetching message [%d] failed: %v", messageID, err)
		return
	}

	if !c.Messages.Append(m.ChannelID, m) {
		c.sugar.Debugf("Dropped message [%d] for inactive channel [%d]", messageID, m.ChannelID)
	}
}

func (c *Cache) UpdateMessage(ctx context.Context, messageID int64) {
	m, err := c.remote.Message(ctx, messageID)
	if err != nil {
		c.sugar.Errorf("Fetching message [%d] failed: %v", messageID, err)
		return
	}

	c.Messages.Replace(m.ChannelID, m)
}

// RemoveMessage applies a delete straight from the event payload. The
// row is gone remotely; there is nothing left to fetch.
func (c *Cache) RemoveMessage(messageID int64) {
	c.Messages.RemoveByID(messageID)
}

// RecomputeChannelPerms replaces the channel bitmask wholesale from a
// fresh effective-permissions fetch. Bits are never patched in place:
// a change event cannot be trusted to carry the complete rule set.
func (c *Cache) RecomputeChannelPerms(ctx context.Context, channelID int64) {
	set, err := c.remote.ChannelPermissions(ctx, c.userID, channelID)
	if err != nil {
		c.sugar.Errorf("Fetching channel permissions for [%d] failed: %v", channelID, err)
		return
	}

	c.ChannelPerms.Set(set)
}

func (c *Cache) RecomputeServerPerms(ctx context.Context, serverID int64) {
	set, err := c.remote.ServerPermissions(ctx, c.userID, serverID)
	if err != nil {
		c.sugar.Errorf("Fetching server permissions for [%d] failed: %v", serverID, err)
		return
	}

	c.ServerPerms.Set(set)
}

// FetchProfile loads a profile at most once. Cached and in-flight ids
// are skipped entirely.
func (c *Cache) FetchProfile(ctx context.Context, userID int64) {
	if !c.Profiles.Begin(userID) {
		return
	}

	u, err := c.remote.Profile(ctx, userID)
	if err != nil {
		c.sugar.Errorf("Fetching profile [%d] failed: %v", userID, err)
		c.Profiles.Finish(userID, nil)
		return
	}

	c.Profiles.Finish(userID, &u)
}

func (c *Cache) AddRelation(ctx context.Context, relationID int64) {
	rel, err := c.remote.Relation(ctx, relationID)
	if err != nil {
		c.sugar.Errorf("Fetching relation [%d] failed: %v", relationID, err)
		return
	}

	c.Relations.Upsert(rel)
}

func (c *Cache) UpdateRelation(ctx context.Context, relationID int64) {
	rel, err := c.remote.Relation(ctx, relationID)
	if err != nil {
		c.sugar.Errorf("Fetching relation [%d] failed: %v", relationID, err)
		return
	}

	c.Relations.Replace(rel)
}

func (c *Cache) RemoveRelation(relationID int64) {
	c.Relations.RemoveByID(relationID)
}

func (c *Cache) RefreshRelations(ctx context.Context) {
	rels, err := c.remote.Relations(ctx, c.userID)
	if err != nil {
		c.sugar.Errorf("Fetching relations failed: %v", err)
		return
	}

	c.Relations.ReplaceAll(rels)
}

// AddDMChannel fetches one DM conversation and keys it by recipient.
func (c *Cache) AddDMChannel(ctx context.Context, dmID int64) {
	dm, err := c.remote.DMChannel(ctx, dmID)
	if err != nil {
		c.sugar.Errorf("Fetching DM channel [%d] failed: %v", dmID, err)
		return
	}

	c.DMChannels.Set(dm.Recipient.ID, dm)
}

// RemoveDMChannel drops a conversation by its own id. The map is keyed
// by recipient, so this scans values.
func (c *Cache) RemoveDMChannel(dmID int64) {
	c.DMChannels.DeleteWhere(func(_ int64, dm models.DMChannel) bool {
		return dm.ID == dmID
	})
}

func (c *Cache) RefreshDMChannels(ctx context.Context) {
	dms, err := c.remote.DMChannels(ctx, c.userID)
	if err != nil {
		c.sugar.Errorf("Fetching DM channels failed: %v", err)
		return
	}

	byRecipient := make(map[int64]models.DMChannel, len(dms))
	for _, dm := range dms {
		byRecipient[dm.Recipient.ID] = dm
	}
	c.DMChannels.ReplaceAll(byRecipient)
}

func (c *Cache) AddRole(ctx context.Context, roleID int64) {
	role, err := c.remote.Role(ctx, roleID)
	if err != nil {
		c.sugar.Errorf("Fetching role [%d] failed: %v", roleID, err)
		return
	}

	c.Roles.Upsert(role)
}

func (c *Cache) UpdateRole(ctx context.Context, roleID int64) {
	c.AddRole(ctx, roleID)
}

// RemoveRole deletes the role from every server's list; role delete
// events do not always carry the owning server.
func (c *Cache) RemoveRole(roleID int64) {
	c.Roles.RemoveRole(roleID)
}

func (c *Cache) RefreshServerRoles(ctx context.Context, serverID int64) {
	roles, err := c.remote.ServerRoles(ctx, serverID)
	if err != nil {
		c.sugar.Errorf("Fetching roles for server [%d] failed: %v", serverID, err)
		return
	}

	c.Roles.ReplaceServer(serverID, roles)
}

// RefreshAllRoles bulk-loads every server's roles. Meant for app
// launch only.
func (c *Cache) RefreshAllRoles(ctx context.Context) {
	roles, err := c.remote.RolesForUser(ctx, c.userID)
	if err != nil {
		c.sugar.Errorf("Fetching roles failed: %v", err)
		return
	}

	c.Roles.ReplaceAll(roles)
}

func (c *Cache) MarkOnline(userID int64, info models.PresenceInfo) {
	c.Presence.MarkOnline(userID, info)
}

func (c *Cache) MarkOffline(userID int64) {
	c.Presence.MarkOffline(userID)
}

func (c *Cache) SetRoomChannel(channelID int64) {
	c.Room.SetChannel(channelID)
}

func (c *Cache) SetRoomName(name string) {
	c.Room.SetName(name)
}

func (c *Cache) SetRoomServer(serverID int64) {
	c.Room.SetServer(serverID)
}

// SetRoomServerName resolves the server's display name from the server
// list and patches it into the room reference.
func (c *Cache) SetRoomServerName(serverID int64) {
	m, ok := c.Servers.Lookup(serverID)
	if !ok {
		c.sugar.Debugf("Server [%d] not in list, room keeps its old server name", serverID)
		return
	}

	c.Room.SetServerName(m.Server.Name)
}
