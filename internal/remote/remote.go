// Package remote is the client's view of the backend data service.
// Every call returns the authoritative current snapshot of one entity
// (or one scope's list) and an error that must be checked before the
// data is used. The cache layer is the only consumer.
package remote

import (
	"context"
	"errors"

	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
)

// ErrNotFound is returned when the requested row no longer exists.
var ErrNotFound = errors.New("remote: not found")

type Service interface {
	ServerForMember(ctx context.Context, memberID int64) (models.ServerForMember, error)
	ServersForUser(ctx context.Context, userID int64) ([]models.ServerForMember, error)
	Server(ctx context.Context, serverID int64) (models.Server, error)

	Channel(ctx context.Context, channelID int64) (models.Channel, error)
	MessagesInChannel(ctx context.Context, channelID int64) ([]models.Message, error)
	Message(ctx context.Context, messageID int64) (models.Message, error)

	Role(ctx context.Context, roleID int64) (models.Role, error)
	ServerRoles(ctx context.Context, serverID int64) ([]models.Role, error)
	RolesForUser(ctx context.Context, userID int64) ([]models.Role, error)

	Relation(ctx context.Context, relationID int64) (models.Relation, error)
	Relations(ctx context.Context, userID int64) ([]models.Relation, error)

	DMChannel(ctx context.Context, dmID int64) (models.DMChannel, error)
	DMChannels(ctx context.Context, userID int64) ([]models.DMChannel, error)

	Profile(ctx context.Context, userID int64) (models.User, error)

	ChannelPermissions(ctx context.Context, userID, channelID int64) (permissions.Set, error)
	ServerPermissions(ctx context.Context, userID, serverID int64) (permissions.Set, error)
}
