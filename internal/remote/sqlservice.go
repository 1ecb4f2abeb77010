package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLService serves entity snapshots straight from the backend's
// database: sqlite when running self-contained, mysql otherwise.
type SQLService struct {
	db    *sql.DB
	sugar *zap.SugaredLogger
}

func Open(cfg *models.ConfigFile, sugar *zap.SugaredLogger) (*SQLService, error) {
	var db *sql.DB
	var err error

	if cfg.SelfContained {
		db, err = sql.Open("sqlite", "database.db")
		if err != nil {
			return nil, err
		}
		if err := setPragmaValues(db); err != nil {
			return nil, err
		}
	} else {
		connString := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&timeout=10s",
			cfg.DbUser, cfg.DbPassword, cfg.DbAddress, cfg.DbPort, cfg.DbDatabase)
		db, err = sql.Open("mysql", connString)
		if err != nil {
			return nil, err
		}
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return NewSQLService(db, sugar), nil
}

func NewSQLService(db *sql.DB, sugar *zap.SugaredLogger) *SQLService {
	return &SQLService{db: db, sugar: sugar}
}

func (s *SQLService) Close() error {
	return s.db.Close()
}

func (s *SQLService) DB() *sql.DB {
	return s.db
}

func setPragmaValues(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}

	// these next 2 extremely speed up performance of sqlite
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return err
	}

	if _, err := db.Exec("PRAGMA synchronous = normal"); err != nil {
		return err
	}

	return nil
}

func (s *SQLService) ServerForMember(ctx context.Context, memberID int64) (models.ServerForMember, error) {
	var m models.ServerForMember
	err := s.db.QueryRowContext(ctx, `
		SELECT srv.id, srv.owner_id, srv.name, srv.picture, srv.banner, srv.is_dm
		FROM server_members sm
		JOIN servers srv ON srv.id = sm.server_id
		WHERE sm.id = ?`, memberID).
		Scan(&m.Server.ID, &m.Server.OwnerID, &m.Server.Name, &m.Server.Picture, &m.Server.Banner, &m.Server.IsDM)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	m.ServerID = m.Server.ID
	return m, err
}

func (s *SQLService) ServersForUser(ctx context.Context, userID int64) ([]models.ServerForMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT srv.id, srv.owner_id, srv.name, srv.picture, srv.banner, srv.is_dm
		FROM server_members sm
		JOIN servers srv ON srv.id = sm.server_id
		WHERE sm.user_id = ? AND srv.is_dm = FALSE
		ORDER BY sm.since ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servers []models.ServerForMember
	for rows.Next() {
		var m models.ServerForMember
		err = rows.Scan(&m.Server.ID, &m.Server.OwnerID, &m.Server.Name, &m.Server.Picture, &m.Server.Banner, &m.Server.IsDM)
		if err != nil {
			return nil, err
		}
		m.ServerID = m.Server.ID
		servers = append(servers, m)
	}
	return servers, rows.Err()
}

func (s *SQLService) Server(ctx context.Context, serverID int64) (models.Server, error) {
	var srv models.Server
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, picture, banner, is_dm
		FROM servers WHERE id = ?`, serverID).
		Scan(&srv.ID, &srv.OwnerID, &srv.Name, &srv.Picture, &srv.Banner, &srv.IsDM)
	if errors.Is(err, sql.ErrNoRows) {
		return srv, ErrNotFound
	}
	return srv, err
}

func (s *SQLService) Channel(ctx context.Context, channelID int64) (models.Channel, error) {
	var ch models.Channel
	err := s.db.QueryRowContext(ctx, `
		SELECT id, server_id, name FROM channels WHERE id = ?`, channelID).
		Scan(&ch.ID, &ch.ServerID, &ch.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return ch, ErrNotFound
	}
	return ch, err
}

func (s *SQLService) MessagesInChannel(ctx context.Context, channelID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.message, m.edited,
			u.id, u.username, u.display_name, u.picture
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = ?
		ORDER BY m.id ASC`, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		err = rows.Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Message, &m.Edited,
			&m.User.ID, &m.User.UserName, &m.User.DisplayName, &m.User.Picture)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLService) Message(ctx context.Context, messageID int64) (models.Message, error) {
	var m models.Message
	err := s.db.QueryRowContext(ctx, `
		SELECT m.id, m.channel_id, m.user_id, m.message, m.edited,
			u.id, u.username, u.display_name, u.picture
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = ?`, messageID).
		Scan(&m.ID, &m.ChannelID, &m.UserID, &m.Message, &m.Edited,
			&m.User.ID, &m.User.UserName, &m.User.DisplayName, &m.User.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrNotFound
	}
	return m, err
}

func (s *SQLService) Role(ctx context.Context, roleID int64) (models.Role, error) {
	var r models.Role
	err := s.db.QueryRowContext(ctx, `
		SELECT id, server_id, name, color, position, permissions
		FROM roles WHERE id = ?`, roleID).
		Scan(&r.ID, &r.ServerID, &r.Name, &r.Color, &r.Position, &r.Permissions)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (s *SQLService) ServerRoles(ctx context.Context, serverID int64) ([]models.Role, error) {
	return s.queryRoles(ctx, `
		SELECT id, server_id, name, color, position, permissions
		FROM roles WHERE server_id = ?
		ORDER BY position ASC`, serverID)
}

func (s *SQLService) RolesForUser(ctx context.Context, userID int64) ([]models.Role, error) {
	return s.queryRoles(ctx, `
		SELECT r.id, r.server_id, r.name, r.color, r.position, r.permissions
		FROM roles r
		JOIN server_members sm ON sm.server_id = r.server_id
		WHERE sm.user_id = ?
		ORDER BY r.server_id ASC, r.position ASC`, userID)
}

func (s *SQLService) queryRoles(ctx context.Context, query string, arg int64) ([]models.Role, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var r models.Role
		err = rows.Scan(&r.ID, &r.ServerID, &r.Name, &r.Color, &r.Position, &r.Permissions)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (s *SQLService) Relation(ctx context.Context, relationID int64) (models.Relation, error) {
	var rel models.Relation
	err := s.db.QueryRowContext(ctx, `
		SELECT rel.id, rel.kind, u.id, u.username, u.display_name, u.picture
		FROM relations rel
		JOIN users u ON u.id = rel.user2
		WHERE rel.id = ?`, relationID).
		Scan(&rel.ID, &rel.Kind, &rel.Profile.ID, &rel.Profile.UserName, &rel.Profile.DisplayName, &rel.Profile.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return rel, ErrNotFound
	}
	return rel, err
}

func (s *SQLService) Relations(ctx context.Context, userID int64) ([]models.Relation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT rel.id, rel.kind, u.id, u.username, u.display_name, u.picture
		FROM relations rel
		JOIN users u ON u.id = rel.user2
		WHERE rel.user1 = ?
		ORDER BY rel.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var relations []models.Relation
	for rows.Next() {
		var rel models.Relation
		err = rows.Scan(&rel.ID, &rel.Kind, &rel.Profile.ID, &rel.Profile.UserName, &rel.Profile.DisplayName, &rel.Profile.Picture)
		if err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

func (s *SQLService) DMChannel(ctx context.Context, dmID int64) (models.DMChannel, error) {
	var dm models.DMChannel
	err := s.db.QueryRowContext(ctx, `
		SELECT dm.id, dm.server_id, dm.channel_id, u.id, u.username, u.display_name, u.picture
		FROM dm_channels dm
		JOIN users u ON u.id = dm.user2
		WHERE dm.id = ?`, dmID).
		Scan(&dm.ID, &dm.ServerID, &dm.ChannelID, &dm.Recipient.ID, &dm.Recipient.UserName, &dm.Recipient.DisplayName, &dm.Recipient.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return dm, ErrNotFound
	}
	dm.Name = dm.Recipient.UserName
	return dm, err
}

func (s *SQLService) DMChannels(ctx context.Context, userID int64) ([]models.DMChannel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT dm.id, dm.server_id, dm.channel_id, u.id, u.username, u.display_name, u.picture
		FROM dm_channels dm
		JOIN users u ON u.id = dm.user2
		WHERE dm.user1 = ?
		ORDER BY dm.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []models.DMChannel
	for rows.Next() {
		var dm models.DMChannel
		err = rows.Scan(&dm.ID, &dm.ServerID, &dm.ChannelID, &dm.Recipient.ID, &dm.Recipient.UserName, &dm.Recipient.DisplayName, &dm.Recipient.Picture)
		if err != nil {
			return nil, err
		}
		dm.Name = dm.Recipient.UserName
		channels = append(channels, dm)
	}
	return channels, rows.Err()
}

func (s *SQLService) Profile(ctx context.Context, userID int64) (models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, display_name, picture FROM users WHERE id = ?`, userID).
		Scan(&u.ID, &u.UserName, &u.DisplayName, &u.Picture)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	return u, err
}

// ChannelPermissions computes the effective channel bitmask: the OR of
// the per-channel permission rows granted to roles the user holds.
// Neither sqlite nor mysql has a portable bitwise OR aggregate, so the
// union happens here.
func (s *SQLService) ChannelPermissions(ctx context.Context, userID, channelID int64) (permissions.Set, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cp.permissions
		FROM channel_permissions cp
		JOIN member_roles mr ON mr.role_id = cp.role_id
		WHERE cp.channel_id = ? AND mr.user_id = ?`, channelID, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	return unionRows(rows)
}

// ServerPermissions computes the effective server bitmask from the
// user's roles in that server.
func (s *SQLService) ServerPermissions(ctx context.Context, userID, serverID int64) (permissions.Set, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.permissions
		FROM roles r
		JOIN member_roles mr ON mr.role_id = r.id
		WHERE r.server_id = ? AND mr.user_id = ?`, serverID, userID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	return unionRows(rows)
}

func unionRows(rows *sql.Rows) (permissions.Set, error) {
	var set permissions.Set
	for rows.Next() {
		var v uint64
		if err := rows.Scan(&v); err != nil {
			return 0, err
		}
		set |= permissions.Set(v)
	}
	return set, rows.Err()
}
