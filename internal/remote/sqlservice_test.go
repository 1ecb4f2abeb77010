package remote

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"chatapp-client/internal/permissions"

	"go.uber.org/zap"
)

func newTestService(t *testing.T) *SQLService {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	// the in-memory db lives on a single connection
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := CreateTables(db); err != nil {
		t.Fatal(err)
	}

	seed := []string{
		`INSERT INTO users (id, username, display_name, picture) VALUES
			(1, 'alice', 'Alice', 'a.png'),
			(2, 'bob', 'Bob', 'b.png')`,
		`INSERT INTO servers (id, owner_id, name, picture, banner, is_dm) VALUES
			(100, 1, 'general server', '', '', FALSE),
			(200, 2, 'dm pseudo server', '', '', TRUE)`,
		`INSERT INTO server_members (id, server_id, user_id) VALUES
			(1000, 100, 1),
			(1001, 200, 1)`,
		`INSERT INTO channels (id, server_id, name) VALUES
			(300, 100, 'general')`,
		`INSERT INTO messages (id, channel_id, user_id, message, edited) VALUES
			(400, 300, 2, 'hello', FALSE),
			(401, 300, 1, 'hi there', FALSE)`,
		`INSERT INTO roles (id, server_id, name, color, position, permissions) VALUES
			(500, 100, 'mod', '', 0, 12),
			(501, 100, 'member', '', 1, 1)`,
		`INSERT INTO member_roles (role_id, user_id) VALUES
			(500, 1),
			(501, 1)`,
		`INSERT INTO channel_permissions (channel_id, role_id, permissions) VALUES
			(300, 500, 6),
			(300, 501, 1)`,
		`INSERT INTO relations (id, user1, user2, kind) VALUES
			(600, 1, 2, 'friend')`,
		`INSERT INTO dm_channels (id, server_id, channel_id, user1, user2) VALUES
			(700, 200, 301, 1, 2)`,
	}
	for _, stmt := range seed {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}

	return NewSQLService(db, zap.NewNop().Sugar())
}

func TestServersForUserExcludesDMPseudoServers(t *testing.T) {
	s := newTestService(t)

	servers, err := s.ServersForUser(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}

	if len(servers) != 1 {
		t.Fatalf("got %d servers, want 1 (DM pseudo-server must be excluded)", len(servers))
	}
	if servers[0].ServerID != 100 || servers[0].Server.ID != 100 {
		t.Errorf("unexpected row: %+v", servers[0])
	}
}

func TestServerForMember(t *testing.T) {
	s := newTestService(t)

	m, err := s.ServerForMember(context.Background(), 1001)
	if err != nil {
		t.Fatal(err)
	}
	if !m.Server.IsDM {
		t.Error("membership 1001 should point at the DM pseudo-server")
	}

	_, err = s.ServerForMember(context.Background(), 9999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing membership: err = %v, want ErrNotFound", err)
	}
}

func TestMessagesJoinAuthor(t *testing.T) {
	s := newTestService(t)

	msgs, err := s.MessagesInChannel(context.Background(), 300)
	if err != nil {
		t.Fatal(err)
	}

	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].ID != 400 || msgs[1].ID != 401 {
		t.Errorf("messages out of ascending order: %v, %v", msgs[0].ID, msgs[1].ID)
	}
	if msgs[0].User.UserName != "bob" {
		t.Errorf("author not joined: %+v", msgs[0].User)
	}

	one, err := s.Message(context.Background(), 401)
	if err != nil {
		t.Fatal(err)
	}
	if one.Message != "hi there" || one.User.UserName != "alice" {
		t.Errorf("Message(401) = %+v", one)
	}
}

func TestChannelPermissionsUnion(t *testing.T) {
	s := newTestService(t)

	set, err := s.ChannelPermissions(context.Background(), 1, 300)
	if err != nil {
		t.Fatal(err)
	}
	if set != permissions.Set(7) { // 6 | 1
		t.Errorf("channel permissions = %b, want %b", set, 7)
	}

	// a user with no roles gets the empty set, not an error
	set, err = s.ChannelPermissions(context.Background(), 2, 300)
	if err != nil {
		t.Fatal(err)
	}
	if set != 0 {
		t.Errorf("roleless user permissions = %b, want 0", set)
	}
}

func TestServerPermissionsUnion(t *testing.T) {
	s := newTestService(t)

	set, err := s.ServerPermissions(context.Background(), 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	if set != permissions.Set(13) { // 12 | 1
		t.Errorf("server permissions = %b, want %b", set, 13)
	}
}

func TestDMChannelNameFollowsRecipient(t *testing.T) {
	s := newTestService(t)

	dm, err := s.DMChannel(context.Background(), 700)
	if err != nil {
		t.Fatal(err)
	}
	if dm.Recipient.ID != 2 || dm.Name != "bob" {
		t.Errorf("DMChannel(700) = %+v", dm)
	}

	all, err := s.DMChannels(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != 700 {
		t.Errorf("DMChannels = %+v", all)
	}
}

func TestRelations(t *testing.T) {
	s := newTestService(t)

	rels, err := s.Relations(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rels) != 1 || rels[0].Kind != "friend" || rels[0].Profile.UserName != "bob" {
		t.Errorf("Relations = %+v", rels)
	}
}

func TestProfileNotFound(t *testing.T) {
	s := newTestService(t)

	if _, err := s.Profile(context.Background(), 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
