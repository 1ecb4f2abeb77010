package cache

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"chatapp-client/internal/models"
	"chatapp-client/internal/permissions"
	"chatapp-client/internal/remote"

	"go.uber.org/zap"
)

// fakeService is an in-memory remote.Service with per-entity maps,
// error injection and call counting.
type fakeService struct {
	mu sync.Mutex

	members      map[int64]models.ServerForMember
	servers      map[int64]models.Server
	serverList   []models.ServerForMember
	messages     map[int64]models.Message
	channelMsgs  map[int64][]models.Message
	roles        map[int64]models.Role
	relations    map[int64]models.Relation
	dms          map[int64]models.DMChannel
	profiles     map[int64]models.User
	channelPerms map[int64]permissions.Set

	failing map[string]bool
	calls   map[string]int
}

func newFakeService() *fakeService {
	return &fakeService{
		members:      make(map[int64]models.ServerForMember),
		servers:      make(map[int64]models.Server),
		messages:     make(map[int64]models.Message),
		channelMsgs:  make(map[int64][]models.Message),
		roles:        make(map[int64]models.Role),
		relations:    make(map[int64]models.Relation),
		dms:          make(map[int64]models.DMChannel),
		profiles:     make(map[int64]models.User),
		channelPerms: make(map[int64]permissions.Set),
		failing:      make(map[string]bool),
		calls:        make(map[string]int),
	}
}

func (f *fakeService) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[method]++
	if f.failing[method] {
		return fmt.Errorf("injected %s failure", method)
	}
	return nil
}

func (f *fakeService) ServerForMember(_ context.Context, memberID int64) (models.ServerForMember, error) {
	if err := f.enter("ServerForMember"); err != nil {
		return models.ServerForMember{}, err
	}
	m, ok := f.members[memberID]
	if !ok {
		return m, remote.ErrNotFound
	}
	return m, nil
}

func (f *fakeService) ServersForUser(_ context.Context, _ int64) ([]models.ServerForMember, error) {
	if err := f.enter("ServersForUser"); err != nil {
		return nil, err
	}
	return f.serverList, nil
}

func (f *fakeService) Server(_ context.Context, serverID int64) (models.Server, error) {
	if err := f.enter("Server"); err != nil {
		return models.Server{}, err
	}
	srv, ok := f.servers[serverID]
	if !ok {
		return srv, remote.ErrNotFound
	}
	return srv, nil
}

func (f *fakeService) Channel(_ context.Context, channelID int64) (models.Channel, error) {
	return models.Channel{ID: channelID}, nil
}

func (f *fakeService) MessagesInChannel(_ context.Context, channelID int64) ([]models.Message, error) {
	if err := f.enter("MessagesInChannel"); err != nil {
		return nil, err
	}
	return f.channelMsgs[channelID], nil
}

func (f *fakeService) Message(_ context.Context, messageID int64) (models.Message, error) {
	if err := f.enter("Message"); err != nil {
		return models.Message{}, err
	}
	m, ok := f.messages[messageID]
	if !ok {
		return m, remote.ErrNotFound
	}
	return m, nil
}

func (f *fakeService) Role(_ context.Context, roleID int64) (models.Role, error) {
	if err := f.enter("Role"); err != nil {
		return models.Role{}, err
	}
	r, ok := f.roles[roleID]
	if !ok {
		return r, remote.ErrNotFound
	}
	return r, nil
}

func (f *fakeService) ServerRoles(_ context.Context, serverID int64) ([]models.Role, error) {
	if err := f.enter("ServerRoles"); err != nil {
		return nil, err
	}
	var out []models.Role
	for _, r := range f.roles {
		if r.ServerID == serverID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeService) RolesForUser(_ context.Context, _ int64) ([]models.Role, error) {
	if err := f.enter("RolesForUser"); err != nil {
		return nil, err
	}
	var out []models.Role
	for _, r := range f.roles {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeService) Relation(_ context.Context, relationID int64) (models.Relation, error) {
	if err := f.enter("Relation"); err != nil {
		return models.Relation{}, err
	}
	rel, ok := f.relations[relationID]
	if !ok {
		return rel, remote.ErrNotFound
	}
	return rel, nil
}

func (f *fakeService) Relations(_ context.Context, _ int64) ([]models.Relation, error) {
	if err := f.enter("Relations"); err != nil {
		return nil, err
	}
	var out []models.Relation
	for _, rel := range f.relations {
		out = append(out, rel)
	}
	return out, nil
}

func (f *fakeService) DMChannel(_ context.Context, dmID int64) (models.DMChannel, error) {
	if err := f.enter("DMChannel"); err != nil {
		return models.DMChannel{}, err
	}
	dm, ok := f.dms[dmID]
	if !ok {
		return dm, remote.ErrNotFound
	}
	return dm, nil
}

func (f *fakeService) DMChannels(_ context.Context, _ int64) ([]models.DMChannel, error) {
	if err := f.enter("DMChannels"); err != nil {
		return nil, err
	}
	var out []models.DMChannel
	for _, dm := range f.dms {
		out = append(out, dm)
	}
	return out, nil
}

func (f *fakeService) Profile(_ context.Context, userID int64) (models.User, error) {
	if err := f.enter("Profile"); err != nil {
		return models.User{}, err
	}
	u, ok := f.profiles[userID]
	if !ok {
		return u, remote.ErrNotFound
	}
	return u, nil
}

func (f *fakeService) ChannelPermissions(_ context.Context, _, channelID int64) (permissions.Set, error) {
	if err := f.enter("ChannelPermissions"); err != nil {
		return 0, err
	}
	return f.channelPerms[channelID], nil
}

func (f *fakeService) ServerPermissions(_ context.Context, _, _ int64) (permissions.Set, error) {
	if err := f.enter("ServerPermissions"); err != nil {
		return 0, err
	}
	return 0, nil
}

func (f *fakeService) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func newTestCache(svc remote.Service) *Cache {
	return New(zap.NewNop().Sugar(), svc, 1)
}

func forMember(serverID int64, name string, isDM bool) models.ServerForMember {
	return models.ServerForMember{
		ServerID: serverID,
		Server:   models.Server{ID: serverID, Name: name, IsDM: isDM},
	}
}

func TestAddServerDropsDMPseudoServer(t *testing.T) {
	svc := newFakeService()
	svc.members[10] = forMember(100, "real server", false)
	svc.members[11] = forMember(200, "dm pseudo", true)
	c := newTestCache(svc)

	c.AddServer(context.Background(), 10)
	c.AddServer(context.Background(), 11)

	servers := c.Servers.Get()
	if len(servers) != 1 || servers[0].ServerID != 100 {
		t.Errorf("server list = %+v, want only server 100", servers)
	}
}

func TestUpdateServerTouchesOnlyTarget(t *testing.T) {
	svc := newFakeService()
	c := newTestCache(svc)
	c.Servers.ReplaceAll([]models.ServerForMember{
		forMember(1, "first", false),
		forMember(2, "second", false),
	})

	// the update event carried nothing but the id; the fresh snapshot
	// is what lands in the store
	svc.servers[2] = models.Server{ID: 2, Name: "second renamed"}
	c.UpdateServer(context.Background(), 2)

	servers := c.Servers.Get()
	if len(servers) != 2 {
		t.Fatalf("server list length changed: %d", len(servers))
	}
	if servers[0].ServerID != 1 || servers[0].Server.Name != "first" {
		t.Errorf("server 1 disturbed: %+v", servers[0])
	}
	if servers[1].ServerID != 2 || servers[1].Server.Name != "second renamed" {
		t.Errorf("server 2 not refreshed: %+v", servers[1])
	}
}

func TestUpdateServerUnknownIdNeverInserts(t *testing.T) {
	svc := newFakeService()
	svc.servers[9] = models.Server{ID: 9, Name: "stranger"}
	c := newTestCache(svc)
	c.Servers.ReplaceAll([]models.ServerForMember{forMember(1, "first", false)})

	c.UpdateServer(context.Background(), 9)

	if got := c.Servers.Len(); got != 1 {
		t.Errorf("replace inserted an unknown server: len = %d", got)
	}
}

func TestFailedFetchLeavesStoreUnchanged(t *testing.T) {
	svc := newFakeService()
	c := newTestCache(svc)
	before := []models.ServerForMember{forMember(1, "first", false)}
	c.Servers.ReplaceAll(before)

	svc.failing["ServersForUser"] = true
	c.RefreshServers(context.Background())

	if got := c.Servers.Get(); !reflect.DeepEqual(got, before) {
		t.Errorf("store changed across a failed fetch: %+v", got)
	}

	svc.failing["Server"] = true
	c.UpdateServer(context.Background(), 1)
	if got := c.Servers.Get(); !reflect.DeepEqual(got, before) {
		t.Errorf("store changed across a failed update: %+v", got)
	}
}

func TestAddMessageIdempotent(t *testing.T) {
	svc := newFakeService()
	svc.messages[50] = models.Message{ID: 50, ChannelID: 7, Message: "hello"}
	c := newTestCache(svc)
	c.SetChannel(&models.Channel{ID: 7, Name: "general"})

	c.AddMessage(context.Background(), 50)
	c.AddMessage(context.Background(), 50)

	msgs := c.Messages.Get()
	if len(msgs) != 1 {
		t.Errorf("duplicate insert produced %d messages", len(msgs))
	}
}

func TestChannelSwitchDiscardsLateFetch(t *testing.T) {
	svc := newFakeService()
	svc.channelMsgs[1] = []models.Message{{ID: 10, ChannelID: 1, Message: "old channel"}}
	svc.channelMsgs[2] = []models.Message{{ID: 20, ChannelID: 2, Message: "new channel"}}
	c := newTestCache(svc)

	c.SetChannel(&models.Channel{ID: 1})
	// user switches away before channel 1's refresh runs
	c.SetChannel(&models.Channel{ID: 2})
	c.RefreshMessages(context.Background(), 2)
	c.RefreshMessages(context.Background(), 1) // resolves late

	msgs := c.Messages.Get()
	if len(msgs) != 1 || msgs[0].ID != 20 {
		t.Errorf("late fetch leaked into the log: %+v", msgs)
	}
}

func TestRecomputePermsReplacesWholesale(t *testing.T) {
	svc := newFakeService()
	svc.channelPerms[3] = permissions.ViewChannel | permissions.SendMessages | permissions.ManageMessages
	c := newTestCache(svc)

	c.RecomputeChannelPerms(context.Background(), 3)
	if got := c.ChannelPerms.Get(); !got.Has(permissions.ManageMessages) {
		t.Fatalf("perms = %b", got)
	}

	// a role lost ManageMessages remotely; recompute must not OR the
	// old bits back in
	svc.channelPerms[3] = permissions.ViewChannel | permissions.SendMessages
	c.RecomputeChannelPerms(context.Background(), 3)

	got := c.ChannelPerms.Get()
	if got.Has(permissions.ManageMessages) {
		t.Errorf("stale bit survived recompute: %b", got)
	}
	if !got.Has(permissions.ViewChannel | permissions.SendMessages) {
		t.Errorf("remaining bits lost: %b", got)
	}
}

func TestFetchProfileMemoized(t *testing.T) {
	svc := newFakeService()
	svc.profiles[5] = models.User{ID: 5, UserName: "alice"}
	c := newTestCache(svc)

	c.FetchProfile(context.Background(), 5)
	c.FetchProfile(context.Background(), 5)

	if got := svc.callCount("Profile"); got != 1 {
		t.Errorf("profile fetched %d times, want 1", got)
	}
	if u, ok := c.Profiles.Lookup(5); !ok || u.UserName != "alice" {
		t.Errorf("profile not cached: %+v, %t", u, ok)
	}
}

func TestRefreshDMChannelsKeyedByRecipient(t *testing.T) {
	svc := newFakeService()
	svc.dms[70] = models.DMChannel{ID: 70, Recipient: models.User{ID: 2, UserName: "bob"}, Name: "bob"}
	c := newTestCache(svc)

	c.RefreshDMChannels(context.Background())

	dm, ok := c.DMChannels.Lookup(2)
	if !ok || dm.ID != 70 {
		t.Errorf("DM channel not keyed by recipient: %+v, %t", dm, ok)
	}
}

func TestSetRoomServerNameResolvesFromList(t *testing.T) {
	svc := newFakeService()
	c := newTestCache(svc)
	c.Servers.ReplaceAll([]models.ServerForMember{forMember(7, "my server", false)})

	c.SetRoomServer(7)
	c.SetRoomServerName(7)

	room := c.Room.Get()
	if room.ServerID != 7 || room.ServerName != "my server" {
		t.Errorf("room = %+v", room)
	}

	// unknown server leaves the name alone
	c.SetRoomServerName(99)
	if got := c.Room.Get().ServerName; got != "my server" {
		t.Errorf("room server name disturbed: %q", got)
	}
}
