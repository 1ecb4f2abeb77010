package models

// User is a profile record as the backend serves it. Credentials never
// reach this client and have no fields here.
type User struct {
	ID          int64  `json:"id,string"`
	UserName    string `json:"userName,omitempty"`
	DisplayName string `json:"displayName"`
	Picture     string `json:"picture"`
}

type Server struct {
	ID      int64  `json:"id,string"`
	OwnerID int64  `json:"ownerID,string"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Banner  string `json:"banner"`
	// IsDM marks the hidden pseudo-server backing a direct-message
	// channel. Those never show up in the server list.
	IsDM bool `json:"isDm"`
}

// ServerForMember is the membership projection the server list holds,
// keyed by the server the membership grants access to.
type ServerForMember struct {
	ServerID int64  `json:"serverID,string"`
	Server   Server `json:"server"`
}

type Channel struct {
	ID       int64  `json:"id,string"`
	ServerID int64  `json:"serverID,string"`
	Name     string `json:"name"`
}

type Message struct {
	ID        int64  `json:"id,string"`
	ChannelID int64  `json:"channelID,string"`
	UserID    int64  `json:"userID,string"`
	Message   string `json:"message"`
	Edited    bool   `json:"edited"`
	User      User   `json:"user"`
}

type Role struct {
	ID          int64  `json:"id,string"`
	ServerID    int64  `json:"serverID,string"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Position    int    `json:"position"`
	Permissions uint64 `json:"permissions,string"`
}

type RelationKind string

const (
	RelationFriend    RelationKind = "friend"
	RelationRequested RelationKind = "friend_requested"
	RelationBlocked   RelationKind = "blocked"
)

// Relation links the current user to another profile.
type Relation struct {
	ID      int64        `json:"id,string"`
	Kind    RelationKind `json:"kind"`
	Profile User         `json:"profile"`
}

// DMChannel is a direct-message conversation. The backend models these
// as hidden pseudo-servers; the client keys them by recipient instead.
type DMChannel struct {
	ID        int64  `json:"id,string"`
	ServerID  int64  `json:"serverID,string"`
	ChannelID int64  `json:"channelID,string"`
	Name      string `json:"name"`
	Recipient User   `json:"recipient"`
}

// Room describes the active voice/media room. Distinct from the active
// text channel; fields are set one at a time as the UI joins and the
// surrounding context resolves.
type Room struct {
	ChannelID  int64  `json:"channelID,string"`
	Name       string `json:"name"`
	ServerID   int64  `json:"serverID,string"`
	ServerName string `json:"serverName"`
}

// PresenceInfo is whatever the transport broadcast for a joined user.
// It is never merged with persistent state.
type PresenceInfo struct {
	UserName string `json:"userName"`
	Status   string `json:"status"`
	JoinedAt int64  `json:"joinedAt"`
}

type ConfigFile struct {
	Address           string
	Port              string
	PrintHttpRequests bool
	LogToFile         bool
	LogLevel          string
	JwtSecret         string
	SessionToken      string
	GatewayUrl        string
	RedisAddress      string
	SelfContained     bool
	DbUser            string
	DbPassword        string
	DbAddress         string
	DbPort            string
	DbDatabase        string
}
