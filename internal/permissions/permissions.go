// Package permissions defines the capability bitmask. Each flag is a
// disjoint bit in a single integer; an effective permission value is the
// bitwise OR of every role the user holds in the relevant scope. The value
// is always recomputed wholesale from a fresh remote snapshot, never
// patched bit by bit.
package permissions

// Set is an effective permission value for one (user, scope) pair.
type Set uint64

// Channel-scope capabilities.
const (
	ViewChannel Set = 1 << iota
	SendMessages
	ManageMessages
	AttachFiles
	MentionEveryone
	JoinVoice
)

// Server-scope capabilities.
const (
	ManageServer Set = 1 << (iota + 32)
	ManageChannels
	ManageRoles
	KickMembers
	BanMembers
	CreateInvites
)

// Has reports whether every capability in flag is granted. Pure
// predicate, no side effects.
func (s Set) Has(flag Set) bool {
	return s&flag == flag
}

// Union combines role permission values into one effective set.
func Union(values ...Set) Set {
	var s Set
	for _, v := range values {
		s |= v
	}
	return s
}
