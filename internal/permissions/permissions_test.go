package permissions

import "testing"

func TestHas(t *testing.T) {
	tests := []struct {
		name     string
		set      Set
		flag     Set
		expected bool
	}{
		{
			name:     "single flag present",
			set:      SendMessages,
			flag:     SendMessages,
			expected: true,
		},
		{
			name:     "single flag absent",
			set:      SendMessages,
			flag:     ManageMessages,
			expected: false,
		},
		{
			name:     "combined set contains member",
			set:      ViewChannel | SendMessages | AttachFiles,
			flag:     AttachFiles,
			expected: true,
		},
		{
			name:     "combined flag requires all bits",
			set:      ViewChannel | SendMessages,
			flag:     ViewChannel | ManageMessages,
			expected: false,
		},
		{
			name:     "server scope bits do not overlap channel scope",
			set:      ManageServer,
			flag:     ViewChannel,
			expected: false,
		},
		{
			name:     "empty set grants nothing",
			set:      0,
			flag:     ViewChannel,
			expected: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.set.Has(tc.flag); got != tc.expected {
				t.Errorf("Set(%b).Has(%b) = %t, want %t", tc.set, tc.flag, got, tc.expected)
			}
		})
	}
}

func TestFlagsAreDisjoint(t *testing.T) {
	flags := []Set{
		ViewChannel, SendMessages, ManageMessages, AttachFiles,
		MentionEveryone, JoinVoice,
		ManageServer, ManageChannels, ManageRoles, KickMembers,
		BanMembers, CreateInvites,
	}

	var seen Set
	for _, f := range flags {
		if seen&f != 0 {
			t.Fatalf("flag %b overlaps previously seen bits %b", f, seen)
		}
		seen |= f
	}
}

func TestUnion(t *testing.T) {
	got := Union(ViewChannel, SendMessages, SendMessages|AttachFiles)
	want := ViewChannel | SendMessages | AttachFiles
	if got != want {
		t.Errorf("Union = %b, want %b", got, want)
	}

	if Union() != 0 {
		t.Error("Union of nothing should be the empty set")
	}
}
