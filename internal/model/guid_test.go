package model

import "testing"

func TestPackGUIDRoundTripsDatabaseID(t *testing.T) {
	cases := []uint32{0, 1, 42, 1 << 31, 0xFFFFFFFF}
	for _, dbID := range cases {
		g := PackGUID(dbID, 1, 7)
		if got := g.UnpackDBID(); got != dbID {
			t.Fatalf("UnpackDBID(PackGUID(%d, ...)) = %d, want %d", dbID, got, dbID)
		}
	}
}

func TestPackGUIDPreservesKindAndRealm(t *testing.T) {
	g := PackGUID(100, 3, 250)
	if got := g.UnpackKind(); got != 3 {
		t.Fatalf("UnpackKind() = %d, want 3", got)
	}
	if got := g.UnpackRealmID(); got != 250 {
		t.Fatalf("UnpackRealmID() = %d, want 250", got)
	}
	if got := g.UnpackDBID(); got != 100 {
		t.Fatalf("UnpackDBID() = %d, want 100", got)
	}
}

func TestFriendListRemoveFriend(t *testing.T) {
	fl := &FriendList{
		OwnerID: 1,
		Friends: []FriendEntry{
			{CharID: 2, Name: "Bob"},
			{CharID: 3, Name: "Carol"},
		},
	}

	if !fl.RemoveFriend(2) {
		t.Fatal("expected RemoveFriend(2) to report found")
	}
	if len(fl.Friends) != 1 || fl.Friends[0].CharID != 3 {
		t.Fatalf("unexpected friends after removal: %+v", fl.Friends)
	}
	if fl.RemoveFriend(99) {
		t.Fatal("expected RemoveFriend(99) to report not found")
	}
}
