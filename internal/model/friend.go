package model

// FriendList is the per-character social record (spec §3 "Social list
// (friend/ignore bits + note) per character").
type FriendList struct {
	OwnerID uint32
	Friends []FriendEntry
	Ignored []uint32
}

// FriendEntry is one contact on a character's friend list.
type FriendEntry struct {
	CharID uint32
	Name   string
	Note   string
	Online bool
}

// RemoveFriend drops victimID from the list, returning true if it was
// present. Used on CharDelete to broadcast a removal to anyone who had the
// deleted character as a contact (spec §4.4 step 6).
func (f *FriendList) RemoveFriend(victimID uint32) bool {
	for i, entry := range f.Friends {
		if entry.CharID == victimID {
			f.Friends = append(f.Friends[:i], f.Friends[i+1:]...)
			return true
		}
	}
	return false
}
