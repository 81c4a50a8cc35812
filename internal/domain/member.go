package domain

// Member represents user's participation meta for a room.
// No transport or lifecycle logic here.
type Member struct {
	User      *User
	Connected bool
	Audio     bool
	Video     bool
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
// New members start connected with media on; the client advertises changes.
func NewMember(user *User) *Member {
	return &Member{User: user, Connected: true, Audio: true, Video: true}
}
