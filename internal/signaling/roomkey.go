package signaling

import "strings"

const (
	personalRoomPrefix = "user:"
	callRoomPrefix     = "call:"
)

// Room kinds reported in snapshots.
const (
	RoomKindPersonal = "personal"
	RoomKindCall     = "call"
	RoomKindOther    = "other"
)

// PersonalRoomID is the room a user's connections join to receive chat.
func PersonalRoomID(userID string) string {
	if userID == "" {
		return ""
	}
	return personalRoomPrefix + userID
}

// CallRoomID canonicalises a client supplied call room id. Clients render a
// call between A and B as "A-B" or "B-A" depending on who dials; both map to
// the same room. Ids that are not a plain pair are kept as they are.
func CallRoomID(raw string) string {
	if raw == "" {
		return ""
	}
	a, b, ok := strings.Cut(raw, "-")
	if !ok || a == "" || b == "" || strings.Contains(b, "-") {
		return callRoomPrefix + raw
	}
	return PairRoomID(a, b)
}

// PairRoomID returns the call room shared by users a and b.
func PairRoomID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return callRoomPrefix + a + "-" + b
}
