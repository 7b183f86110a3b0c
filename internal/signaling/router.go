package signaling

import (
	"sort"
	"strings"
)

// Subscriber is a live connection as seen by the Router.
type Subscriber interface {
	ID() string

	// Deliver queues msg without blocking. It reports false when the
	// subscriber cannot accept more messages.
	Deliver(msg *Message) bool
}

// RoomInfo describes one room in a snapshot.
type RoomInfo struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"`
	Members int    `json:"members"`
}

// Router maps room ids to the connections subscribed to them and keeps the
// registry of every live connection.
//
// Rooms are implicit: a room exists while it has at least one member and is
// gone as soon as its last member leaves. Router is not safe for concurrent
// use; the Hub goroutine owns it.
type Router struct {
	rooms       map[string]map[Subscriber]struct{}
	memberships map[Subscriber]map[string]struct{}
}

func NewRouter() *Router {
	return &Router{
		rooms:       make(map[string]map[Subscriber]struct{}),
		memberships: make(map[Subscriber]map[string]struct{}),
	}
}

// Connect registers s as live. It is a no-op for a connected subscriber.
func (r *Router) Connect(s Subscriber) {
	if _, ok := r.memberships[s]; !ok {
		r.memberships[s] = make(map[string]struct{})
	}
}

// Connected reports whether s is registered.
func (r *Router) Connected(s Subscriber) bool {
	_, ok := r.memberships[s]
	return ok
}

// Join adds s to roomID. Joining a room twice has no further effect.
func (r *Router) Join(s Subscriber, roomID string) error {
	if roomID == "" {
		return ErrEmptyRoomID
	}
	r.Connect(s)

	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[Subscriber]struct{})
		r.rooms[roomID] = members
	}
	members[s] = struct{}{}
	r.memberships[s][roomID] = struct{}{}
	return nil
}

// LeaveAll removes s from every room it joined and returns the ids of the
// rooms that were left empty, and therefore deleted. s stays registered.
func (r *Router) LeaveAll(s Subscriber) []string {
	joined, ok := r.memberships[s]
	if !ok {
		return nil
	}

	var emptied []string
	for roomID := range joined {
		members := r.rooms[roomID]
		delete(members, s)
		if len(members) == 0 {
			delete(r.rooms, roomID)
			emptied = append(emptied, roomID)
		}
	}
	r.memberships[s] = make(map[string]struct{})
	sort.Strings(emptied)
	return emptied
}

// Disconnect leaves every room and forgets s entirely.
func (r *Router) Disconnect(s Subscriber) []string {
	emptied := r.LeaveAll(s)
	delete(r.memberships, s)
	return emptied
}

// EmitToRoom delivers msg to every member of roomID exactly once. An empty or
// unknown room is not an error: nothing is delivered. Members that could not
// accept the message are returned so the caller can evict them.
func (r *Router) EmitToRoom(roomID string, msg *Message) (int, []Subscriber) {
	return r.EmitToRoomExcept(roomID, msg, nil)
}

// EmitToRoomExcept is EmitToRoom without delivering to except.
func (r *Router) EmitToRoomExcept(roomID string, msg *Message, except Subscriber) (int, []Subscriber) {
	var (
		delivered int
		stalled   []Subscriber
	)
	for s := range r.rooms[roomID] {
		if except != nil && s == except {
			continue
		}
		if s.Deliver(msg) {
			delivered++
		} else {
			stalled = append(stalled, s)
		}
	}
	return delivered, stalled
}

// Broadcast delivers msg to every registered connection, in a room or not.
func (r *Router) Broadcast(msg *Message) (int, []Subscriber) {
	var (
		delivered int
		stalled   []Subscriber
	)
	for s := range r.memberships {
		if s.Deliver(msg) {
			delivered++
		} else {
			stalled = append(stalled, s)
		}
	}
	return delivered, stalled
}

// Members returns the number of connections in roomID.
func (r *Router) Members(roomID string) int {
	return len(r.rooms[roomID])
}

// Connections returns the number of registered connections.
func (r *Router) Connections() int {
	return len(r.memberships)
}

// Subscribers returns every registered connection.
func (r *Router) Subscribers() []Subscriber {
	subs := make([]Subscriber, 0, len(r.memberships))
	for s := range r.memberships {
		subs = append(subs, s)
	}
	return subs
}

// Rooms lists the current rooms sorted by id.
func (r *Router) Rooms() []RoomInfo {
	infos := make([]RoomInfo, 0, len(r.rooms))
	for id, members := range r.rooms {
		infos = append(infos, RoomInfo{ID: id, Kind: roomKind(id), Members: len(members)})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func roomKind(roomID string) string {
	switch {
	case strings.HasPrefix(roomID, personalRoomPrefix):
		return RoomKindPersonal
	case strings.HasPrefix(roomID, callRoomPrefix):
		return RoomKindCall
	default:
		return RoomKindOther
	}
}
