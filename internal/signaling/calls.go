package signaling

import (
	"sort"
	"time"
)

// CallState is the negotiation progress of a call room as observed from the
// signaling traffic flowing through it. It is informational only: the relay
// forwards every event whatever the state.
type CallState int

const (
	CallIdle CallState = iota
	CallOffering
	CallAnswered
	CallConnected
)

func (s CallState) String() string {
	switch s {
	case CallOffering:
		return "offering"
	case CallAnswered:
		return "answered"
	case CallConnected:
		return "connected"
	default:
		return "idle"
	}
}

func (s CallState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CallState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "offering":
		*s = CallOffering
	case "answered":
		*s = CallAnswered
	case "connected":
		*s = CallConnected
	default:
		*s = CallIdle
	}
	return nil
}

// Call is the observed state of one call room.
type Call struct {
	RoomID          string    `json:"room_id"`
	State           CallState `json:"state"`
	Offers          int       `json:"offers"`
	Renegotiations  int       `json:"renegotiations"`
	Answers         int       `json:"answers"`
	DanglingAnswers int       `json:"dangling_answers"`
	Candidates      int       `json:"candidates"`
	LastFrom        string    `json:"last_from,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CallTracker derives Call records from relayed signaling events. Like the
// Router it belongs to the Hub goroutine.
type CallTracker struct {
	calls map[string]*Call
	now   func() time.Time
}

func NewCallTracker() *CallTracker {
	return &CallTracker{
		calls: make(map[string]*Call),
		now:   time.Now,
	}
}

// Observe records a signaling event for roomID and returns the updated call.
func (t *CallTracker) Observe(roomID, event, from string) *Call {
	now := t.now()
	c, ok := t.calls[roomID]
	if !ok {
		c = &Call{RoomID: roomID, StartedAt: now}
		t.calls[roomID] = c
	}
	c.UpdatedAt = now
	c.LastFrom = from

	switch event {
	case EventWebRTCOffer:
		c.Offers++
		if c.State > CallOffering {
			c.Renegotiations++
		}
		c.State = CallOffering
	case EventWebRTCAnswer:
		c.Answers++
		if c.State == CallOffering {
			c.State = CallAnswered
		} else {
			c.DanglingAnswers++
		}
	case EventWebRTCICECandidate:
		c.Candidates++
		if c.State == CallAnswered {
			c.State = CallConnected
		}
	}
	return c
}

// Get returns a copy of the call for roomID.
func (t *CallTracker) Get(roomID string) (Call, bool) {
	c, ok := t.calls[roomID]
	if !ok {
		return Call{}, false
	}
	return *c, true
}

// Forget drops the record for roomID.
func (t *CallTracker) Forget(roomID string) {
	delete(t.calls, roomID)
}

// Calls lists copies of all tracked calls sorted by room id.
func (t *CallTracker) Calls() []Call {
	calls := make([]Call, 0, len(t.calls))
	for _, c := range t.calls {
		calls = append(calls, *c)
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].RoomID < calls[j].RoomID })
	return calls
}
