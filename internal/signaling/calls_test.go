package signaling

import (
	"encoding/json"
	"testing"
	"time"
)

func TestCallTracker_Negotiation(t *testing.T) {
	tr := NewCallTracker()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return now }

	steps := []struct {
		event string
		from  string
		want  CallState
	}{
		{EventWebRTCICECandidate, "u1", CallIdle},
		{EventWebRTCOffer, "u1", CallOffering},
		{EventWebRTCICECandidate, "u1", CallOffering},
		{EventWebRTCAnswer, "u2", CallAnswered},
		{EventWebRTCICECandidate, "u2", CallConnected},
		{EventWebRTCICECandidate, "u1", CallConnected},
	}
	for i, s := range steps {
		if got := tr.Observe("call:u1-u2", s.event, s.from).State; got != s.want {
			t.Fatalf("step %d (%s): state = %s, want %s", i, s.event, got, s.want)
		}
	}

	c, ok := tr.Get("call:u1-u2")
	if !ok {
		t.Fatal("call not tracked")
	}
	if c.Offers != 1 || c.Answers != 1 || c.Candidates != 4 || c.LastFrom != "u1" {
		t.Fatalf("unexpected counters: %+v", c)
	}
	if !c.StartedAt.Equal(now) {
		t.Fatalf("StartedAt = %v", c.StartedAt)
	}
}

func TestCallTracker_RenegotiationAndDanglingAnswer(t *testing.T) {
	tr := NewCallTracker()

	if st := tr.Observe("r", EventWebRTCAnswer, "u2").State; st != CallIdle {
		t.Fatalf("dangling answer moved state to %s", st)
	}
	tr.Observe("r", EventWebRTCOffer, "u1")
	tr.Observe("r", EventWebRTCOffer, "u1")
	tr.Observe("r", EventWebRTCAnswer, "u2")
	tr.Observe("r", EventWebRTCOffer, "u2")

	c, _ := tr.Get("r")
	if c.State != CallOffering {
		t.Fatalf("state = %s, want offering", c.State)
	}
	if c.Offers != 3 || c.Renegotiations != 1 || c.DanglingAnswers != 1 {
		t.Fatalf("unexpected counters: %+v", c)
	}
}

func TestCallTracker_Forget(t *testing.T) {
	tr := NewCallTracker()
	tr.Observe("b", EventWebRTCOffer, "x")
	tr.Observe("a", EventWebRTCOffer, "x")

	calls := tr.Calls()
	if len(calls) != 2 || calls[0].RoomID != "a" {
		t.Fatalf("Calls = %+v, want sorted [a b]", calls)
	}

	tr.Forget("a")
	if _, ok := tr.Get("a"); ok {
		t.Fatal("forgotten call still tracked")
	}
}

func TestCallState_JSON(t *testing.T) {
	data, err := json.Marshal(Call{RoomID: "r", State: CallAnswered})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var back Call
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.State != CallAnswered {
		t.Fatalf("state = %s, want answered (json %s)", back.State, data)
	}
}
