package signaling

// handlerFunc relays one inbound frame. It runs on the Hub goroutine.
type handlerFunc func(h *Hub, c *Client, in *Inbound) error

var handlers = map[string]handlerFunc{
	EventJoin:               handleJoin,
	EventSendMessage:        handleSendMessage,
	EventUserRegistered:     handleUserRegistered,
	EventJoinCall:           handleJoinCall,
	EventWebRTCOffer:        handleOffer,
	EventWebRTCAnswer:       handleAnswer,
	EventWebRTCICECandidate: handleICECandidate,
}

// --- Chat relay ---

// handleJoin subscribes the connection to its user's personal room.
func handleJoin(h *Hub, c *Client, in *Inbound) error {
	var userID string
	if err := in.Bind(&userID); err != nil {
		return err
	}
	if err := h.router.Join(c, PersonalRoomID(userID)); err != nil {
		return err
	}
	c.userID = userID
	h.log.Debug("joined personal room", "conn", c.id, "user", userID)
	return nil
}

// handleSendMessage forwards an already persisted chat message to the
// recipient's personal room. There is no acknowledgement.
func handleSendMessage(h *Hub, c *Client, in *Inbound) error {
	var env ChatEnvelope
	if err := in.Bind(&env); err != nil {
		return err
	}
	if env.From == "" {
		env.From = c.userID
	}
	h.emit(PersonalRoomID(env.To), &Message{Type: EventReceiveMessage, Payload: env}, nil)
	return nil
}

// handleUserRegistered tells every live connection to refresh its contacts.
func handleUserRegistered(h *Hub, c *Client, in *Inbound) error {
	h.broadcast(&Message{Type: EventUsersUpdated})
	return nil
}

// --- Call signaling relay ---

func handleJoinCall(h *Hub, c *Client, in *Inbound) error {
	var roomID string
	if err := in.Bind(&roomID); err != nil {
		return err
	}
	room := CallRoomID(roomID)
	if err := h.router.Join(c, room); err != nil {
		return err
	}
	h.log.Debug("joined call room", "conn", c.id, "room", room)
	return nil
}

func handleOffer(h *Hub, c *Client, in *Inbound) error {
	var env OfferEnvelope
	if err := in.Bind(&env); err != nil {
		return err
	}
	h.signal(c, env.RoomID, EventWebRTCOffer, env.From, OfferRelay{Offer: env.Offer, From: env.From})
	return nil
}

func handleAnswer(h *Hub, c *Client, in *Inbound) error {
	var env AnswerEnvelope
	if err := in.Bind(&env); err != nil {
		return err
	}
	h.signal(c, env.RoomID, EventWebRTCAnswer, env.From, AnswerRelay{Answer: env.Answer, From: env.From})
	return nil
}

func handleICECandidate(h *Hub, c *Client, in *Inbound) error {
	var env CandidateEnvelope
	if err := in.Bind(&env); err != nil {
		return err
	}
	h.signal(c, env.RoomID, EventWebRTCICECandidate, env.From, CandidateRelay{Candidate: env.Candidate, From: env.From})
	return nil
}

// signal relays a negotiation event to everyone else in the call room. The
// relay keeps no call record that could block delivery; the tracker only
// observes rooms that still have members.
func (h *Hub) signal(c *Client, rawRoomID, event, from string, payload any) {
	room := CallRoomID(rawRoomID)
	if h.router.Members(room) > 0 {
		call := h.calls.Observe(room, event, from)
		h.log.Debug("signal", "conn", c.id, "room", room, "event", event, "state", call.State)
	}
	h.emit(room, &Message{Type: event, Payload: payload}, c)
}
