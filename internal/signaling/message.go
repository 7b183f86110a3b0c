package signaling

// Message is a server-to-client frame. Payload is encoded by the codec
// negotiated for the receiving connection.
type Message struct {
	Type    string `json:"type" msgpack:"type"`
	Payload any    `json:"payload,omitempty" msgpack:"payload,omitempty"`
}

// Events consumed from clients.
const (
	EventJoin               = "join"
	EventSendMessage        = "send_message"
	EventUserRegistered     = "user_registered"
	EventJoinCall           = "join_call"
	EventWebRTCOffer        = "webrtc_offer"
	EventWebRTCAnswer       = "webrtc_answer"
	EventWebRTCICECandidate = "webrtc_ice_candidate"
)

// Events produced for clients. The webrtc_* events reuse the names above.
const (
	EventReceiveMessage = "receive_message"
	EventUsersUpdated   = "users_updated"
)

// ChatEnvelope is both the send_message payload and the receive_message
// payload. Message is opaque: it was produced and persisted by the REST
// layer before the relay ever sees it.
type ChatEnvelope struct {
	To      string `json:"to" msgpack:"to"`
	Message any    `json:"message" msgpack:"message"`
	From    string `json:"from,omitempty" msgpack:"from,omitempty"`
}

// OfferEnvelope is the client-to-server webrtc_offer payload.
type OfferEnvelope struct {
	RoomID string `json:"roomId" msgpack:"roomId"`
	Offer  any    `json:"offer" msgpack:"offer"`
	From   string `json:"from" msgpack:"from"`
}

// AnswerEnvelope is the client-to-server webrtc_answer payload.
type AnswerEnvelope struct {
	RoomID string `json:"roomId" msgpack:"roomId"`
	Answer any    `json:"answer" msgpack:"answer"`
	From   string `json:"from" msgpack:"from"`
}

// CandidateEnvelope is the client-to-server webrtc_ice_candidate payload.
type CandidateEnvelope struct {
	RoomID    string `json:"roomId" msgpack:"roomId"`
	Candidate any    `json:"candidate" msgpack:"candidate"`
	From      string `json:"from" msgpack:"from"`
}

// OfferRelay is what the other members of a call room receive.
type OfferRelay struct {
	Offer any    `json:"offer" msgpack:"offer"`
	From  string `json:"from" msgpack:"from"`
}

type AnswerRelay struct {
	Answer any    `json:"answer" msgpack:"answer"`
	From   string `json:"from" msgpack:"from"`
}

type CandidateRelay struct {
	Candidate any    `json:"candidate" msgpack:"candidate"`
	From      string `json:"from" msgpack:"from"`
}
