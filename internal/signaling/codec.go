package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Websocket subprotocols understood by the server.
const (
	SubprotocolJSON    = "warpchat.json"
	SubprotocolMsgpack = "warpchat.msgpack"
)

// Subprotocols lists the supported subprotocols in preference order.
var Subprotocols = []string{SubprotocolJSON, SubprotocolMsgpack}

// Codec translates between websocket frames and relay messages. Each
// connection keeps the codec it negotiated; opaque payload values are decoded
// to plain Go values so peers on different codecs can talk to each other.
type Codec interface {
	Name() string
	FrameType() int
	Encode(msg *Message) ([]byte, error)
	Decode(data []byte) (*Inbound, error)
	Unmarshal(data []byte, v any) error
}

// CodecFor returns the codec for a negotiated subprotocol. An empty or
// unknown subprotocol falls back to JSON.
func CodecFor(subprotocol string) Codec {
	if subprotocol == SubprotocolMsgpack {
		return MsgpackCodec
	}
	return JSONCodec
}

var (
	JSONCodec    Codec = jsonCodec{}
	MsgpackCodec Codec = msgpackCodec{}
)

type jsonCodec struct{}

type jsonFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (jsonCodec) Name() string   { return SubprotocolJSON }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

// Encode leaves <, > and & unescaped so SDP text reaches the peer as it was
// sent.
func (jsonCodec) Encode(msg *Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(msg); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (c jsonCodec) Decode(data []byte) (*Inbound, error) {
	var f jsonFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode json frame: %w", err)
	}
	if f.Type == "" {
		return nil, ErrMissingType
	}
	var payload []byte
	if len(f.Payload) > 0 && string(f.Payload) != "null" {
		payload = f.Payload
	}
	return &Inbound{Type: f.Type, payload: payload, codec: c}, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

type msgpackCodec struct{}

type msgpackFrame struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

func (msgpackCodec) Name() string   { return SubprotocolMsgpack }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(msg *Message) ([]byte, error) {
	return msgpack.Marshal(msg)
}

func (c msgpackCodec) Decode(data []byte) (*Inbound, error) {
	var f msgpackFrame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode msgpack frame: %w", err)
	}
	if f.Type == "" {
		return nil, ErrMissingType
	}
	var payload []byte
	// 0xc0 is msgpack nil.
	if len(f.Payload) > 0 && !(len(f.Payload) == 1 && f.Payload[0] == 0xc0) {
		payload = f.Payload
	}
	return &Inbound{Type: f.Type, payload: payload, codec: c}, nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

// Inbound is a decoded client-to-server frame. The payload stays encoded
// until a handler binds it to the shape it expects.
type Inbound struct {
	Type string

	payload []byte
	codec   Codec

	// client is the connection that sent the frame. It is set by the read
	// pump and never leaves the process.
	client *Client
}

// Bind decodes the payload into v.
func (in *Inbound) Bind(v any) error {
	if len(in.payload) == 0 {
		return ErrMissingPayload
	}
	if err := in.codec.Unmarshal(in.payload, v); err != nil {
		return fmt.Errorf("bind %s payload: %w", in.Type, err)
	}
	return nil
}
