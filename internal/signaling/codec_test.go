package signaling

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

func TestCodecFor(t *testing.T) {
	if CodecFor(SubprotocolMsgpack) != MsgpackCodec {
		t.Fatal("msgpack subprotocol did not select msgpack codec")
	}
	for _, p := range []string{"", SubprotocolJSON, "something-else"} {
		if CodecFor(p) != JSONCodec {
			t.Fatalf("CodecFor(%q) is not JSON", p)
		}
	}
	if JSONCodec.FrameType() != websocket.TextMessage || MsgpackCodec.FrameType() != websocket.BinaryMessage {
		t.Fatal("unexpected frame types")
	}
}

func TestJSONCodec_DecodeAndBind(t *testing.T) {
	in, err := JSONCodec.Decode([]byte(`{"type":"webrtc_offer","payload":{"roomId":"u1-u2","offer":{"type":"offer","sdp":"v=0"},"from":"u1"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if in.Type != EventWebRTCOffer {
		t.Fatalf("Type = %q", in.Type)
	}

	var env OfferEnvelope
	if err := in.Bind(&env); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	offer, ok := env.Offer.(map[string]any)
	if env.RoomID != "u1-u2" || env.From != "u1" || !ok || offer["sdp"] != "v=0" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}

func TestJSONCodec_RelayKeepsSDPText(t *testing.T) {
	sdp := "v=0\r\na=fingerprint:<&>"
	in, err := JSONCodec.Decode([]byte(`{"type":"webrtc_answer","payload":{"roomId":"u1-u2","answer":{"type":"answer","sdp":"v=0\r\na=fingerprint:<&>"}}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var env AnswerEnvelope
	if err := in.Bind(&env); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	out, err := JSONCodec.Encode(&Message{Type: EventWebRTCAnswer, Payload: AnswerRelay{Answer: env.Answer}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Contains(out, []byte(`<&>`)) || bytes.HasSuffix(out, []byte("\n")) {
		t.Fatalf("encoded frame = %s", out)
	}

	var f struct {
		Payload struct {
			Answer struct {
				SDP string `json:"sdp"`
			} `json:"answer"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(out, &f); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if f.Payload.Answer.SDP != sdp {
		t.Fatalf("sdp = %q, want %q", f.Payload.Answer.SDP, sdp)
	}
}

func TestJSONCodec_Errors(t *testing.T) {
	if _, err := JSONCodec.Decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for garbage frame")
	}
	if _, err := JSONCodec.Decode([]byte(`{"payload":1}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("err = %v, want ErrMissingType", err)
	}

	in, err := JSONCodec.Decode([]byte(`{"type":"join","payload":null}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var userID string
	if err := in.Bind(&userID); !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("Bind err = %v, want ErrMissingPayload", err)
	}

	in, _ = JSONCodec.Decode([]byte(`{"type":"join","payload":{"not":"a string"}}`))
	if err := in.Bind(&userID); err == nil {
		t.Fatal("expected bind error for wrong payload shape")
	}
}

func TestMsgpackCodec_DecodeAndBind(t *testing.T) {
	frame, err := msgpack.Marshal(map[string]any{
		"type": EventSendMessage,
		"payload": map[string]any{
			"to":      "u1",
			"message": map[string]any{"text": "hi", "n": 3},
		},
	})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	in, err := MsgpackCodec.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var env ChatEnvelope
	if err := in.Bind(&env); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if env.To != "u1" || env.From != "" {
		t.Fatalf("unexpected envelope: %+v", env)
	}

	// An opaque value decoded from msgpack must still encode as JSON for a
	// peer on the other codec.
	out, err := JSONCodec.Encode(&Message{Type: EventReceiveMessage, Payload: env})
	if err != nil {
		t.Fatalf("JSON Encode: %v", err)
	}
	var got struct {
		Type    string `json:"type"`
		Payload struct {
			To      string         `json:"to"`
			Message map[string]any `json:"message"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Type != EventReceiveMessage || got.Payload.Message["text"] != "hi" || got.Payload.Message["n"] != float64(3) {
		t.Fatalf("unexpected relay frame: %s", out)
	}
}

func TestMsgpackCodec_MissingPayload(t *testing.T) {
	frame, _ := msgpack.Marshal(map[string]any{"type": EventUserRegistered})
	in, err := MsgpackCodec.Decode(frame)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	var v any
	if err := in.Bind(&v); !errors.Is(err, ErrMissingPayload) {
		t.Fatalf("Bind err = %v, want ErrMissingPayload", err)
	}
}

func TestMsgpackCodec_EncodeUsesMsgpackTags(t *testing.T) {
	data, err := MsgpackCodec.Encode(&Message{
		Type:    EventWebRTCAnswer,
		Payload: AnswerRelay{Answer: "sdp", From: "u2"},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var got map[string]any
	if err := msgpack.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	payload, ok := got["payload"].(map[string]any)
	if got["type"] != EventWebRTCAnswer || !ok || payload["answer"] != "sdp" || payload["from"] != "u2" {
		t.Fatalf("unexpected frame: %#v", got)
	}
}
