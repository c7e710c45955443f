package protocol

import (
	"strings"
	"testing"
)

func TestMarshalUnmarshalEnvelope(t *testing.T) {
	data, err := Marshal(MsgMeetingStarted, MeetingStartedPayload{MeetingID: 42})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	msgType, raw, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if msgType != MsgMeetingStarted {
		t.Errorf("type = %q, want %q", msgType, MsgMeetingStarted)
	}

	p, err := UnmarshalPayload[MeetingStartedPayload](raw)
	if err != nil {
		t.Fatalf("UnmarshalPayload() error: %v", err)
	}
	if p.MeetingID != 42 {
		t.Errorf("MeetingID = %d, want 42", p.MeetingID)
	}
}

func TestMarshalNilPayload(t *testing.T) {
	data, err := Marshal(MsgContinueConversation, nil)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	msgType, raw, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if msgType != MsgContinueConversation {
		t.Errorf("type = %q", msgType)
	}
	if len(raw) != 0 {
		t.Errorf("payload = %q, want none", raw)
	}
}

func TestUnmarshalRejectsMissingType(t *testing.T) {
	if _, _, err := Unmarshal([]byte(`{"payload":{}}`)); err == nil {
		t.Error("envelope without type accepted")
	}
	if _, _, err := Unmarshal([]byte(`not json`)); err == nil {
		t.Error("malformed JSON accepted")
	}
}

func TestUnmarshalClientEnvelope(t *testing.T) {
	// A raw frame the way the client sends it.
	frame := `{"type":"raise_hand","payload":{"index":3,"human_name":"Ada"}}`
	msgType, raw, err := Unmarshal([]byte(frame))
	if err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if msgType != MsgRaiseHand {
		t.Errorf("type = %q, want raise_hand", msgType)
	}
	p, err := UnmarshalPayload[RaiseHandPayload](raw)
	if err != nil {
		t.Fatalf("UnmarshalPayload() error: %v", err)
	}
	if p.Index != 3 || p.HumanName != "Ada" {
		t.Errorf("payload = %+v", p)
	}
}

func TestAudioPayloadBase64OnTheWire(t *testing.T) {
	data, err := Marshal(MsgAudioUpdate, AudioUpdatePayload{ID: "m1", Audio: []byte{0x01, 0x02}})
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), `"audio":"AQI="`) {
		t.Errorf("wire form = %s, want base64 audio", data)
	}
}
