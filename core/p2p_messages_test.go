//go:build unit

package core

import (
	"encoding/json"
	"testing"
)

func TestEncodeRoundTripsEnvelope(t *testing.T) {
	data, err := Encode(MsgPing, PeerDiscoveryMsg{NodeID: "n1", ListenPort: 9000, NetworkID: "net1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Type != MsgPing {
		t.Fatalf("expected type %q, got %q", MsgPing, env.Type)
	}

	var payload PeerDiscoveryMsg
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.NodeID != "n1" || payload.ListenPort != 9000 || payload.NetworkID != "net1" {
		t.Fatalf("unexpected payload after round trip: %+v", payload)
	}
}

func TestBlockResponseMsgOmitsNilBlock(t *testing.T) {
	data, err := Encode(MsgBlockResponse, BlockResponseMsg{RequesterID: "r1"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var env Envelope
	_ = json.Unmarshal(data, &env)
	var raw map[string]interface{}
	if err := json.Unmarshal(env.Payload, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["block"]; ok {
		t.Fatal("expected nil Block to be omitted from JSON payload")
	}
}
