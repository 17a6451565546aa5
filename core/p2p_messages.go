package core

// P2P wire message set (spec.md §4.7.3, component C7). Grounded on
// the teacher's core/common_structs.go Message/NetworkMessage
// envelope shapes, adapted from libp2p pubsub payloads to the
// JSON-over-WebSocket framing spec.md §4.7.1/§6 mandates as the
// reference encoding.

import "encoding/json"

// MessageType discriminates the P2P message set.
type MessageType string

const (
	MsgPeerDiscovery       MessageType = "PeerDiscovery"
	MsgPeerList            MessageType = "PeerList"
	MsgBlockAnnouncement   MessageType = "BlockAnnouncement"
	MsgBlockRequest        MessageType = "BlockRequest"
	MsgBlockResponse       MessageType = "BlockResponse"
	MsgGraphRequest        MessageType = "GraphRequest"
	MsgGraphResponse       MessageType = "GraphResponse"
	MsgChainStatusRequest  MessageType = "ChainStatusRequest"
	MsgChainStatusResponse MessageType = "ChainStatusResponse"
	MsgPing                MessageType = "Ping"
	MsgPong                MessageType = "Pong"
	MsgError               MessageType = "Error"
)

// Envelope is the outer frame every message is wrapped in: a type tag
// plus a raw JSON payload, letting the peer dispatch on Type before
// unmarshaling the specific body.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a typed payload into an Envelope's wire bytes.
func Encode(t MessageType, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ChainError{Kind: KindNetwork, Msg: "encode message payload", Err: err}
	}
	return json.Marshal(Envelope{Type: t, Payload: body})
}

// PeerDiscoveryMsg is exchanged on connect per §4.7.2's handshake.
type PeerDiscoveryMsg struct {
	NodeID     string `json:"node_id"`
	ListenPort int    `json:"listen_port"`
	NetworkID  string `json:"network_id"`
}

// PeerListMsg advertises known peer addresses.
type PeerListMsg struct {
	Peers []string `json:"peers"`
}

// BlockAnnouncementMsg announces a newly authored or accepted block.
type BlockAnnouncementMsg struct {
	Index        uint64 `json:"index"`
	BlockHash    string `json:"block_hash"`
	PreviousHash string `json:"previous_hash"`
	GraphIRI     IRI    `json:"graph_iri"`
	Timestamp    string `json:"timestamp"`
}

// BlockRequestMsg asks a peer for a specific block.
type BlockRequestMsg struct {
	Index       uint64 `json:"index"`
	RequesterID string `json:"requester_id"`
}

// BlockResponseMsg answers a BlockRequestMsg. Block is nil if the peer
// does not have it.
type BlockResponseMsg struct {
	Block       *Block `json:"block,omitempty"`
	RequesterID string `json:"requester_id"`
}

// GraphRequestMsg asks a peer for a named graph's Turtle serialization.
type GraphRequestMsg struct {
	GraphIRI    IRI    `json:"graph_iri"`
	RequesterID string `json:"requester_id"`
}

// GraphResponseMsg answers a GraphRequestMsg.
type GraphResponseMsg struct {
	GraphIRI    IRI    `json:"graph_iri"`
	TurtleText  string `json:"turtle_text,omitempty"`
	RequesterID string `json:"requester_id"`
}

// ChainStatusRequestMsg asks a peer for its current chain height/tip.
type ChainStatusRequestMsg struct {
	RequesterID string `json:"requester_id"`
}

// ChainStatusResponseMsg answers a ChainStatusRequestMsg.
type ChainStatusResponseMsg struct {
	LatestIndex uint64 `json:"latest_index"`
	LatestHash  string `json:"latest_hash"`
	Length      int    `json:"length"`
	RequesterID string `json:"requester_id"`
}

// ErrorMsg reports a protocol-level error, e.g. NetworkMismatch.
type ErrorMsg struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const ErrCodeNetworkMismatch = "NetworkMismatch"
