package core

// Peer lifecycle (spec.md §4.7.2, component C7). Grounded on the
// teacher's core/network.go Node.peers map + peerLock RWMutex idiom
// and core/replication.go's pending-request bookkeeping, generalized
// from a libp2p host connection to a gorilla/websocket connection.

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PeerIdleTimeout is spec.md §4.7.2's "unseen for 5 minutes" eviction
// threshold.
const PeerIdleTimeout = 5 * time.Minute

// Peer is one connected remote node.
type Peer struct {
	ID        string
	NetworkID string
	Addr      string

	conn *websocket.Conn

	mu       sync.Mutex
	lastSeen time.Time

	writeMu sync.Mutex // serializes concurrent writes to conn
}

func newPeer(id, networkID, addr string, conn *websocket.Conn) *Peer {
	return &Peer{ID: id, NetworkID: networkID, Addr: addr, conn: conn, lastSeen: time.Now()}
}

// Touch records activity, resetting the idle-eviction clock.
func (p *Peer) Touch() {
	p.mu.Lock()
	p.lastSeen = time.Now()
	p.mu.Unlock()
}

// IdleSince reports how long it has been since the peer was last heard from.
func (p *Peer) IdleSince() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return time.Since(p.lastSeen)
}

// Send writes an already-encoded envelope to the peer.
func (p *Peer) Send(data []byte) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return &ChainError{Kind: KindNetwork, Msg: "write to peer " + p.ID, Err: err}
	}
	return nil
}

// Close closes the underlying connection.
func (p *Peer) Close() error {
	return p.conn.Close()
}

// pendingRequest tracks an outstanding request awaiting a response
// keyed by requester_id, with a deadline per spec.md §4.7.5.
type pendingRequest struct {
	kind     MessageType
	deadline time.Time
	done     chan struct{}
	result   interface{}
}

// pendingRequests is the deadline-tracked map of in-flight requests
// (spec.md §4.7.4's "Pending requests time out after 60 s").
type pendingRequests struct {
	mu      sync.Mutex
	entries map[string]*pendingRequest
}

// RequestTimeout is spec.md §4.7.4's default pending-request deadline.
const RequestTimeout = 60 * time.Second

func newPendingRequests() *pendingRequests {
	return &pendingRequests{entries: make(map[string]*pendingRequest)}
}

func (p *pendingRequests) register(id string, kind MessageType) *pendingRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	req := &pendingRequest{kind: kind, deadline: time.Now().Add(RequestTimeout), done: make(chan struct{})}
	p.entries[id] = req
	return req
}

// resolve completes a pending request if one is registered under id,
// discarding responses that do not match a known request (spec.md
// §4.7.5's demultiplexing rule).
func (p *pendingRequests) resolve(id string, result interface{}) bool {
	p.mu.Lock()
	req, ok := p.entries[id]
	if ok {
		delete(p.entries, id)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	req.result = result
	close(req.done)
	return true
}

// pruneExpired drops requests past their deadline (spec.md §4.7.5
// "stale requests are dropped"), returning how many were dropped.
func (p *pendingRequests) pruneExpired() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	now := time.Now()
	for id, req := range p.entries {
		if now.After(req.deadline) {
			delete(p.entries, id)
			close(req.done)
			n++
		}
	}
	return n
}
