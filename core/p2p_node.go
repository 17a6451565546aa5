package core

// P2P overlay node (spec.md §4.7, component C7). Grounded on the
// teacher's core/network.go Node shape (host + peers map + peerLock +
// context-based shutdown + ListenAndServe/Close) and
// core/blockchain_synchronization.go's batched catch-up pacing,
// substituting gorilla/websocket for the teacher's libp2p host per
// spec.md §4.7.1's JSON-over-WebSocket reference encoding (see
// SPEC_FULL.md §2 for the libp2p-drop justification).

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// CatchUpBatchSize and CatchUpPacing are spec.md §4.7.4's defaults.
const (
	CatchUpBatchSize = 10
	CatchUpPacing    = 100 * time.Millisecond
	MaxPeersDefault  = 50
)

// ChainAccessor is the subset of chain+store+consensus operations the
// P2P layer needs, kept as an interface so this file has no direct
// compile-time dependency on Consensus's internals.
type ChainAccessor interface {
	Len() int
	Head() *Block
	At(i uint64) (*Block, error)
	AcceptBlock(b *Block) error
}

// Node is this process's P2P identity and peer set.
type Node struct {
	log *logrus.Logger

	nodeID    string
	networkID string
	listen    string
	maxPeers  int

	chain ChainAccessor
	store *Store

	upgrader websocket.Upgrader

	mu    sync.RWMutex
	peers map[string]*Peer

	pending *pendingRequests

	ctx    context.Context
	cancel context.CancelFunc
}

// NewNode constructs a node. listen is the local "host:port" to
// accept inbound WebSocket connections on.
func NewNode(log *logrus.Logger, nodeID, networkID, listen string, chain ChainAccessor, store *Store) *Node {
	if log == nil {
		log = logrus.New()
	}
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Node{
		log:       log,
		nodeID:    nodeID,
		networkID: networkID,
		listen:    listen,
		maxPeers:  MaxPeersDefault,
		chain:     chain,
		store:     store,
		upgrader:  websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		peers:     make(map[string]*Peer),
		pending:   newPendingRequests(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// SetChain wires the ChainAccessor in after construction, breaking the
// Node/Consensus construction cycle (Consensus needs a Broadcaster —
// this Node — and implements ChainAccessor itself).
func (n *Node) SetChain(chain ChainAccessor) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.chain = chain
}

// SetMaxPeers overrides MaxPeersDefault, per spec.md §6's
// network.max_peers configuration option.
func (n *Node) SetMaxPeers(max int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.maxPeers = max
}

// ServeHTTP upgrades inbound HTTP connections to WebSocket peers, for
// mounting on an *http.ServeMux at the overlay's listen path.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		n.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	n.handleConn(conn, "")
}

// Dial connects outbound to a bootstrap peer address, implementing
// spec.md §4.7.2's discovery step.
func (n *Node) Dial(addr string) error {
	conn, _, err := websocket.DefaultDialer.Dial(addr, nil)
	if err != nil {
		return &ChainError{Kind: KindNetwork, Msg: "dial peer " + addr, Err: err}
	}
	go n.handleConn(conn, addr)
	return nil
}

// handleConn runs the per-connection handshake and read loop. addr is
// the dial target for outbound connections, empty for inbound.
func (n *Node) handleConn(conn *websocket.Conn, addr string) {
	defer conn.Close()

	if err := n.sendHandshake(conn); err != nil {
		n.log.WithError(err).Warn("handshake send failed")
		return
	}
	remoteID, remoteNetID, err := n.readHandshake(conn)
	if err != nil {
		n.log.WithError(err).Warn("handshake read failed")
		return
	}
	if remoteNetID != n.networkID {
		env, _ := Encode(MsgError, ErrorMsg{Code: ErrCodeNetworkMismatch, Message: "network_id mismatch"})
		_ = conn.WriteMessage(websocket.TextMessage, env)
		return
	}

	n.mu.Lock()
	if len(n.peers) >= n.maxPeers {
		n.mu.Unlock()
		return
	}
	p := newPeer(remoteID, remoteNetID, addr, conn)
	n.peers[remoteID] = p
	n.mu.Unlock()
	n.log.WithField("peer", remoteID).Info("peer connected")

	n.readLoop(p)

	n.mu.Lock()
	delete(n.peers, remoteID)
	n.mu.Unlock()
	n.log.WithField("peer", remoteID).Info("peer disconnected")
}

func (n *Node) sendHandshake(conn *websocket.Conn) error {
	env, err := Encode(MsgPeerDiscovery, PeerDiscoveryMsg{NodeID: n.nodeID, NetworkID: n.networkID})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, env)
}

func (n *Node) readHandshake(conn *websocket.Conn) (id, networkID string, err error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return "", "", err
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Type != MsgPeerDiscovery {
		return "", "", fmt.Errorf("expected PeerDiscovery handshake, got %v (err=%v)", env.Type, err)
	}
	var msg PeerDiscoveryMsg
	if err := json.Unmarshal(env.Payload, &msg); err != nil {
		return "", "", err
	}
	return msg.NodeID, msg.NetworkID, nil
}

// readLoop dispatches inbound messages until the connection closes or
// the node shuts down (spec.md §4.7.3 message set).
func (n *Node) readLoop(p *Peer) {
	for {
		select {
		case <-n.ctx.Done():
			return
		default:
		}
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		p.Touch()
		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			n.log.WithError(err).Warn("malformed envelope")
			continue
		}
		n.dispatch(p, env)
	}
}

func (n *Node) dispatch(p *Peer, env Envelope) {
	switch env.Type {
	case MsgPing:
		env, _ := Encode(MsgPong, struct{}{})
		_ = p.Send(env)
	case MsgPong:
		// liveness only; Touch already recorded activity.
	case MsgBlockAnnouncement:
		var msg BlockAnnouncementMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.onBlockAnnouncement(p, msg)
		}
	case MsgBlockRequest:
		var msg BlockRequestMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.onBlockRequest(p, msg)
		}
	case MsgBlockResponse:
		var msg BlockResponseMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.pending.resolve(msg.RequesterID, msg.Block)
			if msg.Block != nil {
				n.onBlock(msg.Block)
			}
		}
	case MsgGraphRequest:
		var msg GraphRequestMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.onGraphRequest(p, msg)
		}
	case MsgGraphResponse:
		var msg GraphResponseMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.pending.resolve(msg.RequesterID, msg.TurtleText)
		}
	case MsgChainStatusRequest:
		var msg ChainStatusRequestMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.onChainStatusRequest(p, msg)
		}
	case MsgChainStatusResponse:
		var msg ChainStatusResponseMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			resolved := n.pending.resolve(msg.RequesterID, msg)
			if !resolved {
				return
			}
			n.maybeCatchUp(p, msg)
		}
	case MsgPeerList:
		// Discovery extension point; no-op beyond logging for this core.
	case MsgError:
		var msg ErrorMsg
		if json.Unmarshal(env.Payload, &msg) == nil {
			n.log.WithFields(logrus.Fields{"peer": p.ID, "code": msg.Code}).Warn(msg.Message)
		}
	}
}

func (n *Node) onBlockAnnouncement(p *Peer, msg BlockAnnouncementMsg) {
	if msg.Index < uint64(n.chain.Len()) {
		return
	}
	reqID := uuid.NewString()
	req := n.pending.register(reqID, MsgBlockRequest)
	env, _ := Encode(MsgBlockRequest, BlockRequestMsg{Index: msg.Index, RequesterID: reqID})
	if err := p.Send(env); err != nil {
		return
	}
	go n.awaitBlock(req)
}

func (n *Node) awaitBlock(req *pendingRequest) {
	select {
	case <-req.done:
	case <-time.After(RequestTimeout):
	}
}

func (n *Node) onBlockRequest(p *Peer, msg BlockRequestMsg) {
	b, err := n.chain.At(msg.Index)
	if err != nil {
		env, _ := Encode(MsgBlockResponse, BlockResponseMsg{RequesterID: msg.RequesterID})
		_ = p.Send(env)
		return
	}
	env, _ := Encode(MsgBlockResponse, BlockResponseMsg{Block: b, RequesterID: msg.RequesterID})
	_ = p.Send(env)
}

// onGraphRequest answers via the C1 query surface (QuerySolutions with
// an all-variables pattern restricted to the requested graph) rather
// than reaching past it into QuadsInGraph directly, so the exported
// SPARQL-subset path is exercised by real P2P traffic, not just tests.
func (n *Node) onGraphRequest(p *Peer, msg GraphRequestMsg) {
	g := msg.GraphIRI
	solutions := n.store.QuerySolutions(Pattern{
		Subject:   Variable{Name: "s"},
		Predicate: Variable{Name: "p"},
		Object:    Variable{Name: "o"},
		Graph:     &g,
	})
	turtle := ""
	if len(solutions) > 0 {
		lines := make([]string, 0, len(solutions))
		for _, b := range solutions {
			pred, _ := b["p"].(IRI)
			lines = append(lines, fmt.Sprintf("%s %s %s .", termNT(b["s"]), pred.NTriples(), termNT(b["o"])))
		}
		turtle = joinLines(lines)
	}
	env, _ := Encode(MsgGraphResponse, GraphResponseMsg{GraphIRI: msg.GraphIRI, TurtleText: turtle, RequesterID: msg.RequesterID})
	_ = p.Send(env)
}

func (n *Node) onChainStatusRequest(p *Peer, msg ChainStatusRequestMsg) {
	head := n.chain.Head()
	resp := ChainStatusResponseMsg{Length: n.chain.Len(), RequesterID: msg.RequesterID}
	if head != nil {
		resp.LatestIndex = head.Index
		resp.LatestHash = head.BlockHash
	}
	env, _ := Encode(MsgChainStatusResponse, resp)
	_ = p.Send(env)
}

func (n *Node) onBlock(b *Block) {
	if err := n.chain.AcceptBlock(b); err != nil {
		n.log.WithError(err).WithField("index", b.Index).Debug("block rejected")
	}
}

// BroadcastBlock implements the Broadcaster interface Consensus (C6)
// depends on.
func (n *Node) BroadcastBlock(b *Block) {
	msg := BlockAnnouncementMsg{
		Index:        b.Index,
		BlockHash:    b.BlockHash,
		PreviousHash: b.PreviousHash,
		GraphIRI:     b.DataGraphIRI,
		Timestamp:    b.Timestamp.Format(time.RFC3339),
	}
	env, err := Encode(MsgBlockAnnouncement, msg)
	if err != nil {
		return
	}
	for _, p := range n.snapshotPeers() {
		_ = p.Send(env)
	}
}

func (n *Node) snapshotPeers() []*Peer {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*Peer, 0, len(n.peers))
	for _, p := range n.peers {
		out = append(out, p)
	}
	return out
}

// maybeCatchUp implements spec.md §4.7.4's catch-up entry condition:
// if the peer reports a greater height, request blocks in batches.
func (n *Node) maybeCatchUp(p *Peer, status ChainStatusResponseMsg) {
	local := uint64(n.chain.Len())
	if status.LatestIndex+1 <= local {
		return
	}
	go n.catchUp(p, local, status.LatestIndex)
}

func (n *Node) catchUp(p *Peer, from, to uint64) {
	for start := from; start <= to; start += CatchUpBatchSize {
		end := start + CatchUpBatchSize - 1
		if end > to {
			end = to
		}
		for idx := start; idx <= end; idx++ {
			reqID := uuid.NewString()
			req := n.pending.register(reqID, MsgBlockRequest)
			env, _ := Encode(MsgBlockRequest, BlockRequestMsg{Index: idx, RequesterID: reqID})
			if err := p.Send(env); err != nil {
				return
			}
			n.awaitBlock(req)
		}
		time.Sleep(CatchUpPacing)
	}
}

// HealthLoop periodically pings peers and evicts those idle past
// PeerIdleTimeout (spec.md §4.7.2's health rule), and prunes expired
// pending requests (spec.md §4.7.5).
func (n *Node) HealthLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.pingAll()
			n.evictIdle()
			if dropped := n.pending.pruneExpired(); dropped > 0 {
				n.log.WithField("count", dropped).Debug("pruned expired pending requests")
			}
		}
	}
}

func (n *Node) pingAll() {
	env, _ := Encode(MsgPing, struct{}{})
	for _, p := range n.snapshotPeers() {
		_ = p.Send(env)
	}
}

func (n *Node) evictIdle() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, p := range n.peers {
		if p.IdleSince() > PeerIdleTimeout {
			_ = p.Close()
			delete(n.peers, id)
			n.log.WithField("peer", id).Info("evicted idle peer")
		}
	}
}

// RequestChainStatus broadcasts a ChainStatusRequest to every peer,
// implementing spec.md §4.7.4's "on startup and periodically" sync
// trigger.
func (n *Node) RequestChainStatus() {
	for _, p := range n.snapshotPeers() {
		reqID := uuid.NewString()
		n.pending.register(reqID, MsgChainStatusRequest)
		env, _ := Encode(MsgChainStatusRequest, ChainStatusRequestMsg{RequesterID: reqID})
		_ = p.Send(env)
	}
}

// Status reports this node's operational snapshot (spec.md §6's status
// surface), used by cmd/provchain-node's /status endpoint. startedAt
// is the process start time, used to compute Uptime.
func (n *Node) Status(authorities *AuthoritySet, localID string, startedAt time.Time) NodeStatus {
	n.mu.RLock()
	peerCount := len(n.peers)
	n.mu.RUnlock()

	st := NodeStatus{
		NodeID:      n.nodeID,
		NetworkID:   n.networkID,
		ChainLength: n.chain.Len(),
		PeerCount:   peerCount,
		IsAuthority: localID != "",
		Uptime:      time.Since(startedAt),
	}
	if head := n.chain.Head(); head != nil {
		st.LatestHash = head.BlockHash
	}
	if localID != "" && authorities != nil {
		if a, ok := authorities.Get(localID); ok {
			st.Reputation = a.Reputation()
		}
	}
	return st
}

// Close shuts down the node and disconnects every peer.
func (n *Node) Close() error {
	n.cancel()
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, p := range n.peers {
		_ = p.Close()
	}
	return nil
}
