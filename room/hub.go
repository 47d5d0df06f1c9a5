// Package room fans relay events out to the connections attached to a session.
package room

import (
	"log/slog"
	"sync"
)

// Hub tracks attached connections by id. Membership of sessions lives in
// session.Manager; the hub only knows how to reach a connection.
type Hub struct {
	limit int

	mu    sync.RWMutex
	peers map[string]*Peer
}

type Option func(*Hub)

// WithOutboxLimit overrides DefaultOutboxLimit.
func WithOutboxLimit(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.limit = n
		}
	}
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		limit: DefaultOutboxLimit,
		peers: make(map[string]*Peer),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register attaches a connection. A second registration with the same id
// replaces the first.
func (h *Hub) Register(connID string, conn Conn) *Peer {
	p := newPeer(connID, conn, h.limit)

	h.mu.Lock()
	old := h.peers[connID]
	h.peers[connID] = p
	total := len(h.peers)
	h.mu.Unlock()

	if old != nil {
		old.close()
	}
	slog.Debug("peer registered", "connId", connID, "totalPeers", total)
	return p
}

// Unregister detaches a connection and stops its writer.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	p, ok := h.peers[connID]
	delete(h.peers, connID)
	total := len(h.peers)
	h.mu.Unlock()

	if ok {
		p.close()
		slog.Debug("peer unregistered", "connId", connID, "totalPeers", total)
	}
}

// Send queues a notification for a single connection.
func (h *Hub) Send(connID, method string, params any) bool {
	h.mu.RLock()
	p, ok := h.peers[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return p.Send(method, params)
}

// Broadcast queues a notification for every member except the sender and
// returns how many peers accepted it. Members that are not registered here
// are skipped.
func (h *Hub) Broadcast(members []string, exceptConnID, method string, params any) int {
	h.mu.RLock()
	targets := make([]*Peer, 0, len(members))
	for _, connID := range members {
		if connID == exceptConnID {
			continue
		}
		if p, ok := h.peers[connID]; ok {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	sent := 0
	for _, p := range targets {
		if p.Send(method, params) {
			sent++
		}
	}
	return sent
}

// Len returns the number of registered peers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Shutdown stops every writer.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[string]*Peer)
	h.mu.Unlock()

	for _, p := range peers {
		p.close()
	}
	slog.Info("hub shutdown complete", "peersClosed", len(peers))
}
