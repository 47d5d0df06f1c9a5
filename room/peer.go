package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eapache/queue"
	"github.com/sourcegraph/jsonrpc2"
)

// DefaultOutboxLimit caps queued notifications per connection. A peer that
// falls further behind is disconnected.
const DefaultOutboxLimit = 1024

// Conn is the part of *jsonrpc2.Conn a peer writes to.
type Conn interface {
	Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error
	Close() error
}

type notification struct {
	method string
	params any
}

// Peer is one attached connection with a FIFO outbox drained by its own
// goroutine, so a slow reader never stalls the sender's handler.
type Peer struct {
	id    string
	conn  Conn
	limit int
	log   *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending *queue.Queue
	closed  bool
	done    chan struct{}
}

func newPeer(id string, conn Conn, limit int) *Peer {
	p := &Peer{
		id:      id,
		conn:    conn,
		limit:   limit,
		log:     slog.With("connId", id),
		pending: queue.New(),
		done:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	go p.run()
	return p
}

// ID returns the connection id.
func (p *Peer) ID() string {
	return p.id
}

// Send queues a notification. It never blocks on the network.
func (p *Peer) Send(method string, params any) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if p.pending.Length() >= p.limit {
		p.closed = true
		p.cond.Broadcast()
		p.mu.Unlock()

		p.log.Warn("outbox full, closing connection", "limit", p.limit)
		// Closing waits for the close handshake; the caller may hold a session lock.
		go p.conn.Close()
		return false
	}
	p.pending.Add(notification{method: method, params: params})
	p.cond.Signal()
	p.mu.Unlock()
	return true
}

func (p *Peer) run() {
	defer close(p.done)
	for {
		p.mu.Lock()
		for p.pending.Length() == 0 && !p.closed {
			p.cond.Wait()
		}
		if p.closed {
			p.mu.Unlock()
			return
		}
		n := p.pending.Remove().(notification)
		p.mu.Unlock()

		if err := p.conn.Notify(context.Background(), n.method, n.params); err != nil {
			p.log.Debug("notify failed", "method", n.method, "error", err)
		}
	}
}

// close stops the writer; queued notifications are dropped.
func (p *Peer) close() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()
	<-p.done
}
