package ws

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"log/slog"
	"net/http"
	"sync"

	"github.com/Arnav112-l/Notepad/logger"
	"github.com/Arnav112-l/Notepad/rpc"
	"github.com/Arnav112-l/Notepad/room"
	"github.com/Arnav112-l/Notepad/session"
	"github.com/Arnav112-l/Notepad/watch"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sourcegraph/jsonrpc2"
)

// maxMessageSize bounds a single frame; whole documents travel in content-change.
const maxMessageSize = 4 << 20

const sessionLockStripes = 64

// RPCHandler handles JSON-RPC 2.0 over WebSocket.
type RPCHandler struct {
	manager    *session.Manager
	hub        *room.Hub
	docWatcher *watch.DocumentWatcher
	devMode    bool

	// Serializes apply+enqueue per session so every member observes
	// mutations in the order they were applied.
	sessionLocks [sessionLockStripes]sync.Mutex
}

// NewRPCHandler creates a new JSON-RPC handler.
func NewRPCHandler(manager *session.Manager, hub *room.Hub, docWatcher *watch.DocumentWatcher, devMode bool) *RPCHandler {
	return &RPCHandler{
		manager:    manager,
		hub:        hub,
		docWatcher: docWatcher,
		devMode:    devMode,
	}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: h.devMode,
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	h.handleConnection(r.Context(), conn)
}

func (h *RPCHandler) handleConnection(ctx context.Context, wsConn *websocket.Conn) {
	connID := uuid.Must(uuid.NewV7()).String()
	log := slog.With("connId", connID)
	log.Info("new websocket connection")

	stream := newWebSocketStream(wsConn)

	handler := &rpcMethodHandler{
		RPCHandler: h,
		connID:     connID,
		log:        log,
		ready:      make(chan struct{}),
	}

	// Requests are handled one at a time in arrival order, which is what
	// keeps each sender's events in FIFO order for its peers.
	rpcConn := jsonrpc2.NewConn(ctx, stream, handler)
	h.hub.Register(connID, rpcConn)
	close(handler.ready)

	<-rpcConn.DisconnectNotify()

	h.cleanup(connID, log)
	log.Info("connection closed")
}

// cleanup is the implicit leave for every session the connection had joined.
func (h *RPCHandler) cleanup(connID string, log *slog.Logger) {
	h.hub.Unregister(connID)
	if h.docWatcher != nil {
		h.docWatcher.CleanupConnection(connID)
	}

	for _, dep := range h.manager.Disconnect(connID) {
		mu := h.sessionLock(dep.SessionID)
		mu.Lock()
		h.hub.Broadcast(h.manager.Members(dep.SessionID), connID, rpc.NotifyUserLeft, rpc.PresenceParams{
			SessionID:   dep.SessionID,
			UserID:      connID,
			ActiveUsers: dep.ActiveUsers,
		})
		mu.Unlock()
		log.Info("left session on disconnect", "sessionId", dep.SessionID, "activeUsers", dep.ActiveUsers)
	}
}

func (h *RPCHandler) sessionLock(sessionID string) *sync.Mutex {
	f := fnv.New32a()
	f.Write([]byte(sessionID))
	return &h.sessionLocks[f.Sum32()%sessionLockStripes]
}

// rpcMethodHandler handles JSON-RPC method calls for one connection.
type rpcMethodHandler struct {
	*RPCHandler
	connID string
	log    *slog.Logger
	ready  chan struct{}
}

func (h *rpcMethodHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	<-h.ready

	defer func() {
		if r := recover(); r != nil {
			logger.LogPanic(r, "panic in rpc handler", "connId", h.connID, "method", req.Method)
			h.replyError(ctx, conn, req, jsonrpc2.CodeInternalError, "internal error")
		}
	}()

	h.log.Debug("received request", "method", req.Method, "id", req.ID, "notif", req.Notif)

	switch req.Method {
	case rpc.MethodJoinSession:
		h.handleJoinSession(ctx, conn, req)
	case rpc.MethodLeaveSession:
		h.handleLeaveSession(ctx, conn, req)
	case rpc.MethodContentChange:
		h.handleContentChange(ctx, conn, req)
	case rpc.MethodTitleChange:
		h.handleTitleChange(ctx, conn, req)
	case rpc.MethodCursorMove:
		h.handleCursorMove(ctx, conn, req)
	case rpc.MethodDocumentsSubscribe:
		h.handleDocumentsSubscribe(ctx, conn, req)
	case rpc.MethodDocumentsUnsubscribe:
		h.handleDocumentsUnsubscribe(ctx, conn, req)
	default:
		h.replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound, "method not found: "+req.Method)
	}
}

var errMissingParams = errors.New("missing params")

func unmarshalParams(req *jsonrpc2.Request, v any) error {
	if req.Params == nil {
		return errMissingParams
	}
	return json.Unmarshal(*req.Params, v)
}

// reply is a no-op for notifications, which carry no id to answer.
func (h *rpcMethodHandler) reply(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, result any) {
	if req.Notif {
		return
	}
	if err := conn.Reply(ctx, req.ID, result); err != nil {
		h.log.Error("failed to send response", "method", req.Method, "error", err)
	}
}

func (h *rpcMethodHandler) replyError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, code int64, message string) {
	if req.Notif {
		return
	}
	err := &jsonrpc2.Error{
		Code:    code,
		Message: message,
	}
	if replyErr := conn.ReplyWithError(ctx, req.ID, err); replyErr != nil {
		h.log.Error("failed to send error response", "error", replyErr)
	}
}

// webSocketStream adapts coder/websocket to jsonrpc2.ObjectStream.
type webSocketStream struct {
	conn *websocket.Conn
	mu   sync.Mutex // protects writes
}

func newWebSocketStream(conn *websocket.Conn) *webSocketStream {
	return &webSocketStream{conn: conn}
}

func (s *webSocketStream) ReadObject(v interface{}) error {
	_, data, err := s.conn.Read(context.Background())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *webSocketStream) WriteObject(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Write(context.Background(), websocket.MessageText, data)
}

func (s *webSocketStream) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

var _ jsonrpc2.ObjectStream = (*webSocketStream)(nil)
