package ws

import (
	"context"
	"errors"

	"github.com/Arnav112-l/Notepad/room"
	"github.com/Arnav112-l/Notepad/rpc"
	"github.com/sourcegraph/jsonrpc2"
)

var errPeerGone = errors.New("peer is not attached")

// peerNotifier routes watcher notifications through the connection's outbox.
type peerNotifier struct {
	hub    *room.Hub
	connID string
}

func (n peerNotifier) Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error {
	if !n.hub.Send(n.connID, method, params) {
		return errPeerGone
	}
	return nil
}

func (h *rpcMethodHandler) handleDocumentsSubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if h.docWatcher == nil {
		h.replyError(ctx, conn, req, jsonrpc2.CodeMethodNotFound, "document watching is disabled")
		return
	}

	id, docs, err := h.docWatcher.Subscribe(peerNotifier{hub: h.hub, connID: h.connID}, h.connID)
	if err != nil {
		h.log.Error("failed to subscribe to documents", "error", err)
		h.replyError(ctx, conn, req, jsonrpc2.CodeInternalError, "failed to list documents")
		return
	}

	h.reply(ctx, conn, req, rpc.DocumentsSubscribeResult{ID: id, Documents: docs})
}

func (h *rpcMethodHandler) handleDocumentsUnsubscribe(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.DocumentsUnsubscribeParams
	if err := unmarshalParams(req, &params); err != nil || params.ID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	if h.docWatcher != nil {
		h.docWatcher.Unsubscribe(params.ID)
	}
	h.reply(ctx, conn, req, struct{}{})
}
