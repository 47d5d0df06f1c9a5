package ws

import (
	"context"
	"errors"

	"github.com/Arnav112-l/Notepad/rpc"
	"github.com/Arnav112-l/Notepad/session"
	"github.com/sourcegraph/jsonrpc2"
)

const msgSessionNotFound = "session does not exist or has expired"

func (h *rpcMethodHandler) handleJoinSession(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionParams
	if err := unmarshalParams(req, &params); err != nil || params.SessionID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	log := h.log.With("sessionId", params.SessionID)

	mu := h.sessionLock(params.SessionID)
	mu.Lock()
	snap, added, err := h.manager.Join(params.SessionID, h.connID)
	if err != nil {
		mu.Unlock()
		log.Debug("join rejected", "error", err)
		h.replySessionError(ctx, conn, req, err)
		return
	}

	h.hub.Send(h.connID, rpc.NotifyLoadContent, rpc.LoadContentParams{
		SessionID: snap.ID,
		Title:     snap.Title,
		Content:   snap.Content,
	})
	if added {
		h.hub.Broadcast(h.manager.Members(snap.ID), h.connID, rpc.NotifyUserJoined, rpc.PresenceParams{
			SessionID:   snap.ID,
			UserID:      h.connID,
			ActiveUsers: snap.ActiveUsers,
		})
	}
	mu.Unlock()

	if added {
		log.Info("joined session", "activeUsers", snap.ActiveUsers)
	}

	h.reply(ctx, conn, req, rpc.JoinSessionResult{
		SessionID:   snap.ID,
		UserID:      h.connID,
		Title:       snap.Title,
		Content:     snap.Content,
		ActiveUsers: snap.ActiveUsers,
	})
}

func (h *rpcMethodHandler) handleLeaveSession(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.SessionParams
	if err := unmarshalParams(req, &params); err != nil || params.SessionID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	mu := h.sessionLock(params.SessionID)
	mu.Lock()
	dep, left := h.manager.Leave(params.SessionID, h.connID)
	if left {
		h.hub.Broadcast(h.manager.Members(dep.SessionID), h.connID, rpc.NotifyUserLeft, rpc.PresenceParams{
			SessionID:   dep.SessionID,
			UserID:      h.connID,
			ActiveUsers: dep.ActiveUsers,
		})
	}
	mu.Unlock()

	if left {
		h.log.Info("left session", "sessionId", dep.SessionID, "activeUsers", dep.ActiveUsers)
	}

	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleContentChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.ContentChangeParams
	if err := unmarshalParams(req, &params); err != nil || params.SessionID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	mu := h.sessionLock(params.SessionID)
	mu.Lock()
	if err := h.manager.UpdateContent(params.SessionID, h.connID, params.Content); err != nil {
		mu.Unlock()
		h.log.Debug("content change dropped", "sessionId", params.SessionID, "error", err)
		h.replySessionError(ctx, conn, req, err)
		return
	}
	h.hub.Broadcast(h.manager.Members(params.SessionID), h.connID, rpc.NotifyContentUpdate, rpc.ContentUpdateParams{
		SessionID:      params.SessionID,
		Content:        params.Content,
		CursorPosition: params.CursorPosition,
		UserID:         h.connID,
	})
	mu.Unlock()

	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleTitleChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.TitleChangeParams
	if err := unmarshalParams(req, &params); err != nil || params.SessionID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	mu := h.sessionLock(params.SessionID)
	mu.Lock()
	if err := h.manager.UpdateTitle(params.SessionID, h.connID, params.Title); err != nil {
		mu.Unlock()
		h.log.Debug("title change dropped", "sessionId", params.SessionID, "error", err)
		h.replySessionError(ctx, conn, req, err)
		return
	}
	h.hub.Broadcast(h.manager.Members(params.SessionID), h.connID, rpc.NotifyTitleUpdate, rpc.TitleUpdateParams{
		SessionID: params.SessionID,
		Title:     params.Title,
		UserID:    h.connID,
	})
	mu.Unlock()

	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) handleCursorMove(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	var params rpc.CursorMoveParams
	if err := unmarshalParams(req, &params); err != nil || params.SessionID == "" {
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "invalid params")
		return
	}

	mu := h.sessionLock(params.SessionID)
	mu.Lock()
	if !h.manager.IsMember(params.SessionID, h.connID) {
		mu.Unlock()
		h.log.Debug("cursor move dropped", "sessionId", params.SessionID)
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "not a participant of the session")
		return
	}
	h.hub.Broadcast(h.manager.Members(params.SessionID), h.connID, rpc.NotifyCursorUpdate, rpc.CursorUpdateParams{
		SessionID: params.SessionID,
		UserID:    h.connID,
		Position:  params.Position,
	})
	mu.Unlock()

	h.reply(ctx, conn, req, struct{}{})
}

func (h *rpcMethodHandler) replySessionError(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, msgSessionNotFound)
	case errors.Is(err, session.ErrNotParticipant):
		h.replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "not a participant of the session")
	default:
		h.replyError(ctx, conn, req, jsonrpc2.CodeInternalError, err.Error())
	}
}
