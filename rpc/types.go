// Package rpc defines JSON-RPC 2.0 wire format types for WebSocket communication.
// These types represent the params and result structures for all relay methods.
package rpc

import (
	"encoding/json"

	"github.com/Arnav112-l/Notepad/document"
)

// Client → Server methods
const (
	MethodJoinSession          = "join-session"
	MethodLeaveSession         = "leave-session"
	MethodContentChange        = "content-change"
	MethodTitleChange          = "title-change"
	MethodCursorMove           = "cursor-move"
	MethodDocumentsSubscribe   = "documents.subscribe"
	MethodDocumentsUnsubscribe = "documents.unsubscribe"
)

// Server → Client notifications
const (
	NotifyLoadContent      = "load-content"
	NotifyContentUpdate    = "content-update"
	NotifyTitleUpdate      = "title-update"
	NotifyCursorUpdate     = "cursor-update"
	NotifyUserJoined       = "user-joined"
	NotifyUserLeft         = "user-left"
	NotifyDocumentsChanged = "documents.changed"
)

// Client → Server

// SessionParams is the params for join-session and leave-session.
// A bare JSON string is accepted as the session id.
type SessionParams struct {
	SessionID string `json:"sessionId"`
}

func (p *SessionParams) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		p.SessionID = id
		return nil
	}
	type plain SessionParams
	return json.Unmarshal(data, (*plain)(p))
}

type JoinSessionResult struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ActiveUsers int    `json:"activeUsers"`
}

type ContentChangeParams struct {
	SessionID      string `json:"sessionId"`
	Content        string `json:"content"`
	CursorPosition int    `json:"cursorPosition"`
}

type TitleChangeParams struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
}

type CursorMoveParams struct {
	SessionID string          `json:"sessionId"`
	Position  json.RawMessage `json:"position"`
}

type DocumentsSubscribeResult struct {
	ID        string          `json:"id"`
	Documents []document.Info `json:"documents"`
}

type DocumentsUnsubscribeParams struct {
	ID string `json:"id"`
}

// Server → Client

type LoadContentParams struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	Content   string `json:"content"`
}

type ContentUpdateParams struct {
	SessionID      string `json:"sessionId"`
	Content        string `json:"content"`
	CursorPosition int    `json:"cursorPosition"`
	UserID         string `json:"userId"`
}

type TitleUpdateParams struct {
	SessionID string `json:"sessionId"`
	Title     string `json:"title"`
	UserID    string `json:"userId"`
}

// CursorUpdateParams passes the client's position through untouched.
type CursorUpdateParams struct {
	SessionID string          `json:"sessionId"`
	UserID    string          `json:"userId"`
	Position  json.RawMessage `json:"position"`
}

// PresenceParams is the params for user-joined and user-left.
type PresenceParams struct {
	SessionID   string `json:"sessionId"`
	UserID      string `json:"userId"`
	ActiveUsers int    `json:"activeUsers"`
}

type DocumentsChangedParams struct {
	ID string `json:"id"`
}
