package main

import (
	"time"
)

// ClientMessage is a message from client to server.
type ClientMessage struct {
	ID string `json:"id,omitempty"`

	// Only one of these should be set
	Hi    *MsgClientHi    `json:"hi,omitempty"`
	Login *MsgClientLogin `json:"login,omitempty"`
	Join  *MsgClientJoin  `json:"join,omitempty"`
	Leave *MsgClientLeave `json:"leave,omitempty"`
	Send  *MsgClientSend  `json:"send,omitempty"`
	Get   *MsgClientGet   `json:"get,omitempty"`
}

// ServerMessage is a message from server to client.
type ServerMessage struct {
	// Control message (response to client request)
	Ctrl *MsgServerCtrl `json:"ctrl,omitempty"`
	// Chat line
	Data *MsgServerData `json:"data,omitempty"`
	// Stream event (donation, live, offline, terminated)
	Info *MsgServerInfo `json:"info,omitempty"`
	// Viewer count
	Pres *MsgServerPres `json:"pres,omitempty"`
}

// ============================================================================
// Client Messages
// ============================================================================

// MsgClientHi is the handshake message.
type MsgClientHi struct {
	Version   string `json:"ver"`
	UserAgent string `json:"ua,omitempty"`
}

// MsgClientLogin attaches a wallet session token to the connection.
type MsgClientLogin struct {
	Token string `json:"token"`
}

// MsgClientJoin enters a stream's chat room. Anonymous viewers may join.
type MsgClientJoin struct {
	Stream string `json:"stream"`
}

// MsgClientLeave leaves a stream's chat room.
type MsgClientLeave struct {
	Stream string `json:"stream"`
}

// MsgClientSend posts a chat line to a joined stream.
type MsgClientSend struct {
	Stream string `json:"stream"`
	Text   string `json:"text"`
}

// MsgClientGet is for fetching data.
type MsgClientGet struct {
	// What to get: "messages", "viewers"
	What   string `json:"what"`
	Stream string `json:"stream"`
	Limit  int    `json:"limit,omitempty"`
}

// ============================================================================
// Server Messages
// ============================================================================

// MsgServerCtrl is a control/response message.
type MsgServerCtrl struct {
	ID     string         `json:"id,omitempty"`
	Code   int            `json:"code"`
	Text   string         `json:"text,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Ts     time.Time      `json:"ts"`
}

// MsgServerData is a chat line.
type MsgServerData struct {
	Stream string    `json:"stream"`
	ID     string    `json:"id"`
	From   string    `json:"from"`
	Text   string    `json:"text"`
	Ts     time.Time `json:"ts"`
}

// MsgServerInfo is a stream event.
type MsgServerInfo struct {
	Stream string `json:"stream"`
	// "donation", "live", "offline", "terminated"
	What      string    `json:"what"`
	From      string    `json:"from,omitempty"`
	Amount    float64   `json:"amount,omitempty"`
	Message   string    `json:"message,omitempty"`
	Violation string    `json:"violation,omitempty"`
	Ts        time.Time `json:"ts"`
}

// MsgServerPres carries a stream's current viewer count.
type MsgServerPres struct {
	Stream  string `json:"stream"`
	Viewers int64  `json:"viewers"`
}

// ============================================================================
// Response Helpers
// ============================================================================

// CtrlSuccess creates a success response.
func CtrlSuccess(id string, code int, params map[string]any) *ServerMessage {
	return &ServerMessage{
		Ctrl: &MsgServerCtrl{
			ID:     id,
			Code:   code,
			Text:   "ok",
			Params: params,
			Ts:     time.Now().UTC(),
		},
	}
}

// CtrlError creates an error response.
func CtrlError(id string, code int, text string) *ServerMessage {
	return &ServerMessage{
		Ctrl: &MsgServerCtrl{
			ID:   id,
			Code: code,
			Text: text,
			Ts:   time.Now().UTC(),
		},
	}
}

// Common error codes
const (
	CodeOK              = 200
	CodeCreated         = 201
	CodeAccepted        = 202
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeGone            = 410
	CodeTooManyRequests = 429
	CodeInternalError   = 500
)
