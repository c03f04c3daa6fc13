package contracts

import "time"

// PushMessage is the transport-independent notification envelope. Both the
// websocket gateway and the AMQP queue deliver this shape; the body encodes
// the ride request in the delimited text format the dashboard parses.
type PushMessage struct {
	ID     string    `json:"id"`                // notification id, unique per push
	Title  string    `json:"title,omitempty"`   // e.g. "New ride request"
	Body   string    `json:"body"`              // "passenger|pickup|dropoff"
	SentAt time.Time `json:"sent_at,omitempty"` // ISO-8601 send time (UTC)
}

// WSAuthRequest is the first frame the client sends after dialing the
// gateway. The session cookie is replayed verbatim; the gateway owns its
// meaning.
type WSAuthRequest struct {
	Type          string `json:"type"` // "auth"
	SessionCookie string `json:"session_cookie"`
	DeviceID      string `json:"device_id"`
}

// WSAuthResult is the gateway's reply to WSAuthRequest.
type WSAuthResult struct {
	Type     string `json:"type"` // "auth_success" | "auth_error"
	Success  bool   `json:"success"`
	DriverID string `json:"driver_id,omitempty"`
	Error    string `json:"error,omitempty"`
}

// WSNotification wraps a push message on the websocket wire.
type WSNotification struct {
	Type string      `json:"type"` // "notification"
	Data PushMessage `json:"data"`
}
