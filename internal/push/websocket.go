package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"

	"github.com/gorilla/websocket"
)

const (
	wsHandshakeTimeout = 10 * time.Second
	wsAuthTimeout      = 5 * time.Second
	wsReadTimeout      = 60 * time.Second
	wsWriteTimeout     = 5 * time.Second
	wsPingInterval     = 30 * time.Second
	ctrlTimeout        = 5 * time.Second
)

// WSListener receives push notifications over a websocket connection to the
// gateway. Auth is the first frame: the session cookie and device id,
// replayed opaquely. The gateway answers auth_success before any
// notifications flow.
type WSListener struct {
	url      string
	cookie   string
	deviceID string
	logger   *logger.Logger

	msgs chan contracts.PushMessage

	writeMu sync.Mutex // guards writes to the current connection
}

// NewWSListener creates a websocket push listener.
func NewWSListener(url, cookie, deviceID string, lg *logger.Logger) *WSListener {
	return &WSListener{
		url:      url,
		cookie:   cookie,
		deviceID: deviceID,
		logger:   lg,
		msgs:     make(chan contracts.PushMessage, 16),
	}
}

// Messages delivers decoded push envelopes.
func (l *WSListener) Messages() <-chan contracts.PushMessage {
	return l.msgs
}

// Run dials, authenticates, and reads notifications until ctx is cancelled.
// Connection failures reconnect with capped exponential backoff; the
// backoff resets after every successful authentication.
func (l *WSListener) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		authed, err := l.runConn(ctx)

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			l.logger.Error(ctx, "push_ws_disconnected", "Push connection lost, will reconnect", err,
				map[string]any{"backoff_seconds": backoff.Seconds()})
		}

		if authed {
			backoff = time.Second
		}

		sleepCtx(ctx, backoff)
		if ctx.Err() != nil {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

// runConn handles one connection lifetime. It reports whether the gateway
// accepted the auth frame so Run can reset its backoff.
func (l *WSListener) runConn(ctx context.Context) (authed bool, err error) {
	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial gateway: %w", err)
	}
	defer conn.Close()

	conn.SetReadLimit(1 << 20) // 1 MiB

	// unblock the read loop when ctx is cancelled
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			l.writeClose(conn, websocket.CloseNormalClosure, "bye")
			_ = conn.Close()
		case <-stop:
		}
	}()

	// 1) Auth: first frame carries the session cookie
	if err := l.writeJSON(conn, contracts.WSAuthRequest{
		Type:          contracts.WSTypeAuth,
		SessionCookie: l.cookie,
		DeviceID:      l.deviceID,
	}); err != nil {
		return false, fmt.Errorf("send auth frame: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(wsAuthTimeout))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return false, fmt.Errorf("read auth reply: %w", err)
	}

	var auth contracts.WSAuthResult
	if err := json.Unmarshal(payload, &auth); err != nil {
		return false, fmt.Errorf("decode auth reply: %w", err)
	}
	if auth.Type != contracts.WSTypeAuthSuccess || !auth.Success {
		return false, fmt.Errorf("gateway rejected auth: %s", auth.Error)
	}

	l.logger.Info(ctx, "push_connected", "Push gateway connection authenticated",
		map[string]any{"driver_id": auth.DriverID})

	// 2) Keepalive: pongs extend the read deadline, pings every 30s
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(_ string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				l.writeMu.Lock()
				_ = conn.SetWriteDeadline(time.Now().Add(ctrlTimeout))
				err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
				l.writeMu.Unlock()
				if err != nil {
					// Close socket to unblock reader; goroutine exits.
					_ = conn.Close()
					return
				}
			case <-stop:
				return
			}
		}
	}()

	// 3) Read loop: route frames
	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, nil
			}
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				return true, fmt.Errorf("connection closed unexpectedly: %w", err)
			}
			return true, fmt.Errorf("read failed: %w", err)
		}

		// Minimal envelope
		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			l.logger.Error(ctx, "push_ws_bad_frame", "Dropping undecodable frame", err, nil)
			continue
		}

		switch msg.Type {
		case contracts.WSTypeNotification:
			var pm contracts.PushMessage
			if err := json.Unmarshal(msg.Data, &pm); err != nil {
				l.logger.Error(ctx, "push_ws_bad_notification", "Dropping undecodable notification", err, nil)
				continue
			}
			select {
			case l.msgs <- pm:
			case <-ctx.Done():
				return true, nil
			}

		case contracts.WSTypeError:
			l.logger.Error(ctx, "push_ws_gateway_error", "Gateway reported an error",
				errors.New(string(msg.Data)), nil)

		default:
			l.logger.Debug(ctx, "push_ws_frame_ignored", "Ignoring frame of unknown type",
				map[string]any{"type": msg.Type})
		}
	}
}

// writeJSON marshals v and writes a single TextMessage under the write lock.
func (l *WSListener) writeJSON(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// writeClose sends a close control frame with the given code and reason.
func (l *WSListener) writeClose(conn *websocket.Conn, code int, reason string) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(ctrlTimeout),
	)
}
