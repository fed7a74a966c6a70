package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	// idleTimeout closes a stream when the client neither sends an action
	// nor answers a ping for this long.
	idleTimeout = 5 * time.Minute
	// maxMessageSize bounds one client message; an autosave carries every
	// answer of the attempt.
	maxMessageSize = 512 << 10
)

// Prepare applies the read limit and keeps the read deadline alive on pongs.
// Call once right after the upgrade.
func Prepare(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(idleTimeout))
	})
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends an ErrorResponse carrying an API error code and an
// optional human-readable detail.
func WriteError(conn *websocket.Conn, code, detail string) error {
	return WriteTyped(conn, ErrorResponse{Event: EventError, Error: code, Detail: detail})
}

// ErrBadFrame marks a message that arrived intact but does not decode into
// the expected payload. The connection remains usable.
var ErrBadFrame = errors.New("malformed frame")

// ReadJSON waits up to idleTimeout for the next client message and decodes
// it. Transport failures are returned as is; decode failures wrap ErrBadFrame.
func ReadJSON(conn *websocket.Conn, v any) error {
	conn.SetReadDeadline(time.Now().Add(idleTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadFrame, err)
	}
	return nil
}
