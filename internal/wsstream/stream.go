// Package wsstream defines the byte-stream capability the session needs
// from its transport, and the production implementation backed by
// gorilla/websocket.
package wsstream

import (
	"time"

	"github.com/gorilla/websocket"
)

// Stream is the capability set the session consumes from its underlying
// transport: read a decoded frame, write a frame, write a control frame
// with its own deadline, and close. gorilla/websocket.Conn already
// satisfies this surface, which is what FromConn below relies on.
type Stream interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// conn is the thinnest possible adapter: gorilla's *websocket.Conn already
// implements every method of Stream, so this file exists only to document
// the mapping and give callers a named conversion point instead of relying
// on structural typing implicitly everywhere Stream is constructed.
var _ Stream = (*websocket.Conn)(nil)

// FromConn returns conn as a Stream. It exists purely for readability at
// call sites (connect.go) that would otherwise pass a
// *websocket.Conn where a Stream is expected.
func FromConn(conn *websocket.Conn) Stream { return conn }
