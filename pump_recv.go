package wsconn

import (
	"errors"

	"github.com/gorilla/websocket"
)

// recvPump is the session's background receive worker. It runs exactly
// once per session, from construction until the close flag is set or a
// stream error occurs, per SPEC_FULL.md §4.4.
func (s *Session) recvPump() {
	defer close(s.recvDone)

	s.stream.SetPingHandler(s.handlePing)
	s.stream.SetPongHandler(s.handlePong)

	for {
		messageType, payload, err := s.stream.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}
		if s.dispatchData(messageType, payload) {
			return
		}
	}
}

// handlePing responds to a peer Ping by writing the matching Pong through
// the write lock. Installed as gorilla's ping handler, it runs
// synchronously while ReadMessage decodes the ping frame, which is what
// guarantees the auto-Pong is written before any later event from the same
// read is enqueued.
func (s *Session) handlePing(appData string) error {
	return s.writeMessage(websocket.PongMessage, []byte(appData))
}

// handlePong resolves the matching outstanding ping, if any. A Pong for an
// identifier this session never created (or already acked) is ignored; it
// may belong to a peer-initiated exchange this package doesn't model.
func (s *Session) handlePong(appData string) error {
	s.pings.Ack(appData)
	return nil
}

// dispatchData enqueues a decoded application event. It returns true when
// the receive pump should stop after this call; close frames never reach
// it (they arrive as read errors, see handleReadError), so it always
// returns false.
func (s *Session) dispatchData(messageType int, payload []byte) bool {
	e := decodeFrame(messageType, payload)
	s.events <- e
	return false
}

func (s *Session) handleReadError(err error) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		s.closed.Store(true)
		s.events <- CloseFrame{Code: closeErr.Code, Reason: closeErr.Text}
		return
	}

	if s.closing.Load() {
		// CloseWithReason forced the stream shut because the peer never
		// echoed our close frame; the resulting read error is expected
		// fallout from that, not a session failure, so it must not become
		// the terminal error an ordinary Close() call returns.
		s.closed.Store(true)
		return
	}

	s.setTerminalError(&NetworkError{Op: "read", Err: err})
	s.pings.Drain()
}
