package wsstream

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// incoming is one scripted frame fed to a Fake stream's ReadMessage.
type incoming struct {
	messageType int
	payload     []byte
	err         error
}

// Written records a single call to WriteMessage or WriteControl, so tests
// can assert on what the session wrote without a real socket.
type Written struct {
	MessageType int
	Payload     []byte
	Control     bool
}

// Fake is an in-memory Stream for exercising the receive pump, the
// keepalive pump, and the session facade without a real network connection
// or gorilla framing. Tests script inbound frames with Push/PushClose/
// PushErr and read back outbound frames from Writes().
//
// Mirrors the net.Pipe-based fixtures used for synchronous client/server
// tests elsewhere in the pack: a hand-rolled duplex substitute that's
// simpler than standing up a real listener.
type Fake struct {
	mu   sync.Mutex
	in   chan incoming
	out  []Written
	ping func(string) error
	pong func(string) error

	closed bool
}

// NewFake returns a Fake stream with no scripted frames yet.
func NewFake() *Fake {
	return &Fake{in: make(chan incoming, 64)}
}

// Push enqueues an application frame (text or binary) to be returned by a
// future ReadMessage call.
func (f *Fake) Push(messageType int, payload []byte) {
	f.in <- incoming{messageType: messageType, payload: payload}
}

// PushPing enqueues a control ping frame; ReadMessage will invoke the
// installed ping handler instead of returning it as data, matching
// gorilla's real behavior.
func (f *Fake) PushPing(payload []byte) {
	f.in <- incoming{messageType: websocket.PingMessage, payload: payload}
}

// PushPong enqueues a control pong frame; ReadMessage will invoke the
// installed pong handler instead of returning it as data.
func (f *Fake) PushPong(payload []byte) {
	f.in <- incoming{messageType: websocket.PongMessage, payload: payload}
}

// PushClose enqueues a close frame; ReadMessage returns it as a
// *websocket.CloseError, matching gorilla's real behavior on receiving one.
func (f *Fake) PushClose(code int, reason string) {
	f.in <- incoming{err: &websocket.CloseError{Code: code, Text: reason}}
}

// PushErr enqueues an arbitrary read error (e.g. a broken connection).
func (f *Fake) PushErr(err error) {
	f.in <- incoming{err: err}
}

func (f *Fake) ReadMessage() (int, []byte, error) {
	msg, ok := <-f.in
	if !ok {
		return 0, nil, io.ErrClosedPipe
	}
	if msg.err != nil {
		return 0, nil, msg.err
	}
	switch msg.messageType {
	case websocket.PingMessage:
		if f.ping != nil {
			if err := f.ping(string(msg.payload)); err != nil {
				return 0, nil, err
			}
		}
		return f.ReadMessage()
	case websocket.PongMessage:
		if f.pong != nil {
			if err := f.pong(string(msg.payload)); err != nil {
				return 0, nil, err
			}
		}
		return f.ReadMessage()
	default:
		return msg.messageType, msg.payload, nil
	}
}

func (f *Fake) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("wsstream: write on closed fake stream")
	}
	f.out = append(f.out, Written{MessageType: messageType, Payload: append([]byte(nil), data...)})
	return nil
}

func (f *Fake) WriteControl(messageType int, data []byte, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errors.New("wsstream: write on closed fake stream")
	}
	f.out = append(f.out, Written{MessageType: messageType, Payload: append([]byte(nil), data...), Control: true})
	return nil
}

func (f *Fake) SetReadDeadline(time.Time) error  { return nil }
func (f *Fake) SetWriteDeadline(time.Time) error { return nil }
func (f *Fake) SetReadLimit(int64)               {}

func (f *Fake) SetPingHandler(h func(string) error) { f.ping = h }
func (f *Fake) SetPongHandler(h func(string) error) { f.pong = h }

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	close(f.in)
	return nil
}

// Writes returns a snapshot of everything written so far, for assertions.
func (f *Fake) Writes() []Written {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Written(nil), f.out...)
}
