package wsconn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldorsen/wsconn/internal/pingmgr"
	"github.com/haldorsen/wsconn/internal/wsstream"
)

// Signal is re-exported from internal/pingmgr so callers of Session.Ping
// never need to import an internal package to hold its return value.
type Signal = pingmgr.Signal

// closePeerTimeout bounds how long CloseWithReason waits for the peer to
// echo a close frame before forcing the stream shut itself. A var, not a
// const, so tests can shrink it instead of sleeping for the real value.
var closePeerTimeout = 2 * time.Second

// Session is a live, bidirectional WebSocket message channel over an
// already-upgraded stream. Obtain one with Connect. A Session owns its
// stream and its two background pumps for its entire lifetime; Close joins
// both and releases the stream.
//
// All methods are safe for concurrent use. There is a single write lock
// around the stream, so concurrent Send* and Ping calls are serialized
// on the wire; the event queue has one producer (the receive pump) and
// supports any number of concurrent Receive* callers.
type Session struct {
	stream      wsstream.Stream
	subprotocol string
	cfg         *config

	pings *pingmgr.Manager

	events chan Event

	writeMu sync.Mutex

	closed    atomic.Bool
	closing   atomic.Bool
	closeOnce sync.Once
	err       atomic.Value // stores error

	recvDone      chan struct{}
	keepaliveDone chan struct{}
}

func newSession(stream wsstream.Stream, subprotocol string, cfg *config) *Session {
	s := &Session{
		stream:      stream,
		subprotocol: subprotocol,
		cfg:         cfg,
		pings:       pingmgr.New(),
		events:      make(chan Event, cfg.queueSize),
		recvDone:    make(chan struct{}),
	}
	stream.SetReadLimit(cfg.maxMessageSize)

	go s.recvPump()

	if cfg.keepaliveInterval > 0 {
		s.keepaliveDone = make(chan struct{})
		go s.keepalivePump()
	}

	return s
}

// Subprotocol returns the subprotocol negotiated during the handshake, or
// the empty string if none was requested or accepted.
func (s *Session) Subprotocol() string { return s.subprotocol }

// setTerminalError records err as the session's terminal error if none has
// been recorded yet, first writer wins. Matches smux's
// notifyReadError/notifyWriteError: a sync.Once-guarded store so the first
// failure observed is the one every later caller sees.
func (s *Session) setTerminalError(err error) {
	s.err.CompareAndSwap(nil, err)
	s.closed.Store(true)
}

func (s *Session) terminalError() error {
	if v := s.err.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// Send encodes e via the protocol adapter and writes it to the stream
// under the write lock. It fails with a *NetworkError if the write fails.
func (s *Session) Send(e Event) error {
	if err := s.terminalError(); err != nil {
		return err
	}
	messageType, payload, err := encodeFrame(e)
	if err != nil {
		return err
	}
	return s.writeMessage(messageType, payload)
}

func (s *Session) writeMessage(messageType int, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.stream.WriteMessage(messageType, payload); err != nil {
		netErr := &NetworkError{Op: "write", Err: err}
		s.setTerminalError(netErr)
		return netErr
	}
	return nil
}

// SendText sends a TextMessage event.
func (s *Session) SendText(text string) error { return s.Send(TextMessage(text)) }

// SendBytes sends a BytesMessage event.
func (s *Session) SendBytes(b []byte) error { return s.Send(BytesMessage(b)) }

// SendJSON marshals v to JSON and sends it as a text frame (mode ==
// JSONText) or as a UTF-8-encoded binary frame (mode == JSONBinary).
func (s *Session) SendJSON(v any, mode JSONMode) error {
	e, err := marshalJSONMode(v, mode)
	if err != nil {
		return err
	}
	return s.Send(e)
}

// Ping allocates a ping identifier via the Ping Manager, sends a Ping
// frame carrying it, and returns the Signal the caller may wait on for the
// matching Pong. If payload is empty, a random 4-byte identifier is used.
func (s *Session) Ping(payload []byte) (*Signal, error) {
	if err := s.terminalError(); err != nil {
		return nil, err
	}
	id, sig, err := s.pings.Create(payload)
	if err != nil {
		return nil, err
	}
	if sendErr := s.sendPing([]byte(id)); sendErr != nil {
		return nil, sendErr
	}
	return sig, nil
}

func (s *Session) sendPing(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	deadline := time.Now().Add(s.cfg.keepaliveTimeout)
	if err := s.stream.WriteControl(websocket.PingMessage, payload, deadline); err != nil {
		netErr := &NetworkError{Op: "ping", Err: err}
		s.setTerminalError(netErr)
		return netErr
	}
	return nil
}

// Receive dequeues and returns the next event, blocking until one is
// available. It is equivalent to ReceiveContext(context.Background()).
func (s *Session) Receive() (Event, error) {
	return s.ReceiveContext(context.Background())
}

// ReceiveContext dequeues and returns the next event, or fails with a
// *TimeoutError if ctx is done first. A dequeued CloseFrame always
// surfaces as a *Disconnect error rather than as a returned Event. If the
// session has already recorded a terminal error and the queue is empty,
// that error is returned immediately.
func (s *Session) ReceiveContext(ctx context.Context) (Event, error) {
	// A buffered event always takes priority over an already-closed
	// session, so a CloseFrame enqueued just before the pump exited is
	// still delivered instead of being raced out by recvDone closing.
	select {
	case e := <-s.events:
		return s.wrapEvent(e)
	default:
	}
	if err := s.terminalError(); err != nil {
		return nil, err
	}

	select {
	case e := <-s.events:
		return s.wrapEvent(e)
	case <-s.recvDone:
		select {
		case e := <-s.events:
			return s.wrapEvent(e)
		default:
		}
		if err := s.terminalError(); err != nil {
			return nil, err
		}
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, &TimeoutError{}
	}
}

func (s *Session) wrapEvent(e Event) (Event, error) {
	if cf, isClose := e.(CloseFrame); isClose {
		return nil, &Disconnect{Code: cf.Code, Reason: cf.Reason}
	}
	return e, nil
}

// ReceiveText dequeues one event and asserts it is a TextMessage. Any
// other event type is still consumed; the error reports what was actually
// received.
func (s *Session) ReceiveText(ctx context.Context) (string, error) {
	e, err := s.ReceiveContext(ctx)
	if err != nil {
		return "", err
	}
	text, ok := e.(TextMessage)
	if !ok {
		return "", &InvalidTypeReceived{Event: e}
	}
	return string(text), nil
}

// ReceiveBytes dequeues one event and asserts it is a BytesMessage.
func (s *Session) ReceiveBytes(ctx context.Context) ([]byte, error) {
	e, err := s.ReceiveContext(ctx)
	if err != nil {
		return nil, err
	}
	data, ok := e.(BytesMessage)
	if !ok {
		return nil, &InvalidTypeReceived{Event: e}
	}
	return []byte(data), nil
}

// ReceiveJSON dequeues one event matching mode and unmarshals it into v.
func (s *Session) ReceiveJSON(ctx context.Context, v any, mode JSONMode) error {
	e, err := s.ReceiveContext(ctx)
	if err != nil {
		return err
	}
	return unmarshalJSONMode(e, mode, v)
}

// Events returns the receive-only channel the receive pump publishes
// decoded events to, for callers that want to fold session traffic into
// their own select loop instead of calling Receive. A CloseFrame read this
// way is delivered as a plain Event, unlike via Receive/ReceiveContext;
// callers using this channel are responsible for recognizing it.
func (s *Session) Events() <-chan Event { return s.events }

// Close gracefully ends the session with close code 1000 and no reason.
func (s *Session) Close() error { return s.CloseWithReason(1000, "") }

// CloseWithReason ends the session with the given close code and reason.
// It is idempotent: concurrent callers block on the same shutdown sequence
// and observe the same error, if any. If the underlying connection state
// is not already closed, a best-effort close frame is written first; a
// failure to write it is swallowed, since the peer may already be gone.
func (s *Session) CloseWithReason(code int, reason string) error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		wasClosed := s.closed.Swap(true)
		if !wasClosed {
			s.writeMu.Lock()
			deadline := time.Now().Add(closePeerTimeout)
			_ = s.stream.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
			s.writeMu.Unlock()
		}

		select {
		case <-s.recvDone:
		case <-time.After(closePeerTimeout):
			// Peer never echoed our close frame; force the read loop to
			// unblock instead of hanging here forever.
			_ = s.stream.Close()
			<-s.recvDone
		}
		if s.keepaliveDone != nil {
			<-s.keepaliveDone
		}

		_ = s.stream.Close()
		s.pings.Drain()
	})
	return s.terminalError()
}
