package wsconn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldorsen/wsconn/internal/wsstream"
)

func newTestSession(stream *wsstream.Fake) *Session {
	cfg := defaultConfig()
	cfg.keepaliveInterval = 0 // isolate the receive pump from the keepalive pump in these tests
	return newSession(stream, "", cfg)
}

func TestRecvPumpDeliversTextMessage(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.Push(websocket.TextMessage, []byte("hello"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	text, err := s.ReceiveText(ctx)
	if err != nil {
		t.Fatalf("ReceiveText: %v", err)
	}
	if text != "hello" {
		t.Fatalf("text = %q, want %q", text, "hello")
	}
}

func TestRecvPumpDeliversBytesMessage(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.Push(websocket.BinaryMessage, []byte{1, 2, 3})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	data, err := s.ReceiveBytes(ctx)
	if err != nil {
		t.Fatalf("ReceiveBytes: %v", err)
	}
	if len(data) != 3 || data[0] != 1 {
		t.Fatalf("data = %v, want [1 2 3]", data)
	}
}

func TestRecvPumpAutoPongPrecedesNextEvent(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.PushPing([]byte("ping-payload"))
	stream.Push(websocket.TextMessage, []byte("after-ping"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	text, err := s.ReceiveText(ctx)
	if err != nil {
		t.Fatalf("ReceiveText: %v", err)
	}
	if text != "after-ping" {
		t.Fatalf("text = %q, want %q", text, "after-ping")
	}

	writes := stream.Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(writes))
	}
	if writes[0].MessageType != websocket.PongMessage || string(writes[0].Payload) != "ping-payload" {
		t.Fatalf("writes[0] = %+v, want a Pong echoing ping-payload", writes[0])
	}
}

func TestRecvPumpResolvesPingOnPong(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	sig, err := s.Ping([]byte("abcd"))
	if err != nil {
		t.Fatalf("Ping: %v", err)
	}

	stream.PushPong([]byte("abcd"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	ok, completed := sig.Wait(ctx)
	if !completed || !ok {
		t.Fatalf("Wait = (%v, %v), want (true, true)", ok, completed)
	}
}

func TestRecvPumpPeerCloseSurfacesAsDisconnect(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.PushClose(1001, "going away")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.ReceiveContext(ctx)

	var disc *Disconnect
	if !errors.As(err, &disc) {
		t.Fatalf("err = %v, want *Disconnect", err)
	}
	if disc.Code != 1001 || disc.Reason != "going away" {
		t.Fatalf("disc = %+v, want code 1001 reason %q", disc, "going away")
	}
}

func TestRecvPumpReadErrorBecomesNetworkError(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.PushErr(errors.New("connection reset"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.ReceiveContext(ctx)

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("err = %v, want *NetworkError", err)
	}
	if !errors.Is(err, ErrWebSocket) {
		t.Fatal("err should wrap ErrWebSocket")
	}
}

func TestReceiveContextTimesOutOnEmptyQueue(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.ReceiveContext(ctx)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("err = %v, want *TimeoutError", err)
	}
}

func TestSendTextWritesTextFrame(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	if err := s.SendText("ahoy"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	writes := stream.Writes()
	if len(writes) != 1 || writes[0].MessageType != websocket.TextMessage || string(writes[0].Payload) != "ahoy" {
		t.Fatalf("writes = %+v, want one text frame \"ahoy\"", writes)
	}
}

func TestSendJSONRoundTrip(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	type payload struct {
		Name string `json:"name"`
	}

	if err := s.SendJSON(payload{Name: "alice"}, JSONText); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}

	writes := stream.Writes()
	if len(writes) != 1 || writes[0].MessageType != websocket.TextMessage {
		t.Fatalf("writes = %+v, want one text frame", writes)
	}

	stream.Push(websocket.TextMessage, writes[0].Payload)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var got payload
	if err := s.ReceiveJSON(ctx, &got, JSONText); err != nil {
		t.Fatalf("ReceiveJSON: %v", err)
	}
	if got.Name != "alice" {
		t.Fatalf("got = %+v, want Name alice", got)
	}
}

func TestReceiveJSONRejectsWrongMode(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	type payload struct {
		Name string `json:"name"`
	}

	if err := s.SendJSON(payload{Name: "alice"}, JSONText); err != nil {
		t.Fatalf("SendJSON: %v", err)
	}
	writes := stream.Writes()
	if len(writes) != 1 {
		t.Fatalf("writes = %+v, want one frame", writes)
	}

	// Echo the text-frame JSON payload back as if it had been sent with
	// JSONBinary, then ask ReceiveJSON to decode it in JSONText mode. Mode
	// selects the wire type, not just the codec, so a binary frame must be
	// rejected even though it contains valid JSON.
	stream.Push(websocket.BinaryMessage, writes[0].Payload)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var got payload
	err := s.ReceiveJSON(ctx, &got, JSONText)

	var typeErr *InvalidTypeReceived
	if !errors.As(err, &typeErr) {
		t.Fatalf("err = %v, want *InvalidTypeReceived", err)
	}
}

func TestReceiveTextWrongTypeReturnsInvalidTypeReceived(t *testing.T) {
	stream := wsstream.NewFake()
	s := newTestSession(stream)
	defer stream.Close()

	stream.Push(websocket.BinaryMessage, []byte{9})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := s.ReceiveText(ctx)

	var typeErr *InvalidTypeReceived
	if !errors.As(err, &typeErr) {
		t.Fatalf("err = %v, want *InvalidTypeReceived", err)
	}
}
