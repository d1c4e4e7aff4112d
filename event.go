package wsconn

import (
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"
)

// Event is a decoded application-level WebSocket event. Ping and Pong never
// surface as Events; they are consumed internally by the receive pump and
// the keepalive pump.
type Event interface {
	isEvent()
}

// TextMessage is a decoded WebSocket text frame.
type TextMessage string

// BytesMessage is a decoded WebSocket binary frame.
type BytesMessage []byte

// CloseFrame reports that the peer (or the local side) closed the
// connection. Receiving one from Session.Receive always surfaces as a
// *Disconnect error; the frame's fields are carried on that error.
type CloseFrame struct {
	Code   int
	Reason string
}

func (TextMessage) isEvent()  {}
func (BytesMessage) isEvent() {}
func (CloseFrame) isEvent()   {}

// JSONMode selects how SendJSON/ReceiveJSON represent a value on the wire.
type JSONMode int

const (
	// JSONText sends/receives the JSON payload as a text frame.
	JSONText JSONMode = iota
	// JSONBinary sends/receives the JSON payload UTF-8 encoded as a binary frame.
	JSONBinary
)

// encodeFrame turns an Event into the (messageType, payload) pair gorilla's
// Conn.WriteMessage expects. CloseFrame is handled separately by the
// session's close path because gorilla requires a pre-formatted close
// payload (see websocket.FormatCloseMessage).
func encodeFrame(e Event) (messageType int, payload []byte, err error) {
	switch v := e.(type) {
	case TextMessage:
		return websocket.TextMessage, []byte(v), nil
	case BytesMessage:
		return websocket.BinaryMessage, []byte(v), nil
	default:
		return 0, nil, fmt.Errorf("wsconn: cannot send event of type %T directly, use CloseWithReason", e)
	}
}

// decodeFrame turns a gorilla message type/payload pair into an Event.
// Control frames (ping/pong/close) never reach this function.
func decodeFrame(messageType int, payload []byte) Event {
	if messageType == websocket.BinaryMessage {
		return BytesMessage(payload)
	}
	return TextMessage(payload)
}

func marshalJSONMode(v any, mode JSONMode) (Event, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wsconn: marshalling JSON payload: %w", err)
	}
	if mode == JSONBinary {
		return BytesMessage(data), nil
	}
	return TextMessage(data), nil
}

func unmarshalJSONMode(e Event, mode JSONMode, v any) error {
	var data []byte
	switch mode {
	case JSONBinary:
		got, ok := e.(BytesMessage)
		if !ok {
			return &InvalidTypeReceived{Event: e}
		}
		data = []byte(got)
	default:
		got, ok := e.(TextMessage)
		if !ok {
			return &InvalidTypeReceived{Event: e}
		}
		data = []byte(got)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wsconn: unmarshalling JSON payload: %w", err)
	}
	return nil
}
