// Package wsconn turns an upgraded HTTP/1.1 byte stream into a framed,
// bidirectional WebSocket message channel.
//
// A Session is obtained by calling Connect, which performs the RFC 6455
// upgrade handshake and starts two background goroutines: a receive pump
// that decodes incoming frames into Events, and an optional keepalive pump
// that pings the peer on a fixed interval and aborts the session if a Pong
// never arrives. Application code sends with Send/SendText/SendBytes/
// SendJSON and receives with Receive/ReceiveText/ReceiveBytes/ReceiveJSON,
// or reads the Events() channel directly for select-based integration.
//
// wsconn never reconnects on its own. A Session that observes a peer close,
// a network error, or a keepalive timeout transitions permanently to closed;
// callers that want reconnection build that loop around Connect themselves
// (see cmd/wsconn-probe for an example).
package wsconn
