// Package wsconntest provides an in-process WebSocket peer for exercising
// wsconn.Connect and Session without a real network socket, the Go analog
// of spec.md's ASGI test transport.
package wsconntest

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gorilla/websocket"
)

// Handler is invoked once per accepted connection, on its own goroutine,
// with the upgraded server-side stream. It owns conn for the lifetime of
// the test: closing it ends the simulated peer's side of the session.
type Handler func(conn *websocket.Conn)

// Server is an httptest.Server upgrading every request to a WebSocket and
// handing the result to a Handler.
type Server struct {
	http *httptest.Server
}

// New starts a Server that upgrades every incoming request and runs fn on
// the result. The caller must call Close when done.
func New(fn Handler) *Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		}
		if protos := r.Header.Get("Sec-WebSocket-Protocol"); protos != "" {
			upgrader.Subprotocols = splitProtocols(protos)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fn(conn)
	}))

	return &Server{http: srv}
}

// URL returns the server's base ws:// URL.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.http.URL, "http")
}

// Close shuts down the underlying HTTP server, closing any connections
// still open.
func (s *Server) Close() { s.http.Close() }

func splitProtocols(header string) []string {
	parts := strings.Split(header, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
