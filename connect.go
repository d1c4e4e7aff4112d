package wsconn

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldorsen/wsconn/internal/wsstream"
)

// Connect performs the RFC 6455 upgrade handshake against url and returns a
// live Session wrapping the upgraded stream. The returned Session's
// background pumps are already running by the time Connect returns.
//
// url must use the ws:// or wss:// scheme. Callers should defer
// session.Close() to guarantee the stream and pumps are released on every
// exit path.
func Connect(ctx context.Context, url string, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	header := cfg.headers.Clone()
	if len(cfg.subprotocols) > 0 {
		header.Set("Sec-WebSocket-Protocol", strings.Join(cfg.subprotocols, ", "))
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: 45 * time.Second,
	}
	if cfg.httpClient != nil {
		dialer.Jar = cfg.httpClient.Jar
		if t, ok := cfg.httpClient.Transport.(*http.Transport); ok && t != nil {
			dialer.TLSClientConfig = t.TLSClientConfig
			dialer.Proxy = t.Proxy
		}
	}

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, &UpgradeError{Response: resp}
		}
		return nil, fmt.Errorf("wsconn: dialing %s: %w", url, err)
	}

	subprotocol := resp.Header.Get("Sec-WebSocket-Protocol")

	session := newSession(wsstream.FromConn(conn), subprotocol, cfg)
	return session, nil
}
