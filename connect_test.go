package wsconn_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haldorsen/wsconn"
	"github.com/haldorsen/wsconn/wsconntest"
)

func TestConnectRoundTripsTextMessage(t *testing.T) {
	srv := wsconntest.New(func(conn *websocket.Conn) {
		defer conn.Close()
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.WriteMessage(websocket.TextMessage, payload)
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	session, err := wsconn.Connect(ctx, srv.URL())
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if err := session.SendText("ping"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	text, err := session.ReceiveText(ctx)
	if err != nil {
		t.Fatalf("ReceiveText: %v", err)
	}
	if text != "ping" {
		t.Fatalf("text = %q, want %q", text, "ping")
	}
}

func TestConnectNegotiatesSubprotocol(t *testing.T) {
	srv := wsconntest.New(func(conn *websocket.Conn) {
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	session, err := wsconn.Connect(ctx, srv.URL(), wsconn.WithSubprotocols("v1.probe"))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer session.Close()

	if session.Subprotocol() != "v1.probe" {
		t.Fatalf("Subprotocol() = %q, want %q", session.Subprotocol(), "v1.probe")
	}
}

func TestConnectSurfacesUpgradeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	url := "ws" + srv.URL[len("http"):]
	_, err := wsconn.Connect(ctx, url)
	if err == nil {
		t.Fatal("Connect against a non-101 response should fail")
	}

	var upgradeErr *wsconn.UpgradeError
	if !errors.As(err, &upgradeErr) {
		t.Fatalf("err = %v, want *UpgradeError", err)
	}
	if upgradeErr.Response == nil || upgradeErr.Response.StatusCode != http.StatusBadRequest {
		t.Fatalf("upgradeErr.Response = %+v, want status %d", upgradeErr.Response, http.StatusBadRequest)
	}
}
