package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/haldorsen/wsconn"
)

const (
	// maxReconnectDelay caps the exponential backoff between connection
	// attempts.
	maxReconnectDelay = 2 * time.Minute

	// baseReconnectDelay is the delay before the first reconnect attempt.
	baseReconnectDelay = 1 * time.Second

	// probeInterval is how often runProbeSession sends a probe message once
	// connected.
	probeInterval = 5 * time.Second
)

// probeMessage is the JSON envelope the probe sends and expects back,
// echo-style, from the peer it connects to.
type probeMessage struct {
	Seq       int       `json:"seq"`
	SentAt    time.Time `json:"sentAt"`
	HostLabel string    `json:"hostLabel"`
}

// runProbeLoop dials url and runs a probe session against it, reconnecting
// with exponential backoff whenever the session ends for any reason other
// than ctx being cancelled. It blocks until ctx is done.
func runProbeLoop(ctx context.Context, cfg *Config) error {
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		slog.Info("connecting", "url", cfg.URL, "attempt", attempt)

		err := runProbeSession(ctx, cfg)
		if err != nil {
			slog.Warn("probe session ended", "error", err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := calculateBackoff(attempt)
		attempt++

		slog.Info("reconnecting", "delay", delay, "attempt", attempt)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// runProbeSession owns exactly one wsconn.Session for its entire lifetime:
// it connects, sends a probe message on probeInterval, and logs every event
// the session delivers, until the session ends or ctx is cancelled. It
// never retries on its own — that's runProbeLoop's job, per this package's
// reconnect-wrapping-a-non-reconnecting-session split.
func runProbeSession(ctx context.Context, cfg *Config) error {
	var opts []wsconn.Option
	opts = append(opts, wsconn.WithKeepalive(cfg.PingInterval, cfg.PingTimeout))
	opts = append(opts, wsconn.WithMaxMessageSize(cfg.MaxMessageSize))
	if cfg.Subprotocol != "" {
		opts = append(opts, wsconn.WithSubprotocols(cfg.Subprotocol))
	}

	session, err := wsconn.Connect(ctx, cfg.URL, opts...)
	if err != nil {
		var upgradeErr *wsconn.UpgradeError
		if errors.As(err, &upgradeErr) {
			return fmt.Errorf("handshake rejected: %w", err)
		}
		return fmt.Errorf("connect: %w", err)
	}
	defer session.Close()

	slog.Info("connected", "subprotocol", session.Subprotocol())

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- recvLoop(sessionCtx, session) }()

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	seq := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-ticker.C:
			seq++
			msg := probeMessage{Seq: seq, SentAt: time.Now(), HostLabel: cfg.Subprotocol}
			if err := session.SendJSON(msg, wsconn.JSONText); err != nil {
				return fmt.Errorf("send probe: %w", err)
			}
		}
	}
}

// recvLoop drains session's events until it ends, logging each one. It
// returns the error the session terminated with.
func recvLoop(ctx context.Context, session *wsconn.Session) error {
	for {
		event, err := session.ReceiveContext(ctx)
		if err != nil {
			return err
		}

		switch e := event.(type) {
		case wsconn.TextMessage:
			var echoed probeMessage
			if jsonErr := json.Unmarshal([]byte(e), &echoed); jsonErr == nil {
				slog.Info("probe echoed", "seq", echoed.Seq, "rtt", time.Since(echoed.SentAt))
			} else {
				slog.Info("received text", "bytes", len(e))
			}
		case wsconn.BytesMessage:
			slog.Info("received binary", "bytes", len(e))
		}
	}
}

// calculateBackoff returns an exponential backoff duration capped at
// maxReconnectDelay.
func calculateBackoff(attempt int) time.Duration {
	if attempt == 0 {
		return baseReconnectDelay
	}

	delay := time.Duration(math.Pow(2, float64(attempt))) * baseReconnectDelay
	if delay > maxReconnectDelay {
		delay = maxReconnectDelay
	}

	return delay
}
