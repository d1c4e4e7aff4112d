package wsconn

import (
	"context"
	"time"
)

// keepalivePump is the session's background keepalive worker, per
// SPEC_FULL.md §4.5. It runs only when cfg.keepaliveInterval > 0. Grounded
// on the host agent's runHeartbeatLoop ticker shape and on smux's
// keepalive() goroutine (tickerPing/tickerTimeout select, dead-peer
// detection on a missed round-trip).
func (s *Session) keepalivePump() {
	defer close(s.keepaliveDone)

	ticker := time.NewTicker(s.cfg.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.recvDone:
			return
		case <-ticker.C:
			if s.closed.Load() {
				return
			}
			if !s.keepaliveRound() {
				return
			}
		}
	}
}

// keepaliveRound sends one Ping and waits up to keepaliveTimeout for its
// Pong. It returns false when the session should stop (timeout or the
// session already failed for some other reason), true to keep looping.
func (s *Session) keepaliveRound() bool {
	id, sig, err := s.pings.CreateUnthrottled(nil)
	if err != nil {
		// The only failure mode here is crypto/rand failing (identifier
		// collisions are retried inside the manager); treat it like any
		// other fatal session error rather than spinning.
		s.setTerminalError(&NetworkError{Op: "keepalive", Err: err})
		s.pings.Drain()
		_ = s.stream.Close()
		return false
	}
	if err := s.sendPing([]byte(id)); err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.keepaliveTimeout)
	defer cancel()

	ok, completed := sig.Wait(ctx)
	if completed && ok {
		return true
	}

	s.setTerminalError(&NetworkError{Op: "keepalive", Err: ErrPongTimeout})
	s.pings.Drain()
	// Force the blocked read in the receive pump to unblock so the
	// session fully transitions to closed instead of leaving the pump
	// running against a connection nothing will ever answer on.
	_ = s.stream.Close()
	return false
}
