// Package pingmgr correlates application-initiated Ping frames with the
// Pong that answers them.
package pingmgr

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"
)

const (
	defaultCreateBurst  = 20
	defaultCreateRefill = 100 * time.Millisecond
)

// Manager maps an outstanding ping identifier to the Signal that resolves
// when its Pong arrives, or when the session is drained. It is safe for
// concurrent use by the receive pump (Ack), the keepalive pump (Create +
// Wait), and any number of callers of the session's public Ping method.
type Manager struct {
	mu      sync.Mutex
	pending map[string]*Signal
	limiter *tokenBucket
}

// New returns a ready-to-use Manager. Application-initiated Create calls
// are throttled to a burst of defaultCreateBurst, refilled at one call per
// defaultCreateRefill; the
// keepalive pump bypasses this guard via CreateUnthrottled since it
// already self-paces on its own interval.
func New() *Manager {
	return &Manager{
		pending: make(map[string]*Signal),
		limiter: newTokenBucket(defaultCreateBurst, defaultCreateRefill),
	}
}

// errRateLimited is returned by Create when the anti-flood guard rejects
// the call. Callers should back off and retry, not treat it as fatal.
var errRateLimited = fmt.Errorf("wsconn: ping rate limit exceeded")

// ErrRateLimited reports that Create was throttled by the anti-flood guard.
func ErrRateLimited() error { return errRateLimited }

// Create allocates a fresh outstanding ping. If payload is empty, a 4-byte
// cryptographically random identifier is generated, retrying on the rare
// collision with an identifier already outstanding. The returned Signal
// resolves to true on the matching Ack, or false if Drain runs first.
func (m *Manager) Create(payload []byte) (id string, sig *Signal, err error) {
	if !m.limiter.allow() {
		return "", nil, errRateLimited
	}
	return m.create(payload)
}

// CreateUnthrottled behaves like Create but bypasses the anti-flood guard.
// Only the keepalive pump should use it.
func (m *Manager) CreateUnthrottled(payload []byte) (id string, sig *Signal, err error) {
	return m.create(payload)
}

func (m *Manager) create(payload []byte) (string, *Signal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := string(payload)
	if id == "" {
		for {
			b := make([]byte, 4)
			if _, err := rand.Read(b); err != nil {
				return "", nil, fmt.Errorf("wsconn: generating ping identifier: %w", err)
			}
			candidate := string(b)
			if _, taken := m.pending[candidate]; !taken {
				id = candidate
				break
			}
		}
	} else if _, taken := m.pending[id]; taken {
		return "", nil, fmt.Errorf("wsconn: ping identifier %q already outstanding", id)
	}

	sig := newSignal()
	m.pending[id] = sig
	return id, sig, nil
}

// Ack resolves the signal for id, if any is outstanding, as satisfied. A
// Pong for an unknown identifier is ignored — it may belong to a
// peer-initiated exchange this package never sees.
func (m *Manager) Ack(id string) {
	m.mu.Lock()
	sig, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	m.mu.Unlock()

	if ok {
		sig.resolve(true)
	}
}

// Drain resolves every outstanding signal as unsatisfied and clears the
// mapping. Called once when the owning session closes, so no waiter blocks
// forever.
func (m *Manager) Drain() {
	m.mu.Lock()
	pending := m.pending
	m.pending = make(map[string]*Signal)
	m.mu.Unlock()

	for _, sig := range pending {
		sig.resolve(false)
	}
}
