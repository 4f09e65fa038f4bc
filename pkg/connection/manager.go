package connection

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Manager state errors.
var (
	ErrManagerClosed  = errors.New("manager closed")
	ErrAlreadyStarted = errors.New("manager already started")
)

// AttemptTimeout bounds a single reconnection attempt.
const AttemptTimeout = 30 * time.Second

// ConnectFunc establishes one connection. It is typically
// client.Connect; the manager calls it for the initial connection and
// for every retry.
type ConnectFunc func(ctx context.Context) error

// State represents the manager's view of the connection.
type State int

const (
	// StateDisconnected means no connection and no retry in progress.
	StateDisconnected State = iota

	// StateConnected means the last ConnectFunc call succeeded.
	StateConnected

	// StateReconnecting means the manager is waiting out a backoff
	// delay or retrying.
	StateReconnecting

	// StateClosed means Close was called; the manager is done.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnected:
		return "CONNECTED"
	case StateReconnecting:
		return "RECONNECTING"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Callbacks receive manager lifecycle notifications. All fields are
// optional. Callbacks run on the manager's goroutine; they must not
// block.
type Callbacks struct {
	// OnConnected fires after each successful connection.
	OnConnected func()

	// OnReconnecting fires before each retry with the attempt number
	// and the delay about to be waited.
	OnReconnecting func(attempt int, delay time.Duration)

	// OnStateChange fires on every state transition.
	OnStateChange func(oldState, newState State)

	// OnGiveUp fires when MaxAttempts is exhausted.
	OnGiveUp func(lastErr error)
}

// Config configures a Manager.
type Config struct {
	// Connect establishes a connection. Required.
	Connect ConnectFunc

	// Backoff tunes the retry delays. Zero values use defaults.
	Backoff BackoffConfig

	// MaxAttempts caps consecutive failed retries. Zero means retry
	// forever.
	MaxAttempts int

	// Callbacks receive lifecycle notifications.
	Callbacks Callbacks
}

// Manager reconnects a client after connection loss. The client's
// connection-lost listener should call NotifyConnectionLost; the
// manager then retries Connect with exponential backoff until it
// succeeds, the attempt cap is hit, or Close is called.
type Manager struct {
	config  Config
	backoff *Backoff

	mu      sync.Mutex
	state   State
	started bool

	lostCh  chan struct{}
	closeCh chan struct{}
	doneCh  chan struct{}
}

// NewManager creates a manager. Start must be called before it does
// anything.
func NewManager(config Config) *Manager {
	return &Manager{
		config:  config,
		backoff: NewBackoffWithConfig(config.Backoff),
		state:   StateDisconnected,
		lostCh:  make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start makes the initial connection and launches the reconnect loop.
// The initial connection failing is returned to the caller; retries
// only cover connections lost after a successful Start.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.started {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.started = true
	m.mu.Unlock()

	if err := m.config.Connect(ctx); err != nil {
		m.mu.Lock()
		m.started = false
		m.mu.Unlock()
		return err
	}
	m.setState(StateConnected)
	if m.config.Callbacks.OnConnected != nil {
		m.config.Callbacks.OnConnected()
	}

	go m.loop()
	return nil
}

// NotifyConnectionLost tells the manager the connection dropped.
// Safe to call from listener callbacks; repeat notifications during an
// ongoing retry are coalesced.
func (m *Manager) NotifyConnectionLost() {
	select {
	case m.lostCh <- struct{}{}:
	default:
	}
}

// State returns the manager's current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close stops the reconnect loop. It does not close the underlying
// connection; that remains the caller's job.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	prev := m.state
	m.state = StateClosed
	started := m.started
	m.mu.Unlock()

	m.notifyStateChange(prev, StateClosed)
	close(m.closeCh)
	if started {
		<-m.doneCh
	}
}

// loop waits for loss notifications and drives retries.
func (m *Manager) loop() {
	defer close(m.doneCh)

	for {
		select {
		case <-m.closeCh:
			return
		case <-m.lostCh:
		}

		m.setState(StateReconnecting)
		if !m.reconnect() {
			return
		}
	}
}

// reconnect retries Connect until success or shutdown. It returns
// false when the loop should exit.
func (m *Manager) reconnect() bool {
	m.backoff.Reset()

	var lastErr error
	for {
		if m.config.MaxAttempts > 0 && m.backoff.Attempts() >= m.config.MaxAttempts {
			m.setState(StateDisconnected)
			if m.config.Callbacks.OnGiveUp != nil {
				m.config.Callbacks.OnGiveUp(lastErr)
			}
			return true
		}

		delay := m.backoff.Next()
		if m.config.Callbacks.OnReconnecting != nil {
			m.config.Callbacks.OnReconnecting(m.backoff.Attempts(), delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-m.closeCh:
			timer.Stop()
			return false
		case <-timer.C:
		}

		// Any notification received so far refers to the connection
		// already being replaced.
		select {
		case <-m.lostCh:
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), AttemptTimeout)
		err := m.config.Connect(ctx)
		cancel()
		if err == nil {
			m.setState(StateConnected)
			if m.config.Callbacks.OnConnected != nil {
				m.config.Callbacks.OnConnected()
			}
			return true
		}
		lastErr = err
	}
}

// setState transitions state and notifies. Transitions after Close are
// discarded.
func (m *Manager) setState(newState State) {
	m.mu.Lock()
	if m.state == StateClosed {
		m.mu.Unlock()
		return
	}
	old := m.state
	m.state = newState
	m.mu.Unlock()

	if old != newState {
		m.notifyStateChange(old, newState)
	}
}

func (m *Manager) notifyStateChange(oldState, newState State) {
	if m.config.Callbacks.OnStateChange != nil {
		m.config.Callbacks.OnStateChange(oldState, newState)
	}
}
