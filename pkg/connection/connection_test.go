package connection

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBackoffSequence(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial:    1 * time.Second,
		Max:        60 * time.Second,
		Multiplier: 2.0,
		Jitter:     0, // deterministic
	})

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		32 * time.Second,
		60 * time.Second,
		60 * time.Second,
	}
	for i, want := range expected {
		got := b.Next()
		if got != want {
			t.Errorf("attempt %d: got %v, want %v", i+1, got, want)
		}
	}
	if b.Attempts() != len(expected) {
		t.Errorf("attempts = %d, want %d", b.Attempts(), len(expected))
	}
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Jitter: 0})

	b.Next()
	b.Next()
	b.Next()

	b.Reset()
	if b.Attempts() != 0 {
		t.Errorf("attempts after reset = %d, want 0", b.Attempts())
	}
	if got := b.Next(); got != InitialBackoff {
		t.Errorf("first delay after reset = %v, want %v", got, InitialBackoff)
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{
		Initial: 1 * time.Second,
		Jitter:  JitterFactor,
	})

	for i := 0; i < 100; i++ {
		got := b.Peek()
		if got < 1*time.Second || got > 1250*time.Millisecond {
			t.Fatalf("jittered delay %v outside [1s, 1.25s]", got)
		}
	}
}

func TestBackoffPeekDoesNotAdvance(t *testing.T) {
	b := NewBackoffWithConfig(BackoffConfig{Jitter: 0})

	b.Peek()
	b.Peek()
	if b.Attempts() != 0 {
		t.Errorf("attempts after peek = %d, want 0", b.Attempts())
	}
	if got := b.Current(); got != InitialBackoff {
		t.Errorf("current after peek = %v, want %v", got, InitialBackoff)
	}
}

// fastBackoff keeps manager tests quick.
var fastBackoff = BackoffConfig{
	Initial:    time.Millisecond,
	Max:        5 * time.Millisecond,
	Multiplier: 2.0,
	Jitter:     0,
}

func TestManagerStartFailureIsReturned(t *testing.T) {
	dialErr := errors.New("refused")
	m := NewManager(Config{
		Connect: func(ctx context.Context) error { return dialErr },
		Backoff: fastBackoff,
	})
	defer m.Close()

	if err := m.Start(context.Background()); !errors.Is(err, dialErr) {
		t.Fatalf("Start() = %v, want %v", err, dialErr)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED", m.State())
	}

	// A failed Start leaves the manager restartable.
	var calls atomic.Int32
	m2 := NewManager(Config{
		Connect: func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				return dialErr
			}
			return nil
		},
		Backoff: fastBackoff,
	})
	defer m2.Close()

	if err := m2.Start(context.Background()); err == nil {
		t.Fatal("first Start should fail")
	}
	if err := m2.Start(context.Background()); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if m2.State() != StateConnected {
		t.Errorf("state = %v, want CONNECTED", m2.State())
	}
}

func TestManagerReconnectsAfterLoss(t *testing.T) {
	var calls atomic.Int32
	connected := make(chan struct{}, 4)

	m := NewManager(Config{
		Connect: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
		Backoff: fastBackoff,
		Callbacks: Callbacks{
			OnConnected: func() { connected <- struct{}{} },
		},
	})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-connected

	m.NotifyConnectionLost()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("no reconnection within 1s")
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("connect calls = %d, want 2", got)
	}
	if m.State() != StateConnected {
		t.Errorf("state = %v, want CONNECTED", m.State())
	}
}

func TestManagerRetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	connected := make(chan struct{}, 4)
	var attempts []int

	m := NewManager(Config{
		Connect: func(ctx context.Context) error {
			// Fail the first two retries after the initial connect.
			if n := calls.Add(1); n == 2 || n == 3 {
				return errors.New("still down")
			}
			return nil
		},
		Backoff: fastBackoff,
		Callbacks: Callbacks{
			OnConnected:    func() { connected <- struct{}{} },
			OnReconnecting: func(attempt int, delay time.Duration) { attempts = append(attempts, attempt) },
		},
	})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-connected

	m.NotifyConnectionLost()

	select {
	case <-connected:
	case <-time.After(time.Second):
		t.Fatal("no reconnection within 1s")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("connect calls = %d, want 4", got)
	}
	if len(attempts) != 3 || attempts[0] != 1 || attempts[2] != 3 {
		t.Errorf("reconnecting attempts = %v, want [1 2 3]", attempts)
	}
}

func TestManagerGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	gaveUp := make(chan error, 1)
	connected := make(chan struct{}, 1)
	dialErr := errors.New("still down")

	m := NewManager(Config{
		Connect: func(ctx context.Context) error {
			if calls.Add(1) == 1 {
				return nil
			}
			return dialErr
		},
		Backoff:     fastBackoff,
		MaxAttempts: 3,
		Callbacks: Callbacks{
			OnConnected: func() { connected <- struct{}{} },
			OnGiveUp:    func(lastErr error) { gaveUp <- lastErr },
		},
	})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-connected

	m.NotifyConnectionLost()

	select {
	case lastErr := <-gaveUp:
		if !errors.Is(lastErr, dialErr) {
			t.Errorf("give-up error = %v, want %v", lastErr, dialErr)
		}
	case <-time.After(time.Second):
		t.Fatal("no give-up within 1s")
	}
	if got := calls.Load(); got != 4 { // initial + 3 retries
		t.Errorf("connect calls = %d, want 4", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state = %v, want DISCONNECTED", m.State())
	}
}

func TestManagerCloseStopsRetries(t *testing.T) {
	connected := make(chan struct{}, 1)

	m := NewManager(Config{
		Connect: func(ctx context.Context) error { return nil },
		Backoff: BackoffConfig{Initial: time.Hour}, // would stall forever
		Callbacks: Callbacks{
			OnConnected: func() { connected <- struct{}{} },
		},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-connected
	m.NotifyConnectionLost()

	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return within 1s")
	}
	if m.State() != StateClosed {
		t.Errorf("state = %v, want CLOSED", m.State())
	}

	if err := m.Start(context.Background()); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Start after Close = %v, want ErrManagerClosed", err)
	}
}

func TestManagerDoubleStart(t *testing.T) {
	m := NewManager(Config{
		Connect: func(ctx context.Context) error { return nil },
		Backoff: fastBackoff,
	})
	defer m.Close()

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := m.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start = %v, want ErrAlreadyStarted", err)
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "DISCONNECTED",
		StateConnected:    "CONNECTED",
		StateReconnecting: "RECONNECTING",
		StateClosed:       "CLOSED",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
