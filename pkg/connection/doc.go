// Package connection provides reconnection policy for INDIGO clients.
//
// The client engine itself never reconnects: a lost transport is
// terminal for it and surfaces once through the connection-lost
// listener. This package is the caller-side policy layered on top:
// a Manager owns a connect function, watches for loss notifications,
// and retries with exponential backoff.
//
// # Reconnection Strategy
//
//  1. Initial delay: 1 second
//  2. Exponential increase: 2s, 4s, 8s, 16s, 32s
//  3. Maximum delay: 60 seconds
//  4. Continue at 60s until successful
//  5. Reset to 1s on successful reconnection
//
// # Jitter
//
// To prevent thundering herd when multiple clients reconnect:
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
