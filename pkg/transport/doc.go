// Package transport implements the TCP stream carrying INDIGO JSON
// messages.
//
// A Conn wraps one net.Conn for its whole life: Connect (or Attach for
// an existing connection) starts a read loop that decodes concatenated
// JSON objects and delivers them to the Handler one at a time.
// Recoverable decode problems (unknown tag, bad body) surface through
// OnError and reading continues; any other stream error tears the
// connection down and fires OnClosed exactly once.
//
// Conn is single-use. After it closes, create a new Conn for the next
// connection attempt.
package transport
