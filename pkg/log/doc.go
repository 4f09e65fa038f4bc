// Package log provides structured protocol logging for the INDIGO client.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events (messages, connection state changes, errors).
// It is separate from operational logging (slog) - protocol capture provides
// a complete machine-readable event trace for debugging and analysis.
//
// # Basic Usage
//
// Applications configure logging by providing a Logger implementation:
//
//	// For development: log to console via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/indigo/client.ilog")
//
//	// Both: use MultiLogger
//	cfg.ProtocolLogger = log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    log.NewFileLogger("/var/log/indigo/client.ilog"),
//	)
//
// # Event Types
//
// Three event payloads cover the client's activity:
//   - Message: one protocol message, in or out (MessageEvent)
//   - StateChange: connection lifecycle transitions (StateChangeEvent)
//   - Error: protocol violations, listener panics, transport errors
//     (ErrorEventData)
//
// # File Format
//
// Log files use CBOR encoding with .ilog extension. Reader streams
// events back with optional filtering.
package log
