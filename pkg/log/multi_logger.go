package log

// MultiLogger fans each protocol event out to several loggers, for
// setups that want a .ilog capture file and slog console output from
// the same connection.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger wraps the given loggers. Events go to each of them in
// argument order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the event to every wrapped logger.
func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Compile-time interface satisfaction check.
var _ Logger = (*MultiLogger)(nil)
