package log

// MultiLogger fans each event out to a fixed set of loggers, typically
// an SlogAdapter for the console plus a FileLogger for capture.
type MultiLogger struct {
	sinks []Logger
}

// NewMultiLogger builds a fan-out over the given loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{sinks: loggers}
}

// Log delivers the event to every sink in order.
func (m *MultiLogger) Log(event Event) {
	for _, sink := range m.sinks {
		sink.Log(event)
	}
}

var _ Logger = (*MultiLogger)(nil)
