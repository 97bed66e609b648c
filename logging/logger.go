// Package logging defines the small leveled logger used across the module and
// adapters for zap and logrus.
package logging

// Fields is a minimal structured field map for logs.
type Fields map[string]any

// Logger is a tiny leveled logger. Provide an adapter around your logging stack.
type Logger interface {
	Debug(msg string, f Fields)
	Info(msg string, f Fields)
	Warn(msg string, f Fields)
	Error(msg string, f Fields)
}

// Nop discards every entry.
type Nop struct{}

func (Nop) Debug(string, Fields) {}
func (Nop) Info(string, Fields)  {}
func (Nop) Warn(string, Fields)  {}
func (Nop) Error(string, Fields) {}

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop{}
	}
	return l
}
