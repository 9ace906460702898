// Package logger defines the minimal structured-logging interface used
// throughout the module, so that every package depends on an interface
// rather than on zap directly.
package logger

import "chorddht/internal/domain"

// Field is a structured key/value pair attached to a log line.
type Field struct {
	Key string
	Val any
}

// Logger is the minimal interface required by the routing table, node,
// and network packages.
type Logger interface {
	Named(name string) Logger
	With(fields ...Field) Logger
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
}

// F builds a Field concisely.
func F(key string, val any) Field { return Field{Key: key, Val: val} }

// FID renders a domain.ID as a structured field.
func FID(key string, id domain.ID) Field {
	if id == nil {
		return Field{Key: key, Val: nil}
	}
	return Field{Key: key, Val: id.String()}
}

// FHandle renders a domain.Handle as a structured field.
func FHandle(key string, h domain.Handle) Field {
	return Field{Key: key, Val: string(h)}
}

// FResource renders a domain.Resource as a structured field, omitting the
// raw value bytes (which may be codec-encrypted and are not useful in logs).
func FResource(key string, r domain.Resource) Field {
	return Field{
		Key: key,
		Val: map[string]any{
			"key":      r.Key.String(),
			"rawKey":   r.RawKey,
			"valueLen": len(r.Value),
		},
	}
}

// ----------------------------------------------------------------
// NopLogger discards every log line; it is the default when no logger
// is supplied via an Option.
type NopLogger struct{}

func (l *NopLogger) Named(name string) Logger          { return l }
func (l *NopLogger) With(fields ...Field) Logger       { return l }
func (l *NopLogger) Debug(msg string, fields ...Field) {}
func (l *NopLogger) Info(msg string, fields ...Field)  {}
func (l *NopLogger) Warn(msg string, fields ...Field)  {}
func (l *NopLogger) Error(msg string, fields ...Field) {}
