package logger

import "context"

// Logger is the logging surface the rest of the dashboard depends on.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// WithContext attaches request-scoped fields (request id) when present.
	WithContext(ctx context.Context) Logger
	WithFields(fields ...Field) Logger

	Sync() error
}

type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field { return Field{Key: key, Value: value} }

func Int(key string, value int) Field { return Field{Key: key, Value: value} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value} }

func Error(err error) Field { return Field{Key: "error", Value: err} }

func Any(key string, value any) Field { return Field{Key: key, Value: value} }

type ctxKey struct{}

// ContextWithRequestID stores the request id so WithContext can pick it up.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Nop discards everything. Used by tests and as a fallback.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field)               {}
func (nopLogger) Info(string, ...Field)                {}
func (nopLogger) Warn(string, ...Field)                {}
func (nopLogger) Error(string, ...Field)               {}
func (n nopLogger) WithContext(context.Context) Logger { return n }
func (n nopLogger) WithFields(...Field) Logger         { return n }
func (nopLogger) Sync() error                          { return nil }
