package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapLogger struct {
	logger *zap.Logger
}

// NewZapLogger builds a JSON logger for "production"/"prod" and a
// colourised console logger for anything else.
func NewZapLogger(env string) (Logger, error) {
	var cfg zap.Config
	if env == "production" || env == "prod" {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{logger: zl}, nil
}

// NewFromZap wraps an existing zap logger (zaptest/observer in tests).
func NewFromZap(zl *zap.Logger) Logger {
	return &ZapLogger{logger: zl}
}

func (l *ZapLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, convertFields(fields)...) }
func (l *ZapLogger) Info(msg string, fields ...Field)  { l.logger.Info(msg, convertFields(fields)...) }
func (l *ZapLogger) Warn(msg string, fields ...Field)  { l.logger.Warn(msg, convertFields(fields)...) }
func (l *ZapLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, convertFields(fields)...) }

func (l *ZapLogger) WithContext(ctx context.Context) Logger {
	if id := requestID(ctx); id != "" {
		return &ZapLogger{logger: l.logger.With(zap.String("request_id", id))}
	}
	return l
}

func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{logger: l.logger.With(convertFields(fields)...)}
}

func (l *ZapLogger) Sync() error { return l.logger.Sync() }

func convertFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			out = append(out, zap.String(f.Key, v))
		case int:
			out = append(out, zap.Int(f.Key, v))
		case int64:
			out = append(out, zap.Int64(f.Key, v))
		case bool:
			out = append(out, zap.Bool(f.Key, v))
		case error:
			out = append(out, zap.Error(v))
		default:
			out = append(out, zap.Any(f.Key, v))
		}
	}
	return out
}
