package logger

import (
	"math"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

const maxErrorDepth = 5

// tagKeys are fields promoted to Sentry tags so events can be searched by them.
var tagKeys = map[string]bool{
	"request_id": true,
	"backend":    true,
	"path":       true,
	"method":     true,
}

// sentryCore implements zapcore.Core to send error-level entries to Sentry.
type sentryCore struct {
	zapcore.LevelEnabler
	hub    *sentry.Hub
	fields []zapcore.Field
}

func newSentryCore(level zapcore.Level, hub *sentry.Hub) *sentryCore {
	return &sentryCore{LevelEnabler: level, hub: hub}
}

func (c *sentryCore) With(fields []zapcore.Field) zapcore.Core {
	merged := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	merged = append(merged, fields...)
	return &sentryCore{LevelEnabler: c.LevelEnabler, hub: c.hub, fields: merged}
}

func (c *sentryCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level >= zapcore.ErrorLevel {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *sentryCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	all := make([]zapcore.Field, 0, len(c.fields)+len(fields))
	all = append(all, c.fields...)
	all = append(all, fields...)

	c.hub.CaptureEvent(buildEvent(entry, all))
	return nil
}

func (c *sentryCore) Sync() error {
	c.hub.Flush(flushTimeout)
	return nil
}

// buildEvent turns a log entry into a Sentry event. The first error field
// becomes the exception; tag fields become tags; everything else is extra.
func buildEvent(entry zapcore.Entry, fields []zapcore.Field) *sentry.Event {
	event := sentry.NewEvent()
	event.Level = zapLevelToSentry(entry.Level)
	event.Message = entry.Message
	event.Logger = entry.LoggerName
	event.Timestamp = entry.Time

	extra := fieldsToMap(fields)
	for _, f := range fields {
		if f.Type == zapcore.ErrorType && len(event.Exception) == 0 {
			if err, ok := f.Interface.(error); ok {
				event.SetException(err, maxErrorDepth)
			}
		}
		if tagKeys[f.Key] {
			if v, ok := extra[f.Key].(string); ok && v != "" {
				event.Tags[f.Key] = v
				delete(extra, f.Key)
			}
		}
	}
	event.Extra = extra

	return event
}

// zapLevelToSentry converts zap level to Sentry level.
func zapLevelToSentry(level zapcore.Level) sentry.Level {
	switch level {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}

// fieldsToMap converts zap fields to a map for Sentry extra data.
func fieldsToMap(fields []zapcore.Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		switch f.Type {
		case zapcore.StringType:
			m[f.Key] = f.String
		case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
			m[f.Key] = f.Integer
		case zapcore.Float64Type:
			m[f.Key] = math.Float64frombits(uint64(f.Integer))
		case zapcore.Float32Type:
			m[f.Key] = float64(math.Float32frombits(uint32(f.Integer)))
		case zapcore.BoolType:
			m[f.Key] = f.Integer == 1
		case zapcore.DurationType:
			m[f.Key] = time.Duration(f.Integer).String()
		case zapcore.ErrorType:
			if err, ok := f.Interface.(error); ok {
				m[f.Key] = err.Error()
			}
		default:
			if f.Interface != nil {
				m[f.Key] = f.Interface
			}
		}
	}

	return m
}
