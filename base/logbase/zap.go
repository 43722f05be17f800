package logbase

import (
	"context"
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapHandler forwards slog records to a zap core so that packages written
// against log/slog share the process logger built in main.
type zapHandler struct {
	core  zapcore.Core
	attrs []slog.Attr
}

func NewZapHandler(log *zap.Logger) slog.Handler {
	return &zapHandler{core: log.Core()}
}

func zapLevel(l slog.Level) zapcore.Level {
	switch {
	case l < slog.LevelInfo:
		return zapcore.DebugLevel
	case l < slog.LevelWarn:
		return zapcore.InfoLevel
	case l < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapField(a slog.Attr) zap.Field {
	switch a.Value.Kind() {
	case slog.KindBool:
		return zap.Bool(a.Key, a.Value.Bool())
	case slog.KindDuration:
		return zap.Duration(a.Key, a.Value.Duration())
	case slog.KindFloat64:
		return zap.Float64(a.Key, a.Value.Float64())
	case slog.KindInt64:
		return zap.Int64(a.Key, a.Value.Int64())
	case slog.KindString:
		return zap.String(a.Key, a.Value.String())
	case slog.KindTime:
		return zap.Time(a.Key, a.Value.Time())
	case slog.KindUint64:
		return zap.Uint64(a.Key, a.Value.Uint64())
	default:
		return zap.Any(a.Key, a.Value.Any())
	}
}

func (h *zapHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.core.Enabled(zapLevel(l))
}

func (h *zapHandler) Handle(_ context.Context, r slog.Record) error {
	e := zapcore.Entry{
		Level:   zapLevel(r.Level),
		Time:    r.Time,
		Message: r.Message,
	}
	ce := h.core.Check(e, nil)
	if ce == nil {
		return nil
	}
	fields := make([]zap.Field, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, zapField(a))
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, zapField(a))
		return true
	})
	ce.Write(fields...)
	return nil
}

func (h *zapHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	n := &zapHandler{core: h.core}
	n.attrs = append(append(n.attrs, h.attrs...), attrs...)
	return n
}

func (h *zapHandler) WithGroup(name string) slog.Handler {
	_ = name
	return h
}
