package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	"csv-rag-service/internal/config"
)

var Logger *slog.Logger

type requestIDKey struct{}

// InitLogger writes JSON records to stdout, tagged with the service name.
// Debug mode lowers the level and records call sites.
func InitLogger(cfg *config.Config) {
	initWith(os.Stdout, cfg.GinMode, cfg.ServiceName)
}

func initWith(w io.Writer, mode, service string) {
	level := slog.LevelInfo
	if mode == "debug" {
		level = slog.LevelDebug
	}

	var h slog.Handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: mode == "debug",
	})
	h = requestHandler{h}
	if service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", service)})
	}

	Logger = slog.New(h)
	Logger.Debug("Logger ready", "level", level.String(), "gin_mode", mode)
}

// WithRequestID returns a copy of ctx whose log records carry request_id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestHandler adds the request id found in the record's context.
type requestHandler struct {
	slog.Handler
}

func (h requestHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := RequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h requestHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return requestHandler{h.Handler.WithAttrs(attrs)}
}

func (h requestHandler) WithGroup(name string) slog.Handler {
	return requestHandler{h.Handler.WithGroup(name)}
}

func Info(msg string, args ...any)  { InfoContext(context.Background(), msg, args...) }
func Warn(msg string, args ...any)  { WarnContext(context.Background(), msg, args...) }
func Error(msg string, args ...any) { ErrorContext(context.Background(), msg, args...) }
func Debug(msg string, args ...any) { DebugContext(context.Background(), msg, args...) }

// InfoContext logs at info level, tagged with the request id in ctx.
func InfoContext(ctx context.Context, msg string, args ...any) {
	if Logger != nil {
		Logger.InfoContext(ctx, msg, args...)
	}
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	if Logger != nil {
		Logger.WarnContext(ctx, msg, args...)
	}
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	if Logger != nil {
		Logger.ErrorContext(ctx, msg, args...)
	}
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	if Logger != nil {
		Logger.DebugContext(ctx, msg, args...)
	}
}
