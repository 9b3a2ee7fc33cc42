package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "dispatch-console"

// Log field names for values carried on a context.
const (
	FieldSessionID      = "sessionId"
	FieldNotificationID = "notificationId"
	FieldTrigger        = "trigger"
)

type contextKey int

const (
	sessionIDKey contextKey = iota
	notificationIDKey
	triggerKey
)

// contextFields fixes the order in which context values are attached to log entries.
var contextFields = []struct {
	key  contextKey
	name string
}{
	{key: sessionIDKey, name: FieldSessionID},
	{key: notificationIDKey, name: FieldNotificationID},
	{key: triggerKey, name: FieldTrigger},
}

func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true
	cfg.InitialFields = map[string]interface{}{"service": ServiceName}

	logger, err := cfg.Build(zap.AddCaller())
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var parsed zapcore.Level
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}

	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// WithSessionID tags ctx with the console session that issued the request.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return withValue(ctx, sessionIDKey, sessionID)
}

// WithNotificationID tags ctx with the notification an operation acts on.
func WithNotificationID(ctx context.Context, id string) context.Context {
	return withValue(ctx, notificationIDKey, id)
}

// WithTrigger tags ctx with what caused a list load (initial, timer, filter, ...).
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return withValue(ctx, triggerKey, trigger)
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, sessionIDKey)
}

func NotificationIDFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, notificationIDKey)
}

func TriggerFromContext(ctx context.Context) (string, bool) {
	return valueFrom(ctx, triggerKey)
}

// ContextFields returns the log fields for every value tagged on ctx.
func ContextFields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	for _, f := range contextFields {
		if v, ok := valueFrom(ctx, f.key); ok {
			fields = append(fields, zap.String(f.name, v))
		}
	}
	return fields
}

func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

func withValue(ctx context.Context, key contextKey, value string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, value)
}

func valueFrom(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}

	value, ok := ctx.Value(key).(string)
	if !ok || value == "" {
		return "", false
	}

	return value, true
}
