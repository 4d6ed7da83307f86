package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context
type LogContext struct {
	TraceID    string    // OpenTelemetry trace ID
	SpanID     string    // OpenTelemetry span ID
	ObjectPath string    // D-Bus object path being dispatched
	Interface  string    // D-Bus interface name
	Member     string    // Method/property/signal member name
	BusName    string    // Sender's unique or well-known bus name
	UID        uint32    // Sender's effective user ID
	Serial     uint32    // Message serial number
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a freshly dispatched message
func NewLogContext(busName string) *LogContext {
	return &LogContext{
		BusName:   busName,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:    lc.TraceID,
		SpanID:     lc.SpanID,
		ObjectPath: lc.ObjectPath,
		Interface:  lc.Interface,
		Member:     lc.Member,
		BusName:    lc.BusName,
		UID:        lc.UID,
		Serial:     lc.Serial,
		StartTime:  lc.StartTime,
	}
}

// WithMember returns a copy with the interface and member set
func (lc *LogContext) WithMember(iface, member string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Interface = iface
		clone.Member = member
	}
	return clone
}

// WithObjectPath returns a copy with the object path set
func (lc *LogContext) WithObjectPath(path string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ObjectPath = path
	}
	return clone
}

// WithSender returns a copy with the sender's bus name, UID, and serial set
func (lc *LogContext) WithSender(busName string, uid, serial uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.BusName = busName
		clone.UID = uid
		clone.Serial = serial
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
