package busobj

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// DispatchMetrics records dispatch and access-check outcomes. internal/metrics
// ships a Prometheus-backed implementation; NopMetrics is used when none is
// configured.
type DispatchMetrics interface {
	DispatchHandled(iface, member string)
	DispatchUnhandled(iface, member string)
	AccessDenied(iface, member string)
	SignalEmitted(kind string, ok bool)
}

// NopMetrics discards every recorded event.
type NopMetrics struct{}

func (NopMetrics) DispatchHandled(string, string)   {}
func (NopMetrics) DispatchUnhandled(string, string) {}
func (NopMetrics) AccessDenied(string, string)      {}
func (NopMetrics) SignalEmitted(string, bool)       {}

// Tracer wraps a single span around one ProcessObject call; signal
// emission is not traced. internal/telemetry ships an OpenTelemetry-backed
// implementation.
type Tracer interface {
	StartDispatchSpan(ctx context.Context, path ObjectPath, iface, member string) (context.Context, func(err error))
}

// NopTracer starts no spans.
type NopTracer struct{}

func (NopTracer) StartDispatchSpan(ctx context.Context, _ ObjectPath, _, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

// Engine is the object-tree dispatch engine: one instance per bus
// connection, coordinating the Node Store, access control, and the
// standard meta-interface handlers (spec.md §1, §4, §5).
//
// An Engine is not safe for concurrent use; it expects to run on a single
// dispatcher goroutine per spec.md §5's cooperative scheduling model.
type Engine struct {
	id           uuid.UUID
	store        *Store
	validator    NameValidator
	creds        CredentialsProvider
	introspector func() IntrospectionWriter
	signalOrigin Message

	trusted bool

	metrics DispatchMetrics
	tracer  Tracer
	logger  *slog.Logger

	nodesModified    bool
	iterationCounter uint64
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithTrustedBus marks every connection processed by this engine as
// trusted, bypassing capability/UID checks entirely (spec.md §4.3 step 1).
// Used for direct peer-to-peer connections with no bus daemon mediating.
func WithTrustedBus() EngineOption {
	return func(e *Engine) { e.trusted = true }
}

// WithMetrics attaches a DispatchMetrics sink.
func WithMetrics(m DispatchMetrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracer attaches a Tracer.
func WithTracer(t Tracer) EngineOption {
	return func(e *Engine) { e.tracer = t }
}

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine constructs an Engine backed by a fresh, empty Node Store.
func NewEngine(validator NameValidator, creds CredentialsProvider, introspector func() IntrospectionWriter, opts ...EngineOption) *Engine {
	e := &Engine{
		id:           uuid.New(),
		store:        NewStore(),
		validator:    validator,
		creds:        creds,
		introspector: introspector,
		metrics:      NopMetrics{},
		tracer:       NopTracer{},
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ID returns the engine instance's unique identifier, fixed at construction.
// The engine does not attach it to its own log lines or trace spans.
func (e *Engine) ID() uuid.UUID { return e.id }

// Store exposes the engine's Node Store for diagnostic inspection
// (e.g. the admin HTTP surface's tree dump endpoint).
func (e *Engine) Store() *Store { return e.store }

// SetSignalOrigin supplies the connection-scoped Message used solely to
// originate new signal messages (Message.NewSignal) for the emitter API
// (EmitPropertiesChanged and friends). It must be called once before any
// emitter is used; ProcessObject does not require it, since inbound
// messages already carry their own connection.
func (e *Engine) SetSignalOrigin(origin Message) { e.signalOrigin = origin }
