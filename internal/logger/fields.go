package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging around object-tree dispatch
// (spec.md §4.2-§4.8). Use these keys consistently across all log
// statements so downstream aggregation/querying can rely on them.
const (
	// ------------------------------------------------------------------
	// Distributed tracing
	// ------------------------------------------------------------------
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ------------------------------------------------------------------
	// Message addressing (spec.md §3, §4.2)
	// ------------------------------------------------------------------
	KeyObjectPath = "object_path" // D-Bus object path being dispatched
	KeyInterface  = "interface"   // D-Bus interface name
	KeyMember     = "member"      // Method/property/signal member name
	KeyBusName    = "bus_name"    // Sender's unique or well-known bus name
	KeySerial     = "serial"      // Message serial number
	KeyUID        = "uid"         // Sender's effective user ID

	// ------------------------------------------------------------------
	// Dispatch outcome (spec.md §4.2, §4.11)
	// ------------------------------------------------------------------
	KeyHandled     = "handled"      // Whether a handler produced a reply
	KeyFoundObject = "found_object" // Whether bus_node_exists matched
	KeyRestarts    = "restarts"     // Number of nodes_modified restarts observed
	KeyFallback    = "fallback"     // Whether the match came from a fallback prefix

	// ------------------------------------------------------------------
	// Access control (spec.md §4.3)
	// ------------------------------------------------------------------
	KeyCapability     = "capability"      // Required Linux capability number
	KeyKernelMediated = "kernel_mediated" // Whether creds came from a kernel-mediated transport
	KeyTrusted        = "trusted"         // Whether the bus connection is marked trusted

	// ------------------------------------------------------------------
	// Signal emission (spec.md §4.8)
	// ------------------------------------------------------------------
	KeySignalKind      = "signal_kind"      // PropertiesChanged, InterfacesAdded, InterfacesRemoved
	KeyChangedCount    = "changed_count"    // Number of properties emitted with a value
	KeyInvalidatedCount = "invalidated_count" // Number of properties emitted by name only

	// ------------------------------------------------------------------
	// Registration (spec.md §4.1)
	// ------------------------------------------------------------------
	KeyVtableCount = "vtable_count"
	KeyChildCount  = "child_count"

	// ------------------------------------------------------------------
	// Operation metadata
	// ------------------------------------------------------------------
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Wire error name (spec.md §6)
	KeyOperation  = "operation"   // Sub-operation label
)

// ----------------------------------------------------------------------
// Field constructors: type-safe slog.Attr builders
// ----------------------------------------------------------------------

// TraceID returns a slog.Attr for the OpenTelemetry trace ID.
func TraceID(id string) slog.Attr { return slog.String(KeyTraceID, id) }

// SpanID returns a slog.Attr for the OpenTelemetry span ID.
func SpanID(id string) slog.Attr { return slog.String(KeySpanID, id) }

// ObjectPath returns a slog.Attr for the D-Bus object path being dispatched.
func ObjectPath(path string) slog.Attr { return slog.String(KeyObjectPath, path) }

// Interface returns a slog.Attr for the D-Bus interface name.
func Interface(iface string) slog.Attr { return slog.String(KeyInterface, iface) }

// Member returns a slog.Attr for the method/property/signal member name.
func Member(member string) slog.Attr { return slog.String(KeyMember, member) }

// BusName returns a slog.Attr for the sender's bus name.
func BusName(name string) slog.Attr { return slog.String(KeyBusName, name) }

// Serial returns a slog.Attr for the message serial number.
func Serial(serial uint32) slog.Attr { return slog.Uint64(KeySerial, uint64(serial)) }

// UID returns a slog.Attr for the sender's effective user ID.
func UID(uid uint32) slog.Attr { return slog.Uint64(KeyUID, uint64(uid)) }

// Handled returns a slog.Attr for whether a handler produced a reply.
func Handled(handled bool) slog.Attr { return slog.Bool(KeyHandled, handled) }

// FoundObject returns a slog.Attr for whether bus_node_exists matched.
func FoundObject(found bool) slog.Attr { return slog.Bool(KeyFoundObject, found) }

// Restarts returns a slog.Attr for the number of nodes_modified restarts
// observed during one ProcessObject call.
func Restarts(n int) slog.Attr { return slog.Int(KeyRestarts, n) }

// Fallback returns a slog.Attr for whether the match came from an ascending
// fallback-prefix scan rather than an exact path match.
func Fallback(fallback bool) slog.Attr { return slog.Bool(KeyFallback, fallback) }

// Capability returns a slog.Attr for the required Linux capability number
// resolved by the access check (spec.md §4.3 step 4).
func Capability(cap uint32) slog.Attr { return slog.Uint64(KeyCapability, uint64(cap)) }

// KernelMediated returns a slog.Attr for whether the transport resolved
// credentials atomically (spec.md §4.3 step 3).
func KernelMediated(kernel bool) slog.Attr { return slog.Bool(KeyKernelMediated, kernel) }

// Trusted returns a slog.Attr for whether the bus connection bypasses
// access control entirely (spec.md §4.3 step 1).
func Trusted(trusted bool) slog.Attr { return slog.Bool(KeyTrusted, trusted) }

// SignalKind returns a slog.Attr naming which signal emitter ran
// (PropertiesChanged, InterfacesAdded, InterfacesRemoved).
func SignalKind(kind string) slog.Attr { return slog.String(KeySignalKind, kind) }

// ChangedCount returns a slog.Attr for the number of properties emitted
// with a value in a PropertiesChanged signal.
func ChangedCount(n int) slog.Attr { return slog.Int(KeyChangedCount, n) }

// InvalidatedCount returns a slog.Attr for the number of properties
// emitted by name only in a PropertiesChanged signal.
func InvalidatedCount(n int) slog.Attr { return slog.Int(KeyInvalidatedCount, n) }

// VtableCount returns a slog.Attr for the number of vtables registered
// at a node.
func VtableCount(n int) slog.Attr { return slog.Int(KeyVtableCount, n) }

// ChildCount returns a slog.Attr for the number of child paths resolved
// by the enumerator walker (spec.md §4.9).
func ChildCount(n int) slog.Attr { return slog.Int(KeyChildCount, n) }

// DurationMs returns a slog.Attr for an operation's duration in
// milliseconds.
func DurationMs(ms float64) slog.Attr { return slog.Float64(KeyDurationMs, ms) }

// Err returns a slog.Attr for an error, or an empty Attr for nil.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for a wire error name (spec.md §6).
func ErrorCode(name string) slog.Attr { return slog.String(KeyErrorCode, name) }

// Operation returns a slog.Attr for a sub-operation label.
func Operation(op string) slog.Attr { return slog.String(KeyOperation, op) }

// HandleHex formats an opaque byte handle as a hex string under a custom
// key, for collaborators that still carry opaque connection handles
// (e.g. a kernel credentials socket descriptor) into structured logs.
func HandleHex(key string, h []byte) slog.Attr {
	return slog.String(key, fmt.Sprintf("%x", h))
}
