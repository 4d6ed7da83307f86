package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for object-tree dispatch spans.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Message addressing (spec.md §3, §4.2)
	// ========================================================================
	AttrObjectPath = "dbus.object_path"
	AttrInterface  = "dbus.interface"
	AttrMember     = "dbus.member"
	AttrBusName    = "dbus.bus_name"
	AttrSerial     = "dbus.serial"
	AttrMessageType = "dbus.message_type"
	AttrSignature  = "dbus.signature"

	// ========================================================================
	// Dispatch outcome (spec.md §4.2, §4.11)
	// ========================================================================
	AttrHandled     = "dispatch.handled"
	AttrFoundObject = "dispatch.found_object"
	AttrRestarts    = "dispatch.restarts"
	AttrFallback    = "dispatch.fallback"
	AttrErrorName   = "dispatch.error_name"

	// ========================================================================
	// Access control (spec.md §4.3)
	// ========================================================================
	AttrCapability     = "access.capability"
	AttrKernelMediated = "access.kernel_mediated"
	AttrTrusted        = "access.trusted"
	AttrUID            = "access.uid"

	// ========================================================================
	// Signal emission (spec.md §4.8)
	// ========================================================================
	AttrSignalKind       = "signal.kind"
	AttrChangedCount     = "signal.changed_count"
	AttrInvalidatedCount = "signal.invalidated_count"

	// ========================================================================
	// Registration (spec.md §4.1, §5)
	// ========================================================================
	AttrVtableCount = "registry.vtable_count"
	AttrChildCount  = "registry.child_count"
)

// Span names for dispatch operations.
// Format: <component>.<operation>
const (
	// Root span for one message dispatched through the object tree.
	SpanDispatch = "dispatch.process_object"

	SpanAccessCheck      = "dispatch.access_check"
	SpanObjectFind        = "dispatch.object_find"
	SpanPropertiesGet     = "dispatch.properties.get"
	SpanPropertiesSet     = "dispatch.properties.set"
	SpanPropertiesGetAll  = "dispatch.properties.get_all"
	SpanIntrospect        = "dispatch.introspectable.introspect"
	SpanObjectManagerList = "dispatch.object_manager.get_managed_objects"
	SpanEnumerate         = "dispatch.enumerate"

	SpanEmitPropertiesChanged = "signal.properties_changed"
	SpanEmitInterfacesAdded   = "signal.interfaces_added"
	SpanEmitInterfacesRemoved = "signal.interfaces_removed"

	SpanRegisterObject   = "registry.register_object"
	SpanUnregisterObject = "registry.unregister_object"
)

// ObjectPath returns an attribute for the object path being dispatched.
func ObjectPath(path string) attribute.KeyValue {
	return attribute.String(AttrObjectPath, path)
}

// Interface returns an attribute for the interface name involved in a call.
func Interface(iface string) attribute.KeyValue {
	return attribute.String(AttrInterface, iface)
}

// Member returns an attribute for the method/property/signal member name.
func Member(member string) attribute.KeyValue {
	return attribute.String(AttrMember, member)
}

// BusName returns an attribute for the sender's bus name.
func BusName(name string) attribute.KeyValue {
	return attribute.String(AttrBusName, name)
}

// Serial returns an attribute for the message serial number.
func Serial(serial uint32) attribute.KeyValue {
	return attribute.Int64(AttrSerial, int64(serial))
}

// Handled returns an attribute for whether a handler produced a reply.
func Handled(handled bool) attribute.KeyValue {
	return attribute.Bool(AttrHandled, handled)
}

// FoundObject returns an attribute for whether bus_node_exists matched.
func FoundObject(found bool) attribute.KeyValue {
	return attribute.Bool(AttrFoundObject, found)
}

// Restarts returns an attribute for the number of nodes_modified restarts
// observed while processing one message.
func Restarts(n int) attribute.KeyValue {
	return attribute.Int(AttrRestarts, n)
}

// Fallback returns an attribute for whether the match came from an
// ascending fallback-prefix scan.
func Fallback(fallback bool) attribute.KeyValue {
	return attribute.Bool(AttrFallback, fallback)
}

// ErrorName returns an attribute for the wire error name of a failed call.
func ErrorName(name string) attribute.KeyValue {
	return attribute.String(AttrErrorName, name)
}

// Capability returns an attribute for the Linux capability number resolved
// by the access check.
func Capability(cap uint32) attribute.KeyValue {
	return attribute.Int64(AttrCapability, int64(cap))
}

// KernelMediated returns an attribute for whether sender credentials came
// from a kernel-mediated transport.
func KernelMediated(kernel bool) attribute.KeyValue {
	return attribute.Bool(AttrKernelMediated, kernel)
}

// Trusted returns an attribute for whether the connection bypasses access
// control.
func Trusted(trusted bool) attribute.KeyValue {
	return attribute.Bool(AttrTrusted, trusted)
}

// UID returns an attribute for the sender's effective user ID.
func UID(uid uint32) attribute.KeyValue {
	return attribute.Int64(AttrUID, int64(uid))
}

// SignalKind returns an attribute naming which signal emitter ran.
func SignalKind(kind string) attribute.KeyValue {
	return attribute.String(AttrSignalKind, kind)
}

// ChangedCount returns an attribute for the number of properties emitted
// with a value in a PropertiesChanged signal.
func ChangedCount(n int) attribute.KeyValue {
	return attribute.Int(AttrChangedCount, n)
}

// InvalidatedCount returns an attribute for the number of properties
// emitted by name only in a PropertiesChanged signal.
func InvalidatedCount(n int) attribute.KeyValue {
	return attribute.Int(AttrInvalidatedCount, n)
}

// VtableCount returns an attribute for the number of vtables registered at
// a node.
func VtableCount(n int) attribute.KeyValue {
	return attribute.Int(AttrVtableCount, n)
}

// ChildCount returns an attribute for the number of child paths resolved by
// the enumerator walker.
func ChildCount(n int) attribute.KeyValue {
	return attribute.Int(AttrChildCount, n)
}

// HandleHex formats an opaque byte handle as a hex-string attribute, for
// collaborators that carry opaque connection handles into spans (e.g. a
// kernel credentials socket descriptor).
func HandleHex(key string, h []byte) attribute.KeyValue {
	return attribute.String(key, fmt.Sprintf("%x", h))
}

// StartDispatchSpan starts the root span for one message processed through
// the object tree, pre-populated with its addressing attributes.
func StartDispatchSpan(ctx context.Context, objectPath, iface, member string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ObjectPath(objectPath),
		Interface(iface),
		Member(member),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanDispatch, trace.WithAttributes(allAttrs...))
}

// StartSignalSpan starts a span for a signal emitter.
func StartSignalSpan(ctx context.Context, name string, objectPath, iface string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ObjectPath(objectPath),
		Interface(iface),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}

// StartRegistrySpan starts a span for a vtable registration/unregistration
// operation.
func StartRegistrySpan(ctx context.Context, name string, objectPath string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ObjectPath(objectPath),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
