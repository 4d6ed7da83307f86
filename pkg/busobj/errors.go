package busobj

import (
	"errors"
	"fmt"
)

// Wire error names returned by the engine (spec.md §6, "Error names
// returned on the wire").
const (
	ErrNameInvalidArgs        = "org.freedesktop.DBus.Error.InvalidArgs"
	ErrNameAccessDenied       = "org.freedesktop.DBus.Error.AccessDenied"
	ErrNamePropertyReadOnly   = "org.freedesktop.DBus.Error.PropertyReadOnly"
	ErrNameUnknownInterface   = "org.freedesktop.DBus.Error.UnknownInterface"
	ErrNameUnknownMethod      = "org.freedesktop.DBus.Error.UnknownMethod"
	ErrNameUnknownProperty    = "org.freedesktop.DBus.Error.UnknownProperty"
	ErrNameUnknownObject      = "org.freedesktop.DBus.Error.UnknownObject"
	ErrNameFailed             = "org.freedesktop.DBus.Error.Failed"
)

// ProtocolError is a user-facing protocol error: it is reported to the peer
// as a method-error reply carrying Name, never surfaced as a Go error from
// ProcessObject itself (spec.md §7, "User-facing protocol errors").
type ProtocolError struct {
	Name    string
	Message string
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func protoErr(name, format string, args ...any) *ProtocolError {
	return &ProtocolError{Name: name, Message: fmt.Sprintf(format, args...)}
}

// ValidationError is returned by registration calls (AddObjectVtable and
// friends) when structural validation fails (spec.md §7,
// "Argument/validation errors"). No wire reply is involved.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return "invalid argument: " + e.Reason }

func validationErr(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// ResourceError signals resource exhaustion (spec.md §7, "Resource
// exhaustion"). No code path in this package constructs it; a duplicate
// vtable registration returns ErrDuplicateVtable.
type ResourceError struct {
	Reason string
}

func (e *ResourceError) Error() string { return "resource error: " + e.Reason }

// Programmer errors (spec.md §7): returned as distinct sentinel values from
// emitters, never translated to a wire reply.
var (
	// ErrPropertyNotChangeNotifying is returned by EmitPropertiesChanged
	// when a named property lacks FlagPropertyEmitsChange (spec.md §4.8,
	// "A property named in names that lacks EMITS_CHANGE is a programmer
	// error").
	ErrPropertyNotChangeNotifying = errors.New("busobj: property does not emit PropertiesChanged")

	// ErrNoMatchingVtable is returned by the signal emitters when no vtable
	// anywhere in the prefix walk resolved for the requested interface
	// (spec.md §4.8/§9, "ENOENT").
	ErrNoMatchingVtable = errors.New("busobj: no vtable resolved for interface")

	// ErrDuplicateVtable is returned by AddObjectVtable/AddFallbackVtable
	// when the exact same vtable pointer is already registered on the node
	// (spec.md §4.1, "Duplicate registration ... returns a distinct
	// error").
	ErrDuplicateVtable = errors.New("busobj: vtable already registered")

	// ErrReservedInterface is returned when a caller attempts to register
	// a vtable for one of the four reserved interfaces.
	ErrReservedInterface = errors.New("busobj: interface is reserved")

	// ErrMixedFallback is returned when a fallback and non-fallback
	// vtable are both attempted on the same node.
	ErrMixedFallback = errors.New("busobj: cannot mix fallback and non-fallback vtables on one node")

	// ErrNotFound names a missing registration. The removal calls report
	// a miss by returning false and do not return this error.
	ErrNotFound = errors.New("busobj: no matching registration")
)
