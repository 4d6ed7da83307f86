package busobj

import "context"

// VtableFlags packs the per-member flag bits described in spec.md §3.
//
// Bits 0-4 are boolean flags. Bits 16-31 carry the capability tag: zero
// means "inherit from the interface's START entry (or CAP_SYS_ADMIN if that
// is also zero)"; otherwise the tag is the capability number plus one. This
// encoding is preserved exactly so vtable producers built against the C ABI
// (spec.md §9, "Capability tag encoding") can hand-construct the same bit
// pattern.
type VtableFlags uint32

const (
	// FlagHidden excludes a method/property/signal from introspection and
	// from GetAll/GetManagedObjects enumeration.
	FlagHidden VtableFlags = 1 << iota
	// FlagUnprivileged skips the capability/UID access check entirely.
	FlagUnprivileged
	// FlagMethodNoReply marks a method as not expecting a reply.
	FlagMethodNoReply
	// FlagPropertyEmitsChange marks a property as eligible for
	// PropertiesChanged with its value included.
	FlagPropertyEmitsChange
	// FlagPropertyInvalidateOnly marks a property as eligible for
	// PropertiesChanged by name only (no value sent). Requires
	// FlagPropertyEmitsChange.
	FlagPropertyInvalidateOnly
)

const capabilityShift = 16

// CapabilityTag extracts the packed capability tag (0 = inherit).
func (f VtableFlags) CapabilityTag() uint16 {
	return uint16(f >> capabilityShift)
}

// WithCapabilityTag returns a copy of f with its capability tag set to
// capNumber+1 packed into the high 16 bits.
func WithCapabilityTag(f VtableFlags, capNumber Capability) VtableFlags {
	tag := VtableFlags(uint32(capNumber)+1) << capabilityShift
	return (f &^ (VtableFlags(0xFFFF) << capabilityShift)) | tag
}

func (f VtableFlags) has(bit VtableFlags) bool { return f&bit != 0 }

// Capability identifies an effective Linux capability by its kernel number
// (see capabilities(7)). CapSysAdmin is the engine's fallback default per
// spec.md §4.3 step 4.
type Capability uint32

// CapSysAdmin is CAP_SYS_ADMIN (21 on Linux), the default required
// capability when neither a member nor its interface specifies one.
const CapSysAdmin Capability = 21

// VtableEntryKind tags the variant carried by a VtableEntry.
type VtableEntryKind int

const (
	EntryStart VtableEntryKind = iota
	EntryMethod
	EntryProperty
	EntryWritableProperty
	EntrySignal
	EntryEnd
)

// MethodHandler implements a METHOD vtable entry. ctx carries cancellation
// and tracing; msg is the inbound method call; userdata is whatever the
// registrar (or a vtable Find resolver) supplied.
//
// Return convention (spec.md §4.11): an error aborts dispatch and is
// translated to a method-error reply by the engine; (false, nil) means "not
// handled, try next"; (true, nil) means "handled".
type MethodHandler func(ctx context.Context, msg Message, userdata any) (handled bool, err error)

// PropertyGetter reads a property's current value and appends it (as the
// already-open VARIANT body) into reply.
type PropertyGetter func(ctx context.Context, reply Message, userdata any) error

// PropertySetter consumes a property's new value from the already-entered
// VARIANT body of msg.
type PropertySetter func(ctx context.Context, msg Message, userdata any) error

// VtableEntry is one element of a Vtable. Exactly one of the kind-specific
// field groups is populated, selected by Kind.
type VtableEntry struct {
	Kind VtableEntryKind

	// START
	ElementSize int

	// METHOD
	Member          string
	InSignature     string
	ResultSignature string
	Handler         MethodHandler

	// PROPERTY / WRITABLE_PROPERTY (Member reused)
	Signature string
	Getter    PropertyGetter
	Setter    PropertySetter

	Flags VtableFlags
}

// Vtable is the ordered array describing one interface's methods,
// properties, and signals at one object (or fallback prefix).
type Vtable []VtableEntry

// VtableFinder resolves the concrete userdata for a fallback vtable at a
// specific object path, enabling one vtable registration to fan out over
// many objects (spec.md §3, NodeVtable.find).
//
// Returning (nil, false, nil) means "this vtable does not cover path";
// the engine continues the ascending prefix scan. Returning a non-nil err
// aborts dispatch with a transport-level failure (spec.md §9,
// "Supplemented Features").
type VtableFinder func(ctx context.Context, path ObjectPath, userdata any) (resolved any, ok bool, err error)

// NodeVtable is one vtable registration, owned by a Node.
type NodeVtable struct {
	node       *Node
	iface      string
	entries    Vtable
	userdata   any
	isFallback bool
	find       VtableFinder
}

// Interface returns the D-Bus interface name this vtable implements.
func (v *NodeVtable) Interface() string { return v.iface }

// IsFallback reports whether this vtable matches descendant paths.
func (v *NodeVtable) IsFallback() bool { return v.isFallback }

// Entries returns the vtable's entries in registration order.
func (v *NodeVtable) Entries() Vtable { return v.entries }

// resolve applies the Find resolver (if any) to obtain concrete userdata
// for path. A vtable with no Find resolver always resolves to its static
// userdata.
func (v *NodeVtable) resolve(ctx context.Context, path ObjectPath) (any, bool, error) {
	if v.find == nil {
		return v.userdata, true, nil
	}
	return v.find(ctx, path, v.userdata)
}

// startFlags returns the flags carried on this vtable's START entry, used
// as the interface-level capability default (spec.md §4.3 step 4).
func (v *NodeVtable) startFlags() VtableFlags {
	if len(v.entries) == 0 {
		return 0
	}
	return v.entries[0].Flags
}
