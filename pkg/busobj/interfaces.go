package busobj

// The four standard D-Bus meta-interfaces the engine implements itself.
// add_object_vtable/add_fallback_vtable reject registration attempts for
// these names (spec.md §4.1, §6 "Validation constraints").
const (
	IfaceProperties     = "org.freedesktop.DBus.Properties"
	IfaceIntrospectable = "org.freedesktop.DBus.Introspectable"
	IfacePeer           = "org.freedesktop.DBus.Peer"
	IfaceObjectManager  = "org.freedesktop.DBus.ObjectManager"
)

var reservedInterfaces = map[string]bool{
	IfaceProperties:     true,
	IfaceIntrospectable: true,
	IfacePeer:           true,
	IfaceObjectManager:  true,
}

// IsReservedInterface reports whether iface is one of the four interfaces
// the engine implements itself and therefore rejects from user registration.
func IsReservedInterface(iface string) bool {
	return reservedInterfaces[iface]
}

// memberKey is the (path, interface, member) triple the method and
// property secondary indices are keyed on (spec.md §3, "VtableMember index
// key").
type memberKey struct {
	path  ObjectPath
	iface string
	name  string
}

// VtableMember is a secondary-index entry pointing back to the NodeVtable
// and specific entry it came from (spec.md §3). Like NodeCallback, it
// records lastIteration so a vtable METHOD handler or a Properties.Set
// cannot be invoked twice for the same dispatch when a restart revisits it
// (spec.md §3, §4.4 "Set must not execute twice").
type VtableMember struct {
	parent        *NodeVtable
	index         int // index into parent.entries
	lastIteration uint64
}

func (m *VtableMember) entry() *VtableEntry { return &m.parent.entries[m.index] }
