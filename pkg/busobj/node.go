package busobj

import "context"

// NodeCallback is a raw callback registration (spec.md §3/§4.1): a handler
// invoked for any method call at its node, or at any descendant path when
// IsFallback is set.
type NodeCallback struct {
	node          *Node
	handler       MethodHandler
	userdata      any
	isFallback    bool
	lastIteration uint64
}

// NodeEnumerator reports the dynamic children of a prefix (spec.md §3/§4.9).
type NodeEnumerator struct {
	node     *Node
	callback func(ctx context.Context, prefix ObjectPath, userdata any) ([]ObjectPath, error)
	userdata any
}

// Node represents one object path in the tree (spec.md §3).
//
// A Node exists iff at least one of Callbacks/Vtables/Enumerators is
// non-empty, ObjectManagerCount > 0, or it still has child nodes; it is
// garbage-collected otherwise,
// recursively up to the root (Store.gc).
type Node struct {
	path   ObjectPath
	parent *Node
	// children is ordered by first-registration order, matching the
	// teacher-and-original convention of intrusive-list iteration order.
	children []*Node

	callbacks   []*NodeCallback
	vtables     []*NodeVtable
	enumerators []*NodeEnumerator

	// objectManagerCount is a refcount rather than a bare bool so that
	// nested AddObjectManager/RemoveObjectManager calls on the same node
	// nest safely (SPEC_FULL.md "Supplemented Features").
	objectManagerCount int
}

// Path returns the node's canonical object path.
func (n *Node) Path() ObjectPath { return n.path }

// HasObjectManager reports whether this node is marked as an
// org.freedesktop.DBus.ObjectManager root.
func (n *Node) HasObjectManager() bool { return n.objectManagerCount > 0 }

// Vtables returns the node's registered vtables in registration order.
func (n *Node) Vtables() []*NodeVtable { return n.vtables }

// Callbacks returns the node's raw callback registrations in registration
// order.
func (n *Node) Callbacks() []*NodeCallback { return n.callbacks }

// Children returns the node's statically-registered child nodes.
func (n *Node) Children() []*Node { return n.children }

// Enumerators returns the node's registered dynamic-child enumerators.
func (n *Node) Enumerators() []*NodeEnumerator { return n.enumerators }

// empty reports whether the node has no registrations left and should be
// garbage collected.
func (n *Node) empty() bool {
	return len(n.callbacks) == 0 && len(n.vtables) == 0 && len(n.enumerators) == 0 &&
		n.objectManagerCount == 0 && len(n.children) == 0
}
