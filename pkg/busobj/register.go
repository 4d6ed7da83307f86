package busobj

import "context"

// AddObject appends a raw callback to the node at path, invoked for method
// calls addressed exactly to path (spec.md §4.1).
func (e *Engine) AddObject(path ObjectPath, handler MethodHandler, userdata any) error {
	return e.addCallback(path, handler, userdata, false)
}

// AddFallback appends a raw callback to the node at prefix, invoked for
// method calls addressed to prefix or any descendant path.
func (e *Engine) AddFallback(prefix ObjectPath, handler MethodHandler, userdata any) error {
	return e.addCallback(prefix, handler, userdata, true)
}

func (e *Engine) addCallback(path ObjectPath, handler MethodHandler, userdata any, fallback bool) error {
	if !e.validator.IsObjectPath(string(path)) {
		return validationErr("%q is not a valid object path", path)
	}
	n := e.store.nodeFor(path)
	n.callbacks = append(n.callbacks, &NodeCallback{
		node:       n,
		handler:    handler,
		userdata:   userdata,
		isFallback: fallback,
	})
	e.nodesModified = true
	return nil
}

// RemoveObject removes the first callback registered at path whose
// userdata and fallback flag match exactly, reporting whether anything was
// removed. The handler function is not compared.
func (e *Engine) RemoveObject(path ObjectPath, userdata any, fallback bool) bool {
	n, ok := e.store.Lookup(path)
	if !ok {
		return false
	}
	for i, cb := range n.callbacks {
		if cb.isFallback == fallback && sameUserdata(cb.userdata, userdata) {
			n.callbacks = append(n.callbacks[:i], n.callbacks[i+1:]...)
			e.store.gc(n)
			e.nodesModified = true
			return true
		}
	}
	return false
}

// RemoveFallback removes a fallback callback previously added with
// AddFallback.
func (e *Engine) RemoveFallback(prefix ObjectPath, userdata any) bool {
	return e.RemoveObject(prefix, userdata, true)
}

func sameUserdata(a, b any) bool {
	return a == b
}

// validateVtable enforces the structural rules of spec.md §4.1
// ("Vtable validation rules"). It is run once per registration.
func validateVtable(v NameValidator, entries Vtable) error {
	if len(entries) == 0 || entries[0].Kind != EntryStart {
		return validationErr("vtable must begin with a START entry")
	}
	for i, ent := range entries[1:] {
		idx := i + 1
		switch ent.Kind {
		case EntryMethod:
			if !v.IsMemberName(ent.Member) {
				return validationErr("entry %d: invalid method member name %q", idx, ent.Member)
			}
			if !v.IsSignatureValid(ent.InSignature) {
				return validationErr("entry %d: invalid input signature %q", idx, ent.InSignature)
			}
			if !v.IsSignatureValid(ent.ResultSignature) {
				return validationErr("entry %d: invalid result signature %q", idx, ent.ResultSignature)
			}
			if ent.Handler == nil && (ent.InSignature != "" || ent.ResultSignature != "") {
				return validationErr("entry %d: method %q has no handler but a non-empty signature", idx, ent.Member)
			}
			if ent.Flags.has(FlagPropertyEmitsChange) || ent.Flags.has(FlagPropertyInvalidateOnly) {
				return validationErr("entry %d: method %q may not set a property-change flag", idx, ent.Member)
			}
		case EntryProperty, EntryWritableProperty:
			if !v.IsMemberName(ent.Member) {
				return validationErr("entry %d: invalid property member name %q", idx, ent.Member)
			}
			if !v.IsSignatureSingle(ent.Signature) {
				return validationErr("entry %d: property %q signature %q is not a single complete type", idx, ent.Member, ent.Signature)
			}
			if ent.Getter == nil && !(v.IsBasicType(ent.Signature) || ent.Signature == "as") {
				return validationErr("entry %d: property %q has no custom getter and signature %q is not basic or \"as\"", idx, ent.Member, ent.Signature)
			}
			if ent.Kind == EntryWritableProperty && ent.Setter == nil && !v.IsBasicType(ent.Signature) {
				return validationErr("entry %d: writable property %q has no setter and a non-basic signature", idx, ent.Member)
			}
			if ent.Flags.has(FlagMethodNoReply) {
				return validationErr("entry %d: property %q may not set METHOD_NO_REPLY", idx, ent.Member)
			}
			if ent.Flags.has(FlagPropertyInvalidateOnly) && !ent.Flags.has(FlagPropertyEmitsChange) {
				return validationErr("entry %d: property %q sets INVALIDATE_ONLY without EMITS_CHANGE", idx, ent.Member)
			}
			if ent.Kind == EntryProperty && ent.Flags.has(FlagUnprivileged) {
				return validationErr("entry %d: read-only property %q may not be UNPRIVILEGED", idx, ent.Member)
			}
		case EntrySignal:
			if !v.IsMemberName(ent.Member) {
				return validationErr("entry %d: invalid signal member name %q", idx, ent.Member)
			}
			if !v.IsSignatureValid(ent.Signature) {
				return validationErr("entry %d: invalid signal signature %q", idx, ent.Signature)
			}
			if ent.Flags.has(FlagUnprivileged) {
				return validationErr("entry %d: signal %q may not set UNPRIVILEGED", idx, ent.Member)
			}
		case EntryEnd:
			// trailing marker, nothing to validate.
		default:
			return validationErr("entry %d: unknown vtable entry kind %d", idx, ent.Kind)
		}
	}
	return nil
}

// AddObjectVtable registers an exact (non-fallback) vtable for iface at
// path (spec.md §4.1).
func (e *Engine) AddObjectVtable(path ObjectPath, iface string, entries Vtable, userdata any) error {
	return e.addVtable(path, iface, entries, userdata, false, nil)
}

// AddFallbackVtable registers a fallback vtable for iface at prefix, with
// an optional Find resolver for per-path userdata fan-out (spec.md §3,
// §4.1).
func (e *Engine) AddFallbackVtable(prefix ObjectPath, iface string, entries Vtable, userdata any, find VtableFinder) error {
	return e.addVtable(prefix, iface, entries, userdata, true, find)
}

func (e *Engine) addVtable(path ObjectPath, iface string, entries Vtable, userdata any, fallback bool, find VtableFinder) error {
	if !e.validator.IsObjectPath(string(path)) {
		return validationErr("%q is not a valid object path", path)
	}
	if !e.validator.IsInterfaceName(iface) {
		return validationErr("%q is not a valid interface name", iface)
	}
	if IsReservedInterface(iface) {
		return ErrReservedInterface
	}
	if err := validateVtable(e.validator, entries); err != nil {
		return err
	}

	n := e.store.nodeFor(path)
	for _, existing := range n.vtables {
		if existing.isFallback != fallback {
			return ErrMixedFallback
		}
		if sameVtablePointer(existing.entries, entries) {
			return ErrDuplicateVtable
		}
	}

	nv := &NodeVtable{
		node:       n,
		iface:      iface,
		entries:    entries,
		userdata:   userdata,
		isFallback: fallback,
		find:       find,
	}
	insertVtable(n, nv)

	for i, ent := range entries {
		switch ent.Kind {
		case EntryMethod:
			e.store.indexMethod(path, iface, ent.Member, &VtableMember{parent: nv, index: i})
		case EntryProperty, EntryWritableProperty:
			e.store.indexProperty(path, iface, ent.Member, &VtableMember{parent: nv, index: i})
		}
	}

	e.nodesModified = true
	return nil
}

// sameVtablePointer treats two entry slices as "the same vtable" when they
// share underlying storage, modeling the C API's pointer-identity
// duplicate check (spec.md §4.1).
func sameVtablePointer(a, b Vtable) bool {
	return len(a) > 0 && len(b) > 0 && &a[0] == &b[0]
}

// insertVtable appends nv after the last existing vtable for the same
// interface, or at the end if none exists, keeping same-interface vtables
// contiguous (spec.md §5, "Ordering").
func insertVtable(n *Node, nv *NodeVtable) {
	lastSameIface := -1
	for i, v := range n.vtables {
		if v.iface == nv.iface {
			lastSameIface = i
		}
	}
	if lastSameIface == -1 {
		n.vtables = append(n.vtables, nv)
		return
	}
	n.vtables = append(n.vtables, nil)
	copy(n.vtables[lastSameIface+2:], n.vtables[lastSameIface+1:])
	n.vtables[lastSameIface+1] = nv
}

// RemoveVtable removes a previously-registered vtable (matched by the
// entries slice's identity) from path.
func (e *Engine) RemoveVtable(path ObjectPath, iface string, entries Vtable) bool {
	n, ok := e.store.Lookup(path)
	if !ok {
		return false
	}
	for i, v := range n.vtables {
		if v.iface != iface || !sameVtablePointer(v.entries, entries) {
			continue
		}
		for j, ent := range v.entries {
			switch ent.Kind {
			case EntryMethod:
				e.store.unindexMethod(path, iface, ent.Member)
			case EntryProperty, EntryWritableProperty:
				e.store.unindexProperty(path, iface, ent.Member)
			}
			_ = j
		}
		n.vtables = append(n.vtables[:i], n.vtables[i+1:]...)
		e.store.gc(n)
		e.nodesModified = true
		return true
	}
	return false
}

// AddNodeEnumerator registers a dynamic child-path enumerator at path
// (spec.md §4.1, §4.9).
func (e *Engine) AddNodeEnumerator(path ObjectPath, callback func(ctx context.Context, prefix ObjectPath, userdata any) ([]ObjectPath, error), userdata any) error {
	if !e.validator.IsObjectPath(string(path)) {
		return validationErr("%q is not a valid object path", path)
	}
	n := e.store.nodeFor(path)
	n.enumerators = append(n.enumerators, &NodeEnumerator{node: n, callback: callback, userdata: userdata})
	e.nodesModified = true
	return nil
}

// RemoveNodeEnumerator removes an enumerator registered with the given
// userdata at path.
func (e *Engine) RemoveNodeEnumerator(path ObjectPath, userdata any) bool {
	n, ok := e.store.Lookup(path)
	if !ok {
		return false
	}
	for i, en := range n.enumerators {
		if sameUserdata(en.userdata, userdata) {
			n.enumerators = append(n.enumerators[:i], n.enumerators[i+1:]...)
			e.store.gc(n)
			e.nodesModified = true
			return true
		}
	}
	return false
}

// AddObjectManager marks path (and transitively its descendants, via
// ancestor lookup at dispatch time) as an ObjectManager root (spec.md §4.1,
// §4.7). Repeated calls nest safely (SPEC_FULL.md "Supplemented
// Features").
func (e *Engine) AddObjectManager(path ObjectPath) error {
	if !e.validator.IsObjectPath(string(path)) {
		return validationErr("%q is not a valid object path", path)
	}
	n := e.store.nodeFor(path)
	n.objectManagerCount++
	e.nodesModified = true
	return nil
}

// RemoveObjectManager undoes one AddObjectManager call on path.
func (e *Engine) RemoveObjectManager(path ObjectPath) bool {
	n, ok := e.store.Lookup(path)
	if !ok || n.objectManagerCount == 0 {
		return false
	}
	n.objectManagerCount--
	e.store.gc(n)
	e.nodesModified = true
	return true
}
