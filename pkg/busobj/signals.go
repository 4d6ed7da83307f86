package busobj

import "context"

// EmitPropertiesChanged emits org.freedesktop.DBus.Properties.PropertiesChanged
// for the named properties at path/interface (spec.md §4.8).
//
// Per spec.md §9's "Open questions / possibly-buggy behavior" note, this
// returns success as soon as one signal has been sent on any attempt of
// the restart loop, and ErrNoMatchingVtable only if no prefix ever
// produced a match across every attempt.
func (e *Engine) EmitPropertiesChanged(ctx context.Context, path ObjectPath, iface string, names []string) error {
	sentOnce := false
	matchedOnce := false

	for {
		e.nodesModified = false

		for _, v := range e.vtablesCoveringPath(path, iface) {
			userdata, ok, err := v.resolve(ctx, path)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			matchedOnce = true

			changed, invalidated, err := partitionChangedProperties(v, names)
			if err != nil {
				return err
			}
			if len(changed) == 0 && len(invalidated) == 0 {
				continue
			}

			if err := e.sendPropertiesChanged(ctx, path, iface, changed, invalidated, userdata); err != nil {
				return err
			}
			sentOnce = true
			e.metrics.SignalEmitted("PropertiesChanged", true)

			if e.nodesModified {
				break
			}
		}

		if e.nodesModified {
			continue
		}
		if sentOnce {
			return nil
		}
		if matchedOnce {
			// A vtable matched but named no changing property: nothing to
			// send, not an error.
			return nil
		}
		e.metrics.SignalEmitted("PropertiesChanged", false)
		return ErrNoMatchingVtable
	}
}

// partitionChangedProperties splits names into "emits change" (value
// included) and "invalidate only" (name only) per each property's flags,
// restricted to the entries v actually owns (spec.md §4.8).
func partitionChangedProperties(v *NodeVtable, names []string) (changed, invalidated []string, err error) {
	for _, name := range names {
		var entry *VtableEntry
		for i := range v.entries {
			e := &v.entries[i]
			if (e.Kind == EntryProperty || e.Kind == EntryWritableProperty) && e.Member == name {
				entry = e
				break
			}
		}
		if entry == nil {
			continue
		}
		if !entry.Flags.has(FlagPropertyEmitsChange) {
			return nil, nil, ErrPropertyNotChangeNotifying
		}
		if entry.Flags.has(FlagPropertyInvalidateOnly) {
			invalidated = append(invalidated, name)
		} else {
			changed = append(changed, name)
		}
	}
	return changed, invalidated, nil
}

func (e *Engine) sendPropertiesChanged(ctx context.Context, path ObjectPath, iface string, changedNames, invalidated []string, userdata any) error {
	sig, err := e.newSignalFrom(path, IfaceProperties, "PropertiesChanged")
	if err != nil {
		return err
	}
	if err := sig.Append("s", iface); err != nil {
		return err
	}
	if err := sig.OpenContainer(ContainerArray, "{sv}"); err != nil {
		return err
	}
	for _, name := range changedNames {
		entry := e.propertyEntryByName(path, iface, name)
		if entry == nil {
			continue
		}
		if err := sig.OpenContainer(ContainerDictEntry, "sv"); err != nil {
			return err
		}
		if err := sig.AppendBasic(name); err != nil {
			return err
		}
		if err := sig.OpenContainer(ContainerVariant, entry.Signature); err != nil {
			return err
		}
		if err := e.invokeGetter(ctx, entry, sig, userdata); err != nil {
			return err
		}
		if err := sig.CloseContainer(); err != nil {
			return err
		}
		if err := sig.CloseContainer(); err != nil {
			return err
		}
	}
	if err := sig.CloseContainer(); err != nil {
		return err
	}
	if err := sig.AppendStrv(invalidated); err != nil {
		return err
	}
	return sig.Send()
}

func (e *Engine) propertyEntryByName(path ObjectPath, iface, name string) *VtableEntry {
	if vm, ok := e.store.lookupProperty(path, iface, name); ok {
		return vm.entry()
	}
	for _, ancestor := range path.AscendingPrefixes() {
		if vm, ok := e.store.lookupProperty(ancestor, iface, name); ok {
			return vm.entry()
		}
	}
	return nil
}

// vtablesCoveringPath walks vtables matching iface at path (exact, any
// fallback state) then at each ascending prefix requiring is_fallback
// (spec.md §4.8).
func (e *Engine) vtablesCoveringPath(path ObjectPath, iface string) []*NodeVtable {
	var out []*NodeVtable
	if n, ok := e.store.Lookup(path); ok {
		for _, v := range n.vtables {
			if v.iface == iface {
				out = append(out, v)
			}
		}
	}
	for _, ancestor := range path.AscendingPrefixes() {
		n, ok := e.store.Lookup(ancestor)
		if !ok {
			continue
		}
		for _, v := range n.vtables {
			if v.iface == iface && v.isFallback {
				out = append(out, v)
			}
		}
	}
	return out
}

// EmitInterfacesAdded emits org.freedesktop.DBus.ObjectManager.InterfacesAdded
// for path (spec.md §4.8). Each covering vtable whose find resolves for path
// contributes one {s: a{sv}} entry with its non-hidden properties; a
// resolving vtable with no properties still contributes an entry with an
// empty a{sv}. If any named interface has no resolving vtable, nothing is
// sent and ErrNoMatchingVtable is returned.
func (e *Engine) EmitInterfacesAdded(ctx context.Context, path ObjectPath, interfaces []string) error {
	sig, err := e.newSignalFrom(path, IfaceObjectManager, "InterfacesAdded")
	if err != nil {
		return err
	}
	if err := sig.Append("o", string(path)); err != nil {
		return err
	}
	if err := sig.OpenContainer(ContainerArray, "{sa{sv}}"); err != nil {
		return err
	}

	anyMatched := false
	for _, iface := range interfaces {
		matched := false
		for _, v := range e.vtablesCoveringPath(path, iface) {
			if _, ok, err := v.resolve(ctx, path); err != nil {
				return err
			} else if !ok {
				continue
			}
			if err := e.writeInterfaceProperties(ctx, sig, v, path); err != nil {
				return err
			}
			matched = true
		}
		if !matched {
			e.metrics.SignalEmitted("InterfacesAdded", false)
			return ErrNoMatchingVtable
		}
		anyMatched = true
	}

	if err := sig.CloseContainer(); err != nil {
		return err
	}
	if err := sig.Send(); err != nil {
		return err
	}
	if anyMatched {
		e.metrics.SignalEmitted("InterfacesAdded", true)
	}
	return nil
}

// EmitInterfacesRemoved emits
// org.freedesktop.DBus.ObjectManager.InterfacesRemoved directly, with no
// tree walk (spec.md §4.8).
func (e *Engine) EmitInterfacesRemoved(path ObjectPath, interfaces []string) error {
	sig, err := e.newSignalFrom(path, IfaceObjectManager, "InterfacesRemoved")
	if err != nil {
		return err
	}
	if err := sig.Append("o", string(path)); err != nil {
		return err
	}
	if err := sig.AppendStrv(interfaces); err != nil {
		return err
	}
	if err := sig.Send(); err != nil {
		return err
	}
	e.metrics.SignalEmitted("InterfacesRemoved", true)
	return nil
}

// newSignalFrom allocates a fresh signal message. It borrows an existing
// Message only for its connection context; spec.md's Message API exposes
// NewSignal as a free-standing constructor rooted at the path/iface/member
// triple, so the engine keeps one zero-value anchor message per connection
// to originate signals from. internal/wire's adapter supplies this anchor.
func (e *Engine) newSignalFrom(path ObjectPath, iface, member string) (Message, error) {
	return e.signalOrigin.NewSignal(path, iface, member)
}
