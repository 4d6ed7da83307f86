package busobj

import "context"

// handleGetManagedObjects implements spec.md §4.7: only runs if p or an
// ancestor carries an ObjectManager marker. For each child path (the same
// union Introspect uses), emits {s: a{sv}} for every vtable registered
// exactly at that path plus every fallback vtable covering it via an
// ascending prefix.
func (e *Engine) handleGetManagedObjects(ctx context.Context, msg Message, p ObjectPath, n *Node) (dispatchOutcome, error) {
	if !e.hasObjectManager(p) {
		return dispatchOutcome{}, nil
	}

	children, err := e.getChildNodes(ctx, p, n)
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if len(children) == 0 && len(n.vtables) == 0 {
		return dispatchOutcome{}, nil
	}

	reply, err := msg.NewMethodReturn()
	if err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.OpenContainer(ContainerArray, "{oa{sa{sv}}}"); err != nil {
		return dispatchOutcome{}, err
	}

	for _, child := range children {
		if err := e.writeManagedObject(ctx, reply, child); err != nil {
			return dispatchOutcome{}, e.maybeReplyError(msg, err)
		}
	}

	if err := reply.CloseContainer(); err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.ReplyMethodReturn(); err != nil {
		return dispatchOutcome{}, err
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}

// writeManagedObject writes one {o: {s: {s: v}}} dict entry for childPath,
// drawing properties from every vtable registered exactly at childPath and
// every fallback vtable covering it via an ascending prefix.
func (e *Engine) writeManagedObject(ctx context.Context, reply Message, childPath ObjectPath) error {
	if err := reply.OpenContainer(ContainerDictEntry, "oa{sa{sv}}"); err != nil {
		return err
	}
	if err := reply.AppendBasic(string(childPath)); err != nil {
		return err
	}
	if err := reply.OpenContainer(ContainerArray, "{sa{sv}}"); err != nil {
		return err
	}

	if childNode, ok := e.store.Lookup(childPath); ok {
		for _, v := range childNode.vtables {
			if v.isFallback {
				continue
			}
			if err := e.writeInterfaceProperties(ctx, reply, v, childPath); err != nil {
				return err
			}
		}
	}
	for _, prefix := range childPath.AscendingPrefixes() {
		n, ok := e.store.Lookup(prefix)
		if !ok {
			continue
		}
		for _, v := range n.vtables {
			if !v.isFallback {
				continue
			}
			if err := e.writeInterfaceProperties(ctx, reply, v, childPath); err != nil {
				return err
			}
		}
	}

	if err := reply.CloseContainer(); err != nil {
		return err
	}
	return reply.CloseContainer()
}

// writeInterfaceProperties writes one {s: a{sv}} dict entry for v's
// interface, provided its find resolver covers path, with every
// non-hidden property emitted as {s: v}.
func (e *Engine) writeInterfaceProperties(ctx context.Context, reply Message, v *NodeVtable, path ObjectPath) error {
	userdata, ok, err := v.resolve(ctx, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	if err := reply.OpenContainer(ContainerDictEntry, "sa{sv}"); err != nil {
		return err
	}
	if err := reply.AppendBasic(v.iface); err != nil {
		return err
	}
	if err := reply.OpenContainer(ContainerArray, "{sv}"); err != nil {
		return err
	}
	for i := range v.entries {
		entry := &v.entries[i]
		if entry.Kind != EntryProperty && entry.Kind != EntryWritableProperty {
			continue
		}
		if entry.Flags.has(FlagHidden) {
			continue
		}
		if err := reply.OpenContainer(ContainerDictEntry, "sv"); err != nil {
			return err
		}
		if err := reply.AppendBasic(entry.Member); err != nil {
			return err
		}
		if err := reply.OpenContainer(ContainerVariant, entry.Signature); err != nil {
			return err
		}
		if err := e.invokeGetter(ctx, entry, reply, userdata); err != nil {
			return err
		}
		if err := reply.CloseContainer(); err != nil {
			return err
		}
		if err := reply.CloseContainer(); err != nil {
			return err
		}
	}
	if err := reply.CloseContainer(); err != nil {
		return err
	}
	return reply.CloseContainer()
}
