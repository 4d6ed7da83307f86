package busobj

import "context"

// handlePropertiesGet implements spec.md §4.4 "Get": no access check (reads
// are broadcast via PropertiesChanged anyway), resolve the vtable's find,
// open a VARIANT of the property's signature, invoke the getter, reply.
func (e *Engine) handlePropertiesGet(ctx context.Context, msg Message, n *Node, requireFallback bool) (dispatchOutcome, error) {
	var ifaceName, propName string
	if err := msg.Read("ss", &ifaceName, &propName); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameInvalidArgs, "expected (ss): %v", err))
	}

	vm, ok := e.store.lookupProperty(n.Path(), ifaceName, propName)
	if !ok || vm.parent.isFallback != requireFallback {
		return dispatchOutcome{}, nil
	}
	entry := vm.entry()

	userdata, ok, err := vm.parent.resolve(ctx, msg.Path())
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if !ok {
		return dispatchOutcome{}, nil
	}

	reply, err := msg.NewMethodReturn()
	if err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.OpenContainer(ContainerVariant, entry.Signature); err != nil {
		return dispatchOutcome{}, err
	}
	if err := e.invokeGetter(ctx, entry, reply, userdata); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if err := reply.CloseContainer(); err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.ReplyMethodReturn(); err != nil {
		return dispatchOutcome{}, err
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}

// invokeGetter calls a custom getter if present, else the basic-type
// auto-handler (spec.md §4.4).
func (e *Engine) invokeGetter(ctx context.Context, entry *VtableEntry, reply Message, userdata any) error {
	if entry.Getter != nil {
		return entry.Getter(ctx, reply, userdata)
	}
	return reply.AppendBasic(userdata)
}

// handlePropertiesSet implements spec.md §4.4 "Set": requires
// WRITABLE_PROPERTY, then the last_iteration guard (spec.md §3, §4.4 "Set
// must not execute twice") before access check and setter, matching
// bus-objects.c:578-591's ordering (read-only check, last_iteration guard,
// enter container, access check, setter).
func (e *Engine) handlePropertiesSet(ctx context.Context, msg Message, n *Node, requireFallback bool) (dispatchOutcome, error) {
	var ifaceName, propName string
	if err := msg.Read("ss", &ifaceName, &propName); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameInvalidArgs, "expected (ssv): %v", err))
	}

	vm, ok := e.store.lookupProperty(n.Path(), ifaceName, propName)
	if !ok || vm.parent.isFallback != requireFallback {
		return dispatchOutcome{}, nil
	}
	entry := vm.entry()
	if entry.Kind != EntryWritableProperty {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNamePropertyReadOnly, "property %q is read-only", propName))
	}

	// Avoid invoking the setter more than once if a restart revisits
	// this message (spec.md §3, §4.4).
	if vm.lastIteration == e.iterationCounter {
		return dispatchOutcome{}, nil
	}
	vm.lastIteration = e.iterationCounter

	if err := msg.EnterContainer(ContainerVariant, entry.Signature); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameInvalidArgs, "expected variant of signature %q: %v", entry.Signature, err))
	}

	if err := e.checkAccess(ctx, msg, entry.Flags, vm.parent.startFlags()); err != nil {
		e.metrics.AccessDenied(ifaceName, propName)
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}

	userdata, ok, err := vm.parent.resolve(ctx, msg.Path())
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if !ok {
		return dispatchOutcome{}, nil
	}

	if err := e.invokeSetter(ctx, entry, msg, userdata); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if err := msg.ExitContainer(); err != nil {
		return dispatchOutcome{}, err
	}

	reply, err := msg.NewMethodReturn()
	if err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.ReplyMethodReturn(); err != nil {
		return dispatchOutcome{}, err
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}

// invokeSetter calls a custom setter if present, else the basic-type
// auto-handler: a fresh read of the value by basic type (spec.md §4.4;
// string-like auto-handling is left to the caller's storage semantics,
// since Go has no "duplicate and free previous value" distinction).
func (e *Engine) invokeSetter(ctx context.Context, entry *VtableEntry, msg Message, userdata any) error {
	if entry.Setter != nil {
		return entry.Setter(ctx, msg, userdata)
	}
	return msg.ReadBasic(userdata)
}

// handlePropertiesGetAll implements spec.md §4.5: for every vtable on the
// node matching requireFallback, whose interface equals the requested one
// (or any, if empty), emit every non-hidden property.
func (e *Engine) handlePropertiesGetAll(ctx context.Context, msg Message, n *Node, requireFallback bool) (dispatchOutcome, error) {
	var ifaceName string
	if err := msg.Read("s", &ifaceName); err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameInvalidArgs, "expected (s): %v", err))
	}

	matched := false
	reply, err := msg.NewMethodReturn()
	if err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.OpenContainer(ContainerArray, "{sv}"); err != nil {
		return dispatchOutcome{}, err
	}

	for _, v := range n.vtables {
		if v.isFallback != requireFallback {
			continue
		}
		if ifaceName != "" && v.iface != ifaceName {
			continue
		}
		userdata, ok, err := v.resolve(ctx, msg.Path())
		if err != nil {
			return dispatchOutcome{}, e.maybeReplyError(msg, err)
		}
		if !ok {
			continue
		}
		matched = true
		for i := range v.entries {
			entry := &v.entries[i]
			if entry.Kind != EntryProperty && entry.Kind != EntryWritableProperty {
				continue
			}
			if entry.Flags.has(FlagHidden) {
				continue
			}
			if err := reply.OpenContainer(ContainerDictEntry, "sv"); err != nil {
				return dispatchOutcome{}, err
			}
			if err := reply.AppendBasic(entry.Member); err != nil {
				return dispatchOutcome{}, err
			}
			if err := reply.OpenContainer(ContainerVariant, entry.Signature); err != nil {
				return dispatchOutcome{}, err
			}
			if err := e.invokeGetter(ctx, entry, reply, userdata); err != nil {
				return dispatchOutcome{}, e.maybeReplyError(msg, err)
			}
			if err := reply.CloseContainer(); err != nil {
				return dispatchOutcome{}, err
			}
			if err := reply.CloseContainer(); err != nil {
				return dispatchOutcome{}, err
			}
		}
	}

	if err := reply.CloseContainer(); err != nil {
		return dispatchOutcome{}, err
	}

	if !matched && ifaceName != "" && !IsReservedInterface(ifaceName) {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameUnknownInterface, "no such interface %q", ifaceName))
	}

	if err := reply.ReplyMethodReturn(); err != nil {
		return dispatchOutcome{}, err
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}
