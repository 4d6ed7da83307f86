package busobj

import "context"

// dispatchOutcome is the three-way result of one object_find_and_run
// attempt (spec.md §4.2, §9 "Supplemented Features"): a reply may have
// been sent (Handled), or nothing matched but a node was nonetheless
// found to exist (FoundObject). ProcessObject replies UNKNOWN_METHOD only
// when neither is set; a found but unhandled object gets no reply.
type dispatchOutcome struct {
	handled     bool
	foundObject bool
}

// ProcessObject is the engine's single entry point: given an inbound
// method-call message, it locates and runs the matching handler, applying
// access control and emitting the appropriate reply (spec.md §4.2).
//
// ProcessObject runs handlers synchronously and returns only after they
// do; a handler that never returns blocks the whole connection, by design
// (spec.md §5).
func (e *Engine) ProcessObject(ctx context.Context, msg Message) (bool, error) {
	if msg.Interface() == IfacePeer {
		if handled, err := e.handlePeer(ctx, msg); handled || err != nil {
			return handled, err
		}
	}

	ctx, finish := e.tracer.StartDispatchSpan(ctx, msg.Path(), msg.Interface(), msg.Member())
	var outErr error
	defer func() { finish(outErr) }()

	// iterationCounter advances once per ProcessObject call, not per
	// restart attempt: the last_iteration guard exists to suppress a
	// second invocation of the same handler across a restart within one
	// logical dispatch (spec.md §3, §9 "Iteration counters"), which only
	// works if every attempt of this call shares the same counter value.
	e.iterationCounter++

	for {
		e.nodesModified = false

		outcome, err := e.objectFindAndRun(ctx, msg, msg.Path(), false)
		if err != nil {
			outErr = err
			return false, err
		}
		if e.nodesModified {
			continue
		}
		if outcome.handled {
			e.metrics.DispatchHandled(msg.Interface(), msg.Member())
			return true, nil
		}

		restarted := false
		for _, prefix := range msg.Path().AscendingPrefixes() {
			pOutcome, err := e.objectFindAndRun(ctx, msg, prefix, true)
			if err != nil {
				outErr = err
				return false, err
			}
			outcome.foundObject = outcome.foundObject || pOutcome.foundObject
			if e.nodesModified {
				restarted = true
				break
			}
			if pOutcome.handled {
				e.metrics.DispatchHandled(msg.Interface(), msg.Member())
				return true, nil
			}
		}
		if restarted {
			continue
		}

		if outcome.foundObject {
			e.metrics.DispatchUnhandled(msg.Interface(), msg.Member())
			return false, nil
		}

		e.metrics.DispatchUnhandled(msg.Interface(), msg.Member())
		outErr = e.replyUnknown(msg)
		return false, outErr
	}
}

// replyUnknown sends UNKNOWN_METHOD, or UNKNOWN_PROPERTY when the call was
// a Properties.Get/Set that fell all the way through unhandled.
func (e *Engine) replyUnknown(msg Message) error {
	if msg.Interface() == IfaceProperties && (msg.Member() == "Get" || msg.Member() == "Set") {
		return msg.ReplyMethodErrorf(ErrNameUnknownProperty, "no such property")
	}
	return msg.ReplyMethodErrorf(ErrNameUnknownMethod, "no such method %q on interface %q", msg.Member(), msg.Interface())
}

// objectFindAndRun implements one attempt of spec.md §4.2's inner
// dispatch order (a)-(f) against the node at p, if any.
func (e *Engine) objectFindAndRun(ctx context.Context, msg Message, p ObjectPath, requireFallback bool) (dispatchOutcome, error) {
	n, ok := e.store.Lookup(p)
	if !ok {
		return dispatchOutcome{}, nil
	}

	// (a) raw callbacks
	for _, cb := range n.callbacks {
		if cb.isFallback != requireFallback {
			continue
		}
		if cb.lastIteration == e.iterationCounter {
			continue
		}
		cb.lastIteration = e.iterationCounter
		handled, err := cb.handler(ctx, msg, cb.userdata)
		if err != nil {
			return dispatchOutcome{}, e.maybeReplyError(msg, err)
		}
		if e.nodesModified {
			return dispatchOutcome{}, nil
		}
		if handled {
			return dispatchOutcome{handled: true, foundObject: true}, nil
		}
	}

	iface, member := msg.Interface(), msg.Member()

	// (b) method index
	if iface != "" && member != "" {
		if vm, ok := e.store.lookupMethod(p, iface, member); ok && vm.parent.isFallback == requireFallback {
			outcome, err := e.runMethod(ctx, msg, vm)
			if err != nil || e.nodesModified || outcome.handled {
				return outcome, err
			}
		}
	}

	// (c) Properties
	if iface == IfaceProperties {
		switch member {
		case "Get":
			outcome, err := e.handlePropertiesGet(ctx, msg, n, requireFallback)
			if err != nil || outcome.handled {
				return outcome, err
			}
		case "Set":
			outcome, err := e.handlePropertiesSet(ctx, msg, n, requireFallback)
			if err != nil || outcome.handled {
				return outcome, err
			}
		case "GetAll":
			outcome, err := e.handlePropertiesGetAll(ctx, msg, n, requireFallback)
			if err != nil || outcome.handled {
				return outcome, err
			}
		}
	}

	// (d) Introspectable
	if iface == IfaceIntrospectable && member == "Introspect" && msg.Signature() == "" {
		outcome, err := e.handleIntrospect(ctx, msg, p, n)
		if err != nil || outcome.handled {
			return outcome, err
		}
	}

	// (e) ObjectManager
	if iface == IfaceObjectManager && member == "GetManagedObjects" {
		outcome, err := e.handleGetManagedObjects(ctx, msg, p, n)
		if err != nil || outcome.handled {
			return outcome, err
		}
	}

	// (f) existence fallback
	return dispatchOutcome{foundObject: e.store.Exists(p, requireFallback)}, nil
}

// runMethod applies the access check and invokes a single indexed method
// entry, following bus-objects.c's process_object_method order exactly:
// access check, resolve userdata, last_iteration guard, signature check,
// then the handler (original_source/src/libsystemd-bus/bus-objects.c:341-385).
func (e *Engine) runMethod(ctx context.Context, msg Message, vm *VtableMember) (dispatchOutcome, error) {
	entry := vm.entry()
	if err := e.checkAccess(ctx, msg, entry.Flags, vm.parent.startFlags()); err != nil {
		e.metrics.AccessDenied(msg.Interface(), msg.Member())
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	userdata, ok, err := vm.parent.resolve(ctx, msg.Path())
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if !ok {
		return dispatchOutcome{}, nil
	}

	// Suppress a second invocation of this member within the same
	// logical dispatch if a restart revisits it (spec.md §3, §8
	// invariant 3).
	if vm.lastIteration == e.iterationCounter {
		return dispatchOutcome{}, nil
	}
	vm.lastIteration = e.iterationCounter

	if entry.InSignature != msg.Signature() {
		return dispatchOutcome{}, e.maybeReplyError(msg, protoErr(ErrNameInvalidArgs,
			"invalid arguments %q to call %s.%s(), expecting %q",
			msg.Signature(), msg.Interface(), msg.Member(), entry.InSignature))
	}

	if entry.Handler == nil {
		return dispatchOutcome{handled: true, foundObject: true}, nil
	}
	handled, err := entry.Handler(ctx, msg, userdata)
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}
	if !handled {
		return dispatchOutcome{foundObject: true}, nil
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}

// maybeReplyError translates a handler error into a wire reply when it
// carries one (*ProtocolError), or otherwise a generic Failed reply,
// mirroring maybe_reply_error (spec.md §4.11, §7).
func (e *Engine) maybeReplyError(msg Message, err error) error {
	if err == nil {
		return nil
	}
	if pe, ok := err.(*ProtocolError); ok {
		return msg.ReplyMethodErrorf(pe.Name, "%s", pe.Message)
	}
	return msg.ReplyMethodErrorf(ErrNameFailed, "%v", err)
}
