package busobj

import "context"

// handleIntrospect implements spec.md §4.6: compose a fixed preamble of
// the four standard meta-interfaces, one <interface> block per non-hidden
// vtable visible to this caller, and child-node entries from the union of
// static children and enumerator results.
func (e *Engine) handleIntrospect(ctx context.Context, msg Message, p ObjectPath, n *Node) (dispatchOutcome, error) {
	children, err := e.getChildNodes(ctx, p, n)
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}

	w := e.introspector()
	w.Begin(p)
	w.WriteDefaultInterfaces(e.hasObjectManager(p))

	for _, v := range n.vtables {
		if v.startFlags().has(FlagHidden) {
			continue
		}
		if _, ok, err := v.resolve(ctx, p); err != nil {
			return dispatchOutcome{}, e.maybeReplyError(msg, err)
		} else if !ok {
			continue
		}
		if err := w.WriteInterface(v); err != nil {
			return dispatchOutcome{}, e.maybeReplyError(msg, err)
		}
	}

	w.WriteChildNodes(children, p)

	body, err := w.Finish()
	if err != nil {
		return dispatchOutcome{}, e.maybeReplyError(msg, err)
	}

	reply, err := msg.NewMethodReturn()
	if err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.Append("s", body); err != nil {
		return dispatchOutcome{}, err
	}
	if err := reply.ReplyMethodReturn(); err != nil {
		return dispatchOutcome{}, err
	}
	return dispatchOutcome{handled: true, foundObject: true}, nil
}

// hasObjectManager reports whether p or any ancestor of p carries an
// ObjectManager marker (spec.md §4.6, §4.7).
func (e *Engine) hasObjectManager(p ObjectPath) bool {
	if n, ok := e.store.Lookup(p); ok && n.HasObjectManager() {
		return true
	}
	for _, ancestor := range p.AscendingPrefixes() {
		if n, ok := e.store.Lookup(ancestor); ok && n.HasObjectManager() {
			return true
		}
	}
	return false
}
