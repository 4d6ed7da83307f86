package busobj

import "context"

// getChildNodes implements get_child_nodes (spec.md §4.9): the union of
// every enumerator's reported children across the subtree rooted at n,
// plus n's statically-registered children, restricted to paths that are
// proper descendants of prefix and are themselves valid object paths.
// Duplicates are silently collapsed.
func (e *Engine) getChildNodes(ctx context.Context, prefix ObjectPath, n *Node) ([]ObjectPath, error) {
	seen := make(map[ObjectPath]bool)
	var out []ObjectPath

	add := func(p ObjectPath) {
		if !e.validator.IsObjectPath(string(p)) {
			return
		}
		if p == prefix || !p.HasPrefix(prefix) {
			return
		}
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}

	var walk func(cur *Node) error
	walk = func(cur *Node) error {
		for _, en := range cur.enumerators {
			children, err := en.callback(ctx, prefix, en.userdata)
			if err != nil {
				return err
			}
			for _, c := range children {
				add(c)
			}
		}
		for _, child := range cur.children {
			if !child.Path().HasPrefix(prefix) {
				continue
			}
			add(child.Path())
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(n); err != nil {
		return nil, err
	}
	return out, nil
}
