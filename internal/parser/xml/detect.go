package xml

// DetectRows finds the sibling group that best represents "the rows" of the
// document, with no tag name known in advance.
//
// Every parent's direct children are grouped by local name; a group qualifies
// once it has at least two members. The best qualifying group is the one with
// the highest member count, ties broken by the deepest parent (root depth 0),
// remaining ties by first appearance in document order.
//
// Fallbacks when nothing repeats: the root's direct children if it has any,
// otherwise the root element itself as the sole row.
//
// The returned elements are in original document order. DetectRows is
// deterministic: the same tree always selects the same group.
func DetectRows(root *Element) []*Element {
	bestCount := 0
	bestDepth := -1
	var best []*Element

	var walk func(parent *Element, depth int)
	walk = func(parent *Element, depth int) {
		if len(parent.Children) == 0 {
			return
		}

		order := make([]string, 0, len(parent.Children))
		groups := make(map[string][]*Element)
		for _, ch := range parent.Children {
			if _, seen := groups[ch.Name]; !seen {
				order = append(order, ch.Name)
			}
			groups[ch.Name] = append(groups[ch.Name], ch)
		}

		for _, name := range order {
			els := groups[name]
			c := len(els)
			if c < 2 {
				continue
			}
			// Strictly-better comparison keeps the first group seen in
			// document order when count and depth are both equal.
			if c > bestCount || (c == bestCount && depth > bestDepth) {
				bestCount, bestDepth, best = c, depth, els
			}
		}

		for _, ch := range parent.Children {
			walk(ch, depth+1)
		}
	}
	walk(root, 0)

	if best != nil {
		return best
	}
	if len(root.Children) > 0 {
		return root.Children
	}
	return []*Element{root}
}
