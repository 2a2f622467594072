package comments

// Node is one comment with its nested replies.
type Node struct {
	Comment  *Comment
	Children []*Node
}

// BuildTree converts a flat parent-referencing comment list into a forest.
// Sibling order follows input order; the builder never re-sorts. A comment
// whose parent is absent from the input becomes a root instead of being
// dropped. A comment whose parent chain would contain itself is also demoted
// to root, and ErrMalformedInput is returned next to the still-complete
// forest.
func BuildTree(flat []*Comment) ([]*Node, error) {
	byID := make(map[interface{}]*Comment, len(flat))
	nodes := make(map[interface{}]*Node, len(flat))
	for _, c := range flat {
		byID[c.ID] = c
		nodes[c.ID] = &Node{Comment: c}
	}

	var malformed bool
	roots := make([]*Node, 0, len(flat))

	for _, c := range flat {
		node := nodes[c.ID]

		if c.ParentID == nil {
			roots = append(roots, node)
			continue
		}

		parent, ok := nodes[c.ParentID]
		if !ok {
			// parent was deleted: the orphan surfaces as a root
			roots = append(roots, node)
			continue
		}

		if cyclicParentChain(byID, c) {
			malformed = true
			roots = append(roots, node)
			continue
		}

		parent.Children = append(parent.Children, node)
	}

	if malformed {
		return roots, ErrMalformedInput
	}

	return roots, nil
}

// cyclicParentChain walks the parent references upward and reports whether
// the chain leads back to c or never terminates. The walk is bounded by the
// input size, so malformed data cannot loop the builder.
func cyclicParentChain(byID map[interface{}]*Comment, c *Comment) bool {
	cur := c.ParentID
	for steps := 0; steps <= len(byID); steps++ {
		if cur == nil {
			return false
		}
		if cur == c.ID {
			return true
		}
		p, ok := byID[cur]
		if !ok {
			return false
		}
		cur = p.ParentID
	}

	// ran out of steps: the chain is longer than the input, so it loops
	return true
}
