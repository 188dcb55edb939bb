// Package tree derives the ordered display hierarchy from a flat record
// set. It is a pure view: nothing here mutates items or performs I/O.
package tree

import (
	"sort"

	"ticklist/internal/item"
)

// Node is an item plus its ordered children. Nodes are rebuilt on every
// read and never stored.
type Node struct {
	item.Item
	Children []*Node
}

// Organize builds the display tree from a flat record set.
//
// Attachment is orphan-safe: an item whose ParentID is missing from the
// set is promoted to a root instead of being dropped, so referential
// inconsistency never loses data. Each sibling slice (the roots and
// every node's children) is ordered with completed items after all
// others, except ids in completing, which keep their slot while the
// completion debounce is pending; inside each bucket, ascending position.
func Organize(items []item.Item, completing map[string]bool) []*Node {
	nodes := make(map[string]*Node, len(items))
	order := make([]*Node, 0, len(items))
	for i := range items {
		node := &Node{Item: items[i].Clone()}
		nodes[node.ID] = node
		order = append(order, node)
	}

	roots := make([]*Node, 0, len(items))
	for _, node := range order {
		if node.ParentID != nil {
			if parent, ok := nodes[*node.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortSiblings(roots, completing)
	for _, node := range order {
		if len(node.Children) > 0 {
			sortSiblings(node.Children, completing)
		}
	}
	return roots
}

// Walk visits every node depth-first in display order. depth is 0 for
// roots.
func Walk(roots []*Node, fn func(node *Node, depth int)) {
	var visit func(nodes []*Node, depth int)
	visit = func(nodes []*Node, depth int) {
		for _, node := range nodes {
			fn(node, depth)
			visit(node.Children, depth+1)
		}
	}
	visit(roots, 0)
}

func sortSiblings(nodes []*Node, completing map[string]bool) {
	sort.SliceStable(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		settledA, settledB := settled(a, completing), settled(b, completing)
		if settledA != settledB {
			return !settledA
		}
		return a.Position < b.Position
	})
}

// settled reports whether a node sorts into the completed tail. Ids in
// the completing set pretend to be incomplete until the debounce fires.
func settled(n *Node, completing map[string]bool) bool {
	return n.Completed && !completing[n.ID]
}
