package syntax

import "errors"

// WalkFunc is called for each node during traversal.
// Return an error to stop; return SkipChildren to skip the node's subtree.
type WalkFunc func(n *Node) error

// SkipChildren tells Walk not to descend into the current node.
//
//nolint:gochecknoglobals // Sentinel error.
var SkipChildren = errors.New("skip children")

// errStopWalk is used internally by the finders.
//
//nolint:gochecknoglobals // Sentinel error.
var errStopWalk = errors.New("stop walk")

// Walk visits root and its descendants in pre-order using an explicit
// stack, so arbitrarily deep trees cannot exhaust the goroutine stack.
func Walk(root *Node, fn WalkFunc) error {
	if root == nil {
		return nil
	}
	stack := []*Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		err := fn(n)
		if errors.Is(err, SkipChildren) {
			continue
		}
		if err != nil {
			return err
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i] != nil {
				stack = append(stack, n.Children[i])
			}
		}
	}
	return nil
}

// WalkWithLeave visits nodes calling enter in pre-order and leave in
// post-order. Either callback may be nil.
func WalkWithLeave(root *Node, enter, leave WalkFunc) error {
	if root == nil {
		return nil
	}
	type frame struct {
		node    *Node
		visited bool
	}
	stack := []frame{{node: root}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.visited {
			n := top.node
			stack = stack[:len(stack)-1]
			if leave != nil {
				if err := leave(n); err != nil {
					return err
				}
			}
			continue
		}
		top.visited = true
		n := top.node
		if enter != nil {
			err := enter(n)
			if errors.Is(err, SkipChildren) {
				stack = stack[:len(stack)-1]
				continue
			}
			if err != nil {
				return err
			}
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			if n.Children[i] != nil {
				stack = append(stack, frame{node: n.Children[i]})
			}
		}
	}
	return nil
}

// FindAll returns all nodes matching the predicate in pre-order.
func FindAll(root *Node, pred func(*Node) bool) []*Node {
	var results []*Node
	_ = Walk(root, func(n *Node) error { //nolint:errcheck // the callback never fails
		if pred(n) {
			results = append(results, n)
		}
		return nil
	})
	return results
}

// FindFirst returns the first node matching the predicate, or nil.
func FindFirst(root *Node, pred func(*Node) bool) *Node {
	var result *Node
	_ = Walk(root, func(n *Node) error { //nolint:errcheck // errStopWalk is expected
		if pred(n) {
			result = n
			return errStopWalk
		}
		return nil
	})
	return result
}

// FindByKind returns all nodes of the given kind.
func FindByKind(root *Node, kind NodeKind) []*Node {
	return FindAll(root, func(n *Node) bool { return n.Kind == kind })
}

// CountNodes returns the number of nodes in the tree.
func CountNodes(root *Node) int {
	count := 0
	_ = Walk(root, func(*Node) error { //nolint:errcheck // the callback never fails
		count++
		return nil
	})
	return count
}
