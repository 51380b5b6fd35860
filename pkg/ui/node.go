package ui

import "reflect"

// Node is a borrowed, read-mostly handle to a host UI tree element.
// Hosts own its lifetime; callers must not keep nodes beyond one event.
type Node interface {
	Text() string
	// Label is the accessibility description (content-desc on Android).
	Label() string
	Class() string
	Package() string
	Editable() bool
	Clickable() bool
	ChildCount() int
	// Child returns nil for an index the host can no longer resolve.
	Child(i int) Node
}

// Identifier is implemented by hosts whose nodes have a stable identity.
// Walk uses it to detect cycles when the node value itself is not comparable.
type Identifier interface {
	NodeID() string
}

const (
	// DefaultMaxDepth bounds traversal depth.
	DefaultMaxDepth = 64
	// DefaultMaxNodes bounds the number of visited nodes.
	DefaultMaxNodes = 4096
)

type walkConfig struct {
	maxDepth int
	maxNodes int
}

// WalkOption configures Walk.
type WalkOption func(*walkConfig)

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(depth int) WalkOption {
	return func(c *walkConfig) {
		c.maxDepth = depth
	}
}

// WithMaxNodes overrides DefaultMaxNodes.
func WithMaxNodes(n int) WalkOption {
	return func(c *walkConfig) {
		c.maxNodes = n
	}
}

type frame struct {
	node  Node
	depth int
}

// Walk visits root and its descendants in preorder, children left to right.
// fn returns false to stop the walk. Nodes already seen are skipped, so cyclic
// trees terminate.
func Walk(root Node, fn func(n Node, depth int) bool, opts ...WalkOption) {
	if isNil(root) {
		return
	}
	cfg := walkConfig{maxDepth: DefaultMaxDepth, maxNodes: DefaultMaxNodes}
	for _, opt := range opts {
		opt(&cfg)
	}

	visited := make(map[any]struct{})
	stack := []frame{{node: root}}
	count := 0

	for len(stack) > 0 && count < cfg.maxNodes {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if key, ok := identity(top.node); ok {
			if _, seen := visited[key]; seen {
				continue
			}
			visited[key] = struct{}{}
		}
		count++

		if !fn(top.node, top.depth) {
			return
		}
		if top.depth >= cfg.maxDepth {
			continue
		}

		// Push in reverse so the leftmost child is popped first.
		for i := top.node.ChildCount() - 1; i >= 0; i-- {
			child := top.node.Child(i)
			if isNil(child) {
				continue
			}
			stack = append(stack, frame{node: child, depth: top.depth + 1})
		}
	}
}

func identity(n Node) (any, bool) {
	if id, ok := n.(Identifier); ok {
		return "id:" + id.NodeID(), true
	}
	if reflect.TypeOf(n).Comparable() {
		return n, true
	}
	return nil, false
}

func isNil(n Node) bool {
	if n == nil {
		return true
	}
	v := reflect.ValueOf(n)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Find returns the first node in preorder for which match returns true.
func Find(root Node, match func(Node) bool, opts ...WalkOption) (Node, bool) {
	var found Node
	Walk(root, func(n Node, _ int) bool {
		if match(n) {
			found = n
			return false
		}
		return true
	}, opts...)
	return found, found != nil
}
