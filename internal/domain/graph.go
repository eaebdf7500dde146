package domain

import "sort"

// Graph is the node/relation store for one scan. It is not safe for
// concurrent mutation; exactly one scan owns a graph at a time.
type Graph struct {
	nodes map[NodeKey]*Node
}

// NewGraph creates an empty topology graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeKey]*Node)}
}

// Ensure returns the node for (kind, id), creating it if absent. Because
// the kind is part of the key, an existing node always has the requested
// kind.
func (g *Graph) Ensure(kind Kind, id string) *Node {
	key := MakeKey(kind, id)
	if n, ok := g.nodes[key]; ok {
		return n
	}
	n := newNode(kind, id)
	g.nodes[key] = n
	return n
}

// Node looks up a node by key.
func (g *Graph) Node(key NodeKey) (*Node, bool) {
	n, ok := g.nodes[key]
	return n, ok
}

// HasNode reports whether a node with the given key exists.
func (g *Graph) HasNode(key NodeKey) bool {
	_, ok := g.nodes[key]
	return ok
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes sorted by key.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NodesOfKind returns all nodes of the given kind sorted by key.
func (g *Graph) NodesOfKind(kind Kind) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
