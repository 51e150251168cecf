package dependency

import (
	"fmt"
	"sort"
	"strings"
)

// NodeID is the unique identifier for a node inside a dependency graph. It is
// the dependency name.
type NodeID string

// Node is one declared dependency together with the dependencies it needs
// before it can be probed.
type Node struct {
	ID        NodeID
	Purpose   string
	Required  bool
	DependsOn []NodeID
}

// Graph answers dependency queries. It is *not* thread-safe by itself; the
// Manager builds it once at construction and only reads it afterwards.
type Graph struct {
	nodes map[NodeID]*Node
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{nodes: make(map[NodeID]*Node)}
}

// AddNode adds (or replaces) a node in the graph.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[NodeID]*Node)
	}
	copied := n
	copied.DependsOn = append([]NodeID(nil), n.DependsOn...)
	g.nodes[n.ID] = &copied
}

// Get returns a pointer to the stored node or nil if it does not exist.
func (g *Graph) Get(id NodeID) *Node {
	return g.nodes[id]
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Dependencies returns a slice of immediate dependency IDs for the given node.
func (g *Graph) Dependencies(id NodeID) []NodeID {
	if n, ok := g.nodes[id]; ok {
		depsCopy := make([]NodeID, len(n.DependsOn))
		copy(depsCopy, n.DependsOn)
		return depsCopy
	}
	return nil
}

// Dependents returns all node IDs that have a direct dependency on the given
// node, sorted.
func (g *Graph) Dependents(id NodeID) []NodeID {
	var res []NodeID
	for _, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if dep == id {
				res = append(res, n.ID)
				break
			}
		}
	}
	sortIDs(res)
	return res
}

// TopologicalOrder returns every node ordered so that dependencies come
// before their dependents. Siblings are ordered by ID. It fails when a node
// depends on an undeclared node or when the graph has a cycle.
func (g *Graph) TopologicalOrder() ([]NodeID, error) {
	ids := make([]NodeID, 0, len(g.nodes))
	for id, n := range g.nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("%s depends on undeclared dependency %s", id, dep)
			}
		}
		ids = append(ids, id)
	}
	sortIDs(ids)

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[NodeID]int, len(g.nodes))
	order := make([]NodeID, 0, len(g.nodes))

	var visit func(id NodeID, path []NodeID) error
	visit = func(id NodeID, path []NodeID) error {
		switch marks[id] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("dependency cycle detected: %s", formatCycle(append(path, id)))
		}
		marks[id] = visiting

		deps := g.Dependencies(id)
		sortIDs(deps)
		for _, dep := range deps {
			if err := visit(dep, append(path, id)); err != nil {
				return err
			}
		}

		marks[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func formatCycle(path []NodeID) string {
	// Trim the lead-in so the cycle starts at its repeated node.
	last := path[len(path)-1]
	for i, id := range path {
		if id == last {
			path = path[i:]
			break
		}
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

func sortIDs(ids []NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
