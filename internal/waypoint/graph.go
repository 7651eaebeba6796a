package waypoint

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownWaypoint is returned when an id is not present in the graph.
	ErrUnknownWaypoint = errors.New("waypoint: unknown waypoint")
	// ErrInvalidGraph is returned by NewGraph when the table is inconsistent.
	ErrInvalidGraph = errors.New("waypoint: invalid graph")
)

// NoParent marks a waypoint without a parent constraint.
const NoParent = 0

// Record is the raw table entry a graph is built from.
type Record struct {
	ID       int
	Pose     Pose
	ParentID int
}

// Waypoint is a resolved, read-only graph entry.
type Waypoint struct {
	ID       int
	Pose     Pose
	ParentID int
}

// HasParent reports whether the waypoint must be routed through a parent.
func (w Waypoint) HasParent() bool {
	return w.ParentID != NoParent
}

type node struct {
	waypoint Waypoint
	parent   int // arena index, -1 when parent-free
}

// Graph is the immutable waypoint registry.
type Graph struct {
	arena []node
	index map[int]int
}

// NewGraph builds a graph from records. Parent references are resolved after
// every record is indexed, so declaration order does not matter.
func NewGraph(records []Record) (*Graph, error) {
	g := &Graph{
		arena: make([]node, 0, len(records)),
		index: make(map[int]int, len(records)),
	}
	for _, rec := range records {
		if _, dup := g.index[rec.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate waypoint %d", ErrInvalidGraph, rec.ID)
		}
		g.index[rec.ID] = len(g.arena)
		g.arena = append(g.arena, node{
			waypoint: Waypoint{ID: rec.ID, Pose: rec.Pose, ParentID: rec.ParentID},
			parent:   -1,
		})
	}
	for i := range g.arena {
		n := &g.arena[i]
		if !n.waypoint.HasParent() {
			continue
		}
		if n.waypoint.ParentID == n.waypoint.ID {
			return nil, fmt.Errorf("%w: waypoint %d is its own parent", ErrInvalidGraph, n.waypoint.ID)
		}
		idx, ok := g.index[n.waypoint.ParentID]
		if !ok {
			return nil, fmt.Errorf("%w: parent %d of waypoint %d not declared", ErrInvalidGraph, n.waypoint.ParentID, n.waypoint.ID)
		}
		n.parent = idx
	}
	for i := range g.arena {
		if _, err := g.chainFrom(i); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Len returns the number of waypoints.
func (g *Graph) Len() int {
	return len(g.arena)
}

// IDs returns waypoint ids in table order.
func (g *Graph) IDs() []int {
	ids := make([]int, 0, len(g.arena))
	for _, n := range g.arena {
		ids = append(ids, n.waypoint.ID)
	}
	return ids
}

// Has reports whether id is part of the graph.
func (g *Graph) Has(id int) bool {
	_, ok := g.index[id]
	return ok
}

// Get returns the waypoint with the given id.
func (g *Graph) Get(id int) (Waypoint, error) {
	idx, ok := g.index[id]
	if !ok {
		return Waypoint{}, fmt.Errorf("%w: %d", ErrUnknownWaypoint, id)
	}
	return g.arena[idx].waypoint, nil
}

// ParentOf returns the immediate parent of id, if any.
func (g *Graph) ParentOf(id int) (Waypoint, bool, error) {
	idx, ok := g.index[id]
	if !ok {
		return Waypoint{}, false, fmt.Errorf("%w: %d", ErrUnknownWaypoint, id)
	}
	p := g.arena[idx].parent
	if p < 0 {
		return Waypoint{}, false, nil
	}
	return g.arena[p].waypoint, true, nil
}

// ParentChain returns the ancestors of id, immediate parent first.
func (g *Graph) ParentChain(id int) ([]Waypoint, error) {
	idx, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWaypoint, id)
	}
	return g.chainFrom(idx)
}

func (g *Graph) chainFrom(idx int) ([]Waypoint, error) {
	var chain []Waypoint
	cur := g.arena[idx].parent
	for cur >= 0 {
		if len(chain) >= len(g.arena) {
			return nil, fmt.Errorf("%w: parent cycle through waypoint %d", ErrInvalidGraph, g.arena[idx].waypoint.ID)
		}
		chain = append(chain, g.arena[cur].waypoint)
		cur = g.arena[cur].parent
	}
	return chain, nil
}
