package gridlate

import (
	"container/heap"
	"sort"
)

// DependencyGraph is the whole-workbook cell dependency graph. Nodes
// are interned into a dense integer id space with adjacency slices;
// an edge A->B means B's formula reads A. The graph is built once per
// workbook run and never mutated afterwards.
type DependencyGraph struct {
	ids        map[CoordKey]int
	coords     []CellCoordinate // id -> normalized coordinate
	dependents [][]int          // id -> ids of cells whose formulas read it
	precedents [][]int          // id -> ids of cells it reads
	isFormula  []bool           // id -> owns a formula
}

// BuildGraph constructs the dependency graph from every formula entry
// of a workbook. Cells that are referenced but own no formula are
// included as source nodes (raw inputs). Duplicate edges collapse.
func BuildGraph(entries []*FormulaEntry) *DependencyGraph {
	g := &DependencyGraph{
		ids: make(map[CoordKey]int),
	}

	for _, entry := range entries {
		owner := g.intern(entry.Coord)
		g.isFormula[owner] = true
	}

	edgeSeen := make(map[[2]int]struct{})
	for _, entry := range entries {
		owner := g.intern(entry.Coord)
		for _, dep := range entry.Deps {
			from := g.intern(dep)
			key := [2]int{from, owner}
			if _, dup := edgeSeen[key]; dup {
				continue
			}
			edgeSeen[key] = struct{}{}
			g.dependents[from] = append(g.dependents[from], owner)
			g.precedents[owner] = append(g.precedents[owner], from)
		}
	}

	// deterministic adjacency regardless of input order
	for id := range g.coords {
		g.sortByCoord(g.dependents[id])
		g.sortByCoord(g.precedents[id])
	}

	return g
}

func (g *DependencyGraph) intern(c CellCoordinate) int {
	key := c.Key()
	if id, exists := g.ids[key]; exists {
		return id
	}
	id := len(g.coords)
	g.ids[key] = id
	g.coords = append(g.coords, CellCoordinate{Sheet: key.Sheet, Col: key.Col, Row: key.Row})
	g.dependents = append(g.dependents, nil)
	g.precedents = append(g.precedents, nil)
	g.isFormula = append(g.isFormula, false)
	return id
}

func (g *DependencyGraph) sortByCoord(ids []int) {
	sort.Slice(ids, func(i, j int) bool {
		return g.coords[ids[i]].Less(g.coords[ids[j]])
	})
}

// sortedIDs returns all node ids ordered by (sheet, row, column).
func (g *DependencyGraph) sortedIDs() []int {
	ids := make([]int, len(g.coords))
	for i := range ids {
		ids[i] = i
	}
	sort.Slice(ids, func(i, j int) bool {
		return g.coords[ids[i]].Less(g.coords[ids[j]])
	})
	return ids
}

// NodeCount returns the number of distinct coordinates in the graph.
func (g *DependencyGraph) NodeCount() int {
	return len(g.coords)
}

// Contains reports whether the coordinate is a node in the graph.
func (g *DependencyGraph) Contains(c CellCoordinate) bool {
	_, exists := g.ids[c.Key()]
	return exists
}

// DirectDependents returns the cells whose formulas read the given
// cell, in (sheet, row, column) order.
func (g *DependencyGraph) DirectDependents(c CellCoordinate) []CellCoordinate {
	id, exists := g.ids[c.Key()]
	if !exists {
		return nil
	}
	return g.coordsOf(g.dependents[id])
}

// DirectPrecedents returns the cells the given cell's formula reads,
// in (sheet, row, column) order.
func (g *DependencyGraph) DirectPrecedents(c CellCoordinate) []CellCoordinate {
	id, exists := g.ids[c.Key()]
	if !exists {
		return nil
	}
	return g.coordsOf(g.precedents[id])
}

// InputCells returns the cells that are referenced by formulas but
// own no formula themselves, in (sheet, row, column) order.
func (g *DependencyGraph) InputCells() []CellCoordinate {
	var out []CellCoordinate
	for _, id := range g.sortedIDs() {
		if !g.isFormula[id] {
			out = append(out, g.coords[id])
		}
	}
	return out
}

func (g *DependencyGraph) coordsOf(ids []int) []CellCoordinate {
	out := make([]CellCoordinate, len(ids))
	for i, id := range ids {
		out[i] = g.coords[id]
	}
	return out
}

// dfs node colors
const (
	colorWhite = 0 // unvisited
	colorGray  = 1 // on the recursion stack
	colorBlack = 2 // finished
)

// Cycles runs depth-first search with an explicit recursion stack and
// returns one CircularReferenceError per cyclic component found, in
// deterministic order. An empty result means the graph is acyclic.
func (g *DependencyGraph) Cycles() []*CircularReferenceError {
	color := make([]int, len(g.coords))
	inCycle := make([]bool, len(g.coords))
	var stack []int
	var found []*CircularReferenceError

	var visit func(id int)
	visit = func(id int) {
		color[id] = colorGray
		stack = append(stack, id)

		for _, next := range g.dependents[id] {
			switch color[next] {
			case colorWhite:
				visit(next)
			case colorGray:
				// back edge: the cycle is the stack suffix from next
				start := len(stack) - 1
				for start >= 0 && stack[start] != next {
					start--
				}
				cycle := stack[start:]

				reported := false
				for _, member := range cycle {
					if inCycle[member] {
						reported = true
						break
					}
				}
				if !reported {
					coords := make([]CellCoordinate, len(cycle))
					for i, member := range cycle {
						coords[i] = g.coords[member]
						inCycle[member] = true
					}
					found = append(found, &CircularReferenceError{Cycle: coords})
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[id] = colorBlack
	}

	for _, id := range g.sortedIDs() {
		if color[id] == colorWhite {
			visit(id)
		}
	}

	return found
}

// EvaluationOrder computes a deterministic topological order via
// Kahn's algorithm, breaking ties among ready cells by (sheet, row,
// column) ascending. If the graph contains a cycle no order is
// produced and the first cycle is returned as the error.
func (g *DependencyGraph) EvaluationOrder() ([]CellCoordinate, error) {
	inDegree := make([]int, len(g.coords))
	for id := range g.coords {
		inDegree[id] = len(g.precedents[id])
	}

	ready := &coordHeap{graph: g}
	heap.Init(ready)
	for id := range g.coords {
		if inDegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	order := make([]CellCoordinate, 0, len(g.coords))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(int)
		order = append(order, g.coords[id])

		for _, next := range g.dependents[id] {
			inDegree[next]--
			if inDegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(order) != len(g.coords) {
		cycles := g.Cycles()
		if len(cycles) > 0 {
			return nil, cycles[0]
		}
		return nil, &CircularReferenceError{}
	}

	return order, nil
}

// coordHeap is a min-heap of node ids ordered by their coordinates.
type coordHeap struct {
	graph *DependencyGraph
	ids   []int
}

func (h *coordHeap) Len() int { return len(h.ids) }

func (h *coordHeap) Less(i, j int) bool {
	return h.graph.coords[h.ids[i]].Less(h.graph.coords[h.ids[j]])
}

func (h *coordHeap) Swap(i, j int) { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }

func (h *coordHeap) Push(x any) { h.ids = append(h.ids, x.(int)) }

func (h *coordHeap) Pop() any {
	last := h.ids[len(h.ids)-1]
	h.ids = h.ids[:len(h.ids)-1]
	return last
}
