// Package dag provides directed acyclic graph operations for task ordering.
// It detects cycles and groups steps into execution levels that can run
// concurrently.
package dag

import (
	"fmt"
	"sort"
)

// Graph represents a directed acyclic graph of named steps.
type Graph struct {
	nodes   map[string]struct{}
	edges   map[string][]string // step -> steps that run after it
	parents map[string][]string // step -> steps that must finish first
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]struct{}),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a step to the graph. Adding an existing step is a no-op.
func (g *Graph) AddNode(id string) {
	if _, exists := g.nodes[id]; exists {
		return
	}
	g.nodes[id] = struct{}{}
	g.edges[id] = []string{}
	g.parents[id] = []string{}
}

// HasNode reports whether the step exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge adds a directed edge: after runs once before has finished.
func (g *Graph) AddEdge(before, after string) error {
	if _, exists := g.nodes[before]; !exists {
		return fmt.Errorf("step %q does not exist", before)
	}
	if _, exists := g.nodes[after]; !exists {
		return fmt.Errorf("step %q does not exist", after)
	}
	if before == after {
		return fmt.Errorf("self-loop detected: %s", before)
	}

	if !contains(g.edges[before], after) {
		g.edges[before] = append(g.edges[before], after)
	}
	if !contains(g.parents[after], before) {
		g.parents[after] = append(g.parents[after], before)
	}
	return nil
}

// GetParents returns the steps that must finish before id.
func (g *Graph) GetParents(id string) []string {
	return g.parents[id]
}

// GetChildren returns the steps that wait on id.
func (g *Graph) GetChildren(id string) []string {
	return g.edges[id]
}

// NodeCount returns the number of steps in the graph.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.sortedIDs() {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}

	return false, nil
}

// GetExecutionLevels returns steps grouped by execution level.
// Steps at level N can run concurrently once level N-1 has completed.
// Level 0 contains steps with no prerequisites.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}

	assigned := make(map[string]int)

	var getLevel func(id string) int
	getLevel = func(id string) int {
		if level, ok := assigned[id]; ok {
			return level
		}

		maxParentLevel := -1
		for _, parentID := range g.parents[id] {
			if l := getLevel(parentID); l > maxParentLevel {
				maxParentLevel = l
			}
		}

		assigned[id] = maxParentLevel + 1
		return maxParentLevel + 1
	}

	maxLevel := 0
	for id := range g.nodes {
		if level := getLevel(id); level > maxLevel {
			maxLevel = level
		}
	}

	levels := make([][]string, maxLevel+1)
	for i := range levels {
		levels[i] = []string{}
	}
	for id, level := range assigned {
		levels[level] = append(levels[level], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}

	return levels, nil
}

func (g *Graph) sortedIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func contains(slice []string, str string) bool {
	for _, s := range slice {
		if s == str {
			return true
		}
	}
	return false
}
