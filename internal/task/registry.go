// Package task provides named, composable build steps.
//
// A task is either a leaf wrapping a single function or a composite that runs
// other tasks in series or in parallel. Each requested task is flattened into
// its own dependency graph of leaves before execution. A leaf reached twice
// within one task runs once; a leaf named by two requested tasks runs once
// for each.
package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/themekit/internal/dag"
)

// Func is the body of a leaf task.
type Func func(ctx context.Context) error

// Kind distinguishes leaves from composites.
type Kind int

// Task kinds.
const (
	KindLeaf Kind = iota
	KindSeries
	KindParallel
)

func (k Kind) String() string {
	switch k {
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return "task"
	}
}

// Task describes a registered task.
type Task struct {
	Name        string
	Description string
	Kind        Kind
	Steps       []string
	fn          Func
}

// Registry holds named tasks.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register adds a leaf task.
func (r *Registry) Register(name, description string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("task %q: nil function", name)
	}
	return r.add(&Task{Name: name, Description: description, Kind: KindLeaf, fn: fn})
}

// Series adds a composite that runs steps one after another.
func (r *Registry) Series(name, description string, steps ...string) error {
	return r.add(&Task{Name: name, Description: description, Kind: KindSeries, Steps: steps})
}

// Parallel adds a composite whose steps run concurrently.
func (r *Registry) Parallel(name, description string, steps ...string) error {
	return r.add(&Task{Name: name, Description: description, Kind: KindParallel, Steps: steps})
}

func (r *Registry) add(t *Task) error {
	if t.Name == "" {
		return fmt.Errorf("task name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[t.Name]; exists {
		return fmt.Errorf("task %q already registered", t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

// Get returns a task by name.
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// All returns every task sorted by name.
func (r *Registry) All() []*Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Plan flattens the named tasks, run in series, into execution levels of
// leaf task names. Leaves within a level may run concurrently. Every name is
// planned on its own graph, so requesting "build" then "zip" runs the build
// steps twice.
func (r *Registry) Plan(names ...string) ([][]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var levels [][]string
	for _, name := range names {
		g := dag.NewGraph()
		if _, _, err := r.expand(g, name, nil); err != nil {
			return nil, err
		}
		lv, err := g.GetExecutionLevels()
		if err != nil {
			return nil, fmt.Errorf("invalid task graph for %q: %w", name, err)
		}
		levels = append(levels, lv...)
	}
	return levels, nil
}

// expand adds the leaves of name to g and returns the leaves that start and
// finish it. A leaf already in g contributes nothing, which keeps g acyclic.
func (r *Registry) expand(g *dag.Graph, name string, stack []string) (sources, sinks []string, err error) {
	for _, s := range stack {
		if s == name {
			return nil, nil, fmt.Errorf("task %q references itself via %v", name, append(stack, name))
		}
	}

	t, ok := r.tasks[name]
	if !ok {
		return nil, nil, fmt.Errorf("task %q is not defined", name)
	}
	stack = append(stack, name)

	switch t.Kind {
	case KindSeries:
		var prevSinks []string
		for _, step := range t.Steps {
			src, snk, err := r.expand(g, step, stack)
			if err != nil {
				return nil, nil, err
			}
			if len(src) == 0 {
				continue
			}
			if err := link(g, prevSinks, src); err != nil {
				return nil, nil, err
			}
			if sources == nil {
				sources = src
			}
			prevSinks = snk
		}
		return sources, prevSinks, nil

	case KindParallel:
		for _, step := range t.Steps {
			src, snk, err := r.expand(g, step, stack)
			if err != nil {
				return nil, nil, err
			}
			sources = append(sources, src...)
			sinks = append(sinks, snk...)
		}
		return sources, sinks, nil

	default:
		if g.HasNode(name) {
			return nil, nil, nil
		}
		g.AddNode(name)
		return []string{name}, []string{name}, nil
	}
}

func link(g *dag.Graph, from, to []string) error {
	for _, f := range from {
		for _, t := range to {
			if f == t {
				continue
			}
			if err := g.AddEdge(f, t); err != nil {
				return err
			}
		}
	}
	return nil
}
