package engine

import "container/heap"

// Schedule orders the nodes of g so that every field comes after the fields
// its modifiers read. Among nodes that are ready at the same time the one
// declared first wins. Self-edges never block. When the graph has a cycle no
// order is returned, only a *CyclicDependencyError.
func Schedule(g *Graph) ([]string, error) {
	pending := make(map[string]int, len(g.nodes))
	ready := &rankQueue{}
	for _, name := range g.nodes {
		count := 0
		for dep := range g.deps[name] {
			if dep != name {
				count++
			}
		}
		pending[name] = count
		if count == 0 {
			heap.Push(ready, g.rank[name])
		}
	}

	order := make([]string, 0, len(g.nodes))
	for ready.Len() > 0 {
		name := g.nodes[heap.Pop(ready).(int)]
		order = append(order, name)
		for user := range g.users[name] {
			if user == name {
				continue
			}
			pending[user]--
			if pending[user] == 0 {
				heap.Push(ready, g.rank[user])
			}
		}
	}

	if len(order) < len(g.nodes) {
		return nil, &CyclicDependencyError{Cycle: findCycle(g, pending)}
	}
	return order, nil
}

// findCycle walks unscheduled nodes from the earliest one, always following
// the earliest unscheduled dependency, until a node repeats. Every
// unscheduled node has such a dependency so the walk must close a loop.
func findCycle(g *Graph, pending map[string]int) []string {
	var start string
	for _, name := range g.nodes {
		if pending[name] > 0 {
			start = name
			break
		}
	}

	seen := map[string]int{}
	var path []string
	for current := start; ; {
		if at, ok := seen[current]; ok {
			return append(path[at:], current)
		}
		seen[current] = len(path)
		path = append(path, current)

		next := ""
		for _, dep := range g.Dependencies(current) {
			if dep != current && pending[dep] > 0 {
				next = dep
				break
			}
		}
		if next == "" {
			return path
		}
		current = next
	}
}

// rankQueue is a min-heap of node ranks.
type rankQueue []int

func (q rankQueue) Len() int           { return len(q) }
func (q rankQueue) Less(i, j int) bool { return q[i] < q[j] }
func (q rankQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *rankQueue) Push(x any)        { *q = append(*q, x.(int)) }
func (q *rankQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}
