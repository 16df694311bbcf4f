package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/grimoire/internal/enrich"
)

// Cycle describes one strongly connected group of enrichers.
type Cycle struct {
	Path    []string `json:"path"` // [a, b, a]
	Message string   `json:"message"`
}

// Cycles reports every dependency cycle reachable from requested, using
// Tarjan's strongly connected components. Unlike Build it never fails: a
// graph with no cycles yields an empty slice.
func Cycles(requested map[string]*enrich.Enricher) []Cycle {
	g := dependencyGraph(requested)

	cycles := []Cycle{}
	for _, scc := range tarjanSCC(g) {
		if len(scc) == 1 && !slices.Contains(g.edges[scc[0]], scc[0]) {
			continue
		}
		cycles = append(cycles, toCycle(scc, g))
	}
	return cycles
}

type graph struct {
	nodes []string            // discovery order
	edges map[string][]string // enricher -> dependencies
}

func dependencyGraph(requested map[string]*enrich.Enricher) graph {
	g := graph{edges: make(map[string][]string)}

	keys := make([]string, 0, len(requested))
	for k := range requested {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var queue []*enrich.Enricher
	for _, k := range keys {
		if requested[k] != nil {
			queue = append(queue, requested[k])
		}
	}

	seen := make(map[string]bool)
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		g.nodes = append(g.nodes, e.Name)
		g.edges[e.Name] = []string{}

		for _, role := range e.Roles() {
			dep := e.Dependencies[role]
			if dep == nil {
				continue
			}
			g.edges[e.Name] = append(g.edges[e.Name], dep.Name)
			queue = append(queue, dep)
		}
	}
	return g
}

func tarjanSCC(g graph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, n := range g.nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// toCycle walks the SCC from its alphabetically first member back to
// itself, following dependency edges.
func toCycle(scc []string, g graph) Cycle {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)

	path := []string{start}
	visited := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, w := range g.edges[cur] {
			if w == start {
				next = w
				break
			}
			if next == "" && members[w] && !visited[w] {
				next = w
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		visited[next] = true
		cur = next
	}

	return Cycle{
		Path:    path,
		Message: fmt.Sprintf("dependency cycle: %s", strings.Join(path, " -> ")),
	}
}
