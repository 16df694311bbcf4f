package plan

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/grimoire/internal/canon"
	"github.com/roach88/grimoire/internal/enrich"
	"github.com/roach88/grimoire/internal/entity"
)

// Plan is an execution order over a closed set of enrichers.
type Plan struct {
	// Order lists every enricher in the closure exactly once, each after all
	// of its dependencies.
	Order []*enrich.Enricher

	// Tables is the distinct (name, key) table set, in first appearance
	// order along Order.
	Tables []enrich.TableRef
}

// Names returns the enricher names in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.Order))
	for i, e := range p.Order {
		names[i] = e.Name
	}
	return names
}

// Hash fingerprints the plan's order and table set.
func (p *Plan) Hash() (string, error) {
	return canon.Hash(canon.DomainPlan, map[string]any{
		"order":  p.Names(),
		"tables": p.Tables,
	})
}

// Build computes the execution plan for requested.
//
// Errors:
//   - INVALID_ENRICHER for a malformed descriptor in the closure
//   - CYCLE_DETECTED for the first dependency cycle found
//   - UNSATISFIED_REQUIREMENT when a Requires field has no provider
func Build(requested map[string]*enrich.Enricher) (*Plan, error) {
	nodes, err := discover(requested)
	if err != nil {
		return nil, err
	}

	order, err := topoSort(nodes)
	if err != nil {
		return nil, err
	}

	if err := checkContracts(order); err != nil {
		return nil, err
	}

	return &Plan{Order: order, Tables: collectTables(order)}, nil
}

// discover returns the dependency closure of requested in BFS order.
// Enrichers are identified by name. Reaching the same enricher again is not
// an error; reaching a different enricher under a taken name is.
func discover(requested map[string]*enrich.Enricher) ([]*enrich.Enricher, error) {
	var (
		nodes []*enrich.Enricher
		seen  = make(map[string]*enrich.Enricher)
		queue []*enrich.Enricher
	)

	keys := make([]string, 0, len(requested))
	for k := range requested {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		queue = append(queue, requested[k])
	}

	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]

		if err := e.Validate(); err != nil {
			return nil, err
		}
		if prev, ok := seen[e.Name]; ok {
			if prev != e {
				return nil, &enrich.Error{
					Code:     enrich.ErrCodeInvalidEnricher,
					Message:  "name shared by two different enrichers",
					Enricher: e.Name,
				}
			}
			continue
		}
		seen[e.Name] = e
		nodes = append(nodes, e)

		for _, role := range e.Roles() {
			queue = append(queue, e.Dependencies[role])
		}
	}
	return nodes, nil
}

// topoSort orders nodes with a depth-first walk over the dependents graph.
// Finished nodes are prepended, so each node lands ahead of everything that
// depends on it.
func topoSort(nodes []*enrich.Enricher) ([]*enrich.Enricher, error) {
	byName := make(map[string]*enrich.Enricher, len(nodes))
	dependents := make(map[string][]string, len(nodes))
	for _, e := range nodes {
		byName[e.Name] = e
	}
	for _, e := range nodes {
		for _, role := range e.Roles() {
			dep := e.Dependencies[role].Name
			if !slices.Contains(dependents[dep], e.Name) {
				dependents[dep] = append(dependents[dep], e.Name)
			}
		}
	}

	var (
		order  = make([]*enrich.Enricher, len(nodes))
		next   = len(nodes) - 1
		done   = make(map[string]bool, len(nodes))
		onPath = make(map[string]bool)
		path   []string
	)

	var visit func(name string) error
	visit = func(name string) error {
		if done[name] {
			return nil
		}
		if onPath[name] {
			start := slices.Index(path, name)
			cycle := append(slices.Clone(path[start:]), name)
			return enrich.NewCycleError(cycle)
		}

		onPath[name] = true
		path = append(path, name)
		for _, d := range dependents[name] {
			if err := visit(d); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		onPath[name] = false

		done[name] = true
		order[next] = byName[name]
		next--
		return nil
	}

	for _, e := range nodes {
		if err := visit(e.Name); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// checkContracts verifies every required field is intrinsic or provided by
// a transitive dependency.
func checkContracts(order []*enrich.Enricher) error {
	for _, e := range order {
		if len(e.Requires) == 0 {
			continue
		}
		provided := make(map[string]bool)
		for _, dep := range closure(e) {
			for _, f := range dep.Provides {
				provided[f] = true
			}
		}
		for _, f := range e.Requires {
			if slices.Contains(entity.IntrinsicFields, f) || provided[f] {
				continue
			}
			return &enrich.Error{
				Code:     enrich.ErrCodeUnsatisfiedRequirement,
				Message:  fmt.Sprintf("required field %q is not provided by any dependency", f),
				Enricher: e.Name,
			}
		}
	}
	return nil
}

// closure returns the transitive dependencies of e, excluding e.
func closure(e *enrich.Enricher) []*enrich.Enricher {
	var out []*enrich.Enricher
	seen := map[string]bool{e.Name: true}
	stack := []*enrich.Enricher{e}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, role := range cur.Roles() {
			dep := cur.Dependencies[role]
			if seen[dep.Name] {
				continue
			}
			seen[dep.Name] = true
			out = append(out, dep)
			stack = append(stack, dep)
		}
	}
	return out
}

func collectTables(order []*enrich.Enricher) []enrich.TableRef {
	var tables []enrich.TableRef
	seen := make(map[enrich.TableRef]bool)
	for _, e := range order {
		for _, t := range e.Tables {
			if seen[t] {
				continue
			}
			seen[t] = true
			tables = append(tables, t)
		}
	}
	return tables
}

// String renders the order as "a -> b -> c".
func (p *Plan) String() string {
	return strings.Join(p.Names(), " -> ")
}
