// Package depgraph orders tables so that every FK parent precedes its
// children. A cycle among FK edges is a fatal input error and is reported
// with the offending path.
package depgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Pragadeesh-19/replica-db/internal/catalog"
)

// TableRelations records the parent tables of each table, for reporting.
type TableRelations struct {
	Parents map[string][]string // table -> referenced parent tables
}

// Resolve returns the tables in topological order (parents before children).
// Self-referencing FKs are ignored for ordering purposes. Ties are broken by
// name so the order is stable across runs.
func Resolve(tables []*catalog.Table) ([]string, *TableRelations, error) {
	byName := make(map[string]*catalog.Table, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}

	inDegree := make(map[string]int, len(tables))
	children := make(map[string][]string)
	relations := &TableRelations{Parents: make(map[string][]string)}

	for _, t := range tables {
		inDegree[t.Name] = 0
	}
	for _, t := range tables {
		for _, parent := range parentTables(t, byName) {
			children[parent] = append(children[parent], t.Name)
			inDegree[t.Name]++
			relations.Parents[t.Name] = append(relations.Parents[t.Name], parent)
		}
	}

	// Kahn's algorithm with a sorted frontier for deterministic order.
	var queue []string
	for name, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, name)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		var freed []string
		for _, child := range children[node] {
			inDegree[child]--
			if inDegree[child] == 0 {
				freed = append(freed, child)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(order) != len(tables) {
		cycle := detectCycle(byName)
		return nil, nil, fmt.Errorf("circular foreign key dependency detected: %s", strings.Join(cycle, " -> "))
	}

	return order, relations, nil
}

// parentTables returns the distinct non-self tables t references.
func parentTables(t *catalog.Table, all map[string]*catalog.Table) []string {
	seen := make(map[string]bool)
	var parents []string
	for _, fk := range t.ForeignKeys {
		if fk.RefTable == t.Name || seen[fk.RefTable] {
			continue
		}
		if _, ok := all[fk.RefTable]; !ok {
			continue
		}
		seen[fk.RefTable] = true
		parents = append(parents, fk.RefTable)
	}
	sort.Strings(parents)
	return parents
}

func detectCycle(tables map[string]*catalog.Table) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	color := make(map[string]int)
	parent := make(map[string]string)

	var names []string
	for name := range tables {
		color[name] = white
		names = append(names, name)
	}
	sort.Strings(names)

	var cyclePath []string

	var dfs func(node string) bool
	dfs = func(node string) bool {
		color[node] = gray
		for _, next := range parentTables(tables[node], tables) {
			if color[next] == gray {
				// Found a cycle; reconstruct the path back to next.
				cyclePath = []string{next, node}
				cur := node
				for cur != next {
					cur = parent[cur]
					cyclePath = append(cyclePath, cur)
				}
				for i, j := 0, len(cyclePath)-1; i < j; i, j = i+1, j-1 {
					cyclePath[i], cyclePath[j] = cyclePath[j], cyclePath[i]
				}
				return true
			}
			if color[next] == white {
				parent[next] = node
				if dfs(next) {
					return true
				}
			}
		}
		color[node] = black
		return false
	}

	for _, name := range names {
		if color[name] == white {
			if dfs(name) {
				return cyclePath
			}
		}
	}

	return []string{"(unknown cycle)"}
}
