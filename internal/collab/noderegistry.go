package collab

import (
	"context"
	"fmt"
	"sort"

	"github.com/gobwas/glob"
)

// NodeEntry is one worker host in the live registry: a name and the set of
// labels it carries.
type NodeEntry struct {
	Name   string
	Labels []string
}

// StaticNodeRegistry is an in-memory NodeRegistry seeded from
// configuration: the core only ever selects against an already-live
// registry, it never implements worker allocation. Pattern matching uses
// gobwas/glob (e.g. "build-*").
type StaticNodeRegistry struct {
	Nodes []NodeEntry
}

// Resolve implements settings.NodeRegistry. When isLabel is false,
// nameOrLabel is matched against each node's Name; otherwise against each
// of its Labels. Exact matches are returned as-is; nameOrLabel containing
// glob metacharacters is compiled and matched. Results are sorted by name
// so first-match selection is deterministic across runs.
func (r *StaticNodeRegistry) Resolve(ctx context.Context, nameOrLabel string, isLabel bool) ([]string, error) {
	g, err := glob.Compile(nameOrLabel)
	if err != nil {
		return nil, fmt.Errorf("compiling node pattern %q: %w", nameOrLabel, err)
	}

	var matches []string
	for _, n := range r.Nodes {
		if isLabel {
			for _, l := range n.Labels {
				if g.Match(l) {
					matches = append(matches, n.Name)
					break
				}
			}
			continue
		}
		if g.Match(n.Name) {
			matches = append(matches, n.Name)
		}
	}

	sort.Strings(matches)
	return matches, nil
}
