package workflow

import (
	"fmt"

	"github.com/giantswarm/bench/internal/apperr"
	"github.com/giantswarm/bench/internal/registry"
)

// Planner validates a WorkflowSpec's step graph and produces a total
// order consistent with depends_on.
type Planner struct {
	catalogue *registry.CommandCatalogue
}

// NewPlanner builds a Planner that resolves each step's "run" against
// the given catalogue.
func NewPlanner(catalogue *registry.CommandCatalogue) *Planner {
	return &Planner{catalogue: catalogue}
}

// Plan validates spec.Steps and returns them in execution order: a
// topological sort of the depends_on graph, breaking ties by original
// manifest order for determinism. Plan does not mutate spec; the result
// references the original StepSpec values.
func (p *Planner) Plan(spec WorkflowSpec) ([]StepSpec, error) {
	byID := make(map[string]int, len(spec.Steps))
	for i, s := range spec.Steps {
		if _, dup := byID[s.ID]; dup {
			return nil, apperr.Validationf(s.ID, "duplicate_step_id", "step id %q is used more than once", s.ID)
		}
		byID[s.ID] = i
	}

	for _, s := range spec.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := byID[dep]; !ok {
				return nil, apperr.Validationf(s.ID, "unknown_dependency",
					"step %q depends on unknown step %q", s.ID, dep)
			}
		}
		if _, err := p.catalogue.Lookup(s.Run); err != nil {
			return nil, apperr.Wrap(apperr.Validation, "unresolvable_command",
				fmt.Sprintf("step %q references unresolvable command %q", s.ID, s.Run), err)
		}
	}

	return topoSort(spec.Steps, byID)
}

// Dependents returns, for every step in spec, the full set of step IDs
// that depend on it transitively through depends_on. The runner consults
// this after a step fails to mark everything downstream of it Skipped
// instead of executing those steps with missing inputs.
func (p *Planner) Dependents(spec WorkflowSpec) map[string][]string {
	direct := directDependents(spec.Steps)
	transitive := make(map[string][]string, len(spec.Steps))
	for _, s := range spec.Steps {
		transitive[s.ID] = collectTransitive(s.ID, direct)
	}
	return transitive
}

func directDependents(steps []StepSpec) map[string][]string {
	dependents := make(map[string][]string, len(steps))
	for _, s := range steps {
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}
	return dependents
}

func collectTransitive(id string, direct map[string][]string) []string {
	seen := make(map[string]bool)
	var order []string
	queue := append([]string{}, direct[id]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if seen[next] {
			continue
		}
		seen[next] = true
		order = append(order, next)
		queue = append(queue, direct[next]...)
	}
	return order
}

// topoSort implements Kahn's algorithm over the depends_on graph. Ties
// among currently-ready nodes are broken by original manifest index so
// the result is deterministic and matches the teacher's ordering
// conventions elsewhere in the codebase (stable, input-order preserving).
func topoSort(steps []StepSpec, byID map[string]int) ([]StepSpec, error) {
	inDegree := make(map[string]int, len(steps))
	dependents := directDependents(steps)

	for _, s := range steps {
		inDegree[s.ID] = len(s.DependsOn)
	}

	ready := make([]string, 0, len(steps))
	for _, s := range steps {
		if inDegree[s.ID] == 0 {
			ready = append(ready, s.ID)
		}
	}
	sortByManifestOrder(ready, byID)

	var order []string
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)

		var newlyReady []string
		for _, dependent := range dependents[next] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 {
				newlyReady = append(newlyReady, dependent)
			}
		}
		sortByManifestOrder(newlyReady, byID)
		ready = mergeByManifestOrder(ready, newlyReady, byID)
	}

	if len(order) != len(steps) {
		return nil, apperr.New(apperr.Validation, "cyclic_dependency", "step dependency graph contains a cycle")
	}

	result := make([]StepSpec, 0, len(steps))
	for _, id := range order {
		result = append(result, steps[byID[id]])
	}
	return result, nil
}

func sortByManifestOrder(ids []string, byID map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && byID[ids[j-1]] > byID[ids[j]]; j-- {
			ids[j-1], ids[j] = ids[j], ids[j-1]
		}
	}
}

// mergeByManifestOrder merges two already-sorted (by manifest order) id
// slices into one sorted slice.
func mergeByManifestOrder(a, b []string, byID map[string]int) []string {
	if len(b) == 0 {
		return a
	}
	merged := make([]string, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if byID[a[i]] <= byID[b[j]] {
			merged = append(merged, a[i])
			i++
		} else {
			merged = append(merged, b[j])
			j++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)
	return merged
}
