package execcore

import "sync"

// Tracker is the bidirectional dependency-edge store (C1): for every edge
// added, it knows both "analyzer depends on" and "analyzer is depended on
// by". It is the sole source of truth for analyzer readiness.
//
// The scheduler is documented as the sole mutator of Tracker state, but
// Tracker still guards its maps with a mutex: it is cheap insurance and
// keeps the type safe to use from tests that poke it directly from more
// than one goroutine.
type Tracker struct {
	mu          sync.Mutex
	dependencies map[Analyzer]map[Analyzer]struct{}
	dependants   map[Analyzer]map[Analyzer]struct{}
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		dependencies: make(map[Analyzer]map[Analyzer]struct{}),
		dependants:   make(map[Analyzer]map[Analyzer]struct{}),
	}
}

// Add registers an edge: dependant depends on dependency. Both mappings are
// updated. Adding the same edge twice is a no-op.
func (t *Tracker) Add(dependant, dependency Analyzer) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.dependencies[dependant] == nil {
		t.dependencies[dependant] = make(map[Analyzer]struct{})
	}

	t.dependencies[dependant][dependency] = struct{}{}

	if t.dependants[dependency] == nil {
		t.dependants[dependency] = make(map[Analyzer]struct{})
	}

	t.dependants[dependency][dependant] = struct{}{}
}

// Resolve is called when dependency completes all its tasks successfully.
// It removes dependency from every dependant's outstanding set and returns
// the dependants whose outstanding set just became empty (newly ready).
func (t *Tracker) Resolve(dependency Analyzer) []Analyzer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var newlyReady []Analyzer

	for dependant := range t.dependants[dependency] {
		deps := t.dependencies[dependant]
		if deps == nil {
			continue
		}

		delete(deps, dependency)

		if len(deps) == 0 {
			delete(t.dependencies, dependant)

			newlyReady = append(newlyReady, dependant)
		}
	}

	delete(t.dependants, dependency)

	return newlyReady
}

// RemoveSubtree is called when an analyzer fails. It returns the transitive
// closure of dependants that must never be scheduled, and purges every
// entry belonging to the failed analyzer and to that closure.
func (t *Tracker) RemoveSubtree(failed Analyzer) []Analyzer {
	t.mu.Lock()
	defer t.mu.Unlock()

	var closure []Analyzer

	queue := []Analyzer{failed}
	seen := map[Analyzer]struct{}{failed: {}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for dependant := range t.dependants[cur] {
			if _, ok := seen[dependant]; ok {
				continue
			}

			seen[dependant] = struct{}{}
			closure = append(closure, dependant)
			queue = append(queue, dependant)
		}
	}

	purge := append([]Analyzer{failed}, closure...)
	for _, a := range purge {
		for dep := range t.dependencies[a] {
			delete(t.dependants[dep], a)
		}

		delete(t.dependencies, a)
		delete(t.dependants, a)
	}

	return closure
}

// IsEmpty reports whether no edges remain in the tracker.
func (t *Tracker) IsEmpty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.dependencies) == 0 && len(t.dependants) == 0
}

// GetDependencies returns a read-only snapshot of what x still depends on.
func (t *Tracker) GetDependencies(x Analyzer) []Analyzer {
	t.mu.Lock()
	defer t.mu.Unlock()

	return keysOf(t.dependencies[x])
}

// GetDependants returns a read-only snapshot of what still depends on x.
func (t *Tracker) GetDependants(x Analyzer) []Analyzer {
	t.mu.Lock()
	defer t.mu.Unlock()

	return keysOf(t.dependants[x])
}

func keysOf(set map[Analyzer]struct{}) []Analyzer {
	if len(set) == 0 {
		return nil
	}

	out := make([]Analyzer, 0, len(set))
	for a := range set {
		out = append(out, a)
	}

	return out
}
