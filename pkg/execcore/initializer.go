package execcore

// InitializeDependencies is C2: given a seed set of analyzer instances, it
// walks each instance's declared dependency classes, instantiates missing
// dependency analyzers through registry (reusing compatible existing
// instances by identity), registers edges in a fresh Tracker, and returns
// the set of analyzers with zero remaining dependencies — ready to run.
//
// Out-of-order grouping: instances sharing (class, section, file_dict)
// collapse to one regardless of discovery order, via a canonical index
// keyed by identity, not by sequential grouping.
func InitializeDependencies(seeds []Analyzer, registry Registry) (*Tracker, []Analyzer, error) {
	tracker := NewTracker()
	shadow := newShadowGraph()

	canonical := make(map[identity]Analyzer)
	var worklist []Analyzer

	for _, seed := range seeds {
		id := identityOf(seed)
		if _, exists := canonical[id]; exists {
			continue
		}

		canonical[id] = seed
		worklist = append(worklist, seed)
	}

	// registered tracks every instance ever pushed onto the worklist, so the
	// final ready set can be computed once the graph is fully built.
	registered := make([]Analyzer, len(worklist))
	copy(registered, worklist)

	for len(worklist) > 0 {
		analyzer := worklist[0]
		worklist = worklist[1:]

		section := analyzer.Section()
		fileDict := analyzer.FileDict()

		for _, depClass := range analyzer.Dependencies() {
			depID := identity{class: depClass, section: section, fileDict: fileDict}

			dep, exists := canonical[depID]
			if !exists {
				instance, err := registry.New(depClass, section, fileDict)
				if err != nil {
					return nil, nil, err
				}

				dep = instance
				canonical[depID] = dep
				worklist = append(worklist, dep)
				registered = append(registered, dep)
			}

			if cycle := shadow.addEdge(analyzer, dep); cycle != nil {
				return nil, nil, cycleError(cycle)
			}

			tracker.Add(analyzer, dep)
		}
	}

	ready := make([]Analyzer, 0, len(registered))

	for _, a := range registered {
		if len(tracker.GetDependencies(a)) == 0 {
			ready = append(ready, a)
		}
	}

	return tracker, ready, nil
}
