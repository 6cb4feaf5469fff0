package execcore

import (
	"fmt"

	"github.com/Sumatoshi-tech/codefang/pkg/toposort"
)

// shadowGraph mirrors the edges C2 is building, keyed by each instance's
// identity string, purely so cycle detection can reuse pkg/toposort's
// IntGraph-backed Graph instead of a second hand-rolled DFS.
type shadowGraph struct {
	graph *toposort.Graph
}

func newShadowGraph() *shadowGraph {
	return &shadowGraph{graph: toposort.NewGraph()}
}

// addEdge registers dependant -> dependency and reports the cycle
// containing dependant, if the new edge just created one.
func (g *shadowGraph) addEdge(dependant, dependency Analyzer) []string {
	from := identityOf(dependant).String()
	to := identityOf(dependency).String()

	g.graph.AddEdge(from, to)

	cycle := g.graph.FindCycle(from)
	if len(cycle) == 0 {
		return nil
	}

	return cycle
}

func cycleError(cycle []string) error {
	return fmt.Errorf("%w: %v", ErrCyclicDependency, cycle)
}
