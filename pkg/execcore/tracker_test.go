package execcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_AddAndResolve(t *testing.T) {
	tr := NewTracker()

	a := &fakeAnalyzer{class: "a"}
	b := &fakeAnalyzer{class: "b"}
	c := &fakeAnalyzer{class: "c"}

	tr.Add(b, a) // b depends on a
	tr.Add(c, a) // c depends on a

	assert.False(t, tr.IsEmpty())

	ready := tr.Resolve(a)
	assert.ElementsMatch(t, []Analyzer{b, c}, ready)

	assert.Empty(t, tr.GetDependencies(b))
	assert.Empty(t, tr.GetDependants(a))
}

func TestTracker_ResolveOnlyReadiesWhenAllDepsDone(t *testing.T) {
	tr := NewTracker()

	a := &fakeAnalyzer{class: "a"}
	b := &fakeAnalyzer{class: "b"}
	c := &fakeAnalyzer{class: "c"} // depends on both a and b

	tr.Add(c, a)
	tr.Add(c, b)

	readyAfterA := tr.Resolve(a)
	assert.Empty(t, readyAfterA, "c still depends on b")

	readyAfterB := tr.Resolve(b)
	assert.Equal(t, []Analyzer{c}, readyAfterB)
}

func TestTracker_RemoveSubtree(t *testing.T) {
	tr := NewTracker()

	a := &fakeAnalyzer{class: "a"}
	b := &fakeAnalyzer{class: "b"} // depends on a
	c := &fakeAnalyzer{class: "c"} // depends on b

	tr.Add(b, a)
	tr.Add(c, b)

	removed := tr.RemoveSubtree(a)
	assert.ElementsMatch(t, []Analyzer{b, c}, removed)
	assert.True(t, tr.IsEmpty())
}

func TestTracker_RemoveSubtreeStopsAtUnaffectedBranches(t *testing.T) {
	tr := NewTracker()

	a := &fakeAnalyzer{class: "a"}
	b := &fakeAnalyzer{class: "b"} // depends on a
	x := &fakeAnalyzer{class: "x"}
	y := &fakeAnalyzer{class: "y"} // depends on x, unrelated to a

	tr.Add(b, a)
	tr.Add(y, x)

	removed := tr.RemoveSubtree(a)
	assert.Equal(t, []Analyzer{b}, removed)

	assert.False(t, tr.IsEmpty())
	assert.Contains(t, tr.GetDependencies(y), x)
}
