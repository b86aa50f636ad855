package objectmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ember/internal/object"
	"ember/internal/stack"
	"ember/internal/value"
)

func newTestManager() *Manager {
	m := New(stack.New())
	m.Spawn(object.NullHandle, "Application", nil, nil) // becomes root, handle 1
	return m
}

func TestSpawnRootGetsHandleOne(t *testing.T) {
	m := newTestManager()
	assert.True(t, m.Exists(object.RootHandle))
	assert.Equal(t, 1, m.Count())
}

func TestSpawnChildIsAddedToParent(t *testing.T) {
	m := newTestManager()
	child := m.Spawn(object.RootHandle, "Player", nil, nil)
	root := m.Get(object.RootHandle)
	assert.Contains(t, root.Children(), child)
}

func TestGetUnknownHandlePanics(t *testing.T) {
	m := newTestManager()
	assert.Panics(t, func() { m.Get(object.Handle(999)) })
}

func TestDeleteFreesHandleForReuse(t *testing.T) {
	m := newTestManager()
	child := m.Spawn(object.RootHandle, "Player", nil, nil)

	require.True(t, m.Delete(child))
	assert.False(t, m.Exists(child))

	reused := m.Spawn(object.RootHandle, "Enemy", nil, nil)
	assert.Equal(t, child, reused, "freed handle should be reused before a new slot is appended")
}

func TestWellKnownLookupFindsDirectRootChild(t *testing.T) {
	m := newTestManager()
	strHandle := m.Spawn(object.RootHandle, "String", nil, nil)

	assert.Equal(t, strHandle, m.StringUtility())
	assert.Equal(t, object.NullHandle, m.NumberUtility())
}

func TestWellKnownLookupIgnoresGrandchildren(t *testing.T) {
	m := newTestManager()
	mid := m.Spawn(object.RootHandle, "Group", nil, nil)
	m.Spawn(mid, "Number", nil, nil)

	assert.Equal(t, object.NullHandle, m.NumberUtility(), "well-known lookup only searches root's direct children")
}

// TestGCSweepUnreachableSubtree builds root -> A -> {B, C}, then unlinks A
// from root's child set without touching B or C's link to A. The
// parent/child relation is itself a reachability edge, same as any heap
// cell or stack slot holding an ObjectHandle; once A is detached, tracing
// from root never reaches A, B, or C, so a completed cycle kills all three
// while root survives.
func TestGCSweepUnreachableSubtree(t *testing.T) {
	m := newTestManager()
	a := m.Spawn(object.RootHandle, "A", nil, nil)
	b := m.Spawn(a, "B", nil, nil)
	c := m.Spawn(a, "C", nil, nil)

	m.Get(object.RootHandle).RemoveChild(a)

	m.RunFullCycle()

	assert.True(t, m.Get(a).IsKilled())
	assert.True(t, m.Get(b).IsKilled())
	assert.True(t, m.Get(c).IsKilled())
	assert.False(t, m.Get(object.RootHandle).IsKilled())
}

func TestGCLeavesReachableObjectsAlone(t *testing.T) {
	m := newTestManager()
	player := m.Spawn(object.RootHandle, "Player", nil, nil)

	m.RunFullCycle()

	assert.False(t, m.Get(player).IsKilled())
	assert.False(t, m.Get(player).IsReachable(), "reachability bit is false outside a collection cycle")
}

func TestGCBelowDisposalThresholdOnlyUnmarks(t *testing.T) {
	// With MinObjectsForDisposal == 1, any unreachable count triggers a
	// sweep; this test documents that a fully-reachable graph never kills
	// anything, exercising the "else" branch's unmark path indirectly.
	m := newTestManager()
	m.RunFullCycle()
	assert.False(t, m.Get(object.RootHandle).IsKilled())
}

func TestReapKilledRemovesFromTableAndParent(t *testing.T) {
	m := newTestManager()
	a := m.Spawn(object.RootHandle, "A", nil, nil)
	m.Get(a).Kill()

	m.ReapKilled()

	assert.False(t, m.Exists(a))
	assert.NotContains(t, m.Get(object.RootHandle).Children(), a)
}

// TestReachableViaStackSurvivesSweep shows that a stack-held reference
// keeps an object alive even after it has been unlinked from the
// ownership tree, while a sibling unlinked the same way with no stack
// reference does not survive.
func TestReachableViaStackSurvivesSweep(t *testing.T) {
	s := stack.New()
	m := New(s)
	m.Spawn(object.NullHandle, "Application", nil, nil)
	referenced := m.Spawn(object.RootHandle, "Tracked", nil, nil)
	unreferenced := m.Spawn(object.RootHandle, "Untracked", nil, nil)

	m.Get(object.RootHandle).RemoveChild(referenced)
	m.Get(object.RootHandle).RemoveChild(unreferenced)
	s.Push(value.Object(uint32(referenced)))

	m.RunFullCycle()

	assert.False(t, m.Get(referenced).IsKilled(), "an object referenced from the stack is a GC root even once detached from the tree")
	assert.True(t, m.Get(unreferenced).IsKilled(), "an object with no tree, heap, or stack reference is collected")
}
