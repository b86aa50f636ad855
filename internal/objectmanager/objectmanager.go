// Package objectmanager implements the runtime's Object Manager and
// incremental mark-and-sweep garbage collector: a dense handle table,
// spawn/get/delete, well-known-name lookups, and a time-sliced collection
// cycle driven by repeated calls to CollectGarbage.
package objectmanager

import (
	"ember/internal/errors"
	"ember/internal/object"
	"ember/internal/stack"
)

// MinObjectsForDisposal is the minimum number of unreachable objects a
// completed scan must find before the sweep phase actually kills anything;
// below this threshold only marks are cleared.
const MinObjectsForDisposal = 1

// Manager owns the dense object table and the GC work-state that survives
// across calls to CollectGarbage.
type Manager struct {
	data  []*object.Object // data[0] is always nil
	count int

	stack *stack.Stack

	toBeScanned       []object.Handle
	firstToBeScanned  int
	reachablesCount   int
	handlePtr         object.Handle
}

// New creates a manager with an empty table (slot 0 reserved as the null
// sentinel) bound to the given stack for GC root-scanning.
func New(s *stack.Stack) *Manager {
	return &Manager{
		data:      make([]*object.Object, 1), // slot 0: NullHandle, always nil
		stack:     s,
		handlePtr: 1,
	}
}

func isPowerOfTwo(n object.Handle) bool {
	return n != 0 && n&(n-1) == 0
}

// newHandle finds the next unused slot, scanning forward from handlePtr.
func (m *Manager) newHandle() object.Handle {
	for int(m.handlePtr) < len(m.data) && m.data[m.handlePtr] != nil {
		m.handlePtr++
	}
	return m.handlePtr
}

// Spawn allocates a handle, constructs the object, hangs it under parent
// (unless it is the root itself), and runs its constructor via init, which
// the caller supplies (the object manager has no notion of a program pool
// of its own; the runtime environment wires construction).
func (m *Manager) Spawn(parent object.Handle, typeName string, userData interface{}, init func(*object.Object)) object.Handle {
	handle := m.newHandle()
	obj := object.New(handle, typeName, userData)

	m.count++
	if int(handle) >= len(m.data) {
		m.data = append(m.data, obj)
		if isPowerOfTwo(object.Handle(len(m.data))) {
			m.handlePtr = maxHandle(2, handle/2)
		}
	} else {
		m.data[handle] = obj
	}

	if handle != object.RootHandle {
		parentObj := m.Get(parent)
		parentObj.AddChild(handle)
	}

	if init != nil {
		init(obj)
	}
	return handle
}

func maxHandle(a, b object.Handle) object.Handle {
	if a > b {
		return a
	}
	return b
}

// Exists reports whether handle points to a live object.
func (m *Manager) Exists(handle object.Handle) bool {
	return int(handle) < len(m.data) && m.data[handle] != nil
}

// Get returns the object at handle. An unknown handle is fatal, matching
// surgescript_objectmanager_get.
func (m *Manager) Get(handle object.Handle) *object.Object {
	if int(handle) < len(m.data) && m.data[handle] != nil {
		return m.data[handle]
	}
	errors.Fatal("objectmanager: null pointer exception (can't find object 0x%X)", handle)
	return nil
}

// Delete destroys the object at handle and frees its slot for reuse. It
// reports whether an object was actually present.
func (m *Manager) Delete(handle object.Handle) bool {
	if int(handle) < len(m.data) && m.data[handle] != nil {
		m.data[handle].Destroy()
		m.data[handle] = nil
		m.count--
		return true
	}
	return false
}

// Count reports the number of currently allocated objects.
func (m *Manager) Count() int { return m.count }

// Root returns the fixed root handle.
func (m *Manager) Root() object.Handle { return object.RootHandle }

// Null returns the fixed null handle.
func (m *Manager) Null() object.Handle { return object.NullHandle }

func (m *Manager) findWellKnownChild(typeName string) object.Handle {
	root := m.Get(object.RootHandle)
	for _, h := range root.Children() {
		if obj, ok := m.lookupSafe(h); ok && obj.TypeName == typeName {
			return h
		}
	}
	return object.NullHandle
}

func (m *Manager) lookupSafe(h object.Handle) (*object.Object, bool) {
	if int(h) < len(m.data) && m.data[h] != nil {
		return m.data[h], true
	}
	return nil, false
}

// StringUtility returns a handle to the root's "String" child, or
// NullHandle if none exists.
func (m *Manager) StringUtility() object.Handle { return m.findWellKnownChild("String") }

// NumberUtility returns a handle to the root's "Number" child, or
// NullHandle if none exists.
func (m *Manager) NumberUtility() object.Handle { return m.findWellKnownChild("Number") }

// BooleanUtility returns a handle to the root's "Boolean" child, or
// NullHandle if none exists.
func (m *Manager) BooleanUtility() object.Handle { return m.findWellKnownChild("Boolean") }

// CollectGarbage runs one time-sliced step of the incremental mark-and-
// sweep cycle. Calling it repeatedly eventually completes root-mark, trace,
// and sweep phases; a single call does only as much work as the current
// phase allows before yielding. It reports whether this call was the one
// that found the scan queue drained and completed the cycle (ran the
// sweep-or-unmark phase) — callers that want a single blocking collection
// instead of driving the time slices by hand should use RunFullCycle.
//
// When a cycle completes, this call also marks the root (and any
// stack-held handle) reachable for the next cycle, but it does not trace
// those marks any further in the same call: the next cycle's first trace
// generation — which is what reaches root's children — runs on a later
// call. Folding that trace into the completing call would make the
// reachability bit spring back to true for everything still attached to
// root before a caller ever observes it false, defeating the "false
// outside a collection cycle" invariant.
func (m *Manager) CollectGarbage() bool {
	if len(m.toBeScanned) == m.firstToBeScanned {
		if !m.Exists(object.RootHandle) {
			return false
		}

		completed := len(m.toBeScanned) > 0
		if completed {
			unreachables := m.count - m.reachablesCount
			if unreachables >= MinObjectsForDisposal {
				m.sweep()
			} else {
				for _, h := range m.toBeScanned {
					if obj, ok := m.lookupSafe(h); ok {
						obj.SetReachable(false)
					}
				}
			}
		}

		m.toBeScanned = nil
		m.firstToBeScanned = 0
		m.reachablesCount = 0
		m.markReachable(object.RootHandle)
		if m.stack != nil {
			m.stack.ScanObjects(func(h uint32) { m.markReachable(object.Handle(h)) })
		}
		return completed
	}

	oldLen := len(m.toBeScanned)
	for i := m.firstToBeScanned; i < oldLen; i++ {
		handle := m.toBeScanned[i]
		if obj, ok := m.lookupSafe(handle); ok {
			// Both the ownership tree and any heap-held handle are
			// reference edges.
			for _, child := range obj.Children() {
				m.markReachable(child)
			}
			obj.Heap.ScanObjects(func(h uint32) { m.markReachable(object.Handle(h)) })
		}
	}
	m.firstToBeScanned = oldLen
	return false
}

// RunFullCycle drives CollectGarbage until one complete root-mark/trace/
// sweep cycle has finished. Marking tree children as reachable during
// trace (see the object-manager's reachability edges) means the number of
// time slices a cycle needs to drain grows with the depth of the object
// tree, so callers that want a blocking "collect everything now" — tests,
// the CLI demo — should call this instead of a fixed number of
// CollectGarbage calls.
func (m *Manager) RunFullCycle() {
	for !m.CollectGarbage() {
	}
}

func (m *Manager) markReachable(handle object.Handle) {
	obj, ok := m.lookupSafe(handle)
	if !ok {
		return
	}
	if !obj.IsReachable() {
		obj.SetReachable(true)
		m.toBeScanned = append(m.toBeScanned, handle)
		m.reachablesCount++
	}
}

// sweep walks the entire object table, killing every live object whose
// reachability bit is still false, and clears every mark. An unreachable
// object need not still be linked anywhere in the ownership tree — it may
// have been detached from its parent, which is exactly what makes it
// garbage — so sweep cannot find it by walking from the root; it must
// inspect every allocated slot directly.
func (m *Manager) sweep() {
	for _, obj := range m.data {
		if obj == nil {
			continue
		}
		if !obj.IsReachable() {
			obj.Kill()
		}
		obj.SetReachable(false)
	}
}

// ReapKilled removes every object marked killed since the last reap,
// destroying its heap and severing it from its parent's child list. This
// is the lifecycle tick the higher-level embedder drives; CollectGarbage
// itself only marks objects as killed.
func (m *Manager) ReapKilled() {
	for h, obj := range m.data {
		if obj == nil || !obj.IsKilled() {
			continue
		}
		handle := object.Handle(h)
		for _, other := range m.data {
			if other != nil && other != obj {
				other.RemoveChild(handle)
			}
		}
		m.Delete(handle)
	}
}
