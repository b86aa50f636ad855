// Package object implements the runtime's Object: a handle, the heap it
// owns, its children, and the bookkeeping the garbage collector and
// lifecycle tick need.
package object

import "ember/internal/heap"

// Handle identifies an object. Handle 0 is the universal NULL sentinel;
// handle 1 is the root object.
type Handle uint32

const (
	NullHandle Handle = 0
	RootHandle Handle = 1
)

// Object owns one heap, an ordered set of children, and the state the
// object manager needs to run garbage collection and the kill/reap
// lifecycle.
type Object struct {
	Handle   Handle
	TypeName string
	State    string
	Heap     *heap.Heap
	UserData interface{}

	children   []Handle
	reachable  bool
	killed     bool
}

// New creates an object with an empty heap, no children, state "main", and
// reachable/killed both false.
func New(handle Handle, typeName string, userData interface{}) *Object {
	return &Object{
		Handle:   handle,
		TypeName: typeName,
		State:    "main",
		Heap:     heap.New(),
		UserData: userData,
	}
}

// AddChild appends child to the object's ordered child set.
func (o *Object) AddChild(child Handle) {
	o.children = append(o.children, child)
}

// Children returns the object's children in insertion order. Callers must
// not mutate the returned slice.
func (o *Object) Children() []Handle {
	return o.children
}

// RemoveChild deletes child from the object's child set, if present.
func (o *Object) RemoveChild(child Handle) {
	for i, h := range o.children {
		if h == child {
			o.children = append(o.children[:i], o.children[i+1:]...)
			return
		}
	}
}

// IsReachable reports the object's GC reachability bit. It is false outside
// a collection cycle.
func (o *Object) IsReachable() bool { return o.reachable }

// SetReachable sets the object's GC reachability bit.
func (o *Object) SetReachable(v bool) { o.reachable = v }

// IsKilled reports whether the object has been scheduled for removal by a
// GC sweep or an explicit kill.
func (o *Object) IsKilled() bool { return o.killed }

// Kill schedules the object for removal. The object remains in the
// manager's table until the lifecycle tick reaps it.
func (o *Object) Kill() { o.killed = true }

// Destroy releases the object's heap. Recursively destroying child objects
// is the object manager's responsibility, not this type's.
func (o *Object) Destroy() {
	o.Heap.Destroy()
}
