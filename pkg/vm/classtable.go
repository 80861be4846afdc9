package vm

import (
	"sync"

	"github.com/arkavm/arka/pkg/classfile"
)

// Class is a loaded class record (spec.md §3). It is inserted into the
// ClassTable before its super class is initialized and before <clinit>
// runs, which is what lets circular initialization (java.lang.Class
// initializing itself transitively, or the A/B diamond of spec.md §8) make
// progress instead of deadlocking.
type Class struct {
	ID               ClassIdentifier
	File             *classfile.ClassFile
	StaticFields     map[string]Value
	Initialized      bool
	BeingInitialized bool
}

func newClass(id ClassIdentifier, file *classfile.ClassFile) *Class {
	return &Class{
		ID:           id,
		File:         file,
		StaticFields: make(map[string]Value),
	}
}

// ClassTable is the shared identifier -> Class mapping, one coarse mutex
// per spec.md §5. Classes are not cloned on read: Get returns the shared
// *Class record, and callers (initialization, static field access) update
// it in place.
type ClassTable struct {
	mu      sync.Mutex
	classes map[ClassIdentifier]*Class
}

func NewClassTable() *ClassTable {
	return &ClassTable{classes: make(map[ClassIdentifier]*Class)}
}

func (t *ClassTable) get(id ClassIdentifier) (*Class, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.classes[id]
	return c, ok
}

func (t *ClassTable) insert(c *Class) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classes[c.ID] = c
}

// Get returns the class record for id, if the class has been loaded.
func (t *ClassTable) Get(id ClassIdentifier) (*Class, bool) {
	return t.get(id)
}

// All returns a snapshot of every loaded class identifier, used by tests
// that check "each class appears in the class table exactly once"
// (spec.md §8).
func (t *ClassTable) All() []ClassIdentifier {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]ClassIdentifier, 0, len(t.classes))
	for id := range t.classes {
		ids = append(ids, id)
	}
	return ids
}
