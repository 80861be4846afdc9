package vm

import "sync"

// monitor is the recursive ownership record of spec.md §4.6: an owning
// thread id plus an entry count. The zero value is never observed —
// monitors are created on first enter and removed on final exit.
type monitor struct {
	owner uint64
	count int
}

// MonitorTable holds object monitors (keyed by heap id) and class monitors
// (keyed by class identifier) behind one coarse mutex, per spec.md §5.
type MonitorTable struct {
	mu       sync.Mutex
	objects  map[HeapID]*monitor
	classes  map[ClassIdentifier]*monitor
}

func NewMonitorTable() *MonitorTable {
	return &MonitorTable{
		objects: make(map[HeapID]*monitor),
		classes: make(map[ClassIdentifier]*monitor),
	}
}

// EnterObject acquires the monitor for a heap object. Per spec.md §4.6,
// entering an unheld monitor creates it, entering one already owned by the
// caller increments the count, and entering one owned by another thread
// fails — this VM has no blocking scheduler, so the caller is expected to
// treat failure as a fatal contention error (spec.md §5).
func (m *MonitorTable) EnterObject(id HeapID, threadID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.objects[id]
	if !ok {
		m.objects[id] = &monitor{owner: threadID, count: 1}
		return nil
	}
	if mon.owner != threadID {
		return errMonitorContended
	}
	mon.count++
	return nil
}

// ExitObject releases the monitor for a heap object. Exit by a non-owner
// is an IllegalMonitorStateException-class error (spec.md §4.6).
func (m *MonitorTable) ExitObject(id HeapID, threadID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.objects[id]
	if !ok || mon.owner != threadID {
		return NewJavaException(ClassIdentifier{"java/lang", "IllegalMonitorStateException"}, "")
	}
	mon.count--
	if mon.count == 0 {
		delete(m.objects, id)
	}
	return nil
}

// EnterClass and ExitClass mirror EnterObject/ExitObject for class monitors
// (used by synchronized static methods).
func (m *MonitorTable) EnterClass(id ClassIdentifier, threadID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.classes[id]
	if !ok {
		m.classes[id] = &monitor{owner: threadID, count: 1}
		return nil
	}
	if mon.owner != threadID {
		return errMonitorContended
	}
	mon.count++
	return nil
}

func (m *MonitorTable) ExitClass(id ClassIdentifier, threadID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.classes[id]
	if !ok || mon.owner != threadID {
		return NewJavaException(ClassIdentifier{"java/lang", "IllegalMonitorStateException"}, "")
	}
	mon.count--
	if mon.count == 0 {
		delete(m.classes, id)
	}
	return nil
}

// objectEntryCount reports object-monitor table state for tests (spec.md
// §8's "monitor laws": removed from the table once count reaches zero).
func (m *MonitorTable) objectEntryCount(id HeapID) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mon, ok := m.objects[id]
	if !ok {
		return 0, false
	}
	return mon.count, true
}
