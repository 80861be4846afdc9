package vm

import (
	"io"
	"log"
	"sync/atomic"
	"time"

	"github.com/arkavm/arka/pkg/classfile"
)

// VM is the shared state every Thread executes against: one loader, one
// class table, one heap, one monitor table, each behind its own coarse
// mutex, locked in the fixed order loader < classes < heap < monitors to
// avoid deadlock (spec.md §5).
type VM struct {
	loader   *Loader
	classes  *ClassTable
	heap     *Heap
	monitors *MonitorTable
	logger   *log.Logger

	nextThreadID uint64
	// startTime anchors System.nanoTime's native stub: it is set once, when
	// the VM is created, and nanoTime reports the time elapsed since then
	// for every thread; no per-thread start time is kept.
	startTime time.Time
}

// NewVM wires a loader over the given ordered byte sources into a fresh,
// empty class table/heap/monitor table. A nil logger discards everything,
// matching a library caller who never asked for diagnostics.
func NewVM(logger *log.Logger, sources ...ByteSource) *VM {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &VM{
		loader:    NewLoader(sources...),
		classes:   NewClassTable(),
		heap:      NewHeap(),
		monitors:  NewMonitorTable(),
		logger:    logger,
		startTime: time.Now(),
	}
}

// loadClass loads (if necessary) and registers a class in the shared
// class table. It does not run <clinit> — that is EnsureInitialized's job
// — so that the class record exists (and can be observed mid-initialization
// by a cyclic <clinit>) before any static initializer runs.
func (v *VM) loadClass(id ClassIdentifier) (*Class, error) {
	if c, ok := v.classes.Get(id); ok {
		return c, nil
	}
	file, err := v.loader.Load(id.Slashed())
	if err != nil {
		return nil, err
	}
	class := newClass(id, file)
	v.classes.insert(class)
	return class, nil
}

// NewThread creates a thread sharing this VM's state, with a fresh unique
// thread id for monitor-ownership bookkeeping (spec.md §4.6, §5).
func (v *VM) NewThread() *Thread {
	id := atomic.AddUint64(&v.nextThreadID, 1)
	return &Thread{vm: v, id: id}
}

// Run loads mainClass, resolves its main([Ljava/lang/String;)V method,
// and executes it to completion on a fresh thread (spec.md §4.8, §6).
func (v *VM) Run(mainClass string, args []string) error {
	t := v.NewThread()
	id := NewClassIdentifier(mainClass)
	class, err := v.loadClass(id)
	if err != nil {
		return err
	}
	if err := t.EnsureInitialized(id); err != nil {
		return err
	}
	main := class.File.FindMethod("main", "([Ljava/lang/String;)V")
	if main == nil {
		return linkErrorf("class %s has no main([Ljava/lang/String;)V method", mainClass)
	}

	argsID, err := t.vm.heap.AllocReferenceArray(ClassIdentifier{"java/lang", "String"}, len(args))
	if err != nil {
		return err
	}
	arr, _ := t.vm.heap.GetReferenceArray(argsID)
	for i, a := range args {
		arr.Elements[i] = HeapRef(InternString(t.vm, a))
	}

	_, err = t.InvokeMethod(class, main, []Value{RefValue(HeapRef(argsID))})
	return err
}

func (v *VM) classFile(id ClassIdentifier) (*classfile.ClassFile, error) {
	c, err := v.loadClass(id)
	if err != nil {
		return nil, err
	}
	return c.File, nil
}

func (v *VM) Logger() *log.Logger { return v.logger }
