package vm

func init() {
	registerNative("java/lang/Thread", "registerNatives", nativeNoop)

	registerNative("java/lang/Thread", "currentThread", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return RefValue(HeapRef(t.currentJavaThreadObject())), true, nil
	})

	registerNative("java/lang/Thread", "setPriority0", nativeNoop)

	// start0 spawns a fresh VM thread and runs the receiver's run()V on it
	// concurrently (spec.md §4.9, §4.8's one-goroutine-per-thread model).
	// The receiver's name field is not read; the VM thread has no name.
	registerNative("java/lang/Thread", "start0", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		receiver := args[0]
		if receiver.Ref.IsNull() {
			return Value{}, false, NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
		}
		actual, err := t.resolveRefClass(receiver.Ref)
		if err != nil {
			return Value{}, false, runtimeErrorf("start0: %v", err)
		}
		newThread := t.vm.NewThread()
		newThread.javaThreadObj, newThread.hasJavaThreadObj = receiver.Ref.HeapID, true
		go func() {
			runClass, runMethod, err := newThread.resolveMethod(actual, "run", "()V")
			if err != nil {
				t.vm.Logger().Printf("thread %d: resolving run(): %v", newThread.id, err)
				return
			}
			if _, err := newThread.InvokeMethod(runClass, runMethod, []Value{receiver}); err != nil {
				t.vm.Logger().Printf("thread %d: %v", newThread.id, err)
			}
		}()
		return Value{}, false, nil
	})
}

// currentJavaThreadObject lazily materializes a java/lang/Thread object for
// this VM thread; Thread.currentThread() must always return the same
// identity for repeated calls on the same thread.
func (t *Thread) currentJavaThreadObject() HeapID {
	if t.hasJavaThreadObj {
		return t.javaThreadObj
	}
	id := ClassIdentifier{"java/lang", "Thread"}
	descs, err := t.instanceFieldDescriptors(id)
	if err != nil {
		descs = map[string]string{}
	}
	t.javaThreadObj = t.vm.heap.AllocObject(id, descs)
	t.hasJavaThreadObj = true
	return t.javaThreadObj
}
