package vm

import "sort"

// The jdk.internal.misc.Unsafe stubs below operate on the per-class field
// offsets Heap.AllocObject assigns deterministically (alphabetical by field
// name) rather than real memory layout (spec.md §4.9, §9's documented
// simplifications).

func init() {
	registerNative("jdk/internal/misc/Unsafe", "arrayBaseOffset0", constIntNative(0))
	registerNative("jdk/internal/misc/Unsafe", "arrayIndexScale0", constIntNative(0))
	registerNative("jdk/internal/misc/Unsafe", "storeFence", nativeNoop)

	registerNative("jdk/internal/misc/Unsafe", "objectFieldOffset1", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		declID, err := classReceiverIdentifier(args[1])
		if err != nil {
			return Value{}, false, err
		}
		fieldName := javaStringValue(t.vm, args[2].Ref.HeapID)
		offset, err := t.fieldOffsetByName(declID, fieldName)
		if err != nil {
			return Value{}, false, err
		}
		return LongValue(int64(offset)), true, nil
	})

	registerNative("jdk/internal/misc/Unsafe", "compareAndSetInt", unsafeCompareAndSet)
	registerNative("jdk/internal/misc/Unsafe", "compareAndSetLong", unsafeCompareAndSet)
	registerNative("jdk/internal/misc/Unsafe", "compareAndSetReference", unsafeCompareAndSet)

	registerNative("jdk/internal/misc/Unsafe", "getReferenceVolatile", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		obj, err := t.vm.heap.GetObject(args[1].Ref.HeapID)
		if err != nil {
			return Value{}, false, runtimeErrorf("getReferenceVolatile: %v", err)
		}
		name, err := fieldNameByOffset(obj, int(args[2].L))
		if err != nil {
			return Value{}, false, err
		}
		return obj.Fields[name], true, nil
	})
}

func constIntNative(v int32) NativeFunc {
	return func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return IntValue(v), true, nil
	}
}

// unsafeCompareAndSet implements compareAndSet{Int,Long,Reference}(Object o,
// long offset, T expected, T x): this single-threaded-per-call
// implementation never races the monitor table, so no lock is taken.
func unsafeCompareAndSet(t *Thread, class *Class, args []Value) (Value, bool, error) {
	obj, err := t.vm.heap.GetObject(args[1].Ref.HeapID)
	if err != nil {
		return Value{}, false, runtimeErrorf("compareAndSet: %v", err)
	}
	offset := int(args[2].L)
	name, err := fieldNameByOffset(obj, offset)
	if err != nil {
		return Value{}, false, err
	}
	expected, actual := args[3], args[4]
	if !valuesEqual(obj.Fields[name], expected) {
		return BoolValue(false), true, nil
	}
	obj.Fields[name] = actual
	return BoolValue(true), true, nil
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt:
		return a.I == b.I
	case KindLong:
		return a.L == b.L
	case KindFloat:
		return a.F == b.F
	case KindDouble:
		return a.D == b.D
	case KindReference:
		return referenceEquals(a.Ref, b.Ref)
	default:
		return false
	}
}

func fieldNameByOffset(obj *Object, offset int) (string, error) {
	for name, off := range obj.Offsets {
		if off == offset {
			return name, nil
		}
	}
	return "", runtimeErrorf("no field at offset %d on %s", offset, obj.Class)
}

func (t *Thread) fieldOffsetByName(declID ClassIdentifier, fieldName string) (int, error) {
	descs, err := t.instanceFieldDescriptors(declID)
	if err != nil {
		return 0, err
	}
	if _, ok := descs[fieldName]; !ok {
		return 0, linkErrorf("objectFieldOffset1: %s has no field %q", declID, fieldName)
	}
	names := make([]string, 0, len(descs))
	for name := range descs {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if name == fieldName {
			return i, nil
		}
	}
	return 0, linkErrorf("objectFieldOffset1: %s has no field %q", declID, fieldName)
}
