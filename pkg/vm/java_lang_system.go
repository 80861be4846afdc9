package vm

import "time"

func init() {
	registerNative("java/lang/System", "nanoTime", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return LongValue(int64(time.Since(t.vm.startTime))), true, nil
	})

	registerNative("java/lang/System", "identityHashCode", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		if args[0].Ref.IsNull() || args[0].Ref.Kind != RefHeapItem {
			return IntValue(0), true, nil
		}
		return IntValue(int32(args[0].Ref.HeapID)), true, nil
	})

	// arraycopy(src, srcPos, dst, dstPos, length): copies between two
	// primitive arrays, or else between two reference arrays (spec.md §4.9).
	registerNative("java/lang/System", "arraycopy", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		src, srcPos, dst, dstPos, length := args[0], args[1].I, args[2], args[3].I, args[4].I
		if src.Ref.IsNull() || dst.Ref.IsNull() {
			return Value{}, false, NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
		}
		if srcArr, err := t.vm.heap.GetPrimitiveArray(src.Ref.HeapID); err == nil {
			dstArr, err := t.vm.heap.GetPrimitiveArray(dst.Ref.HeapID)
			if err != nil {
				return Value{}, false, runtimeErrorf("arraycopy: %v", err)
			}
			if err := copyBounds(len(srcArr.Elements), len(dstArr.Elements), int(srcPos), int(dstPos), int(length)); err != nil {
				return Value{}, false, err
			}
			copy(dstArr.Elements[dstPos:dstPos+length], srcArr.Elements[srcPos:srcPos+length])
			return Value{}, false, nil
		}
		srcArr, err := t.vm.heap.GetReferenceArray(src.Ref.HeapID)
		if err != nil {
			return Value{}, false, runtimeErrorf("arraycopy: %v", err)
		}
		dstArr, err := t.vm.heap.GetReferenceArray(dst.Ref.HeapID)
		if err != nil {
			return Value{}, false, runtimeErrorf("arraycopy: %v", err)
		}
		if err := copyBounds(len(srcArr.Elements), len(dstArr.Elements), int(srcPos), int(dstPos), int(length)); err != nil {
			return Value{}, false, err
		}
		copy(dstArr.Elements[dstPos:dstPos+length], srcArr.Elements[srcPos:srcPos+length])
		return Value{}, false, nil
	})
}

func copyBounds(srcLen, dstLen, srcPos, dstPos, length int) error {
	if srcPos < 0 || dstPos < 0 || length < 0 || srcPos+length > srcLen || dstPos+length > dstLen {
		return NewJavaException(ClassIdentifier{"java/lang", "ArrayIndexOutOfBoundsException"}, "")
	}
	return nil
}
