package vm

func init() {
	registerNative("java/lang/Object", "getClass", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		id, err := t.resolveRefClass(args[0].Ref)
		if err != nil {
			return Value{}, false, runtimeErrorf("getClass: %v", err)
		}
		return RefValue(ClassRef(id)), true, nil
	})

	registerNative("java/lang/Object", "hashCode", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		if args[0].Ref.Kind != RefHeapItem {
			return IntValue(0), true, nil
		}
		return IntValue(int32(args[0].Ref.HeapID)), true, nil
	})
}
