package vm

func init() {
	registerNative("java/lang/Class", "registerNatives", nativeNoop)

	registerNative("java/lang/Class", "initClassName", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		id, err := classReceiverIdentifier(args[0])
		if err != nil {
			return Value{}, false, err
		}
		return RefValue(HeapRef(InternString(t.vm, id.Dotted()))), true, nil
	})

	registerNative("java/lang/Class", "desiredAssertionStatus0", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return BoolValue(false), true, nil
	})

	registerNative("java/lang/Class", "getPrimitiveClass", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		name := javaStringValue(t.vm, args[0].Ref.HeapID)
		id, ok := PrimitiveWrapperByName(name)
		if !ok {
			return Value{}, false, linkErrorf("getPrimitiveClass: %q is not a primitive type", name)
		}
		return RefValue(ClassRef(id)), true, nil
	})

	registerNative("java/lang/Class", "forName0", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		name := javaStringValue(t.vm, args[0].Ref.HeapID)
		id := NewClassIdentifier(name)
		if _, err := t.vm.loadClass(id); err != nil {
			return Value{}, false, err
		}
		if err := t.EnsureInitialized(id); err != nil {
			return Value{}, false, err
		}
		return RefValue(ClassRef(id)), true, nil
	})

	registerNative("java/lang/Class", "isPrimitive", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		id, err := classReceiverIdentifier(args[0])
		if err != nil {
			return Value{}, false, err
		}
		_, isPrimitive := primitiveWrapperToName[id]
		return BoolValue(isPrimitive), true, nil
	})
}

// primitiveWrapperToName is the reverse of primitiveWrapperNames, used by
// Class.isPrimitive's native stub (spec.md §4.9).
var primitiveWrapperToName = func() map[ClassIdentifier]string {
	m := make(map[ClassIdentifier]string, len(primitiveWrapperNames))
	for name, id := range primitiveWrapperNames {
		m[id] = name
	}
	return m
}()

// classReceiverIdentifier extracts the ClassIdentifier a java.lang.Class
// pseudo-instance method is being invoked on (spec.md §9: classes carry
// their identity directly in the Reference rather than through a heap item).
func classReceiverIdentifier(receiver Value) (ClassIdentifier, error) {
	if receiver.Kind != KindReference || receiver.Ref.Kind != RefClass {
		return ClassIdentifier{}, runtimeErrorf("expected a class reference receiver")
	}
	return receiver.Ref.ClassID, nil
}

func nativeNoop(t *Thread, class *Class, args []Value) (Value, bool, error) {
	return Value{}, false, nil
}
