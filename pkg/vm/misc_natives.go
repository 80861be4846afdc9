package vm

import "math"

func init() {
	registerNative("jdk/internal/misc/CDS", "isDumpingClassList0", constBoolNative(false))
	registerNative("jdk/internal/misc/CDS", "isDumpingArchive0", constBoolNative(false))
	registerNative("jdk/internal/misc/CDS", "isSharingEnabled0", constBoolNative(false))
	registerNative("jdk/internal/misc/CDS", "initializeFromArchive", nativeNoop)

	registerNative("jdk/internal/misc/VM", "initialize", nativeNoop)

	registerNative("jdk/internal/reflect/Reflection", "getCallerClass", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		if len(t.frames) < 2 {
			return Value{}, false, runtimeErrorf("getCallerClass: no caller frame")
		}
		caller := t.frames[len(t.frames)-2]
		return RefValue(ClassRef(caller.ClassID)), true, nil
	})

	registerNative("java/lang/Float", "floatToRawIntBits", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return IntValue(int32(math.Float32bits(args[0].F))), true, nil
	})

	registerNative("java/lang/Double", "doubleToRawLongBits", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return LongValue(int64(math.Float64bits(args[0].D))), true, nil
	})

	registerNative("java/lang/Double", "longBitsToDouble", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return DoubleValue(math.Float64frombits(uint64(args[0].L))), true, nil
	})

	registerNative("java/security/AccessController", "getStackAccessControlContext", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return NullValue(), true, nil
	})

	// waitForReferencePendingList parks forever: this VM has no reference
	// queue / finalizer thread for it to ever wake (spec.md §4.9).
	registerNative("java/lang/ref/Reference", "waitForReferencePendingList", func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		select {}
	})

	registerNative("java/lang/ClassLoader", "registerNatives", nativeNoop)
}

func constBoolNative(b bool) NativeFunc {
	return func(t *Thread, class *Class, args []Value) (Value, bool, error) {
		return BoolValue(b), true, nil
	}
}
