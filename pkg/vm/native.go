package vm

import "github.com/arkavm/arka/pkg/classfile"

// NativeFunc is a hand-written implementation of a single native Java
// method (spec.md §4.9). It returns (value, hasResult, error); hasResult is
// false for a void native.
type NativeFunc func(t *Thread, class *Class, args []Value) (Value, bool, error)

// nativeRegistry dispatches by "class/slashed/Name.methodName" — the same
// (class identifier, method name) key spec.md §4.9 specifies. Registered by
// the init() of each java_lang_*.go file, jdk_internal_misc_unsafe.go and
// misc_natives.go.
var nativeRegistry = map[string]NativeFunc{}

func registerNative(className, methodName string, fn NativeFunc) {
	nativeRegistry[className+"."+methodName] = fn
}

// invokeNative looks up and runs the native stub for method on class. Any
// native outside the registry aborts the thread (spec.md §4.9's "any
// unlisted native abort the thread").
func (t *Thread) invokeNative(class *Class, method *classfile.MethodInfo, args []Value) (Value, error) {
	key := class.ID.Slashed() + "." + method.Name
	fn, ok := nativeRegistry[key]
	if !ok {
		return Value{}, unimplementedErrorf("native method %s not in the registry", key)
	}
	v, hasResult, err := fn(t, class, args)
	if err != nil {
		return Value{}, err
	}
	if !hasResult {
		return Value{}, nil
	}
	return v, nil
}
