package vm

import (
	"strconv"
	"strings"

	"github.com/arkavm/arka/pkg/classfile"
)

// bootstrapStringConcat implements java.lang.invoke.StringConcatFactory's
// default makeConcat(WithConstants) protocol well enough for javac's
// compiled string-concatenation call sites (SPEC_FULL.md "supplemented
// features"): every argument is stringified and joined, since this VM has
// no StringBuilder/toString dispatch of its own to fall back on.
func (t *Thread) bootstrapStringConcat(f *Frame, info *classfile.InvokeDynamicInfo, args []Value) (Value, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(t.stringifyValue(a))
	}
	return RefValue(HeapRef(InternString(t.vm, b.String()))), nil
}

func (t *Thread) stringifyValue(v Value) string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(int64(v.I), 10)
	case KindLong:
		return strconv.FormatInt(v.L, 10)
	case KindFloat:
		return strconv.FormatFloat(float64(v.F), 'g', -1, 32)
	case KindDouble:
		return strconv.FormatFloat(v.D, 'g', -1, 64)
	case KindReference:
		if v.Ref.IsNull() {
			return "null"
		}
		if v.Ref.Kind == RefHeapItem {
			if class, err := t.vm.heap.ClassOf(v.Ref.HeapID); err == nil && class == (ClassIdentifier{"java/lang", "String"}) {
				return javaStringValue(t.vm, v.Ref.HeapID)
			}
		}
		return "<object>"
	default:
		return ""
	}
}

// bootstrapLambdaMetafactory implements the metafactory(...) protocol well
// enough to materialize a functional-interface proxy (SPEC_FULL.md
// "supplemented features"): rather than generating a class at runtime, the
// proxy is a plain Object whose LambdaTarget field records the
// implementation method, and whose single abstract method is dispatched by
// exec_invoke.go's invokeOnReceiver, which checks for a LambdaTarget before
// any resolveMethod lookup.
func (t *Thread) bootstrapLambdaMetafactory(f *Frame, info *classfile.InvokeDynamicInfo, bsm classfile.BootstrapMethod, args []Value) (Value, error) {
	if len(bsm.BootstrapArguments) < 2 {
		return Value{}, linkErrorf("LambdaMetafactory bootstrap has too few static arguments")
	}
	implMH, err := classfile.ResolveMethodHandle(f.Class.ConstantPool, bsm.BootstrapArguments[1])
	if err != nil {
		return Value{}, linkErrorf("resolving LambdaMetafactory implementation handle: %v", err)
	}
	implRef, err := classfile.ResolveMethodref(f.Class.ConstantPool, implMH.ReferenceIndex)
	if err != nil {
		return Value{}, linkErrorf("resolving LambdaMetafactory implementation method: %v", err)
	}

	descFactory, err := classfile.ParseMethodDescriptor(info.Descriptor)
	if err != nil {
		return Value{}, parseErrorf("parsing invokedynamic factory descriptor: %v", err)
	}
	if descFactory.Return == nil || descFactory.Return.Kind != 'L' {
		return Value{}, linkErrorf("LambdaMetafactory call site must return a functional interface")
	}
	ifaceID := NewClassIdentifier(descFactory.Return.ClassName)

	descs, err := t.instanceFieldDescriptors(ifaceID)
	if err != nil {
		descs = map[string]string{}
	}
	heapID := t.vm.heap.AllocObject(ifaceID, descs)
	obj, _ := t.vm.heap.GetObject(heapID)
	obj.LambdaTarget = &LambdaTarget{
		TargetClass:  NewClassIdentifier(implRef.ClassName),
		TargetMethod: implRef.MethodName,
		TargetDesc:   implRef.Descriptor,
		CapturedArgs: append([]Value(nil), args...),
	}
	return RefValue(HeapRef(heapID)), nil
}
