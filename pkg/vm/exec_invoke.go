package vm

import "github.com/arkavm/arka/pkg/classfile"

// popArgs pops the arguments a descriptor declares, in left-to-right order.
// One Value is popped per parameter regardless of category width; category
// width only matters for local-variable slot numbering (Frame.SetLocal).
func popArgs(f *Frame, descriptor string) ([]Value, error) {
	desc, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return nil, parseErrorf("parsing method descriptor %q: %v", descriptor, err)
	}
	args := make([]Value, len(desc.Params))
	for i := len(desc.Params) - 1; i >= 0; i-- {
		args[i] = f.Pop()
	}
	return args, nil
}

func hasReturnValue(descriptor string) (bool, error) {
	desc, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return false, parseErrorf("parsing method descriptor %q: %v", descriptor, err)
	}
	return desc.Return != nil, nil
}

// executeInvokestatic resolves and calls a static method; no receiver is
// popped (JVMS §6.5 invokestatic).
func (t *Thread) executeInvokestatic(f *Frame, index uint16) error {
	mref, err := classfile.ResolveMethodref(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving invokestatic operand: %v", err)
	}
	args, err := popArgs(f, mref.Descriptor)
	if err != nil {
		return err
	}
	if result, hasResult, handled, err := t.tryCollectionsSort(mref.ClassName, mref.MethodName, args); handled {
		if err != nil {
			return err
		}
		if hasResult {
			f.Push(result)
		}
		return nil
	}
	id := NewClassIdentifier(mref.ClassName)
	if err := t.EnsureInitialized(id); err != nil {
		return err
	}
	class, method, err := t.resolveMethod(id, mref.MethodName, mref.Descriptor)
	if err != nil {
		return err
	}
	result, err := t.InvokeMethod(class, method, args)
	if err != nil {
		return err
	}
	if hasResult, _ := hasReturnValue(mref.Descriptor); hasResult {
		f.Push(result)
	}
	return nil
}

// executeInvokespecial handles constructor (<init>) dispatch, private
// method calls, and super calls — all statically bound (JVMS §6.5
// invokespecial): the named method is resolved from the Methodref's class
// up its super chain and invoked on the popped receiver.
func (t *Thread) executeInvokespecial(f *Frame, index uint16) error {
	mref, err := classfile.ResolveMethodref(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving invokespecial operand: %v", err)
	}
	args, err := popArgs(f, mref.Descriptor)
	if err != nil {
		return err
	}
	receiver := f.Pop()
	if receiver.Ref.IsNull() {
		return NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
	}
	id := NewClassIdentifier(mref.ClassName)
	class, method, err := t.resolveMethod(id, mref.MethodName, mref.Descriptor)
	if err != nil {
		return err
	}
	fullArgs := append([]Value{receiver}, args...)
	result, err := t.InvokeMethod(class, method, fullArgs)
	if err != nil {
		return err
	}
	if hasResult, _ := hasReturnValue(mref.Descriptor); hasResult {
		f.Push(result)
	}
	return nil
}

// executeInvokevirtual dispatches on the receiver's actual runtime class
// (JVMS §6.5 invokevirtual).
func (t *Thread) executeInvokevirtual(f *Frame, index uint16) error {
	mref, err := classfile.ResolveMethodref(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving invokevirtual operand: %v", err)
	}
	args, err := popArgs(f, mref.Descriptor)
	if err != nil {
		return err
	}
	receiver := f.Pop()
	if receiver.Ref.IsNull() {
		return NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
	}
	result, hasResult, err := t.invokeOnReceiver(receiver, mref.ClassName, mref.MethodName, mref.Descriptor, args)
	if err != nil {
		return err
	}
	if hasResult {
		f.Push(result)
	}
	return nil
}

// executeInvokeinterface behaves like invokevirtual, resolved through an
// InterfaceMethodref; count is the stack-accounting operand mandated by
// JVMS §6.5 and carries no further meaning here.
func (t *Thread) executeInvokeinterface(f *Frame, index uint16, count int) error {
	mref, err := classfile.ResolveInterfaceMethodref(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving invokeinterface operand: %v", err)
	}
	args, err := popArgs(f, mref.Descriptor)
	if err != nil {
		return err
	}
	receiver := f.Pop()
	if receiver.Ref.IsNull() {
		return NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
	}
	result, hasResult, err := t.invokeOnReceiver(receiver, mref.ClassName, mref.MethodName, mref.Descriptor, args)
	if err != nil {
		return err
	}
	if hasResult {
		f.Push(result)
	}
	return nil
}

// invokeResolved calls an already-resolved method with the receiver
// prepended to args, and reports whether a result was pushed.
func (t *Thread) invokeResolved(class *Class, method *classfile.MethodInfo, receiver Value, args []Value, descriptor string) (Value, bool, error) {
	fullArgs := append([]Value{receiver}, args...)
	result, err := t.InvokeMethod(class, method, fullArgs)
	if err != nil {
		return Value{}, false, err
	}
	hasResult, _ := hasReturnValue(descriptor)
	return result, hasResult, nil
}

// invokeOnReceiver dispatches a virtual/interface call. A receiver built by
// the LambdaMetafactory bootstrap (see invokedynamic.go) has no class-file
// backing for its single abstract method, so it is routed straight to its
// recorded implementation method instead of going through resolveMethod.
//
// Per spec.md §4.8, three cases bypass runtime-class selection and use the
// statically resolved method instead: the declaring class is
// java.lang.Class, the method is private, or the receiver is itself a class
// reference (spec.md §9's workaround for representing java.lang.Class
// instances without a heap entry — resolveRefClass on a RefClass returns the
// *represented* class, e.g. com/Foo, not java/lang/Class, so runtime
// selection would look the method up on the wrong class entirely).
func (t *Thread) invokeOnReceiver(receiver Value, staticClassName, name, descriptor string, args []Value) (Value, bool, error) {
	if receiver.Ref.Kind == RefHeapItem {
		if obj, err := t.vm.heap.GetObject(receiver.Ref.HeapID); err == nil && obj.LambdaTarget != nil {
			target := obj.LambdaTarget
			implClass, err := t.vm.loadClass(target.TargetClass)
			if err != nil {
				return Value{}, false, err
			}
			method := implClass.File.FindMethod(target.TargetMethod, target.TargetDesc)
			if method == nil {
				return Value{}, false, linkErrorf("lambda target %s.%s%s not found", target.TargetClass, target.TargetMethod, target.TargetDesc)
			}
			fullArgs := append(append([]Value(nil), target.CapturedArgs...), args...)
			if method.AccessFlags&classfile.AccStatic == 0 {
				fullArgs = append([]Value{receiver}, fullArgs...)
			}
			result, err := t.InvokeMethod(implClass, method, fullArgs)
			if err != nil {
				return Value{}, false, err
			}
			hasResult, _ := hasReturnValue(target.TargetDesc)
			return result, hasResult, nil
		}
	}

	if result, hasResult, handled, err := t.tryArrayListSort(receiver, name, args); handled {
		return result, hasResult, err
	}

	staticID := NewClassIdentifier(staticClassName)

	if receiver.Ref.Kind == RefClass || staticClassName == "java/lang/Class" {
		class, method, err := t.resolveMethod(staticID, name, descriptor)
		if err != nil {
			return Value{}, false, err
		}
		return t.invokeResolved(class, method, receiver, args, descriptor)
	}

	if staticClass, staticMethod, err := t.resolveMethod(staticID, name, descriptor); err == nil {
		if staticMethod.AccessFlags&classfile.AccPrivate != 0 {
			return t.invokeResolved(staticClass, staticMethod, receiver, args, descriptor)
		}
	}

	actual, err := t.resolveRefClass(receiver.Ref)
	if err != nil {
		return Value{}, false, runtimeErrorf("invoke: %v", err)
	}
	class, method, err := t.resolveMethod(actual, name, descriptor)
	if err != nil {
		return Value{}, false, err
	}
	return t.invokeResolved(class, method, receiver, args, descriptor)
}

// executeInvokedynamic resolves the call site's bootstrap method and
// dispatches it to the LambdaMetafactory/StringConcatFactory bridge
// (SPEC_FULL.md "supplemented features"); any other bootstrap is reported
// as unimplemented rather than silently ignored.
func (t *Thread) executeInvokedynamic(f *Frame, index uint16) error {
	info, err := classfile.ResolveInvokeDynamic(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving invokedynamic operand: %v", err)
	}
	if int(info.BootstrapMethodAttrIndex) >= len(f.Class.BootstrapMethods) {
		return linkErrorf("invokedynamic: bootstrap method index %d out of range", info.BootstrapMethodAttrIndex)
	}
	bsm := f.Class.BootstrapMethods[info.BootstrapMethodAttrIndex]
	mh, err := classfile.ResolveMethodHandle(f.Class.ConstantPool, bsm.MethodRef)
	if err != nil {
		return linkErrorf("resolving invokedynamic bootstrap method handle: %v", err)
	}
	bsmRef, err := classfile.ResolveMethodref(f.Class.ConstantPool, mh.ReferenceIndex)
	if err != nil {
		return linkErrorf("resolving invokedynamic bootstrap method ref: %v", err)
	}

	args, err := popArgs(f, info.Descriptor)
	if err != nil {
		return err
	}

	switch {
	case bsmRef.ClassName == "java/lang/invoke/StringConcatFactory":
		result, err := t.bootstrapStringConcat(f, info, args)
		if err != nil {
			return err
		}
		f.Push(result)
		return nil
	case bsmRef.ClassName == "java/lang/invoke/LambdaMetafactory":
		result, err := t.bootstrapLambdaMetafactory(f, info, bsm, args)
		if err != nil {
			return err
		}
		f.Push(result)
		return nil
	default:
		return unimplementedErrorf("invokedynamic bootstrap %s.%s is not implemented", bsmRef.ClassName, bsmRef.MethodName)
	}
}
