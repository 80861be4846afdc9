package vm

import "github.com/arkavm/arka/pkg/classfile"

// executeLdc resolves a CONSTANT_Integer/Float/String/Class entry for
// ldc/ldc_w, or a CONSTANT_Long/Double entry for ldc2_w (JVMS §6.5,
// spec.md §4.4). MethodHandle/MethodType entries are reported as
// unimplemented.
func (t *Thread) executeLdc(f *Frame, index uint16) (Value, error) {
	pool := f.Class.ConstantPool
	if int(index) >= len(pool) || pool[index] == nil {
		return Value{}, linkErrorf("ldc: invalid constant pool index %d", index)
	}
	switch c := pool[index].(type) {
	case *classfile.ConstantInteger:
		return IntValue(c.Value), nil
	case *classfile.ConstantFloat:
		return FloatValue(c.Value), nil
	case *classfile.ConstantLong:
		return LongValue(c.Value), nil
	case *classfile.ConstantDouble:
		return DoubleValue(c.Value), nil
	case *classfile.ConstantString:
		s, err := classfile.GetUtf8(pool, c.StringIndex)
		if err != nil {
			return Value{}, linkErrorf("ldc: resolving String: %v", err)
		}
		return RefValue(HeapRef(InternString(t.vm, s))), nil
	case *classfile.ConstantClass:
		name, err := classfile.GetUtf8(pool, c.NameIndex)
		if err != nil {
			return Value{}, linkErrorf("ldc: resolving Class: %v", err)
		}
		return RefValue(ClassRef(NewClassIdentifier(name))), nil
	case *classfile.ConstantMethodHandle, *classfile.ConstantMethodType:
		return Value{}, unimplementedErrorf("ldc of MethodHandle/MethodType constants is not implemented")
	default:
		return Value{}, linkErrorf("ldc: unsupported constant pool tag at index %d", index)
	}
}

// instanceFieldDescriptors collects the non-static field descriptors for id
// and its whole superclass chain, so a freshly allocated Object carries
// every inherited instance field (spec.md §3).
func (t *Thread) instanceFieldDescriptors(id ClassIdentifier) (map[string]string, error) {
	descs := make(map[string]string)
	for cur := id; ; {
		class, err := t.vm.loadClass(cur)
		if err != nil {
			return nil, err
		}
		for _, fld := range class.File.Fields {
			if fld.AccessFlags&classfile.AccStatic != 0 {
				continue
			}
			if _, exists := descs[fld.Name]; !exists {
				descs[fld.Name] = fld.Descriptor
			}
		}
		if class.File.SuperClass == 0 {
			break
		}
		superName, err := classfile.GetClassName(class.File.ConstantPool, class.File.SuperClass)
		if err != nil {
			return nil, linkErrorf("resolving super class of %s: %v", cur, err)
		}
		next := NewClassIdentifier(superName)
		if next == cur {
			break
		}
		cur = next
	}
	return descs, nil
}

// executeNew allocates a default-valued instance of the class named by the
// operand, triggering its initialization first (JVMS §6.5 new, spec.md §4.7).
func (t *Thread) executeNew(f *Frame, index uint16) error {
	name, err := classfile.GetClassName(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving new operand: %v", err)
	}
	id := NewClassIdentifier(name)
	if err := t.EnsureInitialized(id); err != nil {
		return err
	}
	descs, err := t.instanceFieldDescriptors(id)
	if err != nil {
		return err
	}
	heapID := t.vm.heap.AllocObject(id, descs)
	f.Push(RefValue(HeapRef(heapID)))
	return nil
}

func (t *Thread) resolveRefClass(ref Reference) (ClassIdentifier, error) {
	switch ref.Kind {
	case RefClass:
		return ref.ClassID, nil
	case RefHeapItem:
		return t.vm.heap.ClassOf(ref.HeapID)
	default:
		return ClassIdentifier{}, runtimeErrorf("cannot resolve class of a null reference")
	}
}

// executeCheckcast implements JVMS §6.5 checkcast: a null reference always
// passes, a mismatched non-null reference raises ClassCastException.
func (t *Thread) executeCheckcast(f *Frame, index uint16) error {
	name, err := classfile.GetClassName(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving checkcast operand: %v", err)
	}
	target := NewClassIdentifier(name)
	v := f.Pop()
	if v.Ref.IsNull() {
		f.Push(v)
		return nil
	}
	actual, err := t.resolveRefClass(v.Ref)
	if err != nil {
		return runtimeErrorf("checkcast: %v", err)
	}
	if !t.isInstanceOfClass(actual, target) {
		return NewJavaException(ClassIdentifier{"java/lang", "ClassCastException"},
			actual.Dotted()+" cannot be cast to "+target.Dotted())
	}
	f.Push(v)
	return nil
}

// executeInstanceof implements JVMS §6.5 instanceof: null is never an
// instance of anything.
func (t *Thread) executeInstanceof(f *Frame, index uint16) error {
	name, err := classfile.GetClassName(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving instanceof operand: %v", err)
	}
	target := NewClassIdentifier(name)
	v := f.Pop()
	if v.Ref.IsNull() {
		f.Push(BoolValue(false))
		return nil
	}
	actual, err := t.resolveRefClass(v.Ref)
	if err != nil {
		return runtimeErrorf("instanceof: %v", err)
	}
	f.Push(BoolValue(t.isInstanceOfClass(actual, target)))
	return nil
}

// executeAthrow pops the exception reference and turns it into a
// *JavaException carrying the thrown object's actual heap class, so
// findExceptionHandler can match it against a handler's catch type
// (spec.md §4.6, §7).
func (t *Thread) executeAthrow(f *Frame) error {
	v := f.Pop()
	if v.Ref.IsNull() {
		return NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
	}
	class, err := t.vm.heap.ClassOf(v.Ref.HeapID)
	if err != nil {
		return runtimeErrorf("athrow: %v", err)
	}
	message := ""
	if obj, err := t.vm.heap.GetObject(v.Ref.HeapID); err == nil {
		if m, ok := obj.Fields["message"]; ok && !m.Ref.IsNull() && m.Ref.Kind == RefHeapItem {
			message = javaStringValue(t.vm, m.Ref.HeapID)
		}
	}
	return NewJavaException(class, message).WithObject(v.Ref.HeapID)
}

// javaStringValue reads back the UTF-8 byte[] backing a java/lang/String
// Object built by InternString, for diagnostics only.
func javaStringValue(v *VM, id HeapID) string {
	obj, err := v.heap.GetObject(id)
	if err != nil {
		return ""
	}
	valueField, ok := obj.Fields["value"]
	if !ok || valueField.Ref.IsNull() {
		return ""
	}
	arr, err := v.heap.GetPrimitiveArray(valueField.Ref.HeapID)
	if err != nil {
		return ""
	}
	bytes := make([]byte, len(arr.Elements))
	for i, e := range arr.Elements {
		bytes[i] = byte(e.I)
	}
	return string(bytes)
}
