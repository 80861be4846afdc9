package vm

import "github.com/arkavm/arka/pkg/classfile"

func npeIfNull(r Reference) error {
	if r.IsNull() {
		return NewJavaException(ClassIdentifier{"java/lang", "NullPointerException"}, "")
	}
	return nil
}

func boundsCheck(index, length int) error {
	if index < 0 || index >= length {
		return NewJavaException(ClassIdentifier{"java/lang", "ArrayIndexOutOfBoundsException"}, "")
	}
	return nil
}

// executeArrayLoad/executeArrayStore implement the [ia]load/[ia]store
// family (JVMS §6.5). boolean[] (PrimBoolean) and byte[] (PrimByte) are
// distinct array kinds that share the bastore/baload opcodes.
func (t *Thread) executeArrayLoad(f *Frame, op byte) error {
	index := int(f.Pop().I)
	ref := f.Pop()
	if err := npeIfNull(ref.Ref); err != nil {
		return err
	}
	if op == OpAaload {
		arr, err := t.vm.heap.GetReferenceArray(ref.Ref.HeapID)
		if err != nil {
			return runtimeErrorf("aaload: %v", err)
		}
		if err := boundsCheck(index, len(arr.Elements)); err != nil {
			return err
		}
		f.Push(RefValue(arr.Elements[index]))
		return nil
	}
	arr, err := t.vm.heap.GetPrimitiveArray(ref.Ref.HeapID)
	if err != nil {
		return runtimeErrorf("array load: %v", err)
	}
	if err := boundsCheck(index, len(arr.Elements)); err != nil {
		return err
	}
	f.Push(widenOnLoad(op, arr.Elements[index]))
	return nil
}

// widenOnLoad sign- or zero-extends a narrow array element back to the
// int32 a baload/caload/saload pushes (JVMS §6.5): baload serves both
// byte[] and boolean[] and sign-extends, char is zero-extended, matching
// javac's own bytecode-level treatment of boolean as byte.
func widenOnLoad(op byte, v Value) Value {
	switch op {
	case OpBaload:
		return IntValue(int32(int8(v.I)))
	case OpCaload:
		return IntValue(int32(uint16(v.I)))
	case OpSaload:
		return IntValue(int32(int16(v.I)))
	default:
		return v
	}
}

func (t *Thread) executeArrayStore(f *Frame, op byte) error {
	value := f.Pop()
	index := int(f.Pop().I)
	ref := f.Pop()
	if err := npeIfNull(ref.Ref); err != nil {
		return err
	}
	if op == OpAastore {
		arr, err := t.vm.heap.GetReferenceArray(ref.Ref.HeapID)
		if err != nil {
			return runtimeErrorf("aastore: %v", err)
		}
		if err := boundsCheck(index, len(arr.Elements)); err != nil {
			return err
		}
		arr.Elements[index] = value.Ref
		return nil
	}
	arr, err := t.vm.heap.GetPrimitiveArray(ref.Ref.HeapID)
	if err != nil {
		return runtimeErrorf("array store: %v", err)
	}
	if err := boundsCheck(index, len(arr.Elements)); err != nil {
		return err
	}
	arr.Elements[index] = narrowOnStore(op, value)
	return nil
}

// narrowOnStore truncates the int32 a bastore/castore/sastore receives down
// to its element width before it's stored (JVMS §6.5): only the low 8/16
// bits are kept, same as the JVM's own store semantics for these opcodes.
func narrowOnStore(op byte, v Value) Value {
	switch op {
	case OpBastore:
		return IntValue(int32(int8(v.I)))
	case OpCastore:
		return IntValue(int32(uint16(v.I)))
	case OpSastore:
		return IntValue(int32(int16(v.I)))
	default:
		return v
	}
}

func (t *Thread) executeNewarray(f *Frame, atype uint8) error {
	length := int(f.Pop().I)
	pt, err := newarrayPrimitive(atype)
	if err != nil {
		return err
	}
	id, err := t.vm.heap.AllocPrimitiveArray(pt, length)
	if err != nil {
		return err
	}
	f.Push(RefValue(HeapRef(id)))
	return nil
}

func (t *Thread) executeAnewarray(f *Frame, index uint16) error {
	length := int(f.Pop().I)
	className, err := classfile.GetClassName(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving anewarray operand: %v", err)
	}
	id, err := t.vm.heap.AllocReferenceArray(NewClassIdentifier(className), length)
	if err != nil {
		return err
	}
	f.Push(RefValue(HeapRef(id)))
	return nil
}

// executeMultianewarray builds nested reference arrays dimension by
// dimension (JVMS §6.5 multianewarray); only the outer dimensions carry
// lengths from the operand stack, inner dimensions are left to be filled
// by ordinary anewarray/newarray as the program runs.
func (t *Thread) executeMultianewarray(f *Frame, index uint16, dims int) error {
	lengths := make([]int, dims)
	for i := dims - 1; i >= 0; i-- {
		lengths[i] = int(f.Pop().I)
	}
	className, err := classfile.GetClassName(f.Class.ConstantPool, index)
	if err != nil {
		return linkErrorf("resolving multianewarray operand: %v", err)
	}
	elemID := NewClassIdentifier(className)
	id, err := t.buildMultiArray(elemID, lengths)
	if err != nil {
		return err
	}
	f.Push(RefValue(HeapRef(id)))
	return nil
}

func (t *Thread) buildMultiArray(elemClass ClassIdentifier, lengths []int) (HeapID, error) {
	if len(lengths) == 1 {
		return t.vm.heap.AllocReferenceArray(elemClass, lengths[0])
	}
	id, err := t.vm.heap.AllocReferenceArray(elemClass, lengths[0])
	if err != nil {
		return 0, err
	}
	arr, _ := t.vm.heap.GetReferenceArray(id)
	for i := range arr.Elements {
		sub, err := t.buildMultiArray(elemClass, lengths[1:])
		if err != nil {
			return 0, err
		}
		arr.Elements[i] = HeapRef(sub)
	}
	return id, nil
}

func (t *Thread) executeArraylength(f *Frame) error {
	ref := f.Pop()
	if err := npeIfNull(ref.Ref); err != nil {
		return err
	}
	n, err := t.vm.heap.Length(ref.Ref.HeapID)
	if err != nil {
		return runtimeErrorf("arraylength: %v", err)
	}
	f.Push(IntValue(int32(n)))
	return nil
}
