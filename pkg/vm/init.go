package vm

import (
	"fmt"

	"github.com/arkavm/arka/pkg/classfile"
)

// EnsureInitialized runs the class initialization state machine of
// spec.md §4.7: unloaded -> loaded -> being_initialized -> initialized,
// loading the class first if necessary, then the super class, then
// <clinit>. The being_initialized flag is set before any recursive call,
// which is what lets a class's own <clinit> (directly, or via a
// superclass/diamond cycle) observe itself as "already being initialized"
// and return immediately instead of looping forever (spec.md §8's
// termination-under-cycles property).
func (t *Thread) EnsureInitialized(id ClassIdentifier) error {
	class, err := t.vm.loadClass(id)
	if err != nil {
		return err
	}

	t.vm.classes.mu.Lock()
	if class.Initialized || class.BeingInitialized {
		t.vm.classes.mu.Unlock()
		return nil
	}
	class.BeingInitialized = true
	t.vm.classes.mu.Unlock()

	if class.File.SuperClass != 0 && id != (ClassIdentifier{"java/lang", "Object"}) {
		superName, err := classfile.GetClassName(class.File.ConstantPool, class.File.SuperClass)
		if err != nil {
			return linkErrorf("resolving super class of %s: %v", id, err)
		}
		if err := t.EnsureInitialized(NewClassIdentifier(superName)); err != nil {
			return err
		}
	}

	assignDefaultFields(class)
	if err := resolveConstantValues(t.vm, class); err != nil {
		return err
	}

	if clinit := class.File.FindMethod("<clinit>", "()V"); clinit != nil {
		if _, err := t.InvokeMethod(class, clinit, nil); err != nil {
			return fmt.Errorf("running <clinit> for %s: %w", id, err)
		}
	}

	if id == (ClassIdentifier{"java/lang", "System"}) {
		if initPhase1 := class.File.FindMethod("initPhase1", "()V"); initPhase1 != nil {
			if _, err := t.InvokeMethod(class, initPhase1, nil); err != nil {
				return fmt.Errorf("running System.initPhase1: %w", err)
			}
		}
	}

	t.vm.classes.mu.Lock()
	class.BeingInitialized = false
	class.Initialized = true
	t.vm.classes.mu.Unlock()
	return nil
}

// assignDefaultFields populates a class's static fields with their
// descriptor-appropriate default values (spec.md §4.7), the state a static
// field holds before ConstantValue resolution and <clinit> run.
func assignDefaultFields(class *Class) {
	for _, f := range class.File.Fields {
		if f.AccessFlags&classfile.AccStatic == 0 {
			continue
		}
		if _, ok := class.StaticFields[f.Name]; ok {
			continue
		}
		class.StaticFields[f.Name] = defaultValueForDescriptor(f.Descriptor)
	}
}

// resolveConstantValues applies the ConstantValue attribute (JVMS §4.7.2)
// to every static final field that carries one. A CONSTANT_String value is
// eagerly turned by InternString into a heap java/lang/String object whose
// "value" byte[] holds the string's UTF-8 bytes (spec.md §4.7's "eager
// String interning").
func resolveConstantValues(v *VM, class *Class) error {
	for _, f := range class.File.Fields {
		if f.AccessFlags&classfile.AccStatic == 0 || f.ConstantValue == nil {
			continue
		}
		switch cv := f.ConstantValue.(type) {
		case *classfile.ConstantInteger:
			class.StaticFields[f.Name] = IntValue(cv.Value)
		case *classfile.ConstantFloat:
			class.StaticFields[f.Name] = FloatValue(cv.Value)
		case *classfile.ConstantLong:
			class.StaticFields[f.Name] = LongValue(cv.Value)
		case *classfile.ConstantDouble:
			class.StaticFields[f.Name] = DoubleValue(cv.Value)
		case *classfile.ConstantString:
			str, err := classfile.GetUtf8(class.File.ConstantPool, cv.StringIndex)
			if err != nil {
				return linkErrorf("resolving ConstantValue string for %s.%s: %v", class.ID, f.Name, err)
			}
			class.StaticFields[f.Name] = RefValue(HeapRef(InternString(v, str)))
		default:
			return linkErrorf("unsupported ConstantValue tag %d for %s.%s", f.ConstantValue.Tag(), class.ID, f.Name)
		}
	}
	return nil
}

// InternString materializes a Java string constant as a heap Object of
// class java.lang.String holding its UTF-8 bytes in a "value" byte[]
// field, the representation this interpreter uses in place of a real
// String pool (spec.md §4.7). Repeated calls with the same text allocate
// distinct heap objects: this VM does not implement String.intern's
// identity-sharing table, only its byte content (a documented
// simplification, spec.md §9).
func InternString(v *VM, s string) HeapID {
	bytes := []byte(s)
	elemID, err := v.heap.AllocPrimitiveArray(PrimByte, len(bytes))
	if err != nil {
		panic(err) // length is always >= 0 here
	}
	arr, _ := v.heap.GetPrimitiveArray(elemID)
	for i, b := range bytes {
		arr.Elements[i] = IntValue(int32(int8(b)))
	}
	strClass := ClassIdentifier{"java/lang", "String"}
	id := v.heap.AllocObject(strClass, map[string]string{"value": "[B"})
	obj, _ := v.heap.GetObject(id)
	obj.Fields["value"] = RefValue(HeapRef(elemID))
	return id
}
