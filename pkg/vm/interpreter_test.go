package vm

import (
	"testing"

	"github.com/arkavm/arka/pkg/classfile"
)

// methodref, integer and string extend poolBuilder (init_test.go) with the
// constant pool entries the invoke and ldc tests below need.
func (b *poolBuilder) methodref(className, methodName, descriptor string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantMethodref{
		ClassIndex:       b.class(className),
		NameAndTypeIndex: b.nameAndType(methodName, descriptor),
	})
	return uint16(len(b.pool) - 1)
}

func (b *poolBuilder) integer(v int32) uint16 {
	b.pool = append(b.pool, &classfile.ConstantInteger{Value: v})
	return uint16(len(b.pool) - 1)
}

func (b *poolBuilder) string(s string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantString{StringIndex: b.utf8(s)})
	return uint16(len(b.pool) - 1)
}

func newTestVM() (*VM, *Thread) {
	v := NewVM(nil)
	return v, v.NewThread()
}

func runStaticMethod(t *testing.T, vm *VM, th *Thread, class *Class, name, descriptor string, args ...Value) Value {
	t.Helper()
	method := class.File.FindMethod(name, descriptor)
	if method == nil {
		t.Fatalf("method %s%s not found", name, descriptor)
	}
	result, err := th.InvokeMethod(class, method, args)
	if err != nil {
		t.Fatalf("invoking %s%s: %v", name, descriptor, err)
	}
	return result
}

// TestIsubArithmetic exercises the bare binary-operator path: load two
// locals, subtract, return.
func TestIsubArithmetic(t *testing.T) {
	b := newPoolBuilder()
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "sub", Descriptor: "(II)I", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 2, MaxLocals: 2, Code: []byte{
				OpIload0,
				OpIload1,
				OpIsub,
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Arith"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "sub", "(II)I", IntValue(10), IntValue(3))
	if got.I != 7 {
		t.Errorf("sub(10, 3) = %d, want 7", got.I)
	}
}

// TestNewarrayStoreLoad exercises newarray/iastore/iaload together: build
// a length-5 int array, store 42 at index 0, load it back.
func TestNewarrayStoreLoad(t *testing.T) {
	b := newPoolBuilder()
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()I", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 4, MaxLocals: 0, Code: []byte{
				OpIconst5, byte(OpNewarray), ATInt, // new int[5]
				OpDup,
				OpIconst0,
				OpBipush, 42,
				byte(OpIastore),
				OpIconst0,
				byte(OpIaload),
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Arrays"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "run", "()I")
	if got.I != 42 {
		t.Errorf("run() = %d, want 42", got.I)
	}
}

// TestLdcStringProducesHeapString checks that ldc of a CONSTANT_String
// allocates a java/lang/String heap object backed by a byte[] holding the
// UTF-8 bytes.
func TestLdcStringProducesHeapString(t *testing.T) {
	b := newPoolBuilder()
	strIdx := b.string("hi")
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()Ljava/lang/String;", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 0, Code: []byte{
				byte(OpLdc), byte(strIdx),
				OpAreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Strings"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "run", "()Ljava/lang/String;")
	if got.Ref.Kind != RefHeapItem {
		t.Fatalf("ldc result is not a heap reference: %+v", got.Ref)
	}
	obj, err := v.heap.GetObject(got.Ref.HeapID)
	if err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if obj.Class != (ClassIdentifier{"java/lang", "String"}) {
		t.Errorf("ldc string class = %v, want java/lang/String", obj.Class)
	}
	if s := javaStringValue(v, got.Ref.HeapID); s != "hi" {
		t.Errorf("ldc string value = %q, want %q", s, "hi")
	}
}

// TestStaticFieldClinitInteraction checks that a getstatic triggers
// <clinit> and observes the value it assigned.
func TestStaticFieldClinitInteraction(t *testing.T) {
	b := newPoolBuilder()
	fieldrefSelf := b.fieldref("Counters", "seed", "I")
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Fields:       []classfile.FieldInfo{fieldInfoOf("seed", "I")},
		Methods: []classfile.MethodInfo{
			{
				Name: "<clinit>", Descriptor: "()V",
				Code: &classfile.CodeAttribute{MaxStack: 2, Code: []byte{
					OpBipush, 9,
					byte(OpPutstatic), byte(fieldrefSelf >> 8), byte(fieldrefSelf),
					OpReturn,
				}},
			},
			{
				Name: "read", Descriptor: "()I", AccessFlags: classfile.AccStatic,
				Code: &classfile.CodeAttribute{MaxStack: 1, Code: []byte{
					byte(OpGetstatic), byte(fieldrefSelf >> 8), byte(fieldrefSelf),
					OpIreturn,
				}},
			},
		},
	}
	class := newClass(ClassIdentifier{Name: "Counters"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "read", "()I")
	if got.I != 9 {
		t.Errorf("read() = %d, want 9", got.I)
	}
	if !class.Initialized {
		t.Error("getstatic should have triggered initialization")
	}
}

// TestMutualClinitPreClinitDefaultRead drives a two-class cycle where B's
// <clinit> runs nested inside A's (triggered by a putstatic to B before A
// finishes), and B reads A's field while A is still mid-<clinit> and has
// not yet assigned it — the read must observe the descriptor default, not
// a half-initialized or stale value (spec.md §8).
func TestMutualClinitPreClinitDefaultRead(t *testing.T) {
	bA := newPoolBuilder()
	fieldrefBx := bA.fieldref("B", "x", "I")
	fieldrefAv := bA.fieldref("A", "v", "I")
	fileA := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: bA.pool,
		Fields:       []classfile.FieldInfo{fieldInfoOf("v", "I")},
		Methods: []classfile.MethodInfo{{
			Name: "<clinit>", Descriptor: "()V",
			Code: &classfile.CodeAttribute{MaxStack: 2, Code: []byte{
				OpIconst2,
				byte(OpPutstatic), byte(fieldrefBx >> 8), byte(fieldrefBx), // triggers B.<clinit>
				OpIconst5,
				byte(OpPutstatic), byte(fieldrefAv >> 8), byte(fieldrefAv), // A.v = 5, after B already ran
				OpReturn,
			}},
		}},
	}
	classA := newClass(ClassIdentifier{Name: "A"}, fileA)

	bB := newPoolBuilder()
	fieldrefAvFromB := bB.fieldref("A", "v", "I")
	fieldrefBobs := bB.fieldref("B", "observed", "I")
	fieldrefBx := bB.fieldref("B", "x", "I")
	_ = fieldrefBx
	fileB := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: bB.pool,
		Fields: []classfile.FieldInfo{
			fieldInfoOf("x", "I"),
			fieldInfoOf("observed", "I"),
		},
		Methods: []classfile.MethodInfo{{
			Name: "<clinit>", Descriptor: "()V",
			Code: &classfile.CodeAttribute{MaxStack: 2, Code: []byte{
				byte(OpGetstatic), byte(fieldrefAvFromB >> 8), byte(fieldrefAvFromB), // A.v, should be default 0
				byte(OpPutstatic), byte(fieldrefBobs >> 8), byte(fieldrefBobs),
				OpReturn,
			}},
		}},
	}
	classB := newClass(ClassIdentifier{Name: "B"}, fileB)

	v, th := newTestVM()
	v.classes.insert(classA)
	v.classes.insert(classB)

	if err := th.EnsureInitialized(ClassIdentifier{Name: "A"}); err != nil {
		t.Fatalf("EnsureInitialized(A): %v", err)
	}

	if got := classB.StaticFields["observed"].I; got != 0 {
		t.Errorf("B.observed = %d, want 0 (A.v's pre-<clinit> default)", got)
	}
	if got := classA.StaticFields["v"].I; got != 5 {
		t.Errorf("A.v = %d, want 5", got)
	}
	if got := classB.StaticFields["x"].I; got != 2 {
		t.Errorf("B.x = %d, want 2", got)
	}
}

// TestRecursiveSynchronizedMonitorParity runs a self-recursive synchronized
// static method and checks the class monitor is fully released (no leaked
// entries) once the outermost call returns, exercising the same recursive
// entry/exit parity as monitor_test.go but driven through real bytecode
// and InvokeMethod's synchronized-method wrapping (spec.md §4.6, §4.8).
func TestRecursiveSynchronizedMonitorParity(t *testing.T) {
	b := newPoolBuilder()
	selfRef := b.methodref("Down", "count", "(I)I")
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name:        "count",
			Descriptor:  "(I)I",
			AccessFlags: classfile.AccStatic | classfile.AccSynchronized,
			Code: &classfile.CodeAttribute{MaxStack: 3, MaxLocals: 1, Code: []byte{
				// if (arg != 0) goto recurse;
				OpIload0,
				byte(OpIfne), 0x00, 0x05, // target = opcode_addr(1) + 5 = 6
				// base case
				OpIconst0,
				OpIreturn,
				// recurse: 1 + count(arg - 1)
				OpIconst1,
				OpIload0,
				OpIconst1,
				OpIsub,
				byte(OpInvokestatic), byte(selfRef >> 8), byte(selfRef),
				OpIadd,
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Down"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "count", "(I)I", IntValue(4))
	if got.I != 4 {
		t.Errorf("count(4) = %d, want 4", got.I)
	}
	if _, held := v.monitors.classes[ClassIdentifier{Name: "Down"}]; held {
		t.Error("class monitor should be fully released after the outermost synchronized call returns")
	}
}

// TestGetPutFieldOnClassReferenceRedirectsToStatics exercises spec.md §9's
// documented workaround: getfield/putfield on a class-reference receiver
// (the value ldc of a CONSTANT_Class pushes) accesses the represented
// class's own static field storage instead of faulting as a non-object
// receiver.
func TestGetPutFieldOnClassReferenceRedirectsToStatics(t *testing.T) {
	b := newPoolBuilder()
	classIdx := b.class("Target")
	fieldrefCount := b.fieldref("Target", "count", "I")
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()I", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 3, MaxLocals: 0, Code: []byte{
				byte(OpLdc), byte(classIdx), // push Target.class
				OpDup,
				OpBipush, 7,
				byte(OpPutfield), byte(fieldrefCount >> 8), byte(fieldrefCount),
				byte(OpGetfield), byte(fieldrefCount >> 8), byte(fieldrefCount),
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Runner"}, file)

	target := newClass(ClassIdentifier{Name: "Target"}, &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: []classfile.ConstantPoolEntry{nil},
		Fields:       []classfile.FieldInfo{fieldInfoOf("count", "I")},
	})

	v, th := newTestVM()
	v.classes.insert(class)
	v.classes.insert(target)

	got := runStaticMethod(t, v, th, class, "run", "()I")
	if got.I != 7 {
		t.Errorf("run() = %d, want 7", got.I)
	}
	if got := target.StaticFields["count"].I; got != 7 {
		t.Errorf("Target.count = %d, want 7 (putfield on a class reference should land in static storage)", got)
	}
}

// TestInvokevirtualOnClassReferenceDispatchesStatically exercises spec.md
// §4.8's invokevirtual static-dispatch case for a class-reference receiver:
// a virtual call on a Foo.class value must resolve against java/lang/Class,
// never against the class Foo itself represents.
func TestInvokevirtualOnClassReferenceDispatchesStatically(t *testing.T) {
	b := newPoolBuilder()
	classIdx := b.class("Widget")
	describeRef := b.methodref("java/lang/Class", "describe", "()I")
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()I", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 0, Code: []byte{
				byte(OpLdc), byte(classIdx), // push Widget.class
				byte(OpInvokevirtual), byte(describeRef >> 8), byte(describeRef),
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Runner"}, file)

	// Widget has its own (differently-behaved) describe() that must NOT be
	// the one invoked: a RefClass receiver always dispatches statically to
	// java/lang/Class, regardless of what the represented class declares.
	widget := newClass(ClassIdentifier{Name: "Widget"}, &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: []classfile.ConstantPoolEntry{nil},
		Methods: []classfile.MethodInfo{{
			Name: "describe", Descriptor: "()I",
			Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: []byte{OpIconst1, OpIreturn}},
		}},
	})

	javaLangClass := newClass(ClassIdentifier{"java/lang", "Class"}, &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: []classfile.ConstantPoolEntry{nil},
		Methods: []classfile.MethodInfo{{
			Name: "describe", Descriptor: "()I",
			Code: &classfile.CodeAttribute{MaxStack: 1, MaxLocals: 1, Code: []byte{OpIconst2, OpIreturn}},
		}},
	})

	v, th := newTestVM()
	v.classes.insert(class)
	v.classes.insert(widget)
	v.classes.insert(javaLangClass)

	got := runStaticMethod(t, v, th, class, "run", "()I")
	if got.I != 2 {
		t.Errorf("run() = %d, want 2 (java/lang/Class.describe, not Widget.describe)", got.I)
	}
}

// TestCharArrayStoreLoadTruncatesAndZeroExtends exercises castore/caload's
// element-width coercion (JVMS §6.5): a value wider than 16 bits must be
// truncated on store and zero-extended back (never sign-extended) on load.
func TestCharArrayStoreLoadTruncatesAndZeroExtends(t *testing.T) {
	b := newPoolBuilder()
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()I", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 4, MaxLocals: 0, Code: []byte{
				OpIconst1, byte(OpNewarray), ATChar, // new char[1]
				OpDup,
				OpIconst0,
				byte(OpSipush), 0xFF, 0xC1, // sipush sign-extends 0xFFC1 to -63 (0xFFFFFFC1)
				byte(OpCastore),
				OpIconst0,
				byte(OpCaload),
				OpIreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Chars"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "run", "()I")
	want := int32(0xFFC1) // 65473: low 16 bits of -63, zero-extended
	if got.I != want {
		t.Errorf("run() = %d, want %d (char load must zero-extend, not sign-extend)", got.I, want)
	}
}

// TestDup2OnLongPreservesCategory2Value exercises the dup2 family's slot
// (not value) counting: dup2 on a single long must duplicate that one
// category-2 value, not corrupt the stack by treating it as two slots of
// its own.
func TestDup2OnLongPreservesCategory2Value(t *testing.T) {
	b := newPoolBuilder()
	longIdx := uint16(len(b.pool))
	b.pool = append(b.pool, &classfile.ConstantLong{Value: 123456789012})
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: b.pool,
		Methods: []classfile.MethodInfo{{
			Name: "run", Descriptor: "()J", AccessFlags: classfile.AccStatic,
			Code: &classfile.CodeAttribute{MaxStack: 4, MaxLocals: 0, Code: []byte{
				byte(OpLdc2W), byte(longIdx >> 8), byte(longIdx),
				OpDup2,
				OpPop2, // drop the duplicate, leaving the original long on top
				OpLreturn,
			}},
		}},
	}
	class := newClass(ClassIdentifier{Name: "Longs"}, file)
	v, th := newTestVM()
	v.classes.insert(class)

	got := runStaticMethod(t, v, th, class, "run", "()J")
	if got.L != 123456789012 {
		t.Errorf("run() = %d, want 123456789012 (dup2 on a long must duplicate one value, not corrupt the stack)", got.L)
	}
}
