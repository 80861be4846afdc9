package vm

import (
	"testing"

	"github.com/arkavm/arka/pkg/classfile"
)

// poolBuilder assembles a 1-indexed constant pool the way the real parser
// would hand it to the rest of the package, without going through class-file
// bytes (spec.md §8's properties only need the in-memory shape).
type poolBuilder struct {
	pool []classfile.ConstantPoolEntry
}

func newPoolBuilder() *poolBuilder {
	return &poolBuilder{pool: []classfile.ConstantPoolEntry{nil}}
}

func (b *poolBuilder) utf8(s string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantUtf8{Value: s})
	return uint16(len(b.pool) - 1)
}

func (b *poolBuilder) class(name string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantClass{NameIndex: b.utf8(name)})
	return uint16(len(b.pool) - 1)
}

func (b *poolBuilder) nameAndType(name, descriptor string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantNameAndType{NameIndex: b.utf8(name), DescriptorIndex: b.utf8(descriptor)})
	return uint16(len(b.pool) - 1)
}

func (b *poolBuilder) fieldref(className, fieldName, descriptor string) uint16 {
	b.pool = append(b.pool, &classfile.ConstantFieldref{
		ClassIndex:       b.class(className),
		NameAndTypeIndex: b.nameAndType(fieldName, descriptor),
	})
	return uint16(len(b.pool) - 1)
}

func fieldInfoOf(name, descriptor string) classfile.FieldInfo {
	return classfile.FieldInfo{AccessFlags: classfile.AccStatic, Name: name, Descriptor: descriptor}
}

func TestBeingInitializedGuardBreaksClinitCycle(t *testing.T) {
	// A.<clinit>: iconst_1, putstatic B.v:I, return
	// B.<clinit>: iconst_2, putstatic A.v:I, return
	// A init starts first: sets A.BeingInitialized, runs A.<clinit>, which
	// triggers B's init; B's <clinit> tries to re-enter A's init, which must
	// see BeingInitialized and return immediately instead of looping.
	bA := newPoolBuilder()
	bA.class("A")
	fieldrefB := bA.fieldref("B", "v", "I")
	fileA := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: bA.pool,
		Fields:       []classfile.FieldInfo{fieldInfoOf("v", "I")},
		Methods: []classfile.MethodInfo{{
			Name: "<clinit>", Descriptor: "()V",
			Code: &classfile.CodeAttribute{MaxStack: 2, Code: []byte{
				0x04,                                         // iconst_1
				0xb3, byte(fieldrefB >> 8), byte(fieldrefB), // putstatic
				0xb1, // return
			}},
		}},
	}
	classA := newClass(ClassIdentifier{Name: "A"}, fileA)

	bB := newPoolBuilder()
	bB.class("B")
	fieldrefA := bB.fieldref("A", "v", "I")
	fileB := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: bB.pool,
		Fields:       []classfile.FieldInfo{fieldInfoOf("v", "I")},
		Methods: []classfile.MethodInfo{{
			Name: "<clinit>", Descriptor: "()V",
			Code: &classfile.CodeAttribute{MaxStack: 2, Code: []byte{
				0x05,                                         // iconst_2
				0xb3, byte(fieldrefA >> 8), byte(fieldrefA), // putstatic
				0xb1, // return
			}},
		}},
	}
	classB := newClass(ClassIdentifier{Name: "B"}, fileB)

	v := NewVM(nil)
	v.classes.insert(classA)
	v.classes.insert(classB)
	th := v.NewThread()

	if err := th.EnsureInitialized(ClassIdentifier{Name: "A"}); err != nil {
		t.Fatalf("EnsureInitialized(A): %v", err)
	}

	if !classA.Initialized || !classB.Initialized {
		t.Fatalf("both classes should end up initialized: A=%v B=%v", classA.Initialized, classB.Initialized)
	}
	// A's putstatic to B.v initializes B first: B's <clinit> stores 2 into
	// A.v (A is already BeingInitialized, so no re-entry), and only then does
	// A's putstatic complete, storing 1 into B.v (the defining property of the
	// cycle guard: no deadlock, no infinite recursion, deterministic writes).
	if got := classA.StaticFields["v"].I; got != 2 {
		t.Errorf("A.v = %d, want 2", got)
	}
	if got := classB.StaticFields["v"].I; got != 1 {
		t.Errorf("B.v = %d, want 1", got)
	}
}

func TestDefaultFieldsAssignedBeforeClinitRuns(t *testing.T) {
	file := &classfile.ClassFile{
		MajorVersion: 61,
		ConstantPool: []classfile.ConstantPoolEntry{nil},
		Fields: []classfile.FieldInfo{
			fieldInfoOf("count", "I"),
			{AccessFlags: classfile.AccStatic, Name: "label", Descriptor: "Ljava/lang/String;"},
		},
	}
	class := newClass(ClassIdentifier{Name: "NoClinit"}, file)

	v := NewVM(nil)
	v.classes.insert(class)
	th := v.NewThread()

	if err := th.EnsureInitialized(ClassIdentifier{Name: "NoClinit"}); err != nil {
		t.Fatalf("EnsureInitialized: %v", err)
	}
	if got := class.StaticFields["count"].I; got != 0 {
		t.Errorf("count default = %d, want 0", got)
	}
	if !class.StaticFields["label"].Ref.IsNull() {
		t.Error("label default should be null")
	}
	if !class.Initialized {
		t.Error("class with no <clinit> should still be marked initialized")
	}
}
